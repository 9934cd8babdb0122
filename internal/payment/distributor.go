// Package payment accumulates mint proceeds and pays them out to payees by
// running-total pull accounting.
package payment

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

// Payee is one entry of the split.
type Payee struct {
	Address common.Address `json:"address"`
	Shares  uint64         `json:"shares"`
}

// Entitlement returns floor(total × share / totalShares) − released,
// never below zero.
func Entitlement(total *big.Int, share, totalShares uint64, released *big.Int) *big.Int {
	if totalShares == 0 || share == 0 {
		return new(big.Int)
	}
	due := new(big.Int).Mul(total, new(big.Int).SetUint64(share))
	due.Quo(due, new(big.Int).SetUint64(totalShares))
	due.Sub(due, released)
	if due.Sign() < 0 {
		return new(big.Int)
	}
	return due
}

// Deposit forwards amount to the distributor inside an ongoing operation.
// Mint paths call it with the exact cost, never the raw payment.
func Deposit(tx *ledger.Tx, from common.Address, amount *big.Int) {
	if amount.Sign() <= 0 {
		return
	}
	tx.AddReceived(amount)
	tx.Emit(events.PaymentReceived{From: from, Amount: new(big.Int).Set(amount)})
}

func pending(st *ledger.State, payee common.Address) *big.Int {
	d := &st.Distributor
	return Entitlement(d.TotalReceived, d.ShareOf(payee), d.TotalShares, d.ReleasedTo(payee))
}

type Distributor struct {
	l   *ledger.Ledger
	log *zap.Logger
}

func New(l *ledger.Ledger, log *zap.Logger) *Distributor {
	return &Distributor{l: l, log: log}
}

// Receive adds amount to the running total. Nothing is pushed to payees.
func (d *Distributor) Receive(ctx context.Context, from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: receive amount %v", ledger.ErrInvalidParameters, amount)
	}
	return d.l.Update(ctx, "receive", func(tx *ledger.Tx) error {
		Deposit(tx, from, amount)
		return nil
	})
}

// Release pays out everything currently due to payee and returns the amount.
// Anyone may trigger a release; funds only ever go to the payee.
func (d *Distributor) Release(ctx context.Context, payee common.Address) (*big.Int, error) {
	var paid *big.Int
	err := d.l.Update(ctx, "release", func(tx *ledger.Tx) error {
		due := pending(tx.State(), payee)
		if due.Sign() == 0 {
			return fmt.Errorf("%w: %s", ledger.ErrNothingDue, payee.Hex())
		}
		tx.AddReleased(payee, due)
		tx.Emit(events.PaymentReleased{Payee: payee, Amount: due})
		paid = due
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.log.Info("payment released", zap.String("payee", payee.Hex()), zap.String("amount", paid.String()))
	return paid, nil
}

// Pending returns what Release would pay payee right now.
func (d *Distributor) Pending(payee common.Address) *big.Int {
	var out *big.Int
	d.l.View(func(st *ledger.State) error { //nolint:errcheck
		out = pending(st, payee)
		return nil
	})
	return out
}

func (d *Distributor) Payees() []Payee {
	var out []Payee
	d.l.View(func(st *ledger.State) error { //nolint:errcheck
		for i, p := range st.Distributor.Payees {
			out = append(out, Payee{Address: p, Shares: st.Distributor.Shares[i]})
		}
		return nil
	})
	return out
}

func (d *Distributor) TotalReceived() *big.Int {
	var out *big.Int
	d.l.View(func(st *ledger.State) error { //nolint:errcheck
		out = new(big.Int).Set(st.Distributor.TotalReceived)
		return nil
	})
	return out
}

func (d *Distributor) Released(payee common.Address) *big.Int {
	var out *big.Int
	d.l.View(func(st *ledger.State) error { //nolint:errcheck
		out = st.Distributor.ReleasedTo(payee)
		return nil
	})
	return out
}
