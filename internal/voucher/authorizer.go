package voucher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
	"github.com/0gfoundation/0g-drops/internal/payment"
)

// Authorizer is the personalized sale path: it mints against vouchers signed
// by the trusted signer under this deployment's domain.
type Authorizer struct {
	l      *ledger.Ledger
	domain Domain
	log    *zap.Logger
}

func NewAuthorizer(l *ledger.Ledger, domain Domain, log *zap.Logger) *Authorizer {
	return &Authorizer{l: l, domain: domain, log: log}
}

func (a *Authorizer) Domain() Domain { return a.domain }

// DomainSeparator is stable for the life of the deployment.
func (a *Authorizer) DomainSeparator() common.Hash { return a.domain.Separator() }

// DiscountedPrice returns floor(price × (10000 − bps) / 10000).
func DiscountedPrice(price *big.Int, bps uint64) (*big.Int, error) {
	if bps > ledger.BpsDenominator {
		return nil, fmt.Errorf("%w: discountBps %d exceeds %d", ledger.ErrInvalidParameters, bps, ledger.BpsDenominator)
	}
	return ledger.ApplyBps(price, ledger.BpsDenominator-bps), nil
}

func verifyAgainst(v *MintVoucher, d Domain, trusted common.Address) (common.Address, error) {
	if v == nil {
		return common.Address{}, fmt.Errorf("%w: no voucher", ledger.ErrInvalidSignature)
	}
	signer, err := Recover(v, d)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ledger.ErrInvalidSignature, err)
	}
	if signer != trusted {
		return common.Address{}, fmt.Errorf("%w: signed by %s, trusted %s", ledger.ErrInvalidSignature, signer.Hex(), trusted.Hex())
	}
	return signer, nil
}

// Verify recovers the voucher's signer and requires it to be the trusted signer.
func (a *Authorizer) Verify(v *MintVoucher) (common.Address, error) {
	return verifyAgainst(v, a.domain, a.TrustedSigner())
}

// MintWithVoucher mints quantity units to caller under v. The nonce is
// consumed in full however many units are taken, and the drop's public
// per-wallet cap does not apply.
func (a *Authorizer) MintWithVoucher(ctx context.Context, caller common.Address, v *MintVoucher, quantity uint64, pay *big.Int) (ledger.Receipt, error) {
	var rcpt ledger.Receipt
	err := a.l.Update(ctx, "mintWithVoucher", func(tx *ledger.Tx) error {
		st := tx.State()
		if _, err := verifyAgainst(v, a.domain, st.TrustedSigner); err != nil {
			return err
		}
		if v.Wallet != caller {
			return fmt.Errorf("%w: voucher bound to %s, caller %s", ledger.ErrUnauthorized, v.Wallet.Hex(), caller.Hex())
		}
		if !v.Active(tx.Now()) {
			return fmt.Errorf("%w: window [%d, %d], now %d", ledger.ErrVoucherExpired, v.StartTime, v.EndTime, tx.Now())
		}
		if quantity > v.MaxQuantity {
			return fmt.Errorf("%w: requested %d, voucher allows %d", ledger.ErrExceedsMaxQuantity, quantity, v.MaxQuantity)
		}
		if err := tx.MarkNonceUsed(v.Nonce); err != nil {
			return err
		}
		unit, err := DiscountedPrice(v.Price, v.DiscountBps)
		if err != nil {
			return err
		}
		if quantity == 0 {
			return fmt.Errorf("%w: quantity must be > 0", ledger.ErrInvalidParameters)
		}
		if pay == nil || pay.Sign() < 0 {
			return fmt.Errorf("%w: payment %v", ledger.ErrInvalidParameters, pay)
		}
		cost := ledger.Cost(unit, quantity)
		if pay.Cmp(cost) < 0 {
			return fmt.Errorf("%w: paid %s, cost %s", ledger.ErrInsufficientPayment, pay, cost)
		}

		first, err := tx.Mint(v.DropID, caller, quantity)
		if err != nil {
			return err
		}
		payment.Deposit(tx, caller, cost)
		tx.Emit(events.PersonalizedMint{
			Collection: v.Collection,
			DropID:     v.DropID,
			Wallet:     caller,
			Quantity:   quantity,
			FinalPrice: new(big.Int).Set(unit),
			Nonce:      new(big.Int).Set(v.Nonce),
		})
		rcpt = ledger.Receipt{
			DropID:      v.DropID,
			Quantity:    quantity,
			UnitPrice:   unit,
			Cost:        cost,
			Refund:      new(big.Int).Sub(pay, cost),
			FirstSerial: first,
		}
		return nil
	})
	if err != nil {
		return ledger.Receipt{}, err
	}
	a.log.Info("voucher mint",
		zap.Uint64("drop_id", v.DropID),
		zap.String("wallet", caller.Hex()),
		zap.Uint64("quantity", quantity),
		zap.String("nonce", v.Nonce.String()),
		zap.String("unit_price", rcpt.UnitPrice.String()),
	)
	return rcpt, nil
}

// RemainingAllowance returns v.MaxQuantity while v is unused, addressed to
// wallet for dropID and inside its window; otherwise 0. A partially used
// voucher reports 0.
func (a *Authorizer) RemainingAllowance(wallet common.Address, dropID uint64, v *MintVoucher) uint64 {
	if v == nil || v.Nonce == nil || v.Wallet != wallet || v.DropID != dropID {
		return 0
	}
	if !v.Active(a.l.Now()) {
		return 0
	}
	if a.NonceUsed(v.Nonce) {
		return 0
	}
	return v.MaxQuantity
}

// SetTrustedSigner is restricted to the owner.
func (a *Authorizer) SetTrustedSigner(ctx context.Context, caller, signer common.Address) error {
	err := a.l.Update(ctx, "setTrustedSigner", func(tx *ledger.Tx) error {
		if !tx.State().IsOwner(caller) {
			return fmt.Errorf("%w: %s is not the owner", ledger.ErrUnauthorized, caller.Hex())
		}
		tx.SetTrustedSigner(signer)
		tx.Emit(events.TrustedSignerUpdated{Signer: signer})
		return nil
	})
	if err != nil {
		return err
	}
	a.log.Info("trusted signer updated", zap.String("signer", signer.Hex()))
	return nil
}

func (a *Authorizer) TrustedSigner() common.Address {
	var s common.Address
	a.l.View(func(st *ledger.State) error { //nolint:errcheck
		s = st.TrustedSigner
		return nil
	})
	return s
}

func (a *Authorizer) NonceUsed(nonce *big.Int) bool {
	var used bool
	a.l.View(func(st *ledger.State) error { //nolint:errcheck
		used = st.NonceUsed(nonce)
		return nil
	})
	return used
}
