package drops

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

// PublicMinter is the open sale path.
type PublicMinter struct {
	l   *ledger.Ledger
	log *zap.Logger
}

func NewPublicMinter(l *ledger.Ledger, log *zap.Logger) *PublicMinter {
	return &PublicMinter{l: l, log: log}
}

// MintPublic mints quantity units to caller at the drop's list price.
// Exactly price × quantity goes to the distributor; the rest of payment is
// reported back as Refund.
func (m *PublicMinter) MintPublic(ctx context.Context, caller common.Address, dropID, quantity uint64, pay *big.Int) (ledger.Receipt, error) {
	var rcpt ledger.Receipt
	err := m.l.Update(ctx, "mintPublic", func(tx *ledger.Tx) error {
		st := tx.State()
		d, err := st.Drop(dropID)
		if err != nil {
			return err
		}
		if quantity == 0 {
			return fmt.Errorf("%w: quantity must be > 0", ledger.ErrInvalidParameters)
		}
		if pay == nil || pay.Sign() < 0 {
			return fmt.Errorf("%w: payment %v", ledger.ErrInvalidParameters, pay)
		}
		if !d.Active(tx.Now()) {
			return fmt.Errorf("%w: drop %d window [%d, %d], now %d", ledger.ErrDropNotActive, dropID, d.StartTime, d.EndTime, tx.Now())
		}
		if err := ledger.CheckSupply(d, quantity); err != nil {
			return err
		}
		minted := st.MintedBy(dropID, caller)
		if minted > d.MaxPerWallet || quantity > d.MaxPerWallet-minted {
			return fmt.Errorf("%w: %s holds %d of %d, requested %d", ledger.ErrMaxPerWalletExceeded, caller.Hex(), minted, d.MaxPerWallet, quantity)
		}
		cost := ledger.Cost(d.Price, quantity)
		if pay.Cmp(cost) < 0 {
			return fmt.Errorf("%w: paid %s, cost %s", ledger.ErrInsufficientPayment, pay, cost)
		}

		first, err := tx.Mint(dropID, caller, quantity)
		if err != nil {
			return err
		}
		payment.Deposit(tx, caller, cost)
		tx.Emit(events.TokenMinted{
			DropID:   dropID,
			To:       caller,
			Quantity: quantity,
			Paid:     cost,
			Kind:     ledger.MintPublic.String(),
		})
		rcpt = ledger.Receipt{
			DropID:      dropID,
			Quantity:    quantity,
			UnitPrice:   new(big.Int).Set(d.Price),
			Cost:        cost,
			Refund:      new(big.Int).Sub(pay, cost),
			FirstSerial: first,
		}
		return nil
	})
	if err != nil {
		return ledger.Receipt{}, err
	}
	m.log.Info("public mint",
		zap.Uint64("drop_id", dropID),
		zap.String("to", caller.Hex()),
		zap.Uint64("quantity", quantity),
		zap.String("cost", rcpt.Cost.String()),
		zap.String("refund", rcpt.Refund.String()),
	)
	return rcpt, nil
}
