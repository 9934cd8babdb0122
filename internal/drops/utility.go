package drops

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

// Utilities manages perks gated on current ownership of a drop.
type Utilities struct {
	l   *ledger.Ledger
	log *zap.Logger
}

func NewUtilities(l *ledger.Ledger, log *zap.Logger) *Utilities {
	return &Utilities{l: l, log: log}
}

func (u *Utilities) CreateUtility(ctx context.Context, caller common.Address, dropID uint64, name, description string) (uint64, error) {
	var id uint64
	err := u.l.Update(ctx, "createUtility", func(tx *ledger.Tx) error {
		if err := requireArtist(tx.State(), caller); err != nil {
			return err
		}
		if _, err := tx.State().Drop(dropID); err != nil {
			return err
		}
		id = tx.CreateUtility(ledger.Utility{
			DropID:      dropID,
			Name:        name,
			Description: description,
			Active:      true,
		})
		tx.Emit(events.UtilityCreated{UtilityID: id, DropID: dropID, Name: name})
		return nil
	})
	if err != nil {
		return 0, err
	}
	u.log.Info("utility created", zap.Uint64("utility_id", id), zap.Uint64("drop_id", dropID))
	return id, nil
}

// RedeemUtility checks the caller's balance at call time only; any current
// holder qualifies, minter or not.
func (u *Utilities) RedeemUtility(ctx context.Context, caller common.Address, utilityID uint64) error {
	return u.l.Update(ctx, "redeemUtility", func(tx *ledger.Tx) error {
		st := tx.State()
		ut, err := st.Utility(utilityID)
		if err != nil {
			return err
		}
		if !ut.Active {
			return fmt.Errorf("%w: %d", ledger.ErrUtilityInactive, utilityID)
		}
		if st.BalanceOf(ut.DropID, caller) == 0 {
			return fmt.Errorf("%w: %s holds none of drop %d", ledger.ErrNoTokenAccess, caller.Hex(), ut.DropID)
		}
		if err := tx.MarkRedeemed(utilityID, caller); err != nil {
			return err
		}
		tx.Emit(events.UtilityRedeemed{UtilityID: utilityID, DropID: ut.DropID, User: caller})
		return nil
	})
}

// Deactivate turns a utility off for good. Existing redemptions stand.
func (u *Utilities) Deactivate(ctx context.Context, caller common.Address, utilityID uint64) error {
	return u.l.Update(ctx, "deactivateUtility", func(tx *ledger.Tx) error {
		if err := requireArtist(tx.State(), caller); err != nil {
			return err
		}
		ut, err := tx.State().Utility(utilityID)
		if err != nil {
			return err
		}
		if !ut.Active {
			return nil
		}
		ut.Active = false
		if err := tx.PutUtility(ut); err != nil {
			return err
		}
		tx.Emit(events.UtilityDeactivated{UtilityID: utilityID})
		return nil
	})
}

func (u *Utilities) Utility(utilityID uint64) (ledger.Utility, error) {
	var out ledger.Utility
	err := u.l.View(func(st *ledger.State) error {
		var err error
		out, err = st.Utility(utilityID)
		return err
	})
	return out, err
}

// ForDrop lists the utilities attached to a drop in id order.
func (u *Utilities) ForDrop(dropID uint64) []ledger.Utility {
	var out []ledger.Utility
	u.l.View(func(st *ledger.State) error { //nolint:errcheck
		for id := uint64(1); id < st.NextUtilityID; id++ {
			if ut, ok := st.Utilities[id]; ok && ut.DropID == dropID {
				out = append(out, ut)
			}
		}
		return nil
	})
	return out
}

func (u *Utilities) Redeemed(utilityID uint64, wallet common.Address) bool {
	var ok bool
	u.l.View(func(st *ledger.State) error { //nolint:errcheck
		ok = st.Redeemed(utilityID, wallet)
		return nil
	})
	return ok
}
