package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0gfoundation/0g-drops/internal/events"
)

// Tx is one atomic operation against the ledger. Every write is journaled so
// that a failing operation leaves the State exactly as it found it.
type Tx struct {
	now    int64
	st     *State
	undo   []func()
	events []events.Event
}

// Now is the single clock reading taken for this operation.
func (tx *Tx) Now() int64 { return tx.now }

// State exposes the ledger for reads. Writes go through the Tx methods.
func (tx *Tx) State() *State { return tx.st }

// Emit queues an event; it is published only if the operation commits.
func (tx *Tx) Emit(ev events.Event) {
	tx.events = append(tx.events, ev)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.events = nil
}

// run calls fn and undoes its writes if it panics, then re-panics.
func (tx *Tx) run(fn func(tx *Tx) error) error {
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()
	return fn(tx)
}

func journalSet[K comparable, V any](tx *Tx, m map[K]V, k K, v V) {
	old, ok := m[k]
	tx.undo = append(tx.undo, func() {
		if ok {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

func journalField[T any](tx *Tx, p *T, v T) {
	old := *p
	tx.undo = append(tx.undo, func() { *p = old })
	*p = v
}

// CreateDrop stores d under the next drop id and returns that id.
func (tx *Tx) CreateDrop(d Drop) uint64 {
	id := tx.st.NextDropID
	journalField(tx, &tx.st.NextDropID, id+1)
	d.ID = id
	journalSet(tx, tx.st.Drops, id, d)
	return id
}

// PutDrop replaces an existing drop.
func (tx *Tx) PutDrop(d Drop) error {
	if _, ok := tx.st.Drops[d.ID]; !ok {
		return fmt.Errorf("%w: %d", ErrDropNotFound, d.ID)
	}
	journalSet(tx, tx.st.Drops, d.ID, d)
	return nil
}

// CheckSupply fails when minting quantity more units would pass MaxSupply.
func CheckSupply(d Drop, quantity uint64) error {
	if quantity > d.Remaining() {
		return fmt.Errorf("%w: drop %d has %d left, requested %d", ErrMaxSupplyExceeded, d.ID, d.Remaining(), quantity)
	}
	return nil
}

// Mint credits quantity units of a drop to a wallet and advances the supply
// and per-wallet counters. For Unique drops it returns the first serial
// assigned; serials run consecutively from 1.
func (tx *Tx) Mint(dropID uint64, to common.Address, quantity uint64) (uint64, error) {
	d, err := tx.st.Drop(dropID)
	if err != nil {
		return 0, err
	}
	if err := CheckSupply(d, quantity); err != nil {
		return 0, err
	}
	var first uint64
	if d.Kind == Unique {
		first = d.TotalMinted + 1
	}
	d.TotalMinted += quantity
	journalSet(tx, tx.st.Drops, dropID, d)

	k := HolderKey{DropID: dropID, Wallet: to}
	journalSet(tx, tx.st.Balances, k, tx.st.Balances[k]+quantity)
	journalSet(tx, tx.st.WalletMinted, k, tx.st.WalletMinted[k]+quantity)
	return first, nil
}

// MarkNonceUsed consumes a voucher nonce.
func (tx *Tx) MarkNonceUsed(nonce *big.Int) error {
	if tx.st.NonceUsed(nonce) {
		return fmt.Errorf("%w: %s", ErrNonceAlreadyUsed, nonce)
	}
	journalSet(tx, tx.st.NoncesUsed, nonce.String(), true)
	return nil
}

// CreateUtility stores u under the next utility id and returns that id.
func (tx *Tx) CreateUtility(u Utility) uint64 {
	id := tx.st.NextUtilityID
	journalField(tx, &tx.st.NextUtilityID, id+1)
	u.ID = id
	journalSet(tx, tx.st.Utilities, id, u)
	return id
}

// PutUtility replaces an existing utility.
func (tx *Tx) PutUtility(u Utility) error {
	if _, ok := tx.st.Utilities[u.ID]; !ok {
		return fmt.Errorf("%w: %d", ErrUtilityNotFound, u.ID)
	}
	journalSet(tx, tx.st.Utilities, u.ID, u)
	return nil
}

// MarkRedeemed records a permanent (utility, wallet) redemption.
func (tx *Tx) MarkRedeemed(utilityID uint64, wallet common.Address) error {
	k := RedemptionKey{UtilityID: utilityID, Wallet: wallet}
	if tx.st.Redemptions[k] {
		return fmt.Errorf("%w: utility %d by %s", ErrUtilityAlreadyRedeemed, utilityID, wallet.Hex())
	}
	journalSet(tx, tx.st.Redemptions, k, true)
	return nil
}

func (tx *Tx) SetTrustedSigner(signer common.Address) {
	journalField(tx, &tx.st.TrustedSigner, signer)
}

// SetArtist grants or revokes the Artist role. It reports whether the set changed.
func (tx *Tx) SetArtist(a common.Address, granted bool) bool {
	if tx.st.Roles.Artists[a] == granted {
		return false
	}
	if granted {
		journalSet(tx, tx.st.Roles.Artists, a, true)
		return true
	}
	tx.undo = append(tx.undo, func() { tx.st.Roles.Artists[a] = true })
	delete(tx.st.Roles.Artists, a)
	return true
}

// AddReceived grows the distributor's running total.
func (tx *Tx) AddReceived(amount *big.Int) {
	d := &tx.st.Distributor
	journalField(tx, &d.TotalReceived, new(big.Int).Add(d.TotalReceived, amount))
}

// AddReleased grows a payee's cumulative payout.
func (tx *Tx) AddReleased(payee common.Address, amount *big.Int) {
	d := &tx.st.Distributor
	journalSet(tx, d.Released, payee, new(big.Int).Add(d.ReleasedTo(payee), amount))
}
