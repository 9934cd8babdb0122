package ledger

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Roles holds the capability sets checked against the caller identity.
type Roles struct {
	Owner   common.Address
	Artists map[common.Address]bool
}

// Distributor is the pull-payment accounting state.
type Distributor struct {
	Payees        []common.Address
	Shares        []uint64
	TotalShares   uint64
	TotalReceived *big.Int
	Released      map[common.Address]*big.Int
}

// ShareOf returns the payee's share count, or 0 for non-payees.
func (d *Distributor) ShareOf(payee common.Address) uint64 {
	for i, p := range d.Payees {
		if p == payee {
			return d.Shares[i]
		}
	}
	return 0
}

// ReleasedTo returns the cumulative amount already paid to payee.
func (d *Distributor) ReleasedTo(payee common.Address) *big.Int {
	if r, ok := d.Released[payee]; ok {
		return new(big.Int).Set(r)
	}
	return new(big.Int)
}

// State is the whole ledger: every counter and set the engine reads or
// writes. It is only mutated through a Tx.
type State struct {
	NextDropID    uint64
	NextUtilityID uint64

	Drops        map[uint64]Drop
	Balances     map[HolderKey]uint64
	WalletMinted map[HolderKey]uint64

	Utilities   map[uint64]Utility
	Redemptions map[RedemptionKey]bool

	// NoncesUsed is keyed by the nonce's decimal string.
	NoncesUsed    map[string]bool
	TrustedSigner common.Address

	Roles       Roles
	Distributor Distributor

	// Seq is the sequence number of the last published event.
	Seq uint64
	// LastTime is the last clock value handed to a committed operation.
	LastTime int64
}

// Genesis is the initial configuration of a fresh ledger.
type Genesis struct {
	Owner         common.Address
	Artists       []common.Address
	TrustedSigner common.Address
	Payees        []common.Address
	Shares        []uint64
}

// NewState builds the genesis state. Payees and shares must be parallel,
// non-empty, free of duplicates and zero addresses, and every share positive
// with a total that fits in a uint64.
func NewState(g Genesis) (*State, error) {
	if len(g.Payees) == 0 || len(g.Payees) != len(g.Shares) {
		return nil, fmt.Errorf("%w: %d payees, %d shares", ErrInvalidParameters, len(g.Payees), len(g.Shares))
	}
	var total uint64
	seen := make(map[common.Address]bool, len(g.Payees))
	for i, p := range g.Payees {
		if p == (common.Address{}) {
			return nil, fmt.Errorf("%w: payee %d is the zero address", ErrInvalidParameters, i)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: duplicate payee %s", ErrInvalidParameters, p.Hex())
		}
		if g.Shares[i] == 0 {
			return nil, fmt.Errorf("%w: payee %s has zero shares", ErrInvalidParameters, p.Hex())
		}
		if total > math.MaxUint64-g.Shares[i] {
			return nil, fmt.Errorf("%w: total shares overflow", ErrInvalidParameters)
		}
		seen[p] = true
		total += g.Shares[i]
	}

	st := &State{
		NextDropID:    1,
		NextUtilityID: 1,
		TrustedSigner: g.TrustedSigner,
		Roles:         Roles{Owner: g.Owner},
		Distributor: Distributor{
			Payees:      append([]common.Address(nil), g.Payees...),
			Shares:      append([]uint64(nil), g.Shares...),
			TotalShares: total,
		},
	}
	st.Normalize()
	for _, a := range g.Artists {
		st.Roles.Artists[a] = true
	}
	return st, nil
}

// Normalize allocates any nil map or amount. Decoded snapshots drop empty
// maps, so it runs after every load.
func (s *State) Normalize() {
	if s.NextDropID == 0 {
		s.NextDropID = 1
	}
	if s.NextUtilityID == 0 {
		s.NextUtilityID = 1
	}
	if s.Drops == nil {
		s.Drops = make(map[uint64]Drop)
	}
	for id, d := range s.Drops {
		if d.Price == nil {
			d.Price = new(big.Int)
			s.Drops[id] = d
		}
	}
	if s.Balances == nil {
		s.Balances = make(map[HolderKey]uint64)
	}
	if s.WalletMinted == nil {
		s.WalletMinted = make(map[HolderKey]uint64)
	}
	if s.Utilities == nil {
		s.Utilities = make(map[uint64]Utility)
	}
	if s.Redemptions == nil {
		s.Redemptions = make(map[RedemptionKey]bool)
	}
	if s.NoncesUsed == nil {
		s.NoncesUsed = make(map[string]bool)
	}
	if s.Roles.Artists == nil {
		s.Roles.Artists = make(map[common.Address]bool)
	}
	if s.Distributor.TotalReceived == nil {
		s.Distributor.TotalReceived = new(big.Int)
	}
	if s.Distributor.Released == nil {
		s.Distributor.Released = make(map[common.Address]*big.Int)
	}
}

// Drop looks up a drop by id.
func (s *State) Drop(id uint64) (Drop, error) {
	d, ok := s.Drops[id]
	if !ok {
		return Drop{}, fmt.Errorf("%w: %d", ErrDropNotFound, id)
	}
	return d, nil
}

// Utility looks up a utility by id.
func (s *State) Utility(id uint64) (Utility, error) {
	u, ok := s.Utilities[id]
	if !ok {
		return Utility{}, fmt.Errorf("%w: %d", ErrUtilityNotFound, id)
	}
	return u, nil
}

func (s *State) BalanceOf(dropID uint64, wallet common.Address) uint64 {
	return s.Balances[HolderKey{DropID: dropID, Wallet: wallet}]
}

func (s *State) MintedBy(dropID uint64, wallet common.Address) uint64 {
	return s.WalletMinted[HolderKey{DropID: dropID, Wallet: wallet}]
}

func (s *State) Redeemed(utilityID uint64, wallet common.Address) bool {
	return s.Redemptions[RedemptionKey{UtilityID: utilityID, Wallet: wallet}]
}

func (s *State) NonceUsed(nonce *big.Int) bool {
	return s.NoncesUsed[nonce.String()]
}

func (s *State) IsArtist(a common.Address) bool {
	return s.Roles.Artists[a]
}

func (s *State) IsOwner(a common.Address) bool {
	return a == s.Roles.Owner
}

// Holdings sums every balance of a drop.
func (s *State) Holdings(dropID uint64) uint64 {
	var n uint64
	for k, v := range s.Balances {
		if k.DropID == dropID {
			n += v
		}
	}
	return n
}
