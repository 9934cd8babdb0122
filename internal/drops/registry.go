// Package drops owns drop configuration, the public sale path and
// token-gated utilities. Everything runs against the shared ledger.
package drops

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

// ArtistRole is the role name carried in RoleGranted/RoleRevoked events.
const ArtistRole = "ARTIST_ROLE"

// Params configures a new drop.
type Params struct {
	Kind            ledger.UnitKind
	Price           *big.Int
	MaxSupply       uint64
	MaxPerWallet    uint64
	StartTime       int64
	EndTime         int64
	AllowlistRoot   [32]byte
	MetadataURI     string
	RoyaltyReceiver common.Address
	RoyaltyBps      uint64
}

func (p Params) validate() error {
	switch {
	case p.Kind != ledger.Multi && p.Kind != ledger.Unique:
		return fmt.Errorf("%w: unit kind %d", ledger.ErrInvalidParameters, p.Kind)
	case p.Price == nil || p.Price.Sign() < 0:
		return fmt.Errorf("%w: price %v", ledger.ErrInvalidParameters, p.Price)
	case p.MaxSupply == 0:
		return fmt.Errorf("%w: maxSupply must be > 0", ledger.ErrInvalidParameters)
	case p.StartTime >= p.EndTime:
		return fmt.Errorf("%w: startTime %d must be before endTime %d", ledger.ErrInvalidParameters, p.StartTime, p.EndTime)
	case p.RoyaltyBps > ledger.BpsDenominator:
		return fmt.Errorf("%w: royaltyBps %d exceeds %d", ledger.ErrInvalidParameters, p.RoyaltyBps, ledger.BpsDenominator)
	}
	return nil
}

func requireArtist(st *ledger.State, caller common.Address) error {
	if !st.IsArtist(caller) {
		return fmt.Errorf("%w: %s is not an artist", ledger.ErrUnauthorized, caller.Hex())
	}
	return nil
}

func requireOwner(st *ledger.State, caller common.Address) error {
	if !st.IsOwner(caller) {
		return fmt.Errorf("%w: %s is not the owner", ledger.ErrUnauthorized, caller.Hex())
	}
	return nil
}

// Registry manages drop configuration, royalties and the metadata lifecycle.
type Registry struct {
	l       *ledger.Ledger
	baseURI string
	log     *zap.Logger
}

func NewRegistry(l *ledger.Ledger, baseURI string, log *zap.Logger) *Registry {
	return &Registry{l: l, baseURI: baseURI, log: log}
}

func (r *Registry) CreateDrop(ctx context.Context, caller common.Address, p Params) (uint64, error) {
	var id uint64
	err := r.l.Update(ctx, "createDrop", func(tx *ledger.Tx) error {
		if err := requireArtist(tx.State(), caller); err != nil {
			return err
		}
		if err := p.validate(); err != nil {
			return err
		}
		id = tx.CreateDrop(ledger.Drop{
			Kind:            p.Kind,
			Price:           new(big.Int).Set(p.Price),
			MaxSupply:       p.MaxSupply,
			MaxPerWallet:    p.MaxPerWallet,
			StartTime:       p.StartTime,
			EndTime:         p.EndTime,
			AllowlistRoot:   p.AllowlistRoot,
			MetadataURI:     p.MetadataURI,
			RoyaltyReceiver: p.RoyaltyReceiver,
			RoyaltyBps:      p.RoyaltyBps,
			Creator:         caller,
		})
		tx.Emit(events.DropCreated{
			DropID:    id,
			Creator:   caller,
			UnitKind:  p.Kind.String(),
			Price:     new(big.Int).Set(p.Price),
			MaxSupply: p.MaxSupply,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.log.Info("drop created", zap.Uint64("drop_id", id), zap.String("kind", p.Kind.String()), zap.String("creator", caller.Hex()))
	return id, nil
}

func (r *Registry) UpdateMetadata(ctx context.Context, caller common.Address, dropID uint64, uri string) error {
	return r.l.Update(ctx, "updateMetadata", func(tx *ledger.Tx) error {
		if err := requireArtist(tx.State(), caller); err != nil {
			return err
		}
		d, err := tx.State().Drop(dropID)
		if err != nil {
			return err
		}
		if d.MetadataFrozen {
			return fmt.Errorf("%w: drop %d", ledger.ErrMetadataFrozen, dropID)
		}
		d.MetadataURI = uri
		if err := tx.PutDrop(d); err != nil {
			return err
		}
		tx.Emit(events.MetadataUpdated{DropID: dropID, NewURI: uri})
		return nil
	})
}

// FreezeMetadata is one-way. Freezing an already frozen drop succeeds
// without emitting anything.
func (r *Registry) FreezeMetadata(ctx context.Context, caller common.Address, dropID uint64) error {
	return r.l.Update(ctx, "freezeMetadata", func(tx *ledger.Tx) error {
		if err := requireArtist(tx.State(), caller); err != nil {
			return err
		}
		d, err := tx.State().Drop(dropID)
		if err != nil {
			return err
		}
		if d.MetadataFrozen {
			return nil
		}
		d.MetadataFrozen = true
		if err := tx.PutDrop(d); err != nil {
			return err
		}
		tx.Emit(events.MetadataFrozen{DropID: dropID})
		return nil
	})
}

// RoyaltyInfo returns the receiver and floor(salePrice × royaltyBps / 10000).
func (r *Registry) RoyaltyInfo(dropID uint64, salePrice *big.Int) (common.Address, *big.Int, error) {
	var (
		recv   common.Address
		amount *big.Int
	)
	if salePrice == nil || salePrice.Sign() < 0 {
		return recv, nil, fmt.Errorf("%w: sale price %v", ledger.ErrInvalidParameters, salePrice)
	}
	err := r.l.View(func(st *ledger.State) error {
		d, err := st.Drop(dropID)
		if err != nil {
			return err
		}
		recv = d.RoyaltyReceiver
		amount = ledger.ApplyBps(salePrice, d.RoyaltyBps)
		return nil
	})
	return recv, amount, err
}

// Drop returns a copy of the drop.
func (r *Registry) Drop(dropID uint64) (ledger.Drop, error) {
	var d ledger.Drop
	err := r.l.View(func(st *ledger.State) error {
		var err error
		d, err = st.Drop(dropID)
		if err == nil {
			d.Price = new(big.Int).Set(d.Price)
		}
		return err
	})
	return d, err
}

// Drops lists every drop in id order.
func (r *Registry) Drops() []ledger.Drop {
	var out []ledger.Drop
	r.l.View(func(st *ledger.State) error { //nolint:errcheck
		for id := uint64(1); id < st.NextDropID; id++ {
			if d, ok := st.Drops[id]; ok {
				d.Price = new(big.Int).Set(d.Price)
				out = append(out, d)
			}
		}
		return nil
	})
	return out
}

// URI returns the drop's metadata URI, falling back to baseURI + id.
func (r *Registry) URI(dropID uint64) (string, error) {
	d, err := r.Drop(dropID)
	if err != nil {
		return "", err
	}
	if d.MetadataURI != "" {
		return d.MetadataURI, nil
	}
	return r.baseURI + strconv.FormatUint(dropID, 10), nil
}

func (r *Registry) BalanceOf(dropID uint64, wallet common.Address) uint64 {
	var n uint64
	r.l.View(func(st *ledger.State) error { //nolint:errcheck
		n = st.BalanceOf(dropID, wallet)
		return nil
	})
	return n
}

// WalletMinted is the number of units a wallet minted from a drop on either path.
func (r *Registry) WalletMinted(dropID uint64, wallet common.Address) uint64 {
	var n uint64
	r.l.View(func(st *ledger.State) error { //nolint:errcheck
		n = st.MintedBy(dropID, wallet)
		return nil
	})
	return n
}

func (r *Registry) GrantArtist(ctx context.Context, caller, account common.Address) error {
	return r.l.Update(ctx, "grantArtist", func(tx *ledger.Tx) error {
		if err := requireOwner(tx.State(), caller); err != nil {
			return err
		}
		if tx.SetArtist(account, true) {
			tx.Emit(events.RoleGranted{Role: ArtistRole, Account: account, Sender: caller})
		}
		return nil
	})
}

func (r *Registry) RevokeArtist(ctx context.Context, caller, account common.Address) error {
	return r.l.Update(ctx, "revokeArtist", func(tx *ledger.Tx) error {
		if err := requireOwner(tx.State(), caller); err != nil {
			return err
		}
		if tx.SetArtist(account, false) {
			tx.Emit(events.RoleRevoked{Role: ArtistRole, Account: account, Sender: caller})
		}
		return nil
	})
}
