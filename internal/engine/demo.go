package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0gfoundation/0g-drops/internal/drops"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

const (
	hour = int64(3600)
	week = 7 * 24 * hour
)

// Demo holds the ids created by SeedDemo.
type Demo struct {
	MusicDrop    uint64
	VIPDrop      uint64
	TrackUtility uint64
	VIPUtility   uint64
}

func ether(num, den int64) *big.Int {
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	wei.Mul(wei, big.NewInt(num))
	return wei.Quo(wei, big.NewInt(den))
}

// SeedDemo creates the showcase catalogue: an open edition music drop, a
// later-starting VIP pass and one utility for each.
func SeedDemo(ctx context.Context, e *Engine, artist, royaltyReceiver common.Address) (Demo, error) {
	now := e.Ledger.Now()
	var d Demo
	var err error

	d.MusicDrop, err = e.Registry.CreateDrop(ctx, artist, drops.Params{
		Kind:            ledger.Multi,
		Price:           ether(1, 100),
		MaxSupply:       5000,
		MaxPerWallet:    10,
		StartTime:       now,
		EndTime:         now + week,
		MetadataURI:     "ipfs://QmYourMusicMetadataHash",
		RoyaltyReceiver: royaltyReceiver,
		RoyaltyBps:      500,
	})
	if err != nil {
		return Demo{}, fmt.Errorf("music drop: %w", err)
	}

	d.VIPDrop, err = e.Registry.CreateDrop(ctx, artist, drops.Params{
		Kind:            ledger.Unique,
		Price:           ether(5, 100),
		MaxSupply:       250,
		MaxPerWallet:    2,
		StartTime:       now + hour,
		EndTime:         now + week,
		MetadataURI:     "ipfs://QmYourVIPMetadataHash",
		RoyaltyReceiver: royaltyReceiver,
		RoyaltyBps:      750,
	})
	if err != nil {
		return Demo{}, fmt.Errorf("vip drop: %w", err)
	}

	d.TrackUtility, err = e.Utilities.CreateUtility(ctx, artist, d.MusicDrop,
		"Exclusive Track Access", "Access to unreleased tracks and behind-the-scenes content")
	if err != nil {
		return Demo{}, fmt.Errorf("track utility: %w", err)
	}
	d.VIPUtility, err = e.Utilities.CreateUtility(ctx, artist, d.VIPDrop,
		"Concert VIP Access", "VIP access to concerts and meet & greets")
	if err != nil {
		return Demo{}, fmt.Errorf("vip utility: %w", err)
	}
	return d, nil
}
