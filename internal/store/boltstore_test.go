package store

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

var (
	owner = common.HexToAddress("0x3000000000000000000000000000000000000001")
	payee = common.HexToAddress("0x3000000000000000000000000000000000000002")
	fan   = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func tempStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "drops.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func populatedState(t *testing.T) *ledger.State {
	t.Helper()
	st, err := ledger.NewState(ledger.Genesis{
		Owner:   owner,
		Artists: []common.Address{owner},
		Payees:  []common.Address{payee},
		Shares:  []uint64{3},
	})
	require.NoError(t, err)
	st.Drops[1] = ledger.Drop{
		ID: 1, Kind: ledger.Unique, Price: big.NewInt(5), MaxSupply: 10, TotalMinted: 2,
		MaxPerWallet: 2, StartTime: 1, EndTime: 2, AllowlistRoot: [32]byte{9}, Creator: owner,
	}
	st.NextDropID = 2
	st.Balances[ledger.HolderKey{DropID: 1, Wallet: fan}] = 2
	st.WalletMinted[ledger.HolderKey{DropID: 1, Wallet: fan}] = 2
	st.NoncesUsed["123456789012345678901234567890"] = true
	st.Redemptions[ledger.RedemptionKey{UtilityID: 1, Wallet: fan}] = true
	st.Distributor.TotalReceived = big.NewInt(10)
	st.Distributor.Released[payee] = big.NewInt(4)
	st.Seq = 7
	st.LastTime = 1_700_000_000
	return st
}

func TestSnapshot_RoundTrip(t *testing.T) {
	s, _ := tempStore(t)
	want := populatedState(t)
	require.NoError(t, s.SaveState(want))

	got, err := s.LoadState()
	require.NoError(t, err)
	assert.Equal(t, want.Drops[1].AllowlistRoot, got.Drops[1].AllowlistRoot)
	assert.Equal(t, 0, want.Drops[1].Price.Cmp(got.Drops[1].Price))
	assert.Equal(t, uint64(2), got.BalanceOf(1, fan))
	assert.True(t, got.NonceUsed(mustBig("123456789012345678901234567890")))
	assert.True(t, got.Redeemed(1, fan))
	assert.True(t, got.IsArtist(owner))
	assert.Equal(t, int64(4), got.Distributor.ReleasedTo(payee).Int64())
	assert.Equal(t, uint64(7), got.Seq)
	assert.Equal(t, uint64(2), got.NextDropID)
}

func TestLoadState_Empty(t *testing.T) {
	s, _ := tempStore(t)
	_, err := s.LoadState()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLoadState_NormalizesEmptyMaps(t *testing.T) {
	s, _ := tempStore(t)
	st, err := ledger.NewState(ledger.Genesis{Payees: []common.Address{payee}, Shares: []uint64{1}})
	require.NoError(t, err)
	require.NoError(t, s.SaveState(st))

	got, err := s.LoadState()
	require.NoError(t, err)
	assert.NotNil(t, got.Drops)
	assert.NotNil(t, got.NoncesUsed)
	assert.NotNil(t, got.Roles.Artists)
	assert.NotNil(t, got.Distributor.TotalReceived)
	assert.Equal(t, uint64(1), got.NextDropID)
}

func TestSnapshot_Persistence(t *testing.T) {
	s, path := tempStore(t)
	require.NoError(t, s.SaveState(populatedState(t)))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.LoadState()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Drops[1].TotalMinted)
}

// ── Event journal ─────────────────────────────────────────────────────────────

func envelopes(from uint64, n int) []events.Envelope {
	out := make([]events.Envelope, n)
	for i := range out {
		out[i] = events.Envelope{
			Seq:     from + uint64(i),
			Name:    "MetadataFrozen",
			Time:    100,
			Op:      "freezeMetadata",
			Payload: events.MetadataFrozen{DropID: uint64(i + 1)},
		}
	}
	return out
}

func TestEvents_AppendAndPage(t *testing.T) {
	s, _ := tempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Publish(ctx, envelopes(1, 3)))
	require.NoError(t, s.Publish(ctx, envelopes(4, 2)))

	all, err := s.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, e := range all {
		assert.Equal(t, uint64(i+1), e.Seq)
	}

	page, err := s.Events(3, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].Seq)

	var p events.MetadataFrozen
	require.NoError(t, json.Unmarshal(page[0].Payload, &p))
	assert.Equal(t, uint64(3), p.DropID)

	last, err := s.LastSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), last)
}

func TestEvents_RejectsDuplicateSeq(t *testing.T) {
	s, _ := tempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Publish(ctx, envelopes(1, 2)))
	assert.Error(t, s.Publish(ctx, envelopes(2, 1)))

	all, err := s.Events(0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEvents_FromLedger(t *testing.T) {
	s, _ := tempStore(t)
	st := populatedState(t)
	st.Seq = 0
	l := ledger.New(st, nil, ledger.WithSink(s))
	require.NoError(t, l.Update(context.Background(), "freezeMetadata", func(tx *ledger.Tx) error {
		tx.Emit(events.MetadataFrozen{DropID: 1})
		return nil
	}))
	all, err := s.Events(1, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "freezeMetadata", all[0].Op)
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return n
}
