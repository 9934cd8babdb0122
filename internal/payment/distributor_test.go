package payment

import (
	"context"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
)

var (
	artist   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	outsider = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

func newDistributor(t *testing.T) (*Distributor, *events.Recorder) {
	t.Helper()
	st, err := ledger.NewState(ledger.Genesis{
		Payees: []common.Address{artist, deployer},
		Shares: []uint64{70, 30},
	})
	require.NoError(t, err)
	rec := &events.Recorder{}
	l := ledger.New(st, ledger.NewManualClock(time.Unix(1, 0)), ledger.WithSink(rec))
	return New(l, zap.NewNop()), rec
}

func TestEntitlement(t *testing.T) {
	assert.Equal(t, int64(70), Entitlement(big.NewInt(100), 70, 100, big.NewInt(0)).Int64())
	assert.Equal(t, int64(0), Entitlement(big.NewInt(100), 70, 100, big.NewInt(70)).Int64())
	// floor(101 × 30 / 100) = 30
	assert.Equal(t, int64(30), Entitlement(big.NewInt(101), 30, 100, big.NewInt(0)).Int64())
	assert.Equal(t, int64(0), Entitlement(big.NewInt(100), 0, 100, big.NewInt(0)).Int64())
	assert.Equal(t, int64(0), Entitlement(big.NewInt(100), 1, 0, big.NewInt(0)).Int64())
	assert.Equal(t, int64(0), Entitlement(big.NewInt(10), 1, 1, big.NewInt(20)).Int64())
}

func TestReceiveAndRelease(t *testing.T) {
	d, rec := newDistributor(t)
	ctx := context.Background()

	require.NoError(t, d.Receive(ctx, outsider, big.NewInt(1000)))
	assert.Equal(t, int64(700), d.Pending(artist).Int64())
	assert.Equal(t, int64(300), d.Pending(deployer).Int64())

	paid, err := d.Release(ctx, artist)
	require.NoError(t, err)
	assert.Equal(t, int64(700), paid.Int64())
	assert.Equal(t, int64(700), d.Released(artist).Int64())

	_, err = d.Release(ctx, artist)
	assert.ErrorIs(t, err, ledger.ErrNothingDue)

	require.NoError(t, d.Receive(ctx, outsider, big.NewInt(100)))
	paid, err = d.Release(ctx, artist)
	require.NoError(t, err)
	assert.Equal(t, int64(70), paid.Int64())

	assert.Equal(t, int64(1100), d.TotalReceived().Int64())
	assert.Equal(t, []string{"PaymentReceived", "PaymentReleased", "PaymentReceived", "PaymentReleased"}, rec.Names())
}

func TestRelease_NonPayee(t *testing.T) {
	d, _ := newDistributor(t)
	ctx := context.Background()
	require.NoError(t, d.Receive(ctx, outsider, big.NewInt(1000)))

	_, err := d.Release(ctx, outsider)
	assert.ErrorIs(t, err, ledger.ErrNothingDue)
}

func TestReceive_Negative(t *testing.T) {
	d, _ := newDistributor(t)
	err := d.Receive(context.Background(), outsider, big.NewInt(-1))
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)
}

func TestPayees(t *testing.T) {
	d, _ := newDistributor(t)
	assert.Equal(t, []Payee{{artist, 70}, {deployer, 30}}, d.Payees())
}

// Releases commute and never exceed floor(T × share / totalShares).
func TestConservation_RandomSequence(t *testing.T) {
	d, _ := newDistributor(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	total := new(big.Int)

	for i := 0; i < 200; i++ {
		if rng.Intn(3) == 0 {
			amt := big.NewInt(rng.Int63n(1_000_000))
			require.NoError(t, d.Receive(ctx, outsider, amt))
			total.Add(total, amt)
			continue
		}
		p := artist
		if rng.Intn(2) == 0 {
			p = deployer
		}
		_, err := d.Release(ctx, p)
		if err != nil {
			require.ErrorIs(t, err, ledger.ErrNothingDue)
		}
	}

	for _, p := range d.Payees() {
		limit := Entitlement(total, p.Shares, 100, new(big.Int))
		assert.True(t, d.Released(p.Address).Cmp(limit) <= 0, "payee %s overpaid", p.Address.Hex())
		if d.Pending(p.Address).Sign() > 0 {
			_, err := d.Release(ctx, p.Address)
			require.NoError(t, err)
		}
		_, err := d.Release(ctx, p.Address)
		assert.ErrorIs(t, err, ledger.ErrNothingDue)
		assert.Equal(t, 0, d.Released(p.Address).Cmp(limit))
	}
}
