package engine

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/config"
	"github.com/0gfoundation/0g-drops/internal/drops"
	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/issuer"
	"github.com/0gfoundation/0g-drops/internal/ledger"
	"github.com/0gfoundation/0g-drops/internal/voucher"
)

var (
	deployer   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	artist     = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	fan1       = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	fan2       = common.HexToAddress("0x90F79bf6EB2c4f870365E51bE0b6f33A9b3A0b3c")
	collection = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	domain     = voucher.Domain{
		ChainID:           big.NewInt(31337),
		VerifyingContract: common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"),
	}
	start = time.Unix(1_700_000_000, 0)
)

type harness struct {
	*Engine
	clock  *ledger.ManualClock
	rec    *events.Recorder
	issuer *issuer.Issuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	st, err := ledger.NewState(ledger.Genesis{
		Owner:         deployer,
		Artists:       []common.Address{artist},
		TrustedSigner: crypto.PubkeyToAddress(key.PublicKey),
		Payees:        []common.Address{artist, deployer},
		Shares:        []uint64{70, 30},
	})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	h := &harness{clock: ledger.NewManualClock(start), rec: &events.Recorder{}}
	h.Engine = New(st, Options{Domain: domain, Clock: h.clock, Sink: h.rec, Logger: zap.NewNop()})
	h.issuer = issuer.New(key, domain, issuer.FixedNonce{N: big.NewInt(1)}, zap.NewNop()).
		WithClock(h.clock.Now)
	return h
}

func (h *harness) scenarioDrop(t *testing.T) uint64 {
	t.Helper()
	id, err := h.Registry.CreateDrop(context.Background(), artist, drops.Params{
		Kind:         ledger.Multi,
		Price:        ether(1, 100),
		MaxSupply:    5000,
		MaxPerWallet: 10,
		StartTime:    start.Unix(),
		EndTime:      start.Unix() + week,
	})
	if err != nil {
		t.Fatalf("CreateDrop: %v", err)
	}
	return id
}

// ── Scenarios ─────────────────────────────────────────────────────────────────

func TestScenarioA_PublicMint(t *testing.T) {
	h := newHarness(t)
	id := h.scenarioDrop(t)

	if _, err := h.Public.MintPublic(context.Background(), fan1, id, 3, ether(3, 100)); err != nil {
		t.Fatalf("MintPublic: %v", err)
	}
	if got := h.Registry.BalanceOf(id, fan1); got != 3 {
		t.Errorf("balance: got %d want 3", got)
	}
}

func TestScenarioB_InsufficientPayment(t *testing.T) {
	h := newHarness(t)
	id := h.scenarioDrop(t)

	_, err := h.Public.MintPublic(context.Background(), fan1, id, 2, ether(1, 100))
	if !errors.Is(err, ledger.ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}
}

func TestScenarioC_VoucherSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.scenarioDrop(t)

	v, err := h.issuer.Issue(ctx, issuer.Request{
		Collection:  collection,
		DropID:      id,
		Wallet:      fan1,
		Price:       ether(1, 100),
		DiscountBps: 2000,
		MaxQuantity: 5,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// price × 0.8 × 2
	if _, err := h.Vouchers.MintWithVoucher(ctx, fan1, v, 2, ether(16, 1000)); err != nil {
		t.Fatalf("MintWithVoucher: %v", err)
	}
	if got := h.Vouchers.RemainingAllowance(fan1, id, v); got != 0 {
		t.Errorf("allowance: got %d want 0", got)
	}
	_, err = h.Vouchers.MintWithVoucher(ctx, fan1, v, 2, ether(16, 1000))
	if !errors.Is(err, ledger.ErrNonceAlreadyUsed) {
		t.Errorf("replay: expected ErrNonceAlreadyUsed, got %v", err)
	}
}

func TestScenarioD_UtilityGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.scenarioDrop(t)
	uid, err := h.Utilities.CreateUtility(ctx, artist, id, "Exclusive Track Access", "")
	if err != nil {
		t.Fatalf("CreateUtility: %v", err)
	}

	if err := h.Utilities.RedeemUtility(ctx, fan1, uid); !errors.Is(err, ledger.ErrNoTokenAccess) {
		t.Fatalf("expected ErrNoTokenAccess, got %v", err)
	}
	if _, err := h.Public.MintPublic(ctx, fan1, id, 1, ether(1, 100)); err != nil {
		t.Fatalf("MintPublic: %v", err)
	}
	if err := h.Utilities.RedeemUtility(ctx, fan1, uid); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if err := h.Utilities.RedeemUtility(ctx, fan1, uid); !errors.Is(err, ledger.ErrUtilityAlreadyRedeemed) {
		t.Fatalf("expected ErrUtilityAlreadyRedeemed, got %v", err)
	}
}

// ── Cross-component properties ────────────────────────────────────────────────

// Both sale paths share one balance ledger and one supply counter.
func TestSupplyInvariant_MixedPaths(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.Registry.CreateDrop(ctx, artist, drops.Params{
		Kind: ledger.Multi, Price: big.NewInt(10), MaxSupply: 40, MaxPerWallet: 6,
		StartTime: start.Unix(), EndTime: start.Unix() + week,
	})
	if err != nil {
		t.Fatalf("CreateDrop: %v", err)
	}

	key, _ := crypto.GenerateKey()
	nonces := 0
	iss := issuer.New(key, domain, issuer.FixedNonce{N: big.NewInt(0)}, zap.NewNop()).WithClock(h.clock.Now)
	if err := h.Vouchers.SetTrustedSigner(ctx, deployer, iss.Signer()); err != nil {
		t.Fatalf("SetTrustedSigner: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	wallets := []common.Address{fan1, fan2, deployer, artist}
	for i := 0; i < 60; i++ {
		w := wallets[rng.Intn(len(wallets))]
		q := uint64(rng.Intn(5) + 1)
		if rng.Intn(2) == 0 {
			h.Public.MintPublic(ctx, w, id, q, big.NewInt(100)) //nolint:errcheck
			continue
		}
		nonces++
		iss = issuer.New(key, domain, issuer.FixedNonce{N: big.NewInt(int64(nonces))}, zap.NewNop()).WithClock(h.clock.Now)
		v, err := iss.Issue(ctx, issuer.Request{DropID: id, Wallet: w, Price: big.NewInt(10), MaxQuantity: 5})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		h.Vouchers.MintWithVoucher(ctx, w, v, q, big.NewInt(100)) //nolint:errcheck
	}

	h.Ledger.View(func(st *ledger.State) error { //nolint:errcheck
		d, _ := st.Drop(id)
		if st.Holdings(id) != d.TotalMinted {
			t.Errorf("Σ balances %d != totalMinted %d", st.Holdings(id), d.TotalMinted)
		}
		if d.TotalMinted > d.MaxSupply {
			t.Errorf("totalMinted %d > maxSupply %d", d.TotalMinted, d.MaxSupply)
		}
		return nil
	})
}

func TestConcurrentMints_TotalOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, err := h.Registry.CreateDrop(ctx, artist, drops.Params{
		Kind: ledger.Unique, Price: big.NewInt(1), MaxSupply: 100, MaxPerWallet: 1000,
		StartTime: start.Unix(), EndTime: start.Unix() + week,
	})
	if err != nil {
		t.Fatalf("CreateDrop: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		serials = map[uint64]bool{}
		ok      int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := common.BigToAddress(big.NewInt(int64(1000 + i)))
			for j := 0; j < 5; j++ {
				rcpt, err := h.Public.MintPublic(ctx, w, id, 1, big.NewInt(1))
				if err != nil {
					if !errors.Is(err, ledger.ErrMaxSupplyExceeded) {
						t.Errorf("unexpected error: %v", err)
					}
					continue
				}
				mu.Lock()
				if serials[rcpt.FirstSerial] {
					t.Errorf("serial %d assigned twice", rcpt.FirstSerial)
				}
				serials[rcpt.FirstSerial] = true
				ok++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if ok != 100 {
		t.Errorf("successful mints: got %d want 100", ok)
	}
	d, _ := h.Registry.Drop(id)
	if d.TotalMinted != 100 {
		t.Errorf("totalMinted: got %d", d.TotalMinted)
	}
	evs := h.rec.Events()
	for i := 1; i < len(evs); i++ {
		if evs[i].Seq != evs[i-1].Seq+1 {
			t.Fatalf("event sequence gap at %d: %d after %d", i, evs[i].Seq, evs[i-1].Seq)
		}
	}
}

func TestProceedsFlowToPayees(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.scenarioDrop(t)

	rcpt, err := h.Public.MintPublic(ctx, fan1, id, 3, ether(5, 100))
	if err != nil {
		t.Fatalf("MintPublic: %v", err)
	}
	if rcpt.Refund.Cmp(ether(2, 100)) != 0 {
		t.Errorf("refund: got %s", rcpt.Refund)
	}
	if h.Payments.TotalReceived().Cmp(ether(3, 100)) != 0 {
		t.Errorf("distributor received %s", h.Payments.TotalReceived())
	}
	paid, err := h.Payments.Release(ctx, artist)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if paid.Cmp(ether(21, 1000)) != 0 {
		t.Errorf("artist share: got %s", paid)
	}
	if _, err := h.Payments.Release(ctx, artist); !errors.Is(err, ledger.ErrNothingDue) {
		t.Errorf("second release: got %v", err)
	}
}

// Any current holder may redeem, whether or not they minted.
func TestRedeem_CurrentHolderOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.scenarioDrop(t)
	uid, _ := h.Utilities.CreateUtility(ctx, artist, id, "perk", "")

	if _, err := h.Public.MintPublic(ctx, fan1, id, 1, ether(1, 100)); err != nil {
		t.Fatalf("MintPublic: %v", err)
	}
	if err := h.Utilities.RedeemUtility(ctx, fan2, uid); !errors.Is(err, ledger.ErrNoTokenAccess) {
		t.Errorf("non-holder: got %v", err)
	}
}

func TestSeedDemo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	demo, err := SeedDemo(ctx, h.Engine, artist, deployer)
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	if demo.MusicDrop != 1 || demo.VIPDrop != 2 || demo.TrackUtility != 1 || demo.VIPUtility != 2 {
		t.Errorf("ids: %+v", demo)
	}
	vip, _ := h.Registry.Drop(demo.VIPDrop)
	if vip.Kind != ledger.Unique || vip.MaxSupply != 250 || vip.Price.Cmp(ether(5, 100)) != 0 {
		t.Errorf("vip drop: %+v", vip)
	}
	if _, err := h.Public.MintPublic(ctx, fan1, demo.VIPDrop, 1, ether(5, 100)); !errors.Is(err, ledger.ErrDropNotActive) {
		t.Errorf("vip drop must open an hour later, got %v", err)
	}
	recv, amt, _ := h.Registry.RoyaltyInfo(demo.MusicDrop, ether(1, 1))
	if recv != deployer || amt.Cmp(ether(5, 100)) != 0 {
		t.Errorf("royalty: %s %s", recv.Hex(), amt)
	}
}

func TestGenesisFromConfig(t *testing.T) {
	cfg := &config.Config{
		Chain: config.ChainConfig{ChainID: 8453, AuthorizerAddress: domain.VerifyingContract.Hex()},
		Roles: config.RolesConfig{Owner: deployer.Hex(), Artists: []string{artist.Hex()}},
		Payment: config.PaymentConfig{
			Payees: []string{artist.Hex(), deployer.Hex()},
			Shares: []uint64{70, 30},
		},
	}
	g := Genesis(cfg)
	if g.Owner != deployer || len(g.Artists) != 1 || g.Artists[0] != artist || g.TrustedSigner != (common.Address{}) {
		t.Errorf("genesis: %+v", g)
	}
	d := Domain(cfg)
	if d.ChainID.Int64() != 8453 || d.VerifyingContract != domain.VerifyingContract {
		t.Errorf("domain: %+v", d)
	}
}
