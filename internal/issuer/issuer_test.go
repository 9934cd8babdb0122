package issuer

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/voucher"
)

// ── helpers ───────────────────────────────────────────────────────────────────

var (
	// Fixed deterministic test key (not used anywhere outside tests)
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testDomain     = voucher.Domain{
		ChainID:           big.NewInt(31337),
		VerifyingContract: common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"),
	}
	testCollection = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testFan        = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	issuedAt       = time.Unix(1_700_000_000, 0)
)

func newTestIssuer(t *testing.T) (*Issuer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	privKey, err := crypto.HexToECDSA(testPrivKeyHex)
	if err != nil {
		t.Fatalf("load test private key: %v", err)
	}
	iss := New(privKey, testDomain, NewRedisNonces(rdb, testDomain.VerifyingContract), zap.NewNop()).
		WithClock(func() time.Time { return issuedAt })
	return iss, rdb
}

func baseRequest() Request {
	return Request{
		Collection: testCollection,
		DropID:     1,
		Wallet:     testFan,
		Price:      big.NewInt(10_000_000_000_000_000),
	}
}

// ── Issue ─────────────────────────────────────────────────────────────────────

func TestIssue_SignatureRecoversToSigner(t *testing.T) {
	iss, _ := newTestIssuer(t)
	v, err := iss.Issue(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	signer, err := voucher.Recover(v, testDomain)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if signer != iss.Signer() {
		t.Errorf("recovered %s, want %s", signer.Hex(), iss.Signer().Hex())
	}
	if v.StartTime != 1_700_000_000 || v.EndTime != 1_700_000_000+7*24*3600 {
		t.Errorf("window: [%d, %d]", v.StartTime, v.EndTime)
	}
	if v.MaxQuantity != 1 || v.DiscountBps != 0 {
		t.Errorf("defaults: discount=%d max=%d", v.DiscountBps, v.MaxQuantity)
	}
}

func TestIssue_TierDefaults(t *testing.T) {
	iss, _ := newTestIssuer(t)
	for name, want := range Tiers {
		req := baseRequest()
		req.Tier = name
		v, err := iss.Issue(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if v.DiscountBps != want.DiscountBps || v.MaxQuantity != want.MaxQuantity {
			t.Errorf("%s: got %d/%d", name, v.DiscountBps, v.MaxQuantity)
		}
	}
}

func TestIssue_ExplicitDiscountOverridesTier(t *testing.T) {
	iss, _ := newTestIssuer(t)
	req := baseRequest()
	req.Tier = "vip"
	req.DiscountBps = 1500
	req.MaxQuantity = 3
	v, err := iss.Issue(context.Background(), req)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if v.DiscountBps != 1500 || v.MaxQuantity != 3 {
		t.Errorf("got %d/%d", v.DiscountBps, v.MaxQuantity)
	}
}

func TestIssue_ExplicitMaxQuantityKeepsTierDiscount(t *testing.T) {
	iss, _ := newTestIssuer(t)
	req := baseRequest()
	req.Tier = "standard"
	req.MaxQuantity = 4
	v, err := iss.Issue(context.Background(), req)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if v.DiscountBps != Tiers["standard"].DiscountBps || v.MaxQuantity != 4 {
		t.Errorf("got %d/%d, want %d/4", v.DiscountBps, v.MaxQuantity, Tiers["standard"].DiscountBps)
	}
}

func TestIssue_Rejects(t *testing.T) {
	iss, _ := newTestIssuer(t)
	ctx := context.Background()

	req := baseRequest()
	req.Tier = "platinum"
	if _, err := iss.Issue(ctx, req); err == nil {
		t.Error("unknown tier must fail")
	}
	req = baseRequest()
	req.DiscountBps = 10_001
	if _, err := iss.Issue(ctx, req); err == nil {
		t.Error("discount over 10000 must fail")
	}
	req = baseRequest()
	req.Wallet = common.Address{}
	if _, err := iss.Issue(ctx, req); err == nil {
		t.Error("missing wallet must fail")
	}
}

// ── Nonces ────────────────────────────────────────────────────────────────────

func TestRedisNonces_Monotonic(t *testing.T) {
	iss, rdb := newTestIssuer(t)
	ctx := context.Background()

	a, err := iss.Issue(ctx, baseRequest())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, err := iss.Issue(ctx, baseRequest())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a.Nonce.Int64() != 1 || b.Nonce.Int64() != 2 {
		t.Errorf("nonces: got %s, %s", a.Nonce, b.Nonce)
	}
	stored, _ := rdb.Get(ctx, "voucher:nonce:"+testDomain.VerifyingContract.Hex()).Int64()
	if stored != 2 {
		t.Errorf("stored counter: got %d", stored)
	}
}

type failingNonces struct{}

func (failingNonces) NextNonce(context.Context) (*big.Int, error) {
	return nil, errors.New("redis down")
}

func TestIssue_NonceError(t *testing.T) {
	privKey, _ := crypto.HexToECDSA(testPrivKeyHex)
	iss := New(privKey, testDomain, failingNonces{}, zap.NewNop())
	if _, err := iss.Issue(context.Background(), baseRequest()); err == nil {
		t.Error("nonce failure must propagate")
	}
}

func TestFixedNonce(t *testing.T) {
	privKey, _ := crypto.HexToECDSA(testPrivKeyHex)
	iss := New(privKey, testDomain, FixedNonce{N: big.NewInt(77)}, zap.NewNop())
	v, err := iss.Issue(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if v.Nonce.Int64() != 77 {
		t.Errorf("nonce: got %s", v.Nonce)
	}
}

// ── Encode / Decode ───────────────────────────────────────────────────────────

func TestEncode_HexSignatureAndFieldNames(t *testing.T) {
	iss, _ := newTestIssuer(t)
	v, _ := iss.Issue(context.Background(), baseRequest())
	raw, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	signer, err := voucher.Recover(back, testDomain)
	if err != nil || signer != iss.Signer() {
		t.Errorf("decoded voucher no longer verifies: %s, %v", signer.Hex(), err)
	}
}
