// Package issuer builds and signs mint vouchers on behalf of the trusted
// signer. It sits outside the engine: the engine only ever verifies what this
// package produces.
package issuer

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/voucher"
)

// Validity is how long an issued voucher stays usable.
const Validity = 7 * 24 * time.Hour

// Tier is a fan tier with default voucher terms.
type Tier struct {
	DiscountBps uint64
	MaxQuantity uint64
}

var Tiers = map[string]Tier{
	"vip":      {DiscountBps: 2500, MaxQuantity: 5},
	"premium":  {DiscountBps: 2000, MaxQuantity: 3},
	"standard": {DiscountBps: 500, MaxQuantity: 1},
}

// Request describes the voucher to issue. A tier supplies DiscountBps and
// MaxQuantity for whichever of the two is left zero.
type Request struct {
	Collection  common.Address
	DropID      uint64
	Wallet      common.Address
	Price       *big.Int
	Tier        string
	DiscountBps uint64
	MaxQuantity uint64
}

// NonceSource hands out voucher nonces that are never reused.
type NonceSource interface {
	NextNonce(ctx context.Context) (*big.Int, error)
}

// RedisNonces allocates nonces with INCR so several issuers can share one
// authorizer without collisions.
type RedisNonces struct {
	rdb *redis.Client
	key string
}

func NewRedisNonces(rdb *redis.Client, authorizer common.Address) *RedisNonces {
	return &RedisNonces{rdb: rdb, key: fmt.Sprintf(voucher.NonceKeyFmt, authorizer.Hex())}
}

// NextNonce atomically increments and returns the authorizer's nonce counter.
func (r *RedisNonces) NextNonce(ctx context.Context) (*big.Int, error) {
	n, err := r.rdb.Incr(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("incr nonce: %w", err)
	}
	return big.NewInt(n), nil
}

// FixedNonce always returns the same nonce. Meant for one-off issuance from
// the command line.
type FixedNonce struct{ N *big.Int }

func (f FixedNonce) NextNonce(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.N), nil
}

// Issuer signs vouchers with the trusted signer key.
type Issuer struct {
	privKey *ecdsa.PrivateKey
	domain  voucher.Domain
	nonces  NonceSource
	now     func() time.Time
	log     *zap.Logger
}

func New(privKey *ecdsa.PrivateKey, domain voucher.Domain, nonces NonceSource, log *zap.Logger) *Issuer {
	return &Issuer{
		privKey: privKey,
		domain:  domain,
		nonces:  nonces,
		now:     time.Now,
		log:     log,
	}
}

// WithClock overrides the issuance time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Signer is the address vouchers from this issuer recover to.
func (i *Issuer) Signer() common.Address {
	return crypto.PubkeyToAddress(i.privKey.PublicKey)
}

// resolveTerms fills whichever of discount and max quantity the request
// leaves at zero from its tier. Explicit terms always win.
func resolveTerms(req Request) (uint64, uint64, error) {
	discount, maxQty := req.DiscountBps, req.MaxQuantity
	if req.Tier != "" {
		tier, ok := Tiers[strings.ToLower(req.Tier)]
		if !ok {
			return 0, 0, fmt.Errorf("unknown tier %q", req.Tier)
		}
		if discount == 0 {
			discount = tier.DiscountBps
		}
		if maxQty == 0 {
			maxQty = tier.MaxQuantity
		}
	}
	if maxQty == 0 {
		maxQty = 1
	}
	if discount > 10_000 {
		return 0, 0, fmt.Errorf("discountBps %d exceeds 10000", discount)
	}
	return discount, maxQty, nil
}

// Issue builds a voucher valid from now for Validity and signs it.
func (i *Issuer) Issue(ctx context.Context, req Request) (*voucher.MintVoucher, error) {
	if req.Price == nil || req.Price.Sign() < 0 {
		return nil, fmt.Errorf("invalid price %v", req.Price)
	}
	if req.Wallet == (common.Address{}) {
		return nil, fmt.Errorf("wallet is required")
	}
	discount, maxQty, err := resolveTerms(req)
	if err != nil {
		return nil, err
	}
	nonce, err := i.nonces.NextNonce(ctx)
	if err != nil {
		return nil, err
	}

	start := i.now().Unix()
	v := &voucher.MintVoucher{
		Collection:  req.Collection,
		DropID:      req.DropID,
		Wallet:      req.Wallet,
		Price:       new(big.Int).Set(req.Price),
		DiscountBps: discount,
		MaxQuantity: maxQty,
		StartTime:   uint64(start),
		EndTime:     uint64(start + int64(Validity/time.Second)),
		Nonce:       nonce,
	}
	if err := voucher.Sign(v, i.privKey, i.domain); err != nil {
		return nil, fmt.Errorf("sign voucher: %w", err)
	}
	i.log.Info("voucher issued",
		zap.String("wallet", v.Wallet.Hex()),
		zap.Uint64("drop_id", v.DropID),
		zap.Uint64("discount_bps", v.DiscountBps),
		zap.Uint64("max_quantity", v.MaxQuantity),
		zap.String("nonce", v.Nonce.String()),
	)
	return v, nil
}

// Encode renders a voucher as the JSON a wallet submits with its mint.
func Encode(v *voucher.MintVoucher) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal voucher: %w", err)
	}
	return raw, nil
}

// Decode parses a voucher produced by Encode.
func Decode(raw []byte) (*voucher.MintVoucher, error) {
	var v voucher.MintVoucher
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal voucher: %w", err)
	}
	return &v, nil
}
