// cmd/vouchergen signs a personalized mint voucher for one wallet and prints
// it as JSON, ready for `drops mint-voucher`.
//
// Nonces come from Redis when REDIS_ADDR (or --redis) is set, otherwise from
// --nonce.
//
// Usage:
//
//	VOUCHER_SIGNER_KEY=0x<key> \
//	go run ./cmd/vouchergen/ \
//	  --chain-id   31337 \
//	  --authorizer 0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512 \
//	  --drop       1 \
//	  --wallet     0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC \
//	  --price      10000000000000000 \
//	  --tier       vip
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/issuer"
	"github.com/0gfoundation/0g-drops/internal/voucher"
)

func main() {
	chainID := flag.Int64("chain-id", 31337, "Chain ID of the voucher domain")
	authorizerHex := flag.String("authorizer", os.Getenv("AUTHORIZER_ADDRESS"), "Voucher authorizer address (verifying contract)")
	collectionHex := flag.String("collection", os.Getenv("COLLECTION_ADDRESS"), "Collection address bound into the voucher")
	dropID := flag.Uint64("drop", 1, "Drop (token) ID")
	walletHex := flag.String("wallet", "", "Wallet the voucher is issued to")
	priceWei := flag.String("price", "0", "Undiscounted unit price in wei")
	tier := flag.String("tier", "standard", "Loyalty tier: vip, premium or standard")
	discount := flag.Uint64("discount", 0, "Discount in basis points (overrides tier)")
	maxQty := flag.Uint64("max-qty", 0, "Max quantity (overrides tier)")
	nonce := flag.String("nonce", "", "Explicit nonce (used when Redis is not configured)")
	redisAddr := flag.String("redis", os.Getenv("REDIS_ADDR"), "Redis address for nonce allocation")
	flag.Parse()

	keyHex := strings.TrimPrefix(os.Getenv("VOUCHER_SIGNER_KEY"), "0x")
	if keyHex == "" {
		fmt.Fprintln(os.Stderr, "error: VOUCHER_SIGNER_KEY not set")
		os.Exit(1)
	}
	privKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		fatalf("parse private key: %v", err)
	}

	if !common.IsHexAddress(*authorizerHex) {
		fatalf("--authorizer must be a hex address, got %q", *authorizerHex)
	}
	if !common.IsHexAddress(*walletHex) {
		fatalf("--wallet must be a hex address, got %q", *walletHex)
	}
	price, ok := new(big.Int).SetString(*priceWei, 10)
	if !ok {
		fatalf("invalid --price %q", *priceWei)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	domain := voucher.Domain{
		ChainID:           big.NewInt(*chainID),
		VerifyingContract: common.HexToAddress(*authorizerHex),
	}

	var nonces issuer.NonceSource
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			fatalf("redis ping: %v", err)
		}
		nonces = issuer.NewRedisNonces(rdb, domain.VerifyingContract)
	} else {
		if *nonce == "" {
			fatalf("--nonce is required without Redis")
		}
		n, ok := new(big.Int).SetString(*nonce, 10)
		if !ok {
			fatalf("invalid --nonce %q", *nonce)
		}
		nonces = issuer.FixedNonce{N: n}
	}

	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	iss := issuer.New(privKey, domain, nonces, log)
	v, err := iss.Issue(ctx, issuer.Request{
		Collection:  common.HexToAddress(*collectionHex),
		DropID:      *dropID,
		Wallet:      common.HexToAddress(*walletHex),
		Price:       price,
		Tier:        *tier,
		DiscountBps: *discount,
		MaxQuantity: *maxQty,
	})
	if err != nil {
		fatalf("issue voucher: %v", err)
	}

	raw, err := issuer.Encode(v)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(string(raw))
	fmt.Fprintf(os.Stderr, "signer: %s\n", iss.Signer().Hex())
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
