package voucher

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MintVoucher is a signed, single-use offer letting Wallet mint up to
// MaxQuantity units of DropID at Price less DiscountBps. It is built and
// signed by the issuer and never stored by the engine; only its nonce is
// recorded once consumed.
type MintVoucher struct {
	Collection  common.Address `json:"collection"`
	DropID      uint64         `json:"tokenId"`
	Wallet      common.Address `json:"wallet"`
	Price       *big.Int       `json:"price"`
	DiscountBps uint64         `json:"discountBps"`
	MaxQuantity uint64         `json:"maxQuantity"`
	StartTime   uint64         `json:"startTime"`
	EndTime     uint64         `json:"endTime"`
	Nonce       *big.Int       `json:"nonce"`
	Signature   hexutil.Bytes  `json:"signature"`
}

// Active reports whether now falls inside [StartTime, EndTime].
func (v *MintVoucher) Active(now int64) bool {
	if now < 0 {
		return false
	}
	t := uint64(now)
	return v.StartTime <= t && t <= v.EndTime
}

// Redis key templates
const (
	NonceKeyFmt = "voucher:nonce:%s" // %s = authorizer address (checksummed)
)
