package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BpsDenominator is the basis-point scale used for discounts and royalties.
const BpsDenominator = 10_000

// UnitKind selects fungible editions (Multi) or one-unit-per-serial (Unique).
type UnitKind uint8

const (
	Multi UnitKind = iota
	Unique
)

func (k UnitKind) String() string {
	switch k {
	case Multi:
		return "Multi"
	case Unique:
		return "Unique"
	default:
		return "UNKNOWN"
	}
}

// ParseUnitKind accepts "multi"/"unique" and the token-standard spellings
// "erc1155"/"erc721".
func ParseUnitKind(s string) (UnitKind, error) {
	switch s {
	case "multi", "Multi", "erc1155", "ERC1155", "0":
		return Multi, nil
	case "unique", "Unique", "erc721", "ERC721", "1":
		return Unique, nil
	}
	return 0, fmt.Errorf("%w: unknown unit kind %q", ErrInvalidParameters, s)
}

// MintKind tags the sale path in TokenMinted events.
type MintKind uint8

const (
	MintPublic MintKind = iota
	MintVoucher
)

func (k MintKind) String() string {
	switch k {
	case MintPublic:
		return "Public"
	case MintVoucher:
		return "Voucher"
	default:
		return "UNKNOWN"
	}
}

// Drop is one issuance campaign for a single token id.
type Drop struct {
	ID              uint64
	Kind            UnitKind
	Price           *big.Int
	MaxSupply       uint64
	TotalMinted     uint64
	MaxPerWallet    uint64
	StartTime       int64
	EndTime         int64
	AllowlistRoot   [32]byte
	MetadataURI     string
	MetadataFrozen  bool
	RoyaltyReceiver common.Address
	RoyaltyBps      uint64
	Creator         common.Address
}

// Active reports whether now falls inside [StartTime, EndTime].
func (d Drop) Active(now int64) bool {
	return d.StartTime <= now && now <= d.EndTime
}

// Remaining is the number of units still mintable.
func (d Drop) Remaining() uint64 {
	return d.MaxSupply - d.TotalMinted
}

// Utility is a token-gated perk attached to a drop.
type Utility struct {
	ID          uint64
	DropID      uint64
	Name        string
	Description string
	Active      bool
}

// HolderKey addresses the balance ledger.
type HolderKey struct {
	DropID uint64
	Wallet common.Address
}

// RedemptionKey addresses the redemption set.
type RedemptionKey struct {
	UtilityID uint64
	Wallet    common.Address
}

// Receipt describes the value movement of a successful mint.
type Receipt struct {
	DropID    uint64
	Quantity  uint64
	UnitPrice *big.Int
	Cost      *big.Int
	Refund    *big.Int
	// FirstSerial is the first serial assigned by a Unique drop; zero for Multi.
	FirstSerial uint64
}

// Cost returns unitPrice × quantity.
func Cost(unitPrice *big.Int, quantity uint64) *big.Int {
	return new(big.Int).Mul(unitPrice, new(big.Int).SetUint64(quantity))
}

// ApplyBps returns floor(amount × bps / 10000).
func ApplyBps(amount *big.Int, bps uint64) *big.Int {
	n := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return n.Quo(n, big.NewInt(BpsDenominator))
}
