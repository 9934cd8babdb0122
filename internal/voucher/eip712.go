package voucher

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	DomainName    = "MeTTaPersonalizedMinter"
	DomainVersion = "1"
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))
	mintVoucherTypeHash = crypto.Keccak256Hash([]byte(
		"MintVoucher(address collection,uint256 tokenId,address wallet,uint256 price,uint256 discountBps,uint256 maxQuantity,uint256 startTime,uint256 endTime,uint256 nonce)",
	))
)

var errUint256 = errors.New("value does not fit uint256")

// Domain identifies one authorizer deployment. Vouchers signed for one
// domain never verify under another.
type Domain struct {
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Separator computes the EIP-712 domain separator.
func (d Domain) Separator() common.Hash {
	// ABI-encode: (bytes32, bytes32, bytes32, uint256, address)
	encoded := make([]byte, 5*32)
	copy(encoded[0:32], domainTypeHash[:])
	nameHash := crypto.Keccak256Hash([]byte(DomainName))
	versionHash := crypto.Keccak256Hash([]byte(DomainVersion))
	copy(encoded[32:64], nameHash[:])
	copy(encoded[64:96], versionHash[:])
	if d.ChainID != nil && d.ChainID.Sign() > 0 && d.ChainID.BitLen() <= 256 {
		d.ChainID.FillBytes(encoded[96:128])
	}
	copy(encoded[140:160], d.VerifyingContract.Bytes()) // addr is right-aligned in 32-byte slot
	return crypto.Keccak256Hash(encoded)
}

func putUint256(dst []byte, v *big.Int, field string) error {
	if v == nil || v.Sign() < 0 || v.BitLen() > 256 {
		return fmt.Errorf("%s: %w", field, errUint256)
	}
	v.FillBytes(dst)
	return nil
}

func putUint64(dst []byte, v uint64) {
	new(big.Int).SetUint64(v).FillBytes(dst)
}

// StructHash is keccak256(typeHash ‖ abi.encode(fields)).
func StructHash(v *MintVoucher) (common.Hash, error) {
	encoded := make([]byte, 10*32)
	copy(encoded[0:32], mintVoucherTypeHash[:])
	copy(encoded[44:64], v.Collection.Bytes())
	putUint64(encoded[64:96], v.DropID)
	copy(encoded[108:128], v.Wallet.Bytes())
	if err := putUint256(encoded[128:160], v.Price, "price"); err != nil {
		return common.Hash{}, err
	}
	putUint64(encoded[160:192], v.DiscountBps)
	putUint64(encoded[192:224], v.MaxQuantity)
	putUint64(encoded[224:256], v.StartTime)
	putUint64(encoded[256:288], v.EndTime)
	if err := putUint256(encoded[288:320], v.Nonce, "nonce"); err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// Digest is keccak256(0x1901 ‖ domainSeparator ‖ structHash).
func Digest(v *MintVoucher, d Domain) (common.Hash, error) {
	structHash, err := StructHash(v)
	if err != nil {
		return common.Hash{}, err
	}
	sep := d.Separator()
	msg := make([]byte, 2+32+32)
	msg[0] = 0x19
	msg[1] = 0x01
	copy(msg[2:34], sep[:])
	copy(msg[34:66], structHash[:])
	return crypto.Keccak256Hash(msg), nil
}

// Sign signs the voucher in-place using EIP-712.
func Sign(v *MintVoucher, privKey *ecdsa.PrivateKey, d Domain) error {
	digest, err := Digest(v, d)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(digest[:], privKey)
	if err != nil {
		return err
	}
	// Convert V from 0/1 to 27/28 for Solidity ecrecover
	sig[64] += 27
	v.Signature = sig
	return nil
}

// Recover returns the address that signed v under d.
// The signature must be 65 bytes (R ‖ S ‖ V), V in {0,1} or {27,28}, with
// S in the lower half of the curve order.
func Recover(v *MintVoucher, d Domain) (common.Address, error) {
	if len(v.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(v.Signature))
	}
	digest, err := Digest(v, d)
	if err != nil {
		return common.Address{}, err
	}

	// Normalize V: Ethereum uses 27/28, ecrecover expects 0/1
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, v.Signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return common.Address{}, errors.New("malleable or out-of-range signature")
	}

	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("ecrecover: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// TypedData renders v as an eth_signTypedData_v4 payload, the form wallets
// and the issuer tooling sign.
func TypedData(v *MintVoucher, d Domain) apitypes.TypedData {
	chainID := new(big.Int)
	if d.ChainID != nil {
		chainID.Set(d.ChainID)
	}
	dec := func(b *big.Int) string {
		if b == nil {
			return "0"
		}
		return b.String()
	}
	u := func(n uint64) string { return strconv.FormatUint(n, 10) }
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"MintVoucher": {
				{Name: "collection", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "wallet", Type: "address"},
				{Name: "price", Type: "uint256"},
				{Name: "discountBps", Type: "uint256"},
				{Name: "maxQuantity", Type: "uint256"},
				{Name: "startTime", Type: "uint256"},
				{Name: "endTime", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "MintVoucher",
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"collection":  v.Collection.Hex(),
			"tokenId":     u(v.DropID),
			"wallet":      v.Wallet.Hex(),
			"price":       dec(v.Price),
			"discountBps": u(v.DiscountBps),
			"maxQuantity": u(v.MaxQuantity),
			"startTime":   u(v.StartTime),
			"endTime":     u(v.EndTime),
			"nonce":       dec(v.Nonce),
		},
	}
}
