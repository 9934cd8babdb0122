// Package events defines the event schema emitted by the drop engine and the
// sinks that carry committed events to the external indexing pipeline.
package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a single effect notification. Payload field names are part of the
// indexer contract and must not change.
type Event interface {
	EventName() string
}

// Envelope wraps a committed event with its position in the global order.
type Envelope struct {
	Seq     uint64 `json:"seq"`
	Name    string `json:"name"`
	Time    int64  `json:"time"`
	Op      string `json:"op"`
	Payload Event  `json:"payload"`
}

type DropCreated struct {
	DropID    uint64         `json:"dropId"`
	Creator   common.Address `json:"creator"`
	UnitKind  string         `json:"unitKind"`
	Price     *big.Int       `json:"price"`
	MaxSupply uint64         `json:"maxSupply"`
	StartTime int64          `json:"startTime"`
	EndTime   int64          `json:"endTime"`
}

type MetadataUpdated struct {
	DropID uint64 `json:"dropId"`
	NewURI string `json:"newURI"`
}

type MetadataFrozen struct {
	DropID uint64 `json:"dropId"`
}

// TokenMinted is emitted by the public sale path.
type TokenMinted struct {
	DropID   uint64         `json:"dropId"`
	To       common.Address `json:"to"`
	Quantity uint64         `json:"quantity"`
	Paid     *big.Int       `json:"paid"`
	Kind     string         `json:"kind"`
}

// PersonalizedMint is emitted by the voucher path. FinalPrice is the
// discounted unit price.
type PersonalizedMint struct {
	Collection common.Address `json:"collection"`
	DropID     uint64         `json:"dropId"`
	Wallet     common.Address `json:"wallet"`
	Quantity   uint64         `json:"quantity"`
	FinalPrice *big.Int       `json:"finalPrice"`
	Nonce      *big.Int       `json:"nonce"`
}

type UtilityCreated struct {
	UtilityID uint64 `json:"utilityId"`
	DropID    uint64 `json:"dropId"`
	Name      string `json:"name"`
}

type UtilityRedeemed struct {
	UtilityID uint64         `json:"utilityId"`
	DropID    uint64         `json:"dropId"`
	User      common.Address `json:"user"`
}

type UtilityDeactivated struct {
	UtilityID uint64 `json:"utilityId"`
}

type TrustedSignerUpdated struct {
	Signer common.Address `json:"signer"`
}

type RoleGranted struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
}

type RoleRevoked struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
}

type PaymentReceived struct {
	From   common.Address `json:"from"`
	Amount *big.Int       `json:"amount"`
}

type PaymentReleased struct {
	Payee  common.Address `json:"payee"`
	Amount *big.Int       `json:"amount"`
}

func (DropCreated) EventName() string          { return "DropCreated" }
func (MetadataUpdated) EventName() string      { return "MetadataUpdated" }
func (MetadataFrozen) EventName() string       { return "MetadataFrozen" }
func (TokenMinted) EventName() string          { return "TokenMinted" }
func (PersonalizedMint) EventName() string     { return "PersonalizedMint" }
func (UtilityCreated) EventName() string       { return "UtilityCreated" }
func (UtilityRedeemed) EventName() string      { return "UtilityRedeemed" }
func (UtilityDeactivated) EventName() string   { return "UtilityDeactivated" }
func (TrustedSignerUpdated) EventName() string { return "TrustedSignerUpdated" }
func (RoleGranted) EventName() string          { return "RoleGranted" }
func (RoleRevoked) EventName() string          { return "RoleRevoked" }
func (PaymentReceived) EventName() string      { return "PaymentReceived" }
func (PaymentReleased) EventName() string      { return "PaymentReleased" }
