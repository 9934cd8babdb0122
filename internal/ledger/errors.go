package ledger

import "errors"

var (
	// ErrUnauthorized indicates the caller lacks the required role or identity binding.
	ErrUnauthorized = errors.New("drops: unauthorized")

	// ErrInvalidParameters indicates a malformed drop, royalty, or payment configuration.
	ErrInvalidParameters = errors.New("drops: invalid parameters")

	// ErrDropNotFound indicates the referenced drop does not exist.
	ErrDropNotFound = errors.New("drops: drop not found")

	// ErrDropNotActive indicates a public mint outside the drop's time window.
	ErrDropNotActive = errors.New("drops: drop not active")

	// ErrMaxSupplyExceeded indicates the mint would exceed the drop's max supply.
	ErrMaxSupplyExceeded = errors.New("drops: max supply exceeded")

	// ErrMaxPerWalletExceeded indicates the mint would exceed the public per-wallet cap.
	ErrMaxPerWalletExceeded = errors.New("drops: max per wallet exceeded")

	// ErrInsufficientPayment indicates the payment is below the required cost.
	ErrInsufficientPayment = errors.New("drops: insufficient payment")

	// ErrMetadataFrozen indicates a metadata update after freeze.
	ErrMetadataFrozen = errors.New("drops: metadata frozen")

	// ErrUtilityNotFound indicates the referenced utility does not exist.
	ErrUtilityNotFound = errors.New("drops: utility not found")

	// ErrUtilityInactive indicates the utility has been deactivated.
	ErrUtilityInactive = errors.New("drops: utility inactive")

	// ErrNoTokenAccess indicates the caller holds none of the gating drop.
	ErrNoTokenAccess = errors.New("drops: no token access")

	// ErrUtilityAlreadyRedeemed indicates a second redemption by the same wallet.
	ErrUtilityAlreadyRedeemed = errors.New("drops: utility already redeemed")

	// ErrInvalidSignature indicates the voucher was not signed by the trusted signer.
	ErrInvalidSignature = errors.New("drops: invalid signature")

	// ErrVoucherExpired indicates a voucher used outside its time window.
	ErrVoucherExpired = errors.New("drops: voucher expired")

	// ErrExceedsMaxQuantity indicates the requested quantity exceeds the voucher cap.
	ErrExceedsMaxQuantity = errors.New("drops: exceeds max quantity")

	// ErrNonceAlreadyUsed indicates the voucher nonce was already consumed.
	ErrNonceAlreadyUsed = errors.New("drops: nonce already used")

	// ErrNothingDue indicates release() with zero pending entitlement.
	ErrNothingDue = errors.New("drops: nothing due")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidParameters, "InvalidParameters"},
	{ErrDropNotFound, "DropNotFound"},
	{ErrDropNotActive, "DropNotActive"},
	{ErrMaxSupplyExceeded, "MaxSupplyExceeded"},
	{ErrMaxPerWalletExceeded, "MaxPerWalletExceeded"},
	{ErrInsufficientPayment, "InsufficientPayment"},
	{ErrMetadataFrozen, "MetadataFrozen"},
	{ErrUtilityNotFound, "UtilityNotFound"},
	{ErrUtilityInactive, "UtilityInactive"},
	{ErrNoTokenAccess, "NoTokenAccess"},
	{ErrUtilityAlreadyRedeemed, "UtilityAlreadyRedeemed"},
	{ErrInvalidSignature, "InvalidSignature"},
	{ErrVoucherExpired, "VoucherExpired"},
	{ErrExceedsMaxQuantity, "ExceedsMaxQuantity"},
	{ErrNonceAlreadyUsed, "NonceAlreadyUsed"},
	{ErrNothingDue, "NothingDue"},
}

// Kind maps an error to its failure kind name, or "Internal" for errors that
// wrap none of the sentinels above.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
