package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/0gfoundation/0g-drops/internal/drops"
	"github.com/0gfoundation/0g-drops/internal/engine"
	"github.com/0gfoundation/0g-drops/internal/issuer"
	"github.com/0gfoundation/0g-drops/internal/ledger"
	"github.com/0gfoundation/0g-drops/internal/voucher"
)

// ── Flags ────────────────────────────────────────────────────────────────────

var (
	dropKind         string
	dropPrice        string
	dropMaxSupply    uint64
	dropMaxPerWallet uint64
	dropStart        string
	dropEnd          string
	dropURI          string
	dropRoyaltyTo    string
	dropRoyaltyBps   uint64
	dropAllowlist    string

	payValue string

	utilityDesc string

	eventsAfter uint64
	eventsLimit int

	seedRoyaltyTo string
)

func init() {
	createDropCmd.Flags().StringVar(&dropKind, "kind", "multi", "unit kind: multi or unique")
	createDropCmd.Flags().StringVar(&dropPrice, "price", "0", "unit price (wei, or e.g. 0.01ether)")
	createDropCmd.Flags().Uint64Var(&dropMaxSupply, "max-supply", 0, "maximum units ever minted")
	createDropCmd.Flags().Uint64Var(&dropMaxPerWallet, "max-per-wallet", 0, "public sale cap per wallet")
	createDropCmd.Flags().StringVar(&dropStart, "start", "", "sale start (unix seconds or RFC 3339, default now)")
	createDropCmd.Flags().StringVar(&dropEnd, "end", "", "sale end (unix seconds or RFC 3339, default start + 7d)")
	createDropCmd.Flags().StringVar(&dropURI, "uri", "", "metadata URI")
	createDropCmd.Flags().StringVar(&dropRoyaltyTo, "royalty-receiver", "", "royalty receiver (default --from)")
	createDropCmd.Flags().Uint64Var(&dropRoyaltyBps, "royalty-bps", 0, "royalty in basis points")
	createDropCmd.Flags().StringVar(&dropAllowlist, "allowlist-root", "", "32-byte allowlist merkle root (hex)")

	for _, c := range []*cobra.Command{mintCmd, mintVoucherCmd, receiveCmd} {
		c.Flags().StringVar(&payValue, "value", "0", "payment attached (wei, or e.g. 0.02ether)")
	}

	createUtilityCmd.Flags().StringVar(&utilityDesc, "description", "", "utility description")

	eventsCmd.Flags().Uint64Var(&eventsAfter, "after", 0, "list events with seq greater than this")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 100, "maximum events to list (0 for all)")

	seedDemoCmd.Flags().StringVar(&seedRoyaltyTo, "royalty-receiver", "", "royalty receiver (default first payee)")

	rootCmd.AddCommand(
		createDropCmd, updateMetadataCmd, freezeMetadataCmd, dropCmd, dropsCmd, uriCmd, royaltyCmd,
		grantArtistCmd, revokeArtistCmd,
		mintCmd, balanceCmd,
		mintVoucherCmd, verifyVoucherCmd, allowanceCmd, setSignerCmd, domainCmd,
		createUtilityCmd, redeemCmd, deactivateUtilityCmd, utilitiesCmd,
		receiveCmd, releaseCmd, payeesCmd,
		eventsCmd, seedDemoCmd,
	)
}

// ── DropRegistry ─────────────────────────────────────────────────────────────

type dropView struct {
	ID              uint64         `json:"id"`
	Kind            string         `json:"kind"`
	Price           *big.Int       `json:"price"`
	MaxSupply       uint64         `json:"maxSupply"`
	TotalMinted     uint64         `json:"totalMinted"`
	MaxPerWallet    uint64         `json:"maxPerWallet"`
	StartTime       int64          `json:"startTime"`
	EndTime         int64          `json:"endTime"`
	AllowlistRoot   common.Hash    `json:"allowlistRoot"`
	MetadataURI     string         `json:"metadataURI"`
	MetadataFrozen  bool           `json:"metadataFrozen"`
	RoyaltyReceiver common.Address `json:"royaltyReceiver"`
	RoyaltyBps      uint64         `json:"royaltyBps"`
	Creator         common.Address `json:"creator"`
}

func viewDrop(d ledger.Drop) dropView {
	return dropView{
		ID:              d.ID,
		Kind:            d.Kind.String(),
		Price:           d.Price,
		MaxSupply:       d.MaxSupply,
		TotalMinted:     d.TotalMinted,
		MaxPerWallet:    d.MaxPerWallet,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		AllowlistRoot:   common.Hash(d.AllowlistRoot),
		MetadataURI:     d.MetadataURI,
		MetadataFrozen:  d.MetadataFrozen,
		RoyaltyReceiver: d.RoyaltyReceiver,
		RoyaltyBps:      d.RoyaltyBps,
		Creator:         d.Creator,
	}
}

var createDropCmd = &cobra.Command{
	Use:   "create-drop",
	Short: "Create a drop (artist only)",
	Args:  cobra.NoArgs,
	RunE: withApp(true, func(ctx context.Context, a *app, _ []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		kind, err := ledger.ParseUnitKind(dropKind)
		if err != nil {
			return err
		}
		price, err := parseAmount(dropPrice)
		if err != nil {
			return err
		}
		start, err := parseTime(dropStart, a.eng.Ledger.Now())
		if err != nil {
			return err
		}
		end, err := parseTime(dropEnd, start+7*24*3600)
		if err != nil {
			return err
		}
		royaltyTo := caller
		if dropRoyaltyTo != "" {
			if !common.IsHexAddress(dropRoyaltyTo) {
				return fmt.Errorf("invalid royalty receiver %q", dropRoyaltyTo)
			}
			royaltyTo = common.HexToAddress(dropRoyaltyTo)
		}
		var root [32]byte
		if dropAllowlist != "" {
			root = common.HexToHash(dropAllowlist)
		}

		id, err := a.eng.Registry.CreateDrop(ctx, caller, drops.Params{
			Kind:            kind,
			Price:           price,
			MaxSupply:       dropMaxSupply,
			MaxPerWallet:    dropMaxPerWallet,
			StartTime:       start,
			EndTime:         end,
			AllowlistRoot:   root,
			MetadataURI:     dropURI,
			RoyaltyReceiver: royaltyTo,
			RoyaltyBps:      dropRoyaltyBps,
		})
		if err != nil {
			return err
		}
		return printJSON(map[string]uint64{"dropId": id})
	}),
}

var updateMetadataCmd = &cobra.Command{
	Use:   "update-metadata <drop-id> <uri>",
	Short: "Replace a drop's metadata URI (artist only, before freeze)",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		return a.eng.Registry.UpdateMetadata(ctx, caller, id, args[1])
	}),
}

var freezeMetadataCmd = &cobra.Command{
	Use:   "freeze-metadata <drop-id>",
	Short: "Permanently freeze a drop's metadata (artist only)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		return a.eng.Registry.FreezeMetadata(ctx, caller, id)
	}),
}

var dropCmd = &cobra.Command{
	Use:   "drop <drop-id>",
	Short: "Show one drop",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(false, func(_ context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		d, err := a.eng.Registry.Drop(id)
		if err != nil {
			return err
		}
		return printJSON(viewDrop(d))
	}),
}

var dropsCmd = &cobra.Command{
	Use:   "drops",
	Short: "List all drops",
	Args:  cobra.NoArgs,
	RunE: withApp(false, func(_ context.Context, a *app, _ []string) error {
		all := a.eng.Registry.Drops()
		out := make([]dropView, 0, len(all))
		for _, d := range all {
			out = append(out, viewDrop(d))
		}
		return printJSON(out)
	}),
}

var uriCmd = &cobra.Command{
	Use:   "uri <drop-id>",
	Short: "Resolve a drop's metadata URI",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(false, func(_ context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		uri, err := a.eng.Registry.URI(id)
		if err != nil {
			return err
		}
		fmt.Println(uri)
		return nil
	}),
}

var royaltyCmd = &cobra.Command{
	Use:   "royalty <drop-id> <sale-price>",
	Short: "Quote the royalty owed on a secondary sale",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(false, func(_ context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		sale, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		to, amount, err := a.eng.Registry.RoyaltyInfo(id, sale)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"receiver": to, "amount": amount})
	}),
}

func roleCmd(use, short string, grant bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <address>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			account := common.HexToAddress(args[0])
			if grant {
				return a.eng.Registry.GrantArtist(ctx, caller, account)
			}
			return a.eng.Registry.RevokeArtist(ctx, caller, account)
		}),
	}
}

var (
	grantArtistCmd  = roleCmd("grant-artist", "Grant the artist role (owner only)", true)
	revokeArtistCmd = roleCmd("revoke-artist", "Revoke the artist role (owner only)", false)
)

// ── PublicMintGate ───────────────────────────────────────────────────────────

type receiptView struct {
	DropID      uint64   `json:"dropId"`
	Quantity    uint64   `json:"quantity"`
	UnitPrice   *big.Int `json:"unitPrice"`
	Cost        *big.Int `json:"cost"`
	Refund      *big.Int `json:"refund"`
	FirstSerial uint64   `json:"firstSerial,omitempty"`
}

func viewReceipt(r ledger.Receipt) receiptView {
	return receiptView(r)
}

var mintCmd = &cobra.Command{
	Use:   "mint <drop-id> <quantity>",
	Short: "Buy units in the public sale",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		qty, err := parseID(args[1], "quantity")
		if err != nil {
			return err
		}
		pay, err := parseAmount(payValue)
		if err != nil {
			return err
		}
		r, err := a.eng.Public.MintPublic(ctx, caller, id, qty, pay)
		if err != nil {
			return err
		}
		return printJSON(viewReceipt(r))
	}),
}

var balanceCmd = &cobra.Command{
	Use:   "balance <drop-id> [wallet]",
	Short: "Show a wallet's holdings and lifetime mints of a drop (default --from)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withApp(false, func(_ context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		var wallet common.Address
		if len(args) == 2 {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid address %q", args[1])
			}
			wallet = common.HexToAddress(args[1])
		} else if wallet, err = a.caller(); err != nil {
			return err
		}
		return printJSON(map[string]any{
			"wallet":  wallet,
			"balance": a.eng.Registry.BalanceOf(id, wallet),
			"minted":  a.eng.Registry.WalletMinted(id, wallet),
		})
	}),
}

// ── VoucherAuthorizer ────────────────────────────────────────────────────────

func readVoucher(path string) (*voucher.MintVoucher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voucher: %w", err)
	}
	return issuer.Decode(raw)
}

var mintVoucherCmd = &cobra.Command{
	Use:   "mint-voucher <voucher.json> <quantity>",
	Short: "Mint with a signed personalized voucher",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		v, err := readVoucher(args[0])
		if err != nil {
			return err
		}
		qty, err := parseID(args[1], "quantity")
		if err != nil {
			return err
		}
		pay, err := parseAmount(payValue)
		if err != nil {
			return err
		}
		r, err := a.eng.Vouchers.MintWithVoucher(ctx, caller, v, qty, pay)
		if err != nil {
			return err
		}
		return printJSON(viewReceipt(r))
	}),
}

var verifyVoucherCmd = &cobra.Command{
	Use:   "verify-voucher <voucher.json>",
	Short: "Check a voucher's signature against the trusted signer",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(false, func(_ context.Context, a *app, args []string) error {
		v, err := readVoucher(args[0])
		if err != nil {
			return err
		}
		signer, err := a.eng.Vouchers.Verify(v)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"signer":    signer,
			"nonceUsed": a.eng.Vouchers.NonceUsed(v.Nonce),
			"active":    v.Active(a.eng.Ledger.Now()),
		})
	}),
}

var allowanceCmd = &cobra.Command{
	Use:   "allowance <voucher.json>",
	Short: "Show the units --from may still mint under a voucher",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(false, func(_ context.Context, a *app, args []string) error {
		wallet, err := a.caller()
		if err != nil {
			return err
		}
		v, err := readVoucher(args[0])
		if err != nil {
			return err
		}
		return printJSON(map[string]uint64{
			"remaining": a.eng.Vouchers.RemainingAllowance(wallet, v.DropID, v),
		})
	}),
}

var setSignerCmd = &cobra.Command{
	Use:   "set-signer <address>",
	Short: "Rotate the trusted voucher signer (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid address %q", args[0])
		}
		return a.eng.Vouchers.SetTrustedSigner(ctx, caller, common.HexToAddress(args[0]))
	}),
}

var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Show the voucher signing domain and trusted signer",
	Args:  cobra.NoArgs,
	RunE: withApp(false, func(_ context.Context, a *app, _ []string) error {
		d := a.eng.Vouchers.Domain()
		return printJSON(map[string]any{
			"name":              voucher.DomainName,
			"version":           voucher.DomainVersion,
			"chainId":           d.ChainID,
			"verifyingContract": d.VerifyingContract,
			"separator":         a.eng.Vouchers.DomainSeparator(),
			"trustedSigner":     a.eng.Vouchers.TrustedSigner(),
		})
	}),
}

// ── UtilityRegistry ──────────────────────────────────────────────────────────

var createUtilityCmd = &cobra.Command{
	Use:   "create-utility <drop-id> <name>",
	Short: "Attach a redeemable utility to a drop (artist only)",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		uid, err := a.eng.Utilities.CreateUtility(ctx, caller, id, args[1], utilityDesc)
		if err != nil {
			return err
		}
		return printJSON(map[string]uint64{"utilityId": uid})
	}),
}

var redeemCmd = &cobra.Command{
	Use:   "redeem <utility-id>",
	Short: "Redeem a utility as a current holder",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "utility id")
		if err != nil {
			return err
		}
		return a.eng.Utilities.RedeemUtility(ctx, caller, id)
	}),
}

var deactivateUtilityCmd = &cobra.Command{
	Use:   "deactivate-utility <utility-id>",
	Short: "Stop further redemptions of a utility (artist only)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		id, err := parseID(args[0], "utility id")
		if err != nil {
			return err
		}
		return a.eng.Utilities.Deactivate(ctx, caller, id)
	}),
}

var utilitiesCmd = &cobra.Command{
	Use:   "utilities <drop-id>",
	Short: "List the utilities attached to a drop",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(false, func(_ context.Context, a *app, args []string) error {
		id, err := parseID(args[0], "drop id")
		if err != nil {
			return err
		}
		return printJSON(a.eng.Utilities.ForDrop(id))
	}),
}

// ── PaymentDistributor ───────────────────────────────────────────────────────

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Deposit funds into the payment pool directly",
	Args:  cobra.NoArgs,
	RunE: withApp(true, func(ctx context.Context, a *app, _ []string) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		amount, err := parseAmount(payValue)
		if err != nil {
			return err
		}
		return a.eng.Payments.Receive(ctx, caller, amount)
	}),
}

var releaseCmd = &cobra.Command{
	Use:   "release <payee>",
	Short: "Pay out a payee's pending entitlement",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(true, func(ctx context.Context, a *app, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid address %q", args[0])
		}
		amount, err := a.eng.Payments.Release(ctx, common.HexToAddress(args[0]))
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"payee": common.HexToAddress(args[0]), "amount": amount})
	}),
}

var payeesCmd = &cobra.Command{
	Use:   "payees",
	Short: "Show payees with shares, released and pending amounts",
	Args:  cobra.NoArgs,
	RunE: withApp(false, func(_ context.Context, a *app, _ []string) error {
		type payeeView struct {
			Address  common.Address `json:"address"`
			Shares   uint64         `json:"shares"`
			Released *big.Int       `json:"released"`
			Pending  *big.Int       `json:"pending"`
		}
		var out []payeeView
		for _, p := range a.eng.Payments.Payees() {
			out = append(out, payeeView{
				Address:  p.Address,
				Shares:   p.Shares,
				Released: a.eng.Payments.Released(p.Address),
				Pending:  a.eng.Payments.Pending(p.Address),
			})
		}
		return printJSON(map[string]any{
			"totalReceived": a.eng.Payments.TotalReceived(),
			"payees":        out,
		})
	}),
}

// ── Journal ──────────────────────────────────────────────────────────────────

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List journaled events in commit order",
	Args:  cobra.NoArgs,
	RunE: withApp(false, func(_ context.Context, a *app, _ []string) error {
		evs, err := a.store.Events(eventsAfter+1, eventsLimit)
		if err != nil {
			return err
		}
		return printJSON(evs)
	}),
}

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create the demo music drop, VIP pass and their utilities as --from",
	Args:  cobra.NoArgs,
	RunE: withApp(true, func(ctx context.Context, a *app, _ []string) error {
		artist, err := a.caller()
		if err != nil {
			return err
		}
		var royaltyTo common.Address
		switch {
		case seedRoyaltyTo != "":
			if !common.IsHexAddress(seedRoyaltyTo) {
				return fmt.Errorf("invalid royalty receiver %q", seedRoyaltyTo)
			}
			royaltyTo = common.HexToAddress(seedRoyaltyTo)
		default:
			royaltyTo = a.eng.Payments.Payees()[0].Address
		}
		d, err := engine.SeedDemo(ctx, a.eng, artist, royaltyTo)
		if err != nil {
			return err
		}
		return printJSON(d)
	}),
}
