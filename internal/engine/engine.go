// Package engine assembles the drop registry, both sale paths, utilities and
// the payment distributor around one shared ledger.
package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/config"
	"github.com/0gfoundation/0g-drops/internal/drops"
	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
	"github.com/0gfoundation/0g-drops/internal/payment"
	"github.com/0gfoundation/0g-drops/internal/voucher"
)

type Engine struct {
	Ledger    *ledger.Ledger
	Registry  *drops.Registry
	Public    *drops.PublicMinter
	Utilities *drops.Utilities
	Vouchers  *voucher.Authorizer
	Payments  *payment.Distributor
}

type Options struct {
	Domain   voucher.Domain
	BaseURI  string
	Clock    ledger.Clock
	Sink     events.Sink
	Observer ledger.Observer
	Logger   *zap.Logger
}

func New(st *ledger.State, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	lopts := []ledger.Option{ledger.WithLogger(log.Named("ledger"))}
	if opts.Sink != nil {
		lopts = append(lopts, ledger.WithSink(opts.Sink))
	}
	if opts.Observer != nil {
		lopts = append(lopts, ledger.WithObserver(opts.Observer))
	}
	l := ledger.New(st, opts.Clock, lopts...)

	return &Engine{
		Ledger:    l,
		Registry:  drops.NewRegistry(l, opts.BaseURI, log.Named("registry")),
		Public:    drops.NewPublicMinter(l, log.Named("public")),
		Utilities: drops.NewUtilities(l, log.Named("utility")),
		Vouchers:  voucher.NewAuthorizer(l, opts.Domain, log.Named("voucher")),
		Payments:  payment.New(l, log.Named("payment")),
	}
}

// Genesis derives the initial ledger configuration from a validated config.
func Genesis(cfg *config.Config) ledger.Genesis {
	g := ledger.Genesis{
		Owner:   common.HexToAddress(cfg.Roles.Owner),
		Artists: config.Addresses(cfg.Roles.Artists),
		Payees:  config.Addresses(cfg.Payment.Payees),
		Shares:  append([]uint64(nil), cfg.Payment.Shares...),
	}
	if cfg.Roles.TrustedSigner != "" {
		g.TrustedSigner = common.HexToAddress(cfg.Roles.TrustedSigner)
	}
	return g
}

// Domain is the voucher signing domain of this deployment.
func Domain(cfg *config.Config) voucher.Domain {
	return voucher.Domain{
		ChainID:           big.NewInt(cfg.Chain.ChainID),
		VerifyingContract: common.HexToAddress(cfg.Chain.AuthorizerAddress),
	}
}
