// cmd/drops is the operator CLI for the drop engine. Every invocation opens
// the bolt store, replays nothing (the snapshot is the state), runs one
// operation through the engine and persists the resulting snapshot.
//
// Usage:
//
//	drops --config config.yaml --from 0x<artist> create-drop --kind multi --price 0.01ether ...
//	drops --from 0x<wallet> mint 1 2 --value 0.02ether
//	drops --from 0x<wallet> mint-voucher voucher.json 3 --value 0.024ether
//	drops events --after 0 --limit 50
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-drops/internal/config"
	"github.com/0gfoundation/0g-drops/internal/engine"
	"github.com/0gfoundation/0g-drops/internal/events"
	"github.com/0gfoundation/0g-drops/internal/ledger"
	"github.com/0gfoundation/0g-drops/internal/logging"
	"github.com/0gfoundation/0g-drops/internal/metrics"
	"github.com/0gfoundation/0g-drops/internal/store"
)

var (
	cfgPath string
	fromHex string
)

var rootCmd = &cobra.Command{
	Use:           "drops",
	Short:         "Drop issuance and voucher minting engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ./config.yaml or /app/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&fromHex, "from", "", "caller address")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps engine rejections to 2 so scripts can tell them apart from
// infrastructure failures.
func exitCode(err error) int {
	if ledger.Kind(err) != "Internal" {
		return 2
	}
	return 1
}

// app is the per-invocation runtime behind every subcommand.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.BoltStore
	rdb   *redis.Client
	reg   *prometheus.Registry
	eng   *engine.Engine
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, reg: prometheus.NewRegistry()}

	// ── Store ────────────────────────────────────────────────────────────────
	a.store, err = store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	st, err := a.store.LoadState()
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		st, err = ledger.NewState(engine.Genesis(cfg))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("genesis: %w", err)
		}
		log.Info("initialised ledger from genesis", zap.String("path", cfg.Store.Path))
	case err != nil:
		a.close()
		return nil, err
	}

	// ── Event sinks ──────────────────────────────────────────────────────────
	sink := events.Multi{a.store}
	if cfg.Redis.Addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		sink = append(sink, events.NewRedisSink(a.rdb, cfg.Redis.EventsKey))
	}

	a.eng = engine.New(st, engine.Options{
		Domain:   engine.Domain(cfg),
		BaseURI:  cfg.Drops.BaseURI,
		Sink:     sink,
		Observer: metrics.NewCollector(a.reg),
		Logger:   log,
	})
	return a, nil
}

// persist writes the snapshot and, when configured, the metrics textfile.
func (a *app) persist() error {
	if err := a.eng.Ledger.View(a.store.SaveState); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if a.cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.reg); err != nil {
			a.log.Warn("write metrics textfile", zap.Error(err))
		}
	}
	return nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *app) caller() (common.Address, error) {
	if !common.IsHexAddress(fromHex) {
		return common.Address{}, fmt.Errorf("--from must be a hex address, got %q", fromHex)
	}
	return common.HexToAddress(fromHex), nil
}

// withApp opens the runtime around fn. Mutating commands persist the
// snapshot afterwards, even when fn was rejected, so the metrics textfile
// records the rejection.
func withApp(mutates bool, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		runErr := fn(ctx, a, args)
		if mutates {
			if err := a.persist(); err != nil {
				return errors.Join(runErr, err)
			}
		}
		return runErr
	}
}
