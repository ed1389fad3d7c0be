package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"poolMinter/internal/chain"
	"poolMinter/internal/config"
	"poolMinter/internal/engine"
	"poolMinter/internal/events"
	"poolMinter/internal/model"
	"poolMinter/internal/ownership"
	"poolMinter/internal/pricing"
	"poolMinter/internal/state"
	"poolMinter/internal/storage"
	boltstore "poolMinter/internal/storage/bolt"
	"poolMinter/internal/storage/postgres"
)

func addStoreFlags(flags *pflag.FlagSet) {
	flags.String("store", config.StoreFile, "state backend (memory, file, bolt, postgres)")
	flags.String("state-file", "./data/minter_state.json", "state snapshot path for the file store")
	flags.String("bolt-path", "./data/minter.db", "database path for the bolt store")
	flags.String("pg-dsn", "", "Postgres DSN for the postgres store")
	flags.String("instance", "default", "minter instance name inside a shared store")
}

// addGenesisFlags declares the settings of a fresh state. Memory stores are
// initialized from them on every start.
func addGenesisFlags(flags *pflag.FlagSet) {
	flags.String("admin", "", "initial admin address")
	flags.StringSlice("admins", nil, "additional admin addresses (comma-separated)")
	flags.String("collection", "", "address of the collection whose serials the pool holds")
}

func addEngineFlags(cmd *cobra.Command) {
	addGenesisFlags(cmd.Flags())
	cmd.Flags().String("rpc", "", "RPC URL for chain ownership checks")
	cmd.Flags().Uint64("chain-id", 0, "chain id stamped on event records, 0 asks the RPC node")
	cmd.Flags().String("ownership", config.OwnershipNone, "ownership verifier (none, static, chain)")
	cmd.Flags().String("holdings-file", "", "JSON holder snapshot for static ownership")
	cmd.Flags().String("events-out", "./data/minter_events.jsonl", "event log JSONL path, empty disables it")
	cmd.Flags().String("holder-order", string(pricing.OrderTierIndex), "holder stage order (tier-index, discount-desc, as-supplied)")
	cmd.Flags().String("allocation", string(engine.AllocationSequential), "serial allocation (sequential, hashed)")
	cmd.Flags().String("caller", "", "account the call is made on behalf of")
	retryFlags(cmd)
}

// app is the wired engine plus everything that must be closed with it.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   storage.Store
	engine  *engine.Engine
	emitter events.MultiEmitter
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	case config.StoreFile:
		return storage.OpenFileStore(cfg.StateFile)
	case config.StoreBolt:
		return boltstore.Open(cfg.BoltPath, cfg.Instance, nil)
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.Instance)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// initialState builds the first snapshot from the admin settings in cfg.
func initialState(cfg config.Config) (*state.State, error) {
	if cfg.Admin == "" {
		return nil, fmt.Errorf("admin address is required")
	}
	s := state.New(common.HexToAddress(cfg.Admin), common.HexToAddress(cfg.Collection))
	for _, admin := range cfg.Admins {
		s.Admins[common.HexToAddress(admin)] = true
	}
	return s, nil
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() { _ = store.Close() })

	if cfg.Store == config.StoreMemory {
		initial, err := initialState(cfg)
		if err != nil {
			return fmt.Errorf("memory store needs an admin: %w", err)
		}
		if err := store.Init(ctx, initial); err != nil {
			return err
		}
	}

	holderOrder, err := pricing.ParseHolderOrder(cfg.HolderOrder)
	if err != nil {
		return err
	}
	allocation, err := engine.ParseAllocation(cfg.Allocation)
	if err != nil {
		return err
	}

	eng := engine.New(store, engine.Options{HolderOrder: holderOrder, Allocation: allocation}, a.logger)
	a.engine = eng

	chainID := cfg.ChainID
	switch cfg.Ownership {
	case config.OwnershipStatic:
		static, err := ownership.LoadStatic(cfg.HoldingsFile)
		if err != nil {
			return err
		}
		eng.SetVerifier(static)
		a.logger.Info("static ownership loaded", zap.String("path", cfg.HoldingsFile), zap.Int("records", static.Len()))
	case config.OwnershipChain:
		client, err := chain.Dial(ctx, cfg.RPCURL, chainID)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		chainID = client.ChainID()
		eng.SetVerifier(chain.NewOwnerVerifier(client, chain.VerifierOptions{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, a.logger))
	}

	a.emitter = events.MultiEmitter{events.NewLogEmitter(a.logger)}
	if cfg.EventsOut != "" {
		sink, err := a.eventSink(ctx, chainID)
		if err != nil {
			return err
		}
		a.emitter = append(a.emitter, sink)
	}
	eng.SetEmitter(a.emitter)
	return nil
}

func (a *app) eventSink(ctx context.Context, chainID uint64) (*events.SinkEmitter, error) {
	var collection common.Address
	if err := a.store.View(ctx, func(s *state.State) error {
		collection = s.Misc.Collection
		return nil
	}); err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			return nil, fmt.Errorf("state is not initialized, run `minter init` first: %w", err)
		}
		return nil, err
	}

	var last uint64
	if _, err := os.Stat(a.cfg.EventsOut); err == nil {
		err := storage.ReadLogs(a.cfg.EventsOut, func(record model.LogRecord) error {
			if record.Sequence > last {
				last = record.Sequence
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan event log: %w", err)
		}
	}

	encoder, err := events.NewEncoder(chainID, collection, last)
	if err != nil {
		return nil, err
	}
	return events.NewSinkEmitter(encoder, storage.NewJsonlStorage(a.cfg.EventsOut), a.logger), nil
}

func (a *app) caller() (common.Address, error) {
	if a.cfg.Caller == "" {
		return common.Address{}, fmt.Errorf("--caller is required")
	}
	return common.HexToAddress(a.cfg.Caller), nil
}
