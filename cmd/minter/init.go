package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolMinter/internal/config"
	"poolMinter/internal/storage"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the initial minter state",
		RunE:  runInit,
	}
	addGenesisFlags(cmd.Flags())
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Store == config.StoreMemory {
		return fmt.Errorf("memory store keeps nothing between runs, pick file, bolt or postgres")
	}

	initial, err := initialState(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Init(ctx, initial); err != nil {
		if errors.Is(err, storage.ErrAlreadyInitialized) {
			logger.Warn("state already initialized", zap.String("store", cfg.Store), zap.String("instance", cfg.Instance))
		}
		return err
	}

	logger.Info("state initialized",
		zap.String("store", cfg.Store),
		zap.String("instance", cfg.Instance),
		zap.String("admin", cfg.Admin),
		zap.Int("extra_admins", len(cfg.Admins)),
		zap.String("collection", cfg.Collection),
	)
	return nil
}
