package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolMinter/internal/pool"
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register serials into the pool in batches",
		RunE:  runRegister,
	}
	addEngineFlags(cmd)
	cmd.Flags().String("serials", "", "serials and inclusive ranges, e.g. 1-100,150")
	cmd.Flags().Int("batch-size", 500, "serials per registration call")
	return cmd
}

func runRegister(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("serials")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	serials, err := pool.ParseSerials(input)
	if err != nil {
		return err
	}
	if len(serials) == 0 {
		return fmt.Errorf("--serials is required")
	}
	batches, err := pool.SplitBatches(serials, batchSize)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	caller, err := a.caller()
	if err != nil {
		return err
	}

	registered := 0
	for i, batch := range batches {
		if err := a.engine.RegisterPoolNFTs(ctx, caller, batch); err != nil {
			a.logger.Error("register batch failed",
				zap.Int("batch", i),
				zap.Uint64("first", batch[0]),
				zap.Int("registered", registered),
				zap.Error(err),
			)
			return err
		}
		registered += len(batch)
	}

	remaining, err := a.engine.GetRemainingSupply(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("register done",
		zap.Int("registered", registered),
		zap.Int("batches", len(batches)),
		zap.Int("available", remaining),
	)
	return nil
}
