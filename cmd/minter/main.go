package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "minter",
		Short:        "Pooled NFT mint pricing and allocation engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	addStoreFlags(root.PersistentFlags())
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newCallCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newEventsCmd())
	root.AddCommand(newTokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// retryFlags tune RPC calls made by the chain ownership verifier.
func retryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-retries", 5, "maximum RPC retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
}
