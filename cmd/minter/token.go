package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolMinter/internal/api"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for calling serve as an account",
		RunE:  runToken,
	}
	addAuthFlags(cmd)
	cmd.Flags().String("subject", "", "account address the token speaks for")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	subject, _ := cmd.Flags().GetString("subject")
	if !common.IsHexAddress(subject) {
		return fmt.Errorf("--subject must be a hex address: %q", subject)
	}
	ttl, _ := cmd.Flags().GetDuration("ttl")

	auth, err := api.NewAuthenticator(authConfig(cfg), logger)
	if err != nil {
		return err
	}
	token, err := auth.Issue(common.HexToAddress(subject), ttl)
	if err != nil {
		return err
	}
	logger.Info("token issued", zap.String("subject", common.HexToAddress(subject).Hex()), zap.Duration("ttl", ttl))
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
