package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"poolMinter/internal/api"
)

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> [json-args]",
		Short: "Invoke one minter method and print the JSON result",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCall,
	}
	addEngineFlags(cmd)
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var caller common.Address
	if a.cfg.Caller != "" {
		caller = common.HexToAddress(a.cfg.Caller)
	}
	var raw json.RawMessage
	if len(args) == 2 {
		raw = json.RawMessage(args[1])
	}

	dispatcher := api.NewDispatcher(a.engine, a.logger)
	result, err := dispatcher.Call(ctx, caller, args[0], raw)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err != nil {
		_ = enc.Encode(map[string]interface{}{
			"error": map[string]string{"kind": api.ErrorKind(err), "message": err.Error()},
		})
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return enc.Encode(map[string]interface{}{"result": result})
}
