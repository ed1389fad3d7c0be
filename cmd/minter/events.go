package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolMinter/internal/config"
	"poolMinter/internal/events"
	"poolMinter/internal/model"
	"poolMinter/internal/storage"
)

type decodedEvent struct {
	Sequence  uint64       `json:"sequence"`
	EventID   string       `json:"event_id"`
	Type      string       `json:"type"`
	EmittedAt string       `json:"emitted_at"`
	Event     events.Event `json:"event"`
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Decode the event log into readable JSON lines",
		RunE:  runEvents,
	}
	cmd.Flags().String("in", "", "event log JSONL, defaults to events-out")
	cmd.Flags().String("events-out", "./data/minter_events.jsonl", "event log JSONL path")
	return cmd
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadEvents(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input file is required")
	}

	enc := json.NewEncoder(os.Stdout)
	total := 0
	failed := 0
	err = storage.ReadLogs(cfg.In, func(record model.LogRecord) error {
		total++
		ev, err := events.Decode(record)
		if err != nil {
			failed++
			logger.Warn("decode event failed",
				zap.Uint64("sequence", record.Sequence),
				zap.String("event_name", record.EventName),
				zap.Error(err),
			)
			return nil
		}
		return enc.Encode(decodedEvent{
			Sequence:  record.Sequence,
			EventID:   record.EventID,
			Type:      ev.EventType(),
			EmittedAt: record.EmittedAt,
			Event:     ev,
		})
	})
	if err != nil {
		return err
	}

	logger.Info("events decoded", zap.String("in", cfg.In), zap.Int("total", total), zap.Int("failed", failed))
	return nil
}
