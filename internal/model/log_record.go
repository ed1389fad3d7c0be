package model

// LogRecord is the normalized, ABI-encoded form of a minter event for storage.
type LogRecord struct {
	ChainID   uint64   `json:"chain_id"`
	Sequence  uint64   `json:"sequence"`
	EventID   string   `json:"event_id"`
	EventName string   `json:"event_name"`
	Address   string   `json:"address"`
	Topics    []string `json:"topics"`
	Data      string   `json:"data"`
	Timestamp int64    `json:"timestamp"`
	EmittedAt string   `json:"emitted_at"`
}
