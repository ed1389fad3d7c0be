package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != StoreFile || cfg.StateFile != "./data/minter_state.json" {
		t.Fatalf("unexpected store defaults: %+v", cfg)
	}
	if cfg.Ownership != OwnershipNone || cfg.Allocation != "sequential" || cfg.HolderOrder != "tier-index" {
		t.Fatalf("unexpected policy defaults: %+v", cfg)
	}
	if cfg.RetryBackoff != 500*time.Millisecond || cfg.MaxRetries != 5 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minter.yaml")
	payload := `store: bolt
bolt-path: /tmp/from-file.db
listen: ":9000"
admins:
  - "0x00000000000000000000000000000000000000a1"
  - "0x00000000000000000000000000000000000000a2"
rate-limit-rpm: 120
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MINTER_LISTEN", ":9100")
	t.Setenv("MINTER_RETRY_BACKOFF", "2s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("bolt-path", "", "")
	if err := flags.Parse([]string{"--bolt-path", "/tmp/from-flag.db"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != StoreBolt {
		t.Fatalf("store from file: %q", cfg.Store)
	}
	if cfg.BoltPath != "/tmp/from-flag.db" {
		t.Fatalf("flag should win: %q", cfg.BoltPath)
	}
	if cfg.Listen != ":9100" {
		t.Fatalf("env should beat file: %q", cfg.Listen)
	}
	if cfg.RetryBackoff != 2*time.Second {
		t.Fatalf("retry backoff: %v", cfg.RetryBackoff)
	}
	if cfg.RateLimitRPM != 120 {
		t.Fatalf("rate limit: %v", cfg.RateLimitRPM)
	}
	want := []string{"0x00000000000000000000000000000000000000a1", "0x00000000000000000000000000000000000000a2"}
	if !reflect.DeepEqual(cfg.Admins, want) {
		t.Fatalf("admins: %v", cfg.Admins)
	}
}

func TestLoadAuthSettings(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthSecret != "" || cfg.AuthIssuer != "minter" || !cfg.AuthAnonymous || cfg.TrustedProxies != nil {
		t.Fatalf("unexpected auth defaults: %+v", cfg)
	}

	t.Setenv("MINTER_AUTH_SECRET", "s3cret")
	t.Setenv("MINTER_AUTH_ANONYMOUS", "false")
	t.Setenv("MINTER_TRUSTED_PROXIES", "10.0.0.1, 10.1.0.0/16")
	cfg, err = Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthSecret != "s3cret" || cfg.AuthAnonymous {
		t.Fatalf("auth from env: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.TrustedProxies, []string{"10.0.0.1", "10.1.0.0/16"}) {
		t.Fatalf("trusted proxies: %v", cfg.TrustedProxies)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Store: StoreMemory, Ownership: OwnershipNone}
	if err := base.Validate(); err != nil {
		t.Fatalf("base: %v", err)
	}

	cases := map[string]Config{
		"unknown store":      {Store: "redis", Ownership: OwnershipNone},
		"postgres no dsn":    {Store: StorePostgres, Ownership: OwnershipNone},
		"static no holdings": {Store: StoreMemory, Ownership: OwnershipStatic},
		"chain no rpc":       {Store: StoreMemory, Ownership: OwnershipChain},
		"bad caller":         {Store: StoreMemory, Ownership: OwnershipNone, Caller: "alice"},
		"bad admins":         {Store: StoreMemory, Ownership: OwnershipNone, Admins: []string{"0x12"}},
		"negative retries":   {Store: StoreMemory, Ownership: OwnershipNone, MaxRetries: -1},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadEventsFallsBackToEventsOut(t *testing.T) {
	t.Setenv("MINTER_EVENTS_OUT", "/tmp/events.jsonl")
	cfg, err := LoadEvents("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.In != "/tmp/events.jsonl" {
		t.Fatalf("in: %q", cfg.In)
	}
}
