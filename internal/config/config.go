package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Ownership verifier modes.
const (
	OwnershipNone   = "none"
	OwnershipStatic = "static"
	OwnershipChain  = "chain"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Store        string
	StateFile    string
	BoltPath     string
	PGDSN        string
	Instance     string
	RPCURL       string
	ChainID      uint64
	Ownership    string
	HoldingsFile string
	EventsOut    string
	LogLevel     string

	Listen         string
	RateLimitRPM   float64
	RateLimitBurst int
	TrustedProxies []string

	AuthSecret    string
	AuthIssuer    string
	AuthAudience  string
	AuthAnonymous bool

	HolderOrder string
	Allocation  string

	MaxRetries   int
	RetryBackoff time.Duration

	Caller     string
	Admin      string
	Admins     []string
	Collection string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"store":            StoreFile,
		"state-file":       "./data/minter_state.json",
		"bolt-path":        "./data/minter.db",
		"instance":         "default",
		"ownership":        OwnershipNone,
		"events-out":       "./data/minter_events.jsonl",
		"log-level":        "info",
		"listen":           ":8080",
		"rate-limit-rpm":   600.0,
		"rate-limit-burst": 20,
		"auth-issuer":      "minter",
		"auth-anonymous":   true,
		"holder-order":     "tier-index",
		"allocation":       "sequential",
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Store:          strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		StateFile:      v.GetString("state-file"),
		BoltPath:       v.GetString("bolt-path"),
		PGDSN:          v.GetString("pg-dsn"),
		Instance:       v.GetString("instance"),
		RPCURL:         v.GetString("rpc"),
		ChainID:        v.GetUint64("chain-id"),
		Ownership:      strings.ToLower(strings.TrimSpace(v.GetString("ownership"))),
		HoldingsFile:   v.GetString("holdings-file"),
		EventsOut:      v.GetString("events-out"),
		LogLevel:       v.GetString("log-level"),
		Listen:         v.GetString("listen"),
		RateLimitRPM:   v.GetFloat64("rate-limit-rpm"),
		RateLimitBurst: v.GetInt("rate-limit-burst"),
		TrustedProxies: getStringSlice(v, "trusted-proxies"),
		AuthSecret:     v.GetString("auth-secret"),
		AuthIssuer:     v.GetString("auth-issuer"),
		AuthAudience:   v.GetString("auth-audience"),
		AuthAnonymous:  v.GetBool("auth-anonymous"),
		HolderOrder:    v.GetString("holder-order"),
		Allocation:     v.GetString("allocation"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		Caller:         v.GetString("caller"),
		Admin:          v.GetString("admin"),
		Admins:         getStringSlice(v, "admins"),
		Collection:     v.GetString("collection"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.StateFile == "" {
			return fmt.Errorf("state-file is required for the file store")
		}
	case StoreBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("bolt-path is required for the bolt store")
		}
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	switch c.Ownership {
	case OwnershipNone:
	case OwnershipStatic:
		if c.HoldingsFile == "" {
			return fmt.Errorf("holdings-file is required for static ownership")
		}
	case OwnershipChain:
		if c.RPCURL == "" {
			return fmt.Errorf("rpc is required for chain ownership")
		}
	default:
		return fmt.Errorf("unknown ownership mode %q", c.Ownership)
	}

	for key, value := range map[string]string{"caller": c.Caller, "admin": c.Admin, "collection": c.Collection} {
		if value != "" && !common.IsHexAddress(value) {
			return fmt.Errorf("%s is not a hex address: %q", key, value)
		}
	}
	for _, admin := range c.Admins {
		if !common.IsHexAddress(admin) {
			return fmt.Errorf("admins entry is not a hex address: %q", admin)
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}
	return nil
}

// EventsConfig holds configuration for the events command.
type EventsConfig struct {
	In       string
	LogLevel string
}

// LoadEvents merges config file, environment variables, and flags into EventsConfig.
func LoadEvents(cfgFile string, flags *pflag.FlagSet) (EventsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"events-out": "./data/minter_events.jsonl",
		"log-level":  "info",
	})
	if err != nil {
		return EventsConfig{}, err
	}
	in := v.GetString("in")
	if in == "" {
		in = v.GetString("events-out")
	}
	return EventsConfig{In: in, LogLevel: v.GetString("log-level")}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("MINTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
