package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolMinter/internal/api"
	"poolMinter/internal/config"
	"poolMinter/internal/state"
)

func TestInitialState(t *testing.T) {
	cfg := config.Config{
		Admin:      "0x00000000000000000000000000000000000000a1",
		Admins:     []string{"0x00000000000000000000000000000000000000a2"},
		Collection: "0x00000000000000000000000000000000000000d4",
	}
	s, err := initialState(cfg)
	if err != nil {
		t.Fatalf("initial state: %v", err)
	}
	if len(s.AdminList()) != 2 {
		t.Fatalf("expected 2 admins, got %d", len(s.AdminList()))
	}
	if s.Misc.Collection != common.HexToAddress(cfg.Collection) || !s.Timing.Paused {
		t.Fatalf("unexpected state: %+v", s.Misc)
	}

	if _, err := initialState(config.Config{}); err == nil {
		t.Fatalf("expected error without admin")
	}
}

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	initial := state.New(common.HexToAddress("0xa1"), common.Address{})

	for _, cfg := range []config.Config{
		{Store: config.StoreMemory},
		{Store: config.StoreFile, StateFile: filepath.Join(dir, "state.json")},
		{Store: config.StoreBolt, BoltPath: filepath.Join(dir, "minter.db"), Instance: "test"},
	} {
		store, err := openStore(ctx, cfg)
		if err != nil {
			t.Fatalf("%s: open: %v", cfg.Store, err)
		}
		if err := store.Init(ctx, initial); err != nil {
			t.Fatalf("%s: init: %v", cfg.Store, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("%s: close: %v", cfg.Store, err)
		}
	}

	if _, err := openStore(ctx, config.Config{Store: "redis"}); err == nil {
		t.Fatalf("expected unknown store error")
	}
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("MINTER_AUTH_SECRET", "cli-secret")
	subject := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	cmd := newTokenCmd()
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("log-level", "error", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--subject", subject.Hex(), "--ttl", "1h"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	auth, err := api.NewAuthenticator(api.AuthConfig{HMACSecret: "cli-secret", Issuer: "minter"}, nil)
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/call/mint", nil)
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(out.String()))
	caller, ok, err := auth.Authenticate(req)
	if err != nil || !ok || caller != subject {
		t.Fatalf("token did not verify: caller=%s ok=%v err=%v", caller.Hex(), ok, err)
	}

	bad := newTokenCmd()
	bad.Flags().String("config", "", "")
	bad.Flags().String("log-level", "error", "")
	bad.SetOut(&bytes.Buffer{})
	bad.SetErr(&bytes.Buffer{})
	bad.SetArgs([]string{"--subject", "nobody"})
	if err := bad.Execute(); err == nil {
		t.Fatalf("expected error for a non-address subject")
	}
}
