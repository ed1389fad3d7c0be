package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolMinter/internal/api"
	"poolMinter/internal/config"
	"poolMinter/internal/metrics"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve minter methods over HTTP",
		RunE:  runServe,
	}
	addEngineFlags(cmd)
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Float64("rate-limit-rpm", 600, "requests per minute per client")
	cmd.Flags().Int("rate-limit-burst", 20, "request burst per client")
	cmd.Flags().StringSlice("trusted-proxies", nil, "proxy IPs or CIDRs whose forwarding headers are honoured")
	addAuthFlags(cmd)
	cmd.Flags().Bool("auth-anonymous", true, "serve read-only methods to requests without a token")
	return cmd
}

// addAuthFlags declares the token settings shared by serve and token.
func addAuthFlags(cmd *cobra.Command) {
	cmd.Flags().String("auth-secret", "", "HMAC secret for bearer tokens (prefer MINTER_AUTH_SECRET)")
	cmd.Flags().String("auth-issuer", "minter", "issuer claim of bearer tokens")
	cmd.Flags().String("auth-audience", "", "audience claim of bearer tokens, empty skips the check")
}

func authConfig(cfg config.Config) api.AuthConfig {
	return api.AuthConfig{
		HMACSecret:     cfg.AuthSecret,
		Issuer:         cfg.AuthIssuer,
		Audience:       cfg.AuthAudience,
		AllowAnonymous: cfg.AuthAnonymous,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := api.NewAuthenticator(authConfig(a.cfg), a.logger)
	if err != nil {
		return fmt.Errorf("serve needs auth-secret: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.New(registry)
	if err != nil {
		return err
	}
	if remaining, err := a.engine.GetRemainingSupply(ctx); err == nil {
		recorder.SetPoolRemaining(remaining)
	}
	a.engine.SetEmitter(append(a.emitter, recorder))

	dispatcher := api.NewDispatcher(a.engine, a.logger)
	dispatcher.SetFailureObserver(recorder)

	var limiter *api.RateLimiter
	if a.cfg.RateLimitRPM > 0 {
		limiter, err = api.NewRateLimiter(api.RateLimit{
			RequestsPerMinute: a.cfg.RateLimitRPM,
			Burst:             a.cfg.RateLimitBurst,
			TrustedProxies:    a.cfg.TrustedProxies,
		})
		if err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr: a.cfg.Listen,
		Handler: api.NewServer(api.ServerConfig{
			Dispatcher:    dispatcher,
			Authenticator: auth,
			RateLimiter:   limiter,
			Gatherer:      registry,
			Logger:        a.logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("minter serve start",
			zap.String("listen", a.cfg.Listen),
			zap.String("store", a.cfg.Store),
			zap.String("ownership", a.cfg.Ownership),
			zap.String("allocation", a.cfg.Allocation),
			zap.Bool("anonymous_reads", a.cfg.AuthAnonymous),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.logger.Info("minter serve shutdown")
	return server.Shutdown(shutdownCtx)
}
