package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"poolMinter/internal/engine"
)

const maxBodyBytes = 1 << 20

// ServerConfig wires the HTTP surface. Without an Authenticator every call
// is anonymous and only read-only methods are served.
type ServerConfig struct {
	Dispatcher    *Dispatcher
	Authenticator *Authenticator
	RateLimiter   *RateLimiter
	Gatherer      prometheus.Gatherer
	Logger        *zap.Logger
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type resultBody struct {
	Result interface{} `json:"result"`
}

// NewServer returns the router: POST /v1/call/{method}, GET /v1/methods,
// GET /healthz and, with a gatherer, GET /metrics.
func NewServer(cfg ServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(sr chi.Router) {
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware)
		}
		sr.Get("/methods", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, resultBody{Result: cfg.Dispatcher.Methods()})
		})
		sr.Post("/call/{method}", func(w http.ResponseWriter, req *http.Request) {
			method := chi.URLParam(req, "method")

			caller, authenticated, err := authenticate(cfg.Authenticator, req)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthenticated", err.Error())
				return
			}
			if !authenticated && !(anonymousAllowed(cfg.Authenticator) && cfg.Dispatcher.ReadOnly(method)) {
				writeError(w, http.StatusUnauthorized, "Unauthenticated", "bearer token required for "+method)
				return
			}

			body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, "BadArgs", err.Error())
				return
			}

			result, err := cfg.Dispatcher.Call(req.Context(), caller, method, body)
			if err != nil {
				kind := ErrorKind(err)
				status := statusFor(err, kind)
				if status == http.StatusInternalServerError {
					logger.Error("call failed", zap.String("method", method), zap.String("caller", caller.Hex()), zap.Error(err))
				}
				writeError(w, status, kind, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, resultBody{Result: result})
		})
	})
	return r
}

func authenticate(auth *Authenticator, req *http.Request) (common.Address, bool, error) {
	if auth == nil {
		return common.Address{}, false, nil
	}
	return auth.Authenticate(req)
}

func anonymousAllowed(auth *Authenticator) bool {
	return auth == nil || auth.cfg.AllowAnonymous
}

func statusFor(err error, kind string) int {
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return http.StatusNotFound
	case errors.Is(err, ErrBadArgs):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotAdmin):
		return http.StatusForbidden
	case kind == "Internal" || kind == "NotInitialized":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}
