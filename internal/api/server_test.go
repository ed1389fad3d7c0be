package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"poolMinter/internal/engine"
	"poolMinter/internal/metrics"
	"poolMinter/internal/state"
	"poolMinter/internal/storage"
)

const (
	adminHex   = "0x00000000000000000000000000000000000000a1"
	aliceHex   = "0x00000000000000000000000000000000000000b2"
	malloryHex = "0x00000000000000000000000000000000000000ee"
	testSecret = "minter-test-secret"
)

type testServer struct {
	handler http.Handler
	auth    *Authenticator
	metrics *metrics.Recorder
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	return newTestServerWithAuth(t, limiter, AuthConfig{HMACSecret: testSecret, Issuer: "minter", AllowAnonymous: true})
}

func newTestServerWithAuth(t *testing.T, limiter *RateLimiter, authCfg AuthConfig) *testServer {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(ctx, state.New(common.HexToAddress(adminHex), common.HexToAddress("0xd4"))))

	eng := engine.New(store, engine.Options{}, zap.NewNop())
	eng.SetNowFunc(func() time.Time { return time.Unix(5_000, 0) })

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)
	eng.SetEmitter(rec)

	auth, err := NewAuthenticator(authCfg, zap.NewNop())
	require.NoError(t, err)

	dispatcher := NewDispatcher(eng, zap.NewNop())
	dispatcher.SetFailureObserver(rec)
	return &testServer{
		handler: NewServer(ServerConfig{Dispatcher: dispatcher, Authenticator: auth, RateLimiter: limiter, Gatherer: reg}),
		auth:    auth,
		metrics: rec,
		reg:     reg,
	}
}

func (s *testServer) token(t *testing.T, caller string) string {
	t.Helper()
	token, err := s.auth.Issue(common.HexToAddress(caller), time.Hour)
	require.NoError(t, err)
	return token
}

// call invokes method as caller; an empty caller sends no token.
func (s *testServer) call(t *testing.T, caller, method, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	token := ""
	if caller != "" {
		token = s.token(t, caller)
	}
	return s.callWithToken(t, token, method, body)
}

func (s *testServer) callWithToken(t *testing.T, token, method, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/call/"+method, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return rr.Code, out
}

func errorKindOf(t *testing.T, body map[string]json.RawMessage) string {
	t.Helper()
	var detail errorDetail
	require.NoError(t, json.Unmarshal(body["error"], &detail))
	return detail.Kind
}

func TestMintFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	code, _ := s.call(t, adminHex, "updateMintEconomics", `{"hbar_price": 100, "wl_discount": 10}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.call(t, adminHex, "updateTiming", `{"start_time": 1000, "refund_window": 60, "refund_percentage": 50}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.call(t, adminHex, "registerPoolNFTs", `{"serials": [10, 11, 12]}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.call(t, adminHex, "addToWhitelist", `{"account": "`+aliceHex+`", "slots": 1}`)
	require.Equal(t, http.StatusOK, code)

	code, body := s.call(t, aliceHex, "calculateMintCost", `{"quantity": 2}`)
	require.Equal(t, http.StatusOK, code)
	var quote struct {
		Total struct {
			Hbar int64 `json:"hbar"`
		} `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body["result"], &quote))
	require.EqualValues(t, 190, quote.Total.Hbar)

	code, body = s.call(t, aliceHex, "mint", `{"quantity": 2, "payment": {"hbar": 190, "lazy": 0}}`)
	require.Equal(t, http.StatusOK, code)
	var minted engine.MintResult
	require.NoError(t, json.Unmarshal(body["result"], &minted))
	require.Equal(t, []uint64{10, 11}, minted.Serials)

	code, body = s.call(t, "", "getRemainingSupply", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `1`, string(body["result"]))

	code, body = s.call(t, aliceHex, "refundNFT", `{"serials": [10]}`)
	require.Equal(t, http.StatusOK, code)
	var refund engine.RefundResult
	require.NoError(t, json.Unmarshal(body["result"], &refund))
	require.EqualValues(t, 47, refund.Amount.Hbar.Int64())

	code, body = s.call(t, aliceHex, "refundNFT", `{"serials": [10]}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "NeverMinted", errorKindOf(t, body))
}

func TestErrorsCarryKinds(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.call(t, aliceHex, "registerPoolNFTs", `{"serials": [1]}`)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "NotAdmin", errorKindOf(t, body))

	code, body = s.call(t, aliceHex, "mint", `{"quantity": 1}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "Paused", errorKindOf(t, body))

	code, body = s.call(t, aliceHex, "noSuchMethod", `{}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "UnknownMethod", errorKindOf(t, body))

	code, body = s.call(t, aliceHex, "registerPoolNFTs", `{"serial": [1]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "BadArgs", errorKindOf(t, body))

	code, body = s.call(t, adminHex, "calculateMintCost", `{"quantity": 1, "discount_assets": ["0x000000000000000000000000000000000000000a"], "serials_by_asset": []}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "LengthMismatch", errorKindOf(t, body))

	families, err := s.reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, family := range families {
		if family.GetName() != "minter_failures_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			failures += m.GetCounter().GetValue()
		}
	}
	require.EqualValues(t, 5, failures)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "minter_pool_remaining")

	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/methods", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "getAvailableSerialsPaginated")
}

func TestRateLimiter(t *testing.T) {
	limiter, err := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 2})
	require.NoError(t, err)
	s := newTestServer(t, limiter)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/call/getAdminList", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)
		statuses = append(statuses, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	require.True(t, limiter.Allow("10.0.0.2"))

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestDispatcherMethodsCoverSurface(t *testing.T) {
	d := NewDispatcher(nil, nil)
	methods := d.Methods()
	for _, name := range []string{
		"getMintEconomics", "updateMintEconomics", "getMintTiming", "updateTiming",
		"getRemainingSupply", "getAvailableSerialsPaginated", "registerPoolNFTs", "addNFTsToPool",
		"emergencyWithdrawNFTs", "getDiscountTierCount", "getDiscountTier", "addDiscountTier",
		"updateDiscountTier", "removeDiscountTier", "getBatchSerialDiscountInfo", "whitelistSlots",
		"addToWhitelist", "removeFromWhitelist", "batchAddToWhitelist", "calculateMintCost", "mint",
		"isRefundOwed", "getSerialPayment", "refundNFT", "addAdmin", "removeAdmin", "getAdminList",
		"setSacrificeDestination", "setLazyBurnPercentage",
	} {
		require.Contains(t, methods, name)
	}
}

func TestCallerComesFromBearerToken(t *testing.T) {
	s := newTestServer(t, nil)
	addMallory := `{"account": "` + malloryHex + `"}`

	// A caller header carries no authority.
	req := httptest.NewRequest(http.MethodPost, "/v1/call/addAdmin", strings.NewReader(addMallory))
	req.Header.Set("X-Caller", adminHex)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	code, body := s.call(t, "", "mint", `{"quantity": 1}`)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Unauthenticated", errorKindOf(t, body))

	code, body = s.call(t, malloryHex, "addAdmin", addMallory)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "NotAdmin", errorKindOf(t, body))
	code, _ = s.call(t, malloryHex, "removeAdmin", `{"account": "`+adminHex+`"}`)
	require.Equal(t, http.StatusForbidden, code)

	other, err := NewAuthenticator(AuthConfig{HMACSecret: "someone-else", Issuer: "minter"}, nil)
	require.NoError(t, err)
	forged, err := other.Issue(common.HexToAddress(adminHex), time.Hour)
	require.NoError(t, err)
	code, body = s.callWithToken(t, forged, "addAdmin", addMallory)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Unauthenticated", errorKindOf(t, body))

	stale := *s.auth
	stale.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expired, err := stale.Issue(common.HexToAddress(adminHex), time.Hour)
	require.NoError(t, err)
	code, _ = s.callWithToken(t, expired, "addAdmin", addMallory)
	require.Equal(t, http.StatusUnauthorized, code)

	code, body = s.call(t, "", "getAdminList", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `["`+adminHex+`"]`, strings.ToLower(string(body["result"])))

	code, _ = s.call(t, adminHex, "addAdmin", addMallory)
	require.Equal(t, http.StatusOK, code)
}

func TestAnonymousReadsCanBeDisabled(t *testing.T) {
	s := newTestServerWithAuth(t, nil, AuthConfig{HMACSecret: testSecret})

	code, body := s.call(t, "", "getRemainingSupply", "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Unauthenticated", errorKindOf(t, body))

	code, _ = s.call(t, aliceHex, "getRemainingSupply", "")
	require.Equal(t, http.StatusOK, code)

	_, err := NewAuthenticator(AuthConfig{}, nil)
	require.Error(t, err)
}

func TestRateLimiterIgnoresSpoofedForwarding(t *testing.T) {
	limiter, err := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1, TrustedProxies: []string{"10.9.0.0/16"}})
	require.NoError(t, err)

	direct := func(forwarded string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		return req
	}
	require.Equal(t, "198.51.100.7", limiter.clientID(direct("203.0.113.1")))
	require.True(t, limiter.Allow(limiter.clientID(direct("203.0.113.1"))))
	require.False(t, limiter.Allow(limiter.clientID(direct("203.0.113.2"))))

	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.RemoteAddr = "10.9.1.1:5000"
	proxied.Header.Set("X-Forwarded-For", "192.0.2.50, 203.0.113.9, 10.9.2.2")
	require.Equal(t, "203.0.113.9", limiter.clientID(proxied))

	realIP := httptest.NewRequest(http.MethodGet, "/", nil)
	realIP.RemoteAddr = "10.9.1.1:5000"
	realIP.Header.Set("X-Real-IP", "192.0.2.77")
	require.Equal(t, "192.0.2.77", limiter.clientID(realIP))

	_, err = NewRateLimiter(RateLimit{TrustedProxies: []string{"not-an-ip"}})
	require.Error(t, err)
}
