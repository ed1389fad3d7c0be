package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrUnauthenticated is returned when a request carries no usable credential.
var ErrUnauthenticated = errors.New("api: unauthenticated")

// AuthConfig configures bearer token checks. Tokens are HS256 JWTs whose
// subject is the caller's hex address.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	// AllowAnonymous lets requests without a token call read-only methods.
	AllowAnonymous bool
	ClockSkew      time.Duration
}

// Authenticator resolves the caller of a request from its bearer token.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
	logger *zap.Logger
	now    func() time.Time
}

func NewAuthenticator(cfg AuthConfig, logger *zap.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	secret := []byte(strings.TrimSpace(cfg.HMACSecret))
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth secret not configured")
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = time.Minute
	}
	return &Authenticator{cfg: cfg, secret: secret, logger: logger, now: time.Now}, nil
}

// Issue signs a token for caller valid for ttl.
func (a *Authenticator) Issue(caller common.Address, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   caller.Hex(),
		Issuer:    a.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate returns the caller named by the request's bearer token. ok is
// false when the request has no token at all.
func (a *Authenticator) Authenticate(req *http.Request) (caller common.Address, ok bool, err error) {
	raw := extractBearer(req.Header.Get("Authorization"))
	if raw == "" {
		return common.Address{}, false, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...); err != nil {
		a.logger.Debug("token rejected", zap.Error(err))
		return common.Address{}, true, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !common.IsHexAddress(claims.Subject) {
		return common.Address{}, true, fmt.Errorf("%w: token subject is not an address", ErrUnauthenticated)
	}
	return common.HexToAddress(claims.Subject), true, nil
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
