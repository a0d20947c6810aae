package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// Staff tokens are HS256 only; anything else is rejected before the key is
// consulted.
var signingMethod = jwt.SigningMethodHS256

var (
	ErrNoSecret     = errors.New("jwt secret is required")
	ErrTokenExpired = errors.New("token expired")
	ErrBadClaims    = errors.New("token claims incomplete")
)

// clockSkew tolerates small drift between the auth service and this host.
const clockSkew = 30 * time.Second

// MintAccessToken signs a token for userID. Real tokens come from the auth
// service; shopctl and tests use this.
func MintAccessToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, userID uuid.UUID, role enums.UserRole) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", ErrNoSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case ttl <= 0:
		return "", fmt.Errorf("jwt ttl must be positive, got %s", ttl)
	case !role.IsValid():
		return "", fmt.Errorf("invalid user role %q", role)
	}

	claims := AccessTokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return token, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then checks the
// custom claims. Expiry surfaces as ErrTokenExpired.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	key := []byte(cfg.Secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)

	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil }); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	if claims.UserID == uuid.Nil || !claims.Role.IsValid() {
		return nil, ErrBadClaims
	}
	return claims, nil
}

// BearerToken pulls the token out of an Authorization header. The scheme is
// matched case-insensitively.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
