package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const dashboardScope = "parent_dashboard"

var ErrInvalidToken = errors.New("invalid or expired dashboard token")

// DashboardClaims are carried by a parent dashboard unlock token
type DashboardClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// DashboardTokens issues and verifies short-lived HS256 tokens for the read-only parent dashboard
type DashboardTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDashboardTokens creates the issuer. An empty secret gets a random per-process key.
func NewDashboardTokens(secret string, ttl time.Duration) (*DashboardTokens, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DashboardTokens{secret: key, ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued tokens stay valid
func (d *DashboardTokens) TTL() time.Duration {
	return d.ttl
}

// Issue signs a new token
func (d *DashboardTokens) Issue() (string, time.Time, error) {
	now := d.now()
	expiresAt := now.Add(d.ttl)
	claims := DashboardClaims{
		Scope: dashboardScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   "guardian",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(d.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and scope
func (d *DashboardTokens) Verify(tokenString string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(d.now),
		jwt.WithExpirationRequired(),
	)
	claims := &DashboardClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return d.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Scope != dashboardScope {
		return ErrInvalidToken
	}
	return nil
}
