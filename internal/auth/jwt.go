// Package auth issues and verifies session tokens for the REST API.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garyellow/quizbot-go/internal/storage"
)

const (
	issuer        = "quizbot"
	audienceAPI   = "api"
	audienceState = "oauth-state"
	stateTTL      = 10 * time.Minute
)

// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the session token claims.
type Claims struct {
	AccountID int64  `json:"aid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == storage.RoleAdmin
}

// Issuer signs tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a session token for the account.
func (i *Issuer) Issue(account *storage.Account) (string, error) {
	now := i.now()
	claims := &Claims{
		AccountID: account.ID,
		Role:      account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(account.ID, 10),
			Audience:  jwt.ClaimStrings{audienceAPI},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a session token.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := i.parse(tokenString, claims, audienceAPI); err != nil {
		return nil, err
	}
	if claims.AccountID <= 0 {
		return nil, fmt.Errorf("%w: missing account", ErrInvalidToken)
	}
	return claims, nil
}

// IssueState returns a signed OAuth state value, so the callback can be
// verified without server-side sessions.
func (i *Issuer) IssueState() (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audienceState},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// VerifyState checks a state value produced by IssueState.
func (i *Issuer) VerifyState(state string) error {
	return i.parse(state, &jwt.RegisteredClaims{}, audienceState)
}

func (i *Issuer) parse(tokenString string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return nil
}
