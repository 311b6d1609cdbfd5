// Package identity resolves chat users to accounts and runs the link-code
// flow that merges a chat identity into a web-login account.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// DefaultLinkCodeTTL is how long a generated code stays redeemable.
const DefaultLinkCodeTTL = 10 * time.Minute

const (
	codeDigits       = 6
	maxCodeAttempts  = 5
	linkCodeUpperCap = 1_000_000
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Store is the persistence surface the service needs.
type Store interface {
	storage.IdentityRepository
	GetAccount(ctx context.Context, id int64) (*storage.Account, error)
}

// Principal is the resolved caller of a chat command.
type Principal struct {
	Identity storage.ChatIdentity
	Account  storage.Account
	// Created is true when this message created the identity.
	Created bool
}

// Service implements identity resolution and linking.
type Service struct {
	store   Store
	ttl     time.Duration
	now     func() time.Time
	newCode func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides link code generation.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

// NewService creates a Service. A non-positive ttl selects DefaultLinkCodeTTL.
func NewService(store Store, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultLinkCodeTTL
	}
	s := &Service{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		newCode: RandomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the identity and account for a chat user, creating a
// temporary account on first contact.
func (s *Service) Resolve(ctx context.Context, platform, channelUserID string) (*Principal, error) {
	if channelUserID == "" {
		return nil, domerrors.NewValidationError("user.id", "channel user id is required")
	}
	ci, created, err := s.store.EnsureIdentity(ctx, platform, channelUserID)
	if err != nil {
		return nil, fmt.Errorf("ensure identity: %w", err)
	}
	acct, err := s.store.GetAccount(ctx, ci.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", ci.AccountID, err)
	}
	return &Principal{Identity: *ci, Account: *acct, Created: created}, nil
}

// LinkCode is a freshly issued code.
type LinkCode struct {
	Code      string
	ExpiresAt time.Time
}

// GenerateLinkCode issues a code for the chat user, replacing any previous
// one. Collisions with another live code are retried a few times.
func (s *Service) GenerateLinkCode(ctx context.Context, platform, channelUserID string) (*LinkCode, error) {
	ci, _, err := s.store.EnsureIdentity(ctx, platform, channelUserID)
	if err != nil {
		return nil, fmt.Errorf("ensure identity: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	for range maxCodeAttempts {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate link code: %w", err)
		}
		err = s.store.SetLinkCode(ctx, ci.ID, code, expiresAt, now)
		if errors.Is(err, storage.ErrLinkCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store link code: %w", err)
		}
		return &LinkCode{Code: code, ExpiresAt: expiresAt}, nil
	}
	return nil, fmt.Errorf("no free link code after %d attempts: %w", maxCodeAttempts, storage.ErrLinkCodeTaken)
}

// RedeemLinkCode binds the chat identity holding code to accountID.
// Malformed, unknown and expired codes return ErrInvalidLinkCode. A code
// whose identity is already bound to accountID returns the result together
// with ErrAlreadyLinked.
func (s *Service) RedeemLinkCode(ctx context.Context, code string, accountID int64) (*storage.LinkResult, error) {
	if !codePattern.MatchString(code) {
		return nil, domerrors.ErrInvalidLinkCode
	}
	return s.store.RedeemLinkCode(ctx, code, accountID, s.now())
}

// CleanupExpired clears expired codes.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.store.ClearExpiredLinkCodes(ctx, s.now())
}

// TTL returns the configured code lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// RandomCode returns a uniformly random zero-padded six digit code.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(linkCodeUpperCap))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
