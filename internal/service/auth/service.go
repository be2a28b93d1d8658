// Package auth implements the one-time-passcode login flow and session token
// issuance.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/eargai/earg-backend/internal/config"
	"github.com/eargai/earg-backend/internal/model/user"
	"github.com/eargai/earg-backend/internal/repository"
)

// ErrInvalidPasscode marks a wrong or expired code. Verification failures
// cause no state change.
var ErrInvalidPasscode = errors.New("invalid passcode")

// UserStore is the slice of the user repository the service needs.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

// PasscodeStore persists at most one live passcode per email.
type PasscodeStore interface {
	Replace(ctx context.Context, email, code string, expiresAt time.Time) error
	Consume(ctx context.Context, email, code string, now time.Time) (bool, error)
}

// Sender delivers an issued passcode to its owner.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

// LogSender prints the code to the process log. Stand-in until email
// delivery lands.
type LogSender struct{}

func (LogSender) Send(_ context.Context, email, code string) error {
	log.Printf("[auth] passcode for %s: %s", email, code)
	return nil
}

// Service issues and verifies passcodes and mints session tokens.
type Service struct {
	users       UserStore
	passcodes   PasscodeStore
	sender      Sender
	secret      []byte
	sessionTTL  time.Duration
	passcodeTTL time.Duration
	codeLength  int
	now         func() time.Time
}

// NewService wires the authenticator from configuration. A nil sender falls
// back to LogSender.
func NewService(users UserStore, passcodes PasscodeStore, sender Sender, cfg config.AuthConfig) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{
		users:       users,
		passcodes:   passcodes,
		sender:      sender,
		secret:      cfg.SessionSecret,
		sessionTTL:  cfg.SessionTTL,
		passcodeTTL: cfg.PasscodeTTL,
		codeLength:  cfg.CodeLength,
		now:         time.Now,
	}
}

// SessionTTL exposes the configured session validity for cookie expiry.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Issue generates a fresh passcode for email, replacing any live one, and
// hands it to the sender. Issue never reveals whether the email has an
// account.
func (s *Service) Issue(ctx context.Context, email string) error {
	code, err := generateCode(s.codeLength)
	if err != nil {
		return fmt.Errorf("failed to generate passcode: %w", err)
	}

	expiresAt := s.now().Add(s.passcodeTTL)
	if err := s.passcodes.Replace(ctx, email, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store passcode: %w", err)
	}

	if err := s.sender.Send(ctx, email, code); err != nil {
		return fmt.Errorf("failed to deliver passcode: %w", err)
	}
	return nil
}

// Verify consumes a matching, unexpired passcode exactly once, creates the
// user on first login and returns a signed session token. Any mismatch or
// expiry yields ErrInvalidPasscode.
func (s *Service) Verify(ctx context.Context, email, code string) (string, error) {
	consumed, err := s.passcodes.Consume(ctx, email, code, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to check passcode: %w", err)
	}
	if !consumed {
		return "", ErrInvalidPasscode
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		u = &user.User{Email: email}
		if err := s.users.Create(ctx, u); err != nil {
			return "", fmt.Errorf("failed to create user: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := GenerateToken(u.ID, s.secret, s.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// generateCode produces a fixed-length numeric code using crypto/rand.
func generateCode(length int) (string, error) {
	if length < 1 {
		length = 6
	}

	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
