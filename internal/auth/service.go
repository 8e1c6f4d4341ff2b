// Package auth implements login, registration and the persisted session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/funnel/internal/secret"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Service authenticates users against an AccountStore and keeps the current
// session in a SessionStore.
type Service struct {
	accounts types.AccountStore
	sessions types.SessionStore
	signer   *Signer
	now      func() time.Time
	log      logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithSigner makes the service sign sessions and verify them on Current.
func WithSigner(s *Signer) Option {
	return func(svc *Service) { svc.signer = s }
}

// WithClock sets the service time source.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithLogger sets the service logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(svc *Service) { svc.log = log }
}

// NewService creates a Service.
func NewService(accounts types.AccountStore, sessions types.SessionStore, opts ...Option) *Service {
	svc := &Service{
		accounts: accounts,
		sessions: sessions,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// Login checks the credentials and saves a new session. Unknown emails and
// wrong passwords both return ErrInvalidCredentials, and deactivated accounts
// ErrAccountInactive; either way any stored session is left untouched.
func (s *Service) Login(ctx context.Context, email, password string) (*types.Session, error) {
	acct, err := s.accounts.Lookup(normalizeEmail(email))
	if errors.Is(err, types.ErrAccountNotFound) {
		s.log.WithField("email", email).Warn("login rejected")
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	ok, err := secret.CheckPassword(acct.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.WithField("email", email).Warn("login rejected")
		return nil, types.ErrInvalidCredentials
	}
	if !acct.IsActive() {
		s.log.WithField("user", acct.UserID).Warn("login rejected: account inactive")
		return nil, types.ErrAccountInactive
	}

	sess, err := s.open(ctx, acct.User)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user": acct.UserID, "role": acct.Role}).Info("logged in")
	return sess, nil
}

// Register validates the form, creates a seller account and saves a session
// for it. If the session cannot be saved the account is removed again.
func (s *Service) Register(ctx context.Context, r Registration) (*types.Session, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	email := normalizeEmail(r.Email)
	if _, err := s.accounts.Lookup(email); err == nil {
		return nil, types.ErrEmailTaken
	} else if !errors.Is(err, types.ErrAccountNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := secret.HashPassword(r.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := types.User{
		Name:       strings.TrimSpace(r.Name),
		Email:      email,
		Role:       types.RoleSeller,
		Phone:      FormatPhone(r.Phone),
		ExternalID: strings.TrimSpace(r.ExternalID),
		CreatedAt:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
	id, err := s.accounts.Create(types.Account{User: u, PasswordHash: hash})
	if err != nil {
		return nil, err
	}
	u.UserID = id

	sess, err := s.open(ctx, u)
	if err != nil {
		// Without a session the caller sees a failed registration; drop the
		// account so a retry with the same email succeeds.
		if derr := s.accounts.Delete(id); derr != nil {
			s.log.WithError(derr).WithField("user", id).Error("rolling back registration")
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}
	s.log.WithField("user", id).Info("registered")
	return sess, nil
}

// Logout clears the stored session.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info("logged out")
	return nil
}

// Current returns the stored session. With a signer configured, a session
// whose token is missing, invalid or expired is cleared and ErrNoSession or
// ErrSessionExpired is returned.
func (s *Service) Current(ctx context.Context) (*types.Session, error) {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s.signer == nil {
		return sess, nil
	}
	if err := s.signer.Verify(sess); err != nil {
		s.log.WithError(err).Warn("discarding stored session")
		if cerr := s.sessions.Clear(ctx); cerr != nil {
			return nil, fmt.Errorf("clear session: %w", cerr)
		}
		if errors.Is(err, types.ErrSessionExpired) {
			return nil, err
		}
		return nil, types.ErrNoSession
	}
	return sess, nil
}

func (s *Service) open(ctx context.Context, u types.User) (*types.Session, error) {
	sess := &types.Session{User: u}
	if s.signer != nil {
		tok, exp, err := s.signer.Sign(u, s.now())
		if err != nil {
			return nil, err
		}
		sess.Token = tok
		sess.ExpiresAt = &exp
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}
