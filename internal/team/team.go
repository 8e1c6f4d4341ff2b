// Package team manages the sales team: the accounts listed on the team page,
// their roles, RCA numbers and monthly goals.
package team

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/funnel/internal/secret"
	"github.com/mesh-intelligence/funnel/pkg/types"
)

// Member holds the admin-editable fields of a team member. An empty
// Password leaves the member unable to log in (on Add) or keeps the current
// password (on Update).
type Member struct {
	Name        string
	Email       string
	Phone       string
	RCANumber   string
	Role        string
	MonthlyGoal float64
	Password    string
}

// MemberOf returns the editable fields of u, with no password.
func MemberOf(u types.User) Member {
	return Member{
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		RCANumber:   u.RCANumber,
		Role:        u.Role,
		MonthlyGoal: u.MonthlyGoal,
	}
}

// Service applies team actions on top of an AccountStore. Every change
// requires an admin; List is open to any logged-in user.
type Service struct {
	accounts types.AccountStore
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewService creates a Service. A nil logger uses the logrus standard logger.
func NewService(accounts types.AccountStore, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{accounts: accounts, now: time.Now, log: log}
}

// SetClock replaces the service time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns the team. Admins see every account; other users see only
// the active members.
func (s *Service) List(viewer *types.User) ([]types.User, error) {
	if viewer == nil {
		return nil, types.ErrNoSession
	}
	all, err := s.accounts.List()
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]types.User, 0, len(all))
	for _, a := range all {
		if viewer.IsAdmin() || a.IsActive() {
			out = append(out, a.User)
		}
	}
	return out, nil
}

// Get returns member id. Non-admins cannot see inactive members.
func (s *Service) Get(viewer *types.User, id string) (types.User, error) {
	if viewer == nil {
		return types.User{}, types.ErrNoSession
	}
	a, err := s.accounts.Get(id)
	if err != nil {
		return types.User{}, err
	}
	if !viewer.IsAdmin() && !a.IsActive() {
		return types.User{}, fmt.Errorf("%q: %w", id, types.ErrAccountNotFound)
	}
	return a.User, nil
}

// Add creates an active member and returns it.
func (s *Service) Add(admin *types.User, m Member) (types.User, error) {
	if err := requireAdmin(admin); err != nil {
		return types.User{}, err
	}
	u := types.User{
		Name:        strings.TrimSpace(m.Name),
		Email:       normalizeEmail(m.Email),
		Phone:       strings.TrimSpace(m.Phone),
		RCANumber:   strings.TrimSpace(m.RCANumber),
		Role:        m.Role,
		MonthlyGoal: m.MonthlyGoal,
		CreatedAt:   s.now().UTC().Truncate(24 * time.Hour),
	}
	if u.Role == "" {
		u.Role = types.RoleSeller
	}
	if err := u.ValidateMember(); err != nil {
		return types.User{}, err
	}
	hash, err := secret.HashPassword(m.Password)
	if err != nil {
		return types.User{}, err
	}
	id, err := s.accounts.Create(types.Account{User: u, PasswordHash: hash})
	if err != nil {
		return types.User{}, err
	}
	u.UserID = id
	s.log.WithFields(logrus.Fields{"member": id, "role": u.Role, "by": admin.UserID}).Info("team member added")
	return u, nil
}

// Update replaces the editable fields of member id, keeping its active flag
// and creation date.
func (s *Service) Update(admin *types.User, id string, m Member) (types.User, error) {
	if err := requireAdmin(admin); err != nil {
		return types.User{}, err
	}
	acct, err := s.accounts.Get(id)
	if err != nil {
		return types.User{}, err
	}
	acct.Name = strings.TrimSpace(m.Name)
	acct.Email = normalizeEmail(m.Email)
	acct.Phone = strings.TrimSpace(m.Phone)
	acct.RCANumber = strings.TrimSpace(m.RCANumber)
	acct.Role = m.Role
	acct.MonthlyGoal = m.MonthlyGoal
	if err := acct.ValidateMember(); err != nil {
		return types.User{}, err
	}
	if id == admin.UserID && acct.Role != types.RoleAdmin {
		return types.User{}, fmt.Errorf("demote yourself: %w", types.ErrPermissionDenied)
	}
	acct.PasswordHash = ""
	if m.Password != "" {
		if acct.PasswordHash, err = secret.HashPassword(m.Password); err != nil {
			return types.User{}, err
		}
	}
	if err := s.accounts.Update(acct); err != nil {
		return types.User{}, err
	}
	s.log.WithFields(logrus.Fields{"member": id, "by": admin.UserID}).Info("team member updated")
	return acct.User, nil
}

// SetActive activates or deactivates member id. Inactive members cannot log
// in. Admins cannot deactivate themselves.
func (s *Service) SetActive(admin *types.User, id string, active bool) (types.User, error) {
	if err := requireAdmin(admin); err != nil {
		return types.User{}, err
	}
	if id == admin.UserID && !active {
		return types.User{}, fmt.Errorf("deactivate yourself: %w", types.ErrPermissionDenied)
	}
	acct, err := s.accounts.Get(id)
	if err != nil {
		return types.User{}, err
	}
	acct.Inactive = !active
	acct.PasswordHash = ""
	if err := s.accounts.Update(acct); err != nil {
		return types.User{}, err
	}
	s.log.WithFields(logrus.Fields{"member": id, "active": active, "by": admin.UserID}).Info("team member toggled")
	return acct.User, nil
}

// Remove deletes member id. Admins cannot remove themselves.
func (s *Service) Remove(admin *types.User, id string) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}
	if id == admin.UserID {
		return fmt.Errorf("remove yourself: %w", types.ErrPermissionDenied)
	}
	if err := s.accounts.Delete(id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"member": id, "by": admin.UserID}).Info("team member removed")
	return nil
}

func requireAdmin(u *types.User) error {
	if u == nil {
		return types.ErrNoSession
	}
	if !u.IsAdmin() {
		return types.ErrPermissionDenied
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
