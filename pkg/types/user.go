package types

import (
	"math"
	"strings"
	"time"
)

// Roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSeller  = "seller"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleSeller:
		return true
	}
	return false
}

// User is the authenticated-user record. Its JSON form is the session object
// persisted across invocations.
type User struct {
	UserID      string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Phone       string    `json:"phone,omitempty"`
	ExternalID  string    `json:"external_id,omitempty"`
	AvatarURL   string    `json:"avatar,omitempty"`
	RCANumber   string    `json:"rca_number,omitempty"`
	MonthlyGoal float64   `json:"monthly_goal,omitempty"` // revenue target in reais; 0 means none.
	Inactive    bool      `json:"inactive,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsActive reports whether the user may log in.
func (u *User) IsActive() bool {
	return u != nil && !u.Inactive
}

// ValidateMember checks the fields a team member must carry.
func (u *User) ValidateMember() error {
	switch {
	case strings.TrimSpace(u.Name) == "":
		return ErrInvalidName
	case !strings.Contains(u.Email, "@"):
		return ErrInvalidEmail
	case strings.TrimSpace(u.RCANumber) == "":
		return ErrMissingRCA
	case !ValidRole(u.Role):
		return ErrInvalidRole
	case u.MonthlyGoal < 0 || math.IsNaN(u.MonthlyGoal) || math.IsInf(u.MonthlyGoal, 0):
		return ErrInvalidGoal
	}
	return nil
}

// Account is a User together with its bcrypt password hash. An empty hash
// never matches a password.
type Account struct {
	User
	PasswordHash string `json:"password_hash"`
}

// Session is the persisted login. User fields are flattened at the top level
// of its JSON form; Token and ExpiresAt are set when sessions are signed.
type Session struct {
	User
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
