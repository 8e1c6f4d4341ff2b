package types

import "errors"

// Board errors.
var (
	ErrStageNotFound       = errors.New("stage not found")
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrDuplicateID         = errors.New("duplicate opportunity ID")
	ErrStageFull           = errors.New("stage is at capacity")
	ErrInvalidID           = errors.New("invalid ID")
)

// Entity validation errors.
var (
	ErrInvalidName     = errors.New("name must not be empty")
	ErrInvalidValue    = errors.New("value must be a finite, non-negative number")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidResponse = errors.New("response must not be empty")
	ErrNoTriggers      = errors.New("at least one trigger is required")
)

// Automation errors.
var (
	ErrRuleNotFound     = errors.New("rule not found")
	ErrNoRuleTriggered  = errors.New("no rule triggered")
	ErrPermissionDenied = errors.New("permission denied")
)

// Account and session errors.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no active session")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPhone       = errors.New("phone must have at least 11 digits")
	ErrMissingExternalID  = errors.New("external ID must not be empty")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrMissingRCA         = errors.New("RCA number must not be empty")
	ErrInvalidRole        = errors.New("role must be admin, manager or seller")
	ErrInvalidGoal        = errors.New("monthly goal must be a finite, non-negative number")
)
