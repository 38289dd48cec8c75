package services

import "errors"

var (
	// Credential errors. Callers surface these as one generic message; the
	// audit trail keeps the precise reason.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("refresh token superseded")

	// Validation errors
	ErrInvalidRole          = errors.New("invalid role")
	ErrMissingFields        = errors.New("all fields are required")
	ErrInvalidAddressSpec   = errors.New("invalid IP address or CIDR")
	ErrDuplicateAddressSpec = errors.New("address or range is already whitelisted")

	ErrRuleNotFound = errors.New("whitelist rule not found")
	ErrUserNotFound = errors.New("user not found")
)
