package domain

import "errors"

var (
	// ErrValidation marks missing or malformed input
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers both missing records and records owned by another tenant
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned for unknown usernames and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingToken       = errors.New("access token required")
	ErrInvalidToken       = errors.New("invalid access token")
)
