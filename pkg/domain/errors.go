package domain

import "errors"

// Failure kinds shared across the service. The HTTP layer maps each to a
// status code and a machine-readable code field; nothing below retries.
var (
	ErrValidation         = errors.New("validation failed")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("file not found")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")
	ErrStorageWrite       = errors.New("storage write failed")
	ErrStorageRead        = errors.New("storage read failed")
)
