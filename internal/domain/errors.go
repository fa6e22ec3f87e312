package domain

import "errors"

// Error taxonomy shared by the ledger and the approval machines. Callers wrap
// these with context and match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("concurrent modification")
)
