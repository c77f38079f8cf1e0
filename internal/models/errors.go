package models

import "errors"

// Error kinds for the membership domain. Every repository and service error
// wraps exactly one of these so handlers can map it to a single HTTP status.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("record not found")
	ErrPermission = errors.New("permission denied")
	ErrConflict   = errors.New("conflict")
)
