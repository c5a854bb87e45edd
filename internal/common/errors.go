// Package common defines shared constants and sentinel errors used across
// the LedgerKeeper client and sync engine. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Sync error taxonomy. The engine wraps lower-level failures into one of
	// these so callers can branch on the class, not the cause.
	ErrPrerequisiteNotMet    = errors.New("sync prerequisite not met")
	ErrRemoteOperationFailed = errors.New("remote operation failed")
	ErrDataCorruption        = errors.New("data corruption")
	ErrConflictUnresolved    = errors.New("conflict awaiting resolution")
	ErrCancelled             = errors.New("cancelled")
	ErrSyncInProgress        = errors.New("sync already in progress")

	// Auth errors.
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrLoginAlreadyExists   = errors.New("login already exists")
	ErrInvalidLoginPassword = errors.New("invalid login/password")

	// Validation errors surfaced by entity checks.
	ErrValidation = errors.New("validation error")
)
