// Package common defines sentinel errors and small helpers shared by every
// layer of the storage data plane. Callers should use errors.Is to match
// these values; producers wrap them with fmt.Errorf("%w: ...").
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound      = errors.New("not found")
	ErrorMissingDrive  = errors.New("missing drive")
	ErrorAlreadyExists = errors.New("already exists")

	// Authorization errors. A wrong shared secret is reported as ErrorPermission too.
	ErrorPermission   = errors.New("permission denied")
	ErrorInvalidToken = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	// Payload validation (checksum or size mismatch).
	ErrorValidation = errors.New("file validation error")

	// Chunk index out of range.
	ErrorIndex = errors.New("index out of range")

	// Caller passed the wrong kind of argument.
	ErrorTypeMismatch = errors.New("type mismatch")

	// Backend cannot perform the requested operation.
	ErrorUnsupported = errors.New("unsupported operation")
)
