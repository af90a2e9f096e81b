package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInternal           = errors.New("internal error")
	ErrDatabase           = errors.New("database error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrPasswordHash       = errors.New("password hash error")
	ErrNotification       = errors.New("notification failed")
	ErrInvalidRole        = errors.New("invalid role")
)

// Token failures. All of them are ErrInvalidToken for callers that only
// care about the outward "unauthorized" signal.
var (
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenInvalid   = fmt.Errorf("%w: rejected", ErrInvalidToken)
	ErrTokenRevoked   = fmt.Errorf("%w: revoked", ErrInvalidToken)
)

var (
	ErrHashingUnavailable = fmt.Errorf("%w: hashing unavailable", ErrPasswordHash)
	ErrMalformedHash      = fmt.Errorf("%w: malformed hash", ErrPasswordHash)
)

var ErrEmailTimeout = fmt.Errorf("%w: email timeout", ErrNotification)

var (
	ErrInvalidName        = fmt.Errorf("%w: name", ErrInvalidArgument)
	ErrInvalidDescription = fmt.Errorf("%w: description", ErrInvalidArgument)
	ErrInvalidPassword    = fmt.Errorf("%w: password", ErrInvalidArgument)
)

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

func WrapDatabase(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrDatabase, context, err)
}

// Unauthorized keeps the token cause reachable through errors.Is.
func Unauthorized(cause error) error {
	if cause == nil {
		return ErrUnauthorized
	}
	return fmt.Errorf("%w: %w", ErrUnauthorized, cause)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsPasswordHash(err error) bool {
	return errors.Is(err, ErrPasswordHash)
}

func IsNotification(err error) bool {
	return errors.Is(err, ErrNotification)
}

func IsEmailTimeout(err error) bool {
	return errors.Is(err, ErrEmailTimeout)
}
