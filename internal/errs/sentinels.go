// Package errs contains sentinel errors shared by the store, dispatcher and handlers.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSubscription indicates an endpoint/p256dh/auth triple that cannot be stored.
	ErrInvalidSubscription = errors.New("invalid push subscription")

	// ErrMissingVAPIDKeys indicates the VAPID key pair is absent from configuration.
	ErrMissingVAPIDKeys = errors.New("vapid keys not configured")

	// ErrUnauthenticated indicates a missing or invalid caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidRequest indicates a request with missing or malformed fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidOTP indicates a wrong or expired one-time code.
	ErrInvalidOTP = errors.New("invalid one-time code")

	// ErrTooManyAttempts indicates the one-time code was locked after repeated failures.
	ErrTooManyAttempts = errors.New("too many attempts")
)
