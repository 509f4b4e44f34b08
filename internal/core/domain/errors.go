package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a connector status change the transition table forbids
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPersistence indicates the backing store failed a read or write
	ErrPersistence = errors.New("persistence failure")

	// ErrCredential indicates a credential could not be encrypted or decrypted
	ErrCredential = errors.New("credential failure")

	// ErrProvider indicates an external provider adapter failed
	ErrProvider = errors.New("provider failure")

	// ErrUnsupportedProvider indicates no adapter is registered for a provider
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrNotInitialized indicates a component was used before Init
	ErrNotInitialized = errors.New("not initialized")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
