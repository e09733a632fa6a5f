package port

import "errors"

// Sentinel errors used across ports.
var (
	// Configuration errors, fatal and never retried.
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("collection dimension does not match embedding provider")

	// Boundary validation errors, rejected before any job is enqueued.
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrUnsupportedEvent = errors.New("unsupported webhook event")

	// Job lifecycle errors.
	ErrJobNotFound     = errors.New("job not found")
	ErrIndexInProgress = errors.New("indexing already in progress for collection")
	ErrUnknownRepo     = errors.New("repository not configured")
)
