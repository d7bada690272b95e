package domain

import "errors"

var (
	// Upstream adapter unreachable or timed out
	ErrTransport = errors.New("upstream transport failure")
	// Upstream returned content that could not be repaired into the expected shape
	ErrMalformedContent  = errors.New("malformed generated content")
	ErrCacheBackend      = errors.New("cache backend unavailable")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrValidation        = errors.New("validation failed")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
