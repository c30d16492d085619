package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("request quota exceeded")
	ErrLockHeld      = errors.New("lock already held")
)
