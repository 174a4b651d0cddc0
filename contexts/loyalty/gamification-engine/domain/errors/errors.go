package errors

import "errors"

var (
	ErrInvalidInput       = errors.New("loyalty input is invalid")
	ErrUserNotFound       = errors.New("user has never been observed")
	ErrRewardNotFound     = errors.New("reward does not exist or is inactive")
	ErrOutOfStock         = errors.New("reward stock is exhausted")
	ErrInsufficientPoints = errors.New("user balance does not cover the reward cost")

	// ErrStoreUnavailable and ErrConcurrentModification are transient:
	// callers may retry with backoff, the engine never retries internally.
	ErrStoreUnavailable       = errors.New("persistent store is unavailable")
	ErrConcurrentModification = errors.New("lost update detected, safe to retry")
)
