package rate

import "errors"

// ErrRateLimited is returned when an identifier exceeds its attempt budget.
var ErrRateLimited = errors.New("rate limited")

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")
