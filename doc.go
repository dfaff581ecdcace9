// Package centralhub implements the central-hub token lifecycle engine:
// paired short-lived JWT access tokens and persisted refresh tokens with
// atomic single-use rotation, plus the account flows built on the same
// token machinery (registration, email verification, password reset).
//
// The [Engine] is constructed through the [Builder]:
//
//	engine, err := centralhub.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		WithDirectory(dir).
//		Build()
//
// Refresh tokens live in Redis and store membership is the revocation
// authority: a refresh token that still verifies cryptographically but
// has been rotated or logged out is rejected with [ErrTokenRevoked].
package centralhub
