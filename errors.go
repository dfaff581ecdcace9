package centralhub

import (
	"errors"

	"github.com/haitrieu1811/central-hub-server/internal/rate"
	"github.com/haitrieu1811/central-hub-server/jwt"
	"github.com/haitrieu1811/central-hub-server/session"
)

// The token taxonomy sentinels are shared with the leaf packages so that
// errors.Is works across package boundaries.
var (
	// ErrMalformedToken is returned when a token cannot be decoded at all.
	ErrMalformedToken = jwt.ErrMalformedToken
	// ErrInvalidSignature is returned when a token's signature does not
	// verify under the secret for the expected kind.
	ErrInvalidSignature = jwt.ErrInvalidSignature
	// ErrExpiredToken is returned when a correctly signed token is past
	// its expiry.
	ErrExpiredToken = jwt.ErrExpiredToken
	// ErrDuplicateToken is returned when a freshly minted token collides
	// with one already stored.
	ErrDuplicateToken = session.ErrDuplicateToken
	// ErrStoreUnavailable wraps refresh store transport failures.
	ErrStoreUnavailable = session.ErrRedisUnavailable
	// ErrRateLimited is returned when an attempt budget is exhausted.
	ErrRateLimited = rate.ErrRateLimited
)

var (
	// ErrTokenRevoked is returned for a refresh or challenge token that
	// verifies but has already been consumed, rotated, or logged out.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInvalidCredentials is returned on login when no account matches
	// the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by directory lookups with no match.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on registration with an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAlreadyVerified is returned when verifying an already verified account.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrDirectoryUnavailable wraps user directory transport failures.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
)
