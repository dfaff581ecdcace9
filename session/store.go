package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDuplicateToken is returned when inserting a token that is already stored.
var ErrDuplicateToken = errors.New("refresh token already stored")

// ErrTokenNotFound is returned by Swap when the outgoing token is absent,
// which means it was already rotated, logged out, or expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrRecordExpired is returned when a record's expiry is not in the future.
var ErrRecordExpired = errors.New("record already expired")

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	swapStatusMissing   int64 = 0
	swapStatusSwapped   int64 = 1
	swapStatusCollision int64 = 2
)

// The delete and the insert must be observed as one step: two refreshes
// racing on the same token each run this script, and only the first one
// still finds KEYS[1].
const swapRefreshScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 2
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
return 1
`

var swapRefreshLua = redis.NewScript(swapRefreshScript)

// Store is a Redis-backed refresh token store. Tokens are keyed by the
// SHA-256 of their string form under a configurable prefix, and each
// record carries a TTL matching the token's own expiry so Redis reclaims
// dead sessions on its own.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a refresh token [Store] backed by the given Redis
// client. now is the clock used to derive record TTLs; nil means
// [time.Now].
func NewStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *Store {
	if prefix == "" {
		prefix = "rt"
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

func (s *Store) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

// Put inserts a record for a brand-new token. A colliding token string
// returns [ErrDuplicateToken] and leaves the existing record untouched.
//
//	Performance: 1 Redis SET NX PX.
func (s *Store) Put(ctx context.Context, token string, rec Record) error {
	data, ttl, err := s.encodeWithTTL(&rec)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(token), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrDuplicateToken
	}

	return nil
}

// Get retrieves the record for a token, or [ErrTokenNotFound].
func (s *Store) Get(ctx context.Context, token string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Decode(data)
}

// Exists reports whether the token is currently a member of the store.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) Exists(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Remove deletes the token's record. Removing an absent token is a
// successful no-op, so logout stays idempotent.
func (s *Store) Remove(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Swap atomically replaces oldToken's record with a record for newToken.
// It fails with [ErrTokenNotFound] when oldToken is no longer stored
// (the caller lost a rotation race or is replaying a consumed token) and
// with [ErrDuplicateToken] when newToken is somehow already present. On
// failure the store is unchanged apart from the losing caller observing
// the winner's state.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Swap(ctx context.Context, oldToken, newToken string, rec Record) error {
	data, ttl, err := s.encodeWithTTL(&rec)
	if err != nil {
		return err
	}

	result, err := swapRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.key(oldToken), s.key(newToken)},
		data,
		ttl.Milliseconds(),
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	status, ok := result.(int64)
	if !ok {
		return fmt.Errorf("%w: invalid swap script response", ErrRedisUnavailable)
	}

	switch status {
	case swapStatusSwapped:
		return nil
	case swapStatusMissing:
		return ErrTokenNotFound
	case swapStatusCollision:
		return ErrDuplicateToken
	default:
		return fmt.Errorf("%w: unknown swap script status %d", ErrRedisUnavailable, status)
	}
}

func (s *Store) encodeWithTTL(rec *Record) ([]byte, time.Duration, error) {
	ttl := time.Unix(rec.ExpiresAt, 0).Sub(s.now())
	if ttl <= 0 {
		return nil, 0, ErrRecordExpired
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	data, err := Encode(rec)
	if err != nil {
		return nil, 0, err
	}

	return data, ttl, nil
}
