package centralhub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haitrieu1811/central-hub-server/internal/rate"
	"github.com/haitrieu1811/central-hub-server/jwt"
	"github.com/haitrieu1811/central-hub-server/password"
	"github.com/haitrieu1811/central-hub-server/session"
)

// Engine is the token lifecycle engine. It owns no locks of its own:
// per-token atomicity lives in the store's swap script, and everything
// else is either immutable after Build or internally synchronized.
type Engine struct {
	config    Config
	codec     *jwt.Codec
	issuer    *jwt.Issuer
	store     *session.Store
	directory Directory
	limiter   *rate.Limiter
	hasher    *password.Hasher
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Login authenticates the email/password pair and opens a session: a
// fresh access/refresh pair is minted and the refresh token is persisted
// with a full-length expiry. No tokens escape when persistence fails.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*TokenPair, *User, error) {
	ip := clientIPFromContext(ctx)

	if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricLoginRateLimited)
			e.emitAudit(ctx, eventLogin, "", ip, false, ErrRateLimited)
			return nil, nil, ErrRateLimited
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	user, err := e.directory.FindByCredentials(ctx, email, e.hasher.Digest(plainPassword))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if incErr := e.limiter.IncrementLogin(ctx, email, ip); incErr != nil && !errors.Is(incErr, rate.ErrRateLimited) {
				e.logger.WarnContext(ctx, "login limiter increment failed", "error", incErr)
			}
			e.metrics.Inc(MetricLoginFailure)
			e.emitAudit(ctx, eventLogin, "", ip, false, ErrInvalidCredentials)
			return nil, nil, ErrInvalidCredentials
		}
		e.metrics.Inc(MetricLoginFailure)
		return nil, nil, err
	}

	pair, err := e.createSession(ctx, user)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, eventLogin, user.ID, ip, false, err)
		return nil, nil, err
	}

	if err := e.limiter.ResetLogin(ctx, email, ip); err != nil {
		e.logger.WarnContext(ctx, "login limiter reset failed", "error", err)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, eventLogin, user.ID, ip, true, nil)

	return pair, sanitizeUser(user), nil
}

// Refresh rotates a refresh token: the presented token is verified,
// checked for store membership, then atomically swapped for a successor
// pair. A verified token missing from the store, or one that loses the
// swap race, is treated as revoked. Under the default [InheritExpiry]
// policy the successor refresh token keeps the original expiry.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ip := clientIPFromContext(ctx)

	claims, err := e.codec.Verify(refreshToken, jwt.KindRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, eventRefresh, "", ip, false, err)
		return nil, err
	}

	if err := e.limiter.CheckRefresh(ctx, claims.UserID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricRefreshRateLimited)
			e.emitAudit(ctx, eventRefresh, claims.UserID, ip, false, ErrRateLimited)
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := e.store.Exists(ctx, refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, err
	}
	if !ok {
		e.metrics.Inc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, eventRefresh, claims.UserID, ip, false, ErrTokenRevoked)
		return nil, ErrTokenRevoked
	}

	var inherited time.Time
	if e.config.Security.RotationExpiryPolicy == InheritExpiry && claims.ExpiresAt != nil {
		inherited = claims.ExpiresAt.Time
	}

	id := jwt.Identity{UserID: claims.UserID, Role: claims.Role, Status: claims.Status, Verify: claims.Verify}
	pair, err := e.issuer.IssuePair(id, inherited)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, err
	}

	rec := session.Record{
		UserID:    claims.UserID,
		IssuedAt:  pair.RefreshIssuedAt.Unix(),
		ExpiresAt: pair.RefreshExpiresAt.Unix(),
	}
	if err := e.store.Swap(ctx, refreshToken, pair.RefreshToken, rec); err != nil {
		switch {
		case errors.Is(err, session.ErrTokenNotFound):
			// Lost the rotation race, or the token was consumed between
			// the membership check and the swap.
			e.metrics.Inc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, eventRefresh, claims.UserID, ip, false, ErrTokenRevoked)
			return nil, ErrTokenRevoked
		case errors.Is(err, session.ErrDuplicateToken):
			e.metrics.Inc(MetricRefreshFailure)
			return nil, ErrDuplicateToken
		default:
			e.metrics.Inc(MetricRefreshFailure)
			return nil, err
		}
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, eventRefresh, claims.UserID, ip, true, nil)

	return &TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Logout removes the refresh token from the store. Logging out an
// unknown or already logged-out token succeeds; only a store transport
// failure surfaces as an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	ip := clientIPFromContext(ctx)

	// Best effort: logout succeeds for expired or garbage tokens too, but
	// a decodable token lets the audit event name its owner.
	var userID string
	if claims, err := e.codec.Verify(refreshToken, jwt.KindRefresh); err == nil {
		userID = claims.UserID
	}

	if err := e.store.Remove(ctx, refreshToken); err != nil {
		e.emitAudit(ctx, eventLogout, userID, ip, false, err)
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, eventLogout, userID, ip, true, nil)

	return nil
}

// ValidateAccess verifies an access token and returns the identity it
// carries. Access tokens are not tracked server-side; validity is purely
// cryptographic until the token expires.
func (e *Engine) ValidateAccess(_ context.Context, accessToken string) (*AuthResult, error) {
	claims, err := e.codec.Verify(accessToken, jwt.KindAccess)
	if err != nil {
		e.metrics.Inc(MetricAccessRejected)
		return nil, err
	}

	e.metrics.Inc(MetricAccessValidated)

	result := &AuthResult{
		UserID:  claims.UserID,
		Role:    Role(claims.Role),
		Status:  Status(claims.Status),
		Verify:  VerifyStatus(claims.Verify),
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// createSession mints a pair with a full-length refresh expiry and
// persists the refresh record. Used by login and registration.
func (e *Engine) createSession(ctx context.Context, user *User) (*TokenPair, error) {
	pair, err := e.issuer.IssuePair(e.identity(user), time.Time{})
	if err != nil {
		return nil, err
	}

	rec := session.Record{
		UserID:    user.ID,
		IssuedAt:  pair.RefreshIssuedAt.Unix(),
		ExpiresAt: pair.RefreshExpiresAt.Unix(),
	}
	if err := e.store.Put(ctx, pair.RefreshToken, rec); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (e *Engine) identity(user *User) jwt.Identity {
	return jwt.Identity{
		UserID: user.ID,
		Role:   uint8(user.Role),
		Status: uint8(user.Status),
		Verify: uint8(user.Verify),
	}
}

func sanitizeUser(user *User) *User {
	out := *user
	out.PasswordDigest = ""
	out.EmailVerifyToken = ""
	out.PasswordResetToken = ""
	return &out
}
