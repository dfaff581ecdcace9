package centralhub

import (
	"context"
	"errors"

	"github.com/haitrieu1811/central-hub-server/jwt"
)

// ForgotPassword issues a password reset token for the account behind
// email and stores it on the user row, superseding any earlier pending
// token. The token is returned for delivery; the engine does not send
// mail. Callers exposing this over HTTP should mask [ErrUserNotFound]
// to avoid account enumeration.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (string, error) {
	ip := clientIPFromContext(ctx)

	user, err := e.directory.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token, err := e.issuer.IssuePasswordReset(e.identity(user))
	if err != nil {
		return "", err
	}

	if err := e.directory.SetPasswordResetToken(ctx, user.ID, token); err != nil {
		return "", err
	}

	e.metrics.Inc(MetricPasswordResetRequest)
	e.emitAudit(ctx, eventPasswordForgot, user.ID, ip, true, nil)

	return token, nil
}

// ResetPassword consumes a password reset token and installs the new
// password. The token must verify cryptographically and match the
// pending token on the user row; the swap clears the row, so each
// challenge is single-use. Outstanding refresh tokens are not revoked.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	ip := clientIPFromContext(ctx)

	if newPassword == "" {
		return errors.New("new password required")
	}

	claims, err := e.codec.Verify(token, jwt.KindPasswordReset)
	if err != nil {
		e.metrics.Inc(MetricPasswordResetFailure)
		e.emitAudit(ctx, eventPasswordReset, "", ip, false, err)
		return err
	}

	user, err := e.directory.FindByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if user.PasswordResetToken == "" || user.PasswordResetToken != token {
		e.metrics.Inc(MetricPasswordResetFailure)
		e.emitAudit(ctx, eventPasswordReset, user.ID, ip, false, ErrTokenRevoked)
		return ErrTokenRevoked
	}

	if err := e.directory.UpdatePassword(ctx, user.ID, e.hasher.Digest(newPassword)); err != nil {
		return err
	}

	e.metrics.Inc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, eventPasswordReset, user.ID, ip, true, nil)

	return nil
}
