package centralhub

import (
	"context"

	"github.com/haitrieu1811/central-hub-server/jwt"
)

// RequestEmailVerification issues a fresh email verification token and
// stores it on the user row, superseding any earlier pending token. The
// token is returned for delivery; the engine does not send mail.
func (e *Engine) RequestEmailVerification(ctx context.Context, userID string) (string, error) {
	ip := clientIPFromContext(ctx)

	user, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Verify == VerifyStatusVerified {
		return "", ErrAlreadyVerified
	}

	token, err := e.issuer.IssueEmailVerify(e.identity(user))
	if err != nil {
		return "", err
	}

	if err := e.directory.SetEmailVerifyToken(ctx, user.ID, token); err != nil {
		return "", err
	}

	e.metrics.Inc(MetricEmailVerificationRequest)
	e.emitAudit(ctx, eventEmailVerifyRequest, user.ID, ip, true, nil)

	return token, nil
}

// VerifyEmail consumes an email verification token. The token must both
// verify cryptographically and match the pending token stored on the
// user row; consuming it clears the row, so each challenge is single-use.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	ip := clientIPFromContext(ctx)

	claims, err := e.codec.Verify(token, jwt.KindEmailVerify)
	if err != nil {
		e.metrics.Inc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, eventEmailVerify, "", ip, false, err)
		return err
	}

	user, err := e.directory.FindByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if user.Verify == VerifyStatusVerified {
		return ErrAlreadyVerified
	}
	if user.EmailVerifyToken == "" || user.EmailVerifyToken != token {
		// Consumed already, or superseded by a newer challenge.
		e.metrics.Inc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, eventEmailVerify, user.ID, ip, false, ErrTokenRevoked)
		return ErrTokenRevoked
	}

	if err := e.directory.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	e.metrics.Inc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, eventEmailVerify, user.ID, ip, true, nil)

	return nil
}
