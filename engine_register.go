package centralhub

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// RegisterRequest carries the fields needed to create an account.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Role     Role
}

// Register creates an account and logs it in: the new user starts
// unverified with a pending email verification token stored on the row,
// and a session is opened immediately so the caller gets a token pair
// back alongside the sanitized user.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*TokenPair, *User, error) {
	ip := clientIPFromContext(ctx)

	if req.Email == "" || req.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if _, err := e.directory.FindByEmail(ctx, req.Email); err == nil {
		e.metrics.Inc(MetricRegisterDuplicate)
		e.emitAudit(ctx, eventRegister, "", ip, false, ErrEmailTaken)
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, nil, err
	}

	user := &User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		PasswordDigest: e.hasher.Digest(req.Password),
		FullName:       req.FullName,
		Role:           req.Role,
		Status:         StatusActive,
		Verify:         VerifyStatusUnverified,
	}

	verifyToken, err := e.issuer.IssueEmailVerify(e.identity(user))
	if err != nil {
		return nil, nil, err
	}
	user.EmailVerifyToken = verifyToken

	if err := e.directory.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.metrics.Inc(MetricRegisterDuplicate)
			e.emitAudit(ctx, eventRegister, "", ip, false, ErrEmailTaken)
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	pair, err := e.createSession(ctx, user)
	if err != nil {
		e.emitAudit(ctx, eventRegister, user.ID, ip, false, err)
		return nil, nil, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, eventRegister, user.ID, ip, true, nil)

	return pair, sanitizeUser(user), nil
}
