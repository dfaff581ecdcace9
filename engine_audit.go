package centralhub

import "context"

const (
	eventLogin              = "login"
	eventRefresh            = "refresh"
	eventLogout             = "logout"
	eventRegister           = "register"
	eventEmailVerifyRequest = "email_verification_request"
	eventEmailVerify        = "email_verification"
	eventPasswordForgot     = "password_forgot"
	eventPasswordReset      = "password_reset"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, ip string, success bool, opErr error) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		IP:        ip,
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}

	e.audit.Emit(ctx, event)
}
