package internaldefs

import (
	centralhub "github.com/haitrieu1811/central-hub-server"
)

// CounterDef binds a [centralhub.MetricID] to its exported name and help
// text. Both exporters render from this single table so names never
// drift between backends.
type CounterDef struct {
	ID   centralhub.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exposing dispatcher backpressure drops.
const AuditDroppedName = "centralhub_audit_dropped_total"

// CounterDefs lists every exported engine counter.
var CounterDefs = []CounterDef{
	{ID: centralhub.MetricLoginSuccess, Name: "centralhub_login_success_total", Help: "Successful login attempts."},
	{ID: centralhub.MetricLoginFailure, Name: "centralhub_login_failure_total", Help: "Failed login attempts."},
	{ID: centralhub.MetricLoginRateLimited, Name: "centralhub_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: centralhub.MetricRefreshSuccess, Name: "centralhub_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: centralhub.MetricRefreshFailure, Name: "centralhub_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: centralhub.MetricRefreshReuseDetected, Name: "centralhub_refresh_reuse_detected_total", Help: "Refresh attempts with a consumed or revoked token."},
	{ID: centralhub.MetricRefreshRateLimited, Name: "centralhub_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: centralhub.MetricLogout, Name: "centralhub_logout_total", Help: "Logout operations."},
	{ID: centralhub.MetricRegisterSuccess, Name: "centralhub_register_success_total", Help: "Successful registrations."},
	{ID: centralhub.MetricRegisterDuplicate, Name: "centralhub_register_duplicate_total", Help: "Registrations rejected for an existing email."},
	{ID: centralhub.MetricEmailVerificationRequest, Name: "centralhub_email_verification_request_total", Help: "Email verification challenges issued."},
	{ID: centralhub.MetricEmailVerificationSuccess, Name: "centralhub_email_verification_success_total", Help: "Successful email verifications."},
	{ID: centralhub.MetricEmailVerificationFailure, Name: "centralhub_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: centralhub.MetricPasswordResetRequest, Name: "centralhub_password_reset_request_total", Help: "Password reset challenges issued."},
	{ID: centralhub.MetricPasswordResetSuccess, Name: "centralhub_password_reset_success_total", Help: "Successful password resets."},
	{ID: centralhub.MetricPasswordResetFailure, Name: "centralhub_password_reset_failure_total", Help: "Failed password resets."},
	{ID: centralhub.MetricAccessValidated, Name: "centralhub_access_validated_total", Help: "Access tokens accepted by validation."},
	{ID: centralhub.MetricAccessRejected, Name: "centralhub_access_rejected_total", Help: "Access tokens rejected by validation."},
}
