package youlyauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/am-IRh/youly-auth/internal/audit"
	"github.com/am-IRh/youly-auth/internal/limiters"
	"github.com/am-IRh/youly-auth/internal/stores"
	"github.com/am-IRh/youly-auth/jwt"
	"github.com/am-IRh/youly-auth/password"
	"github.com/am-IRh/youly-auth/session"
)

// Engine is the verification and session core. Build one with [Builder];
// it is immutable and safe for concurrent use after Build.
type Engine struct {
	config Config

	otpLimiter    *limiters.OTPLimiter
	forgotLimiter *limiters.OTPLimiter

	otpStore       *stores.OTPStore
	forgotOTPStore *stores.OTPStore
	pendingStore   *stores.PendingStore
	resetStore     *stores.ResetTokenStore

	sessions     *session.Store
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager

	users  UserProvider
	notify Notifier

	audit   *audit.Dispatcher
	metrics *Metrics
}

// Close drains and stops the audit dispatcher. Safe on nil.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counter values.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

const (
	auditEventOTPIssued             = "otp_issued"
	auditEventOTPRateLimited        = "otp_rate_limited"
	auditEventOTPVerifyFailure      = "otp_verify_failure"
	auditEventOTPLockout            = "otp_lockout"
	auditEventRegistrationStaged    = "registration_staged"
	auditEventRegistrationCompleted = "registration_completed"
	auditEventRegistrationDuplicate = "registration_duplicate"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventSessionCreated        = "session_created"
	auditEventSessionRevoked        = "session_revoked"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventResetRequested        = "password_reset_requested"
	auditEventResetTokenIssued      = "password_reset_token_issued"
	auditEventResetCompleted        = "password_reset_completed"
	auditEventResetFailure          = "password_reset_failure"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Email:     email,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.audit.Emit(ctx, event)
}

// mapRestriction converts a limiter restriction into the public rate-limit
// error, sizing RetryAfter from the flow's TTLs. The TTL is an upper bound:
// the key may expire sooner than the full window.
func (e *Engine) mapRestriction(err error, flow OTPFlowConfig) error {
	switch {
	case errors.Is(err, limiters.ErrLocked):
		return &RateLimitedError{Reason: ReasonLockout, RetryAfter: flow.LockTTL}
	case errors.Is(err, limiters.ErrSpamLocked):
		return &RateLimitedError{Reason: ReasonSpamLock, RetryAfter: flow.SpamLockTTL}
	case errors.Is(err, limiters.ErrCooldownActive):
		return &RateLimitedError{Reason: ReasonCooldown, RetryAfter: flow.CooldownTTL}
	case errors.Is(err, limiters.ErrLimiterUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

// mapVerify converts a store verification failure into the public error
// surface. Lockout escalation inside the store is reported as ErrOTPLocked.
func (e *Engine) mapVerify(err error) error {
	var mismatch *stores.MismatchError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrOTPNotFound):
		return ErrOTPExpired
	case errors.Is(err, stores.ErrOTPAttemptsExceeded):
		return ErrOTPLocked
	case errors.As(err, &mismatch):
		return &OTPInvalidError{Remaining: mismatch.Remaining}
	case errors.Is(err, stores.ErrStoreUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
