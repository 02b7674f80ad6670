package youlyauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/am-IRh/youly-auth/internal"
	"github.com/am-IRh/youly-auth/internal/stores"
)

// BeginRegistration stages the account fields in Redis and emails a six-digit
// code to the address. Nothing touches the relational store until the code is
// verified; an abandoned attempt disappears when the staged record's TTL
// expires.
//
// Issuance is refused with [RateLimitedError] when the lockout, spam lock,
// or cooldown is active, and with [ErrAccountExists] when the address already
// has an account. A repeat call within the OTP TTL replaces the staged record
// and the code.
func (e *Engine) BeginRegistration(ctx context.Context, input RegistrationInput) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email := normalizeEmail(input.Email)

	if _, err := e.users.FindByEmail(ctx, email); err == nil {
		e.emitAudit(ctx, auditEventRegistrationDuplicate, false, email, "", ErrAccountExists, nil)
		return ErrAccountExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	if err := e.otpLimiter.CheckRestriction(ctx, email); err != nil {
		mapped := e.mapRestriction(err, e.config.OTP)
		if errors.Is(mapped, ErrRateLimited) {
			e.metricInc(MetricRateLimited)
			e.emitAudit(ctx, auditEventOTPRateLimited, false, email, "", mapped, func() map[string]string {
				return map[string]string{"flow": "registration"}
			})
		}
		return mapped
	}

	if _, err := e.otpLimiter.TrackRequest(ctx, email); err != nil {
		mapped := e.mapRestriction(err, e.config.OTP)
		if errors.Is(mapped, ErrRateLimited) {
			e.metricInc(MetricRateLimited)
			e.emitAudit(ctx, auditEventOTPRateLimited, false, email, "", mapped, func() map[string]string {
				return map[string]string{"flow": "registration", "reason": "spam_lock"}
			})
		}
		return mapped
	}

	hashed, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		return err
	}

	if err := e.pendingStore.Stage(ctx, stores.PendingRecord{
		Email:          email,
		Name:           input.Name,
		HashedPassword: hashed,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	code, err := internal.NewOTP()
	if err != nil {
		return err
	}
	if err := e.otpStore.Save(ctx, email, code); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.otpLimiter.SetCooldown(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.notify.SendOTPEmail(ctx, email, input.Name, code); err != nil {
		e.emitAudit(ctx, auditEventOTPIssued, false, email, "", ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventRegistrationStaged, true, email, "", nil, nil)
	return nil
}

// CompleteRegistration verifies the code and promotes the staged record into
// a relational account. On success every Redis key the flow created is
// deleted; the returned user is the inserted row.
//
// Failures: [ErrOTPExpired] when no code is stored, [OTPInvalidError] on a
// mismatch with attempts remaining, [ErrOTPLocked] once the attempt budget is
// exhausted, [ErrSessionExpired] when the code matched but the staged record
// is gone, and [ErrAccountExists] when an account for the address appeared
// while the code was in flight.
func (e *Engine) CompleteRegistration(ctx context.Context, email, code string) (User, error) {
	if e == nil {
		return User{}, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if err := e.otpStore.Verify(ctx, email, code); err != nil {
		mapped := e.mapVerify(err)
		e.metricInc(MetricOTPVerifyFailure)
		if errors.Is(mapped, ErrOTPLocked) {
			e.metricInc(MetricOTPLockout)
			// The store already removed the code and counter; drop the rest
			// of the flow's state so only the lock key outlives the failure.
			_ = e.otpLimiter.Reset(ctx, email)
			_ = e.pendingStore.Discard(ctx, email)
			e.emitAudit(ctx, auditEventOTPLockout, false, email, "", mapped, func() map[string]string {
				return map[string]string{"flow": "registration"}
			})
			return User{}, mapped
		}
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, email, "", mapped, func() map[string]string {
			return map[string]string{"flow": "registration"}
		})
		return User{}, mapped
	}

	record, err := e.pendingStore.Fetch(ctx, email)
	if err != nil {
		if errors.Is(err, stores.ErrPendingNotFound) {
			// The code and counters are left alone: the staged record has a
			// shorter TTL than the code, and the caller restarts by issuing
			// a fresh code anyway.
			return User{}, ErrSessionExpired
		}
		return User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, err := e.users.FindByEmail(ctx, email); err == nil {
		e.cleanupRegistration(ctx, email)
		e.emitAudit(ctx, auditEventRegistrationDuplicate, false, email, "", ErrAccountExists, nil)
		return User{}, ErrAccountExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	user, err := e.users.Insert(ctx, record.Name, email, record.HashedPassword)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.cleanupRegistration(ctx, email)
		}
		return User{}, err
	}

	e.cleanupRegistration(ctx, email)

	e.metricInc(MetricOTPVerifySuccess)
	e.metricInc(MetricRegistrationCompleted)
	e.emitAudit(ctx, auditEventRegistrationCompleted, true, email, user.ID, nil, nil)
	return user, nil
}

// cleanupRegistration removes every registration-flow key for the email:
// code, attempt counter, cooldown, request counter, and the staged record.
// The spam lock is left to expire so a completed registration does not reset
// an abuser's penalty.
func (e *Engine) cleanupRegistration(ctx context.Context, email string) {
	_ = e.otpStore.Cleanup(ctx, email)
	_ = e.otpLimiter.Reset(ctx, email)
	_ = e.pendingStore.Discard(ctx, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
