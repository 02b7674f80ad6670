package youlyauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/am-IRh/youly-auth/internal"
	"github.com/am-IRh/youly-auth/internal/stores"
)

// RequestPasswordResetOTP emails a recovery code to the address. The call
// returns nil for addresses with no account so the endpoint cannot be used to
// enumerate users; only rate-limit and backend errors surface.
//
// The recovery flow has its own keyspace and its own cooldown and lockout,
// but no issuance spam counter.
func (e *Engine) RequestPasswordResetOTP(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if err := e.forgotLimiter.CheckRestriction(ctx, email); err != nil {
		mapped := e.mapRestriction(err, e.config.ForgotPassword)
		if errors.Is(mapped, ErrRateLimited) {
			e.metricInc(MetricRateLimited)
			e.emitAudit(ctx, auditEventOTPRateLimited, false, email, "", mapped, func() map[string]string {
				return map[string]string{"flow": "forgot_password"}
			})
		}
		return mapped
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventResetRequested, false, email, "", ErrUserNotFound, nil)
			return nil
		}
		return err
	}

	code, err := internal.NewOTP()
	if err != nil {
		return err
	}
	if err := e.forgotOTPStore.Save(ctx, email, code); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.forgotLimiter.SetCooldown(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.notify.SendOTPEmail(ctx, email, user.Name, code); err != nil {
		e.emitAudit(ctx, auditEventResetRequested, false, email, user.ID, ErrDeliveryFailed, nil)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventResetRequested, true, email, user.ID, nil, nil)
	return nil
}

// VerifyPasswordResetOTP checks the recovery code and exchanges it for a
// single-use reset token. The code is consumed on success; the returned token
// is a 64-character hex string that must accompany the ResetPassword call
// within the reset-token TTL.
func (e *Engine) VerifyPasswordResetOTP(ctx context.Context, email, code string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if err := e.forgotOTPStore.Verify(ctx, email, code); err != nil {
		mapped := e.mapVerify(err)
		e.metricInc(MetricOTPVerifyFailure)
		if errors.Is(mapped, ErrOTPLocked) {
			e.metricInc(MetricOTPLockout)
			e.emitAudit(ctx, auditEventOTPLockout, false, email, "", mapped, func() map[string]string {
				return map[string]string{"flow": "forgot_password"}
			})
			return "", mapped
		}
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, email, "", mapped, func() map[string]string {
			return map[string]string{"flow": "forgot_password"}
		})
		return "", mapped
	}

	if err := e.forgotOTPStore.Cleanup(ctx, email); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	token, err := internal.NewTokenHex(internal.ResetTokenBytes)
	if err != nil {
		return "", err
	}
	if err := e.resetStore.Save(ctx, email, token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventResetTokenIssued, true, email, "", nil, func() map[string]string {
		return map[string]string{"token_ttl": e.resetStore.TTL().String()}
	})
	return token, nil
}

// VerifyResetToken reports whether the token is the live reset token for the
// address. It does not consume the token.
func (e *Engine) VerifyResetToken(ctx context.Context, email, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if err := e.resetStore.Verify(ctx, email, token); err != nil {
		if errors.Is(err, stores.ErrResetTokenNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ResetPassword redeems the reset token, writes the new password hash, and
// revokes every session the user holds. All recovery-flow keys for the email
// are deleted on success, so the token cannot be redeemed twice.
func (e *Engine) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)

	if err := e.VerifyResetToken(ctx, email, token); err != nil {
		e.emitAudit(ctx, auditEventResetFailure, false, email, "", err, func() map[string]string {
			return map[string]string{"reason": "invalid_token"}
		})
		return err
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventResetFailure, false, email, "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return err
	}

	hashed, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	// The password write has landed; a failure past this point must surface
	// so the caller retries the cleanup, otherwise the token stays redeemable
	// and old sessions stay live.
	if err := e.resetStore.Delete(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.forgotOTPStore.Cleanup(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.forgotLimiter.Reset(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	revoked, err := e.sessions.RevokeAll(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for i := 0; i < revoked; i++ {
		e.metricInc(MetricSessionRevoked)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventResetCompleted, true, email, user.ID, nil, func() map[string]string {
		return map[string]string{"sessions_revoked": fmt.Sprintf("%d", revoked)}
	})
	return nil
}
