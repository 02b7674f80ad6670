package youlyauth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is returned when a cooldown, spam lock, or failed-attempt
	// lockout blocks an OTP request. Inspect [RateLimitedError] for the reason.
	ErrRateLimited = errors.New("otp requests rate limited")
	// ErrOTPExpired is returned when no OTP record exists for the email.
	ErrOTPExpired = errors.New("otp expired or not found")
	// ErrOTPInvalid is returned on an OTP mismatch while attempts remain.
	// Inspect [OTPInvalidError] for the remaining-attempt count.
	ErrOTPInvalid = errors.New("invalid otp")
	// ErrOTPLocked is returned on the third failed attempt, once the
	// 15-minute lockout has been engaged.
	ErrOTPLocked = errors.New("too many failed otp attempts")
	// ErrSessionExpired is returned when the OTP verified but the staged
	// registration record is gone.
	ErrSessionExpired = errors.New("registration session expired")
	// ErrAccountExists is returned when an account with the email already exists.
	ErrAccountExists = errors.New("account already exists")
	// ErrResetTokenInvalid is returned for a missing or mismatching password
	// reset token.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	// ErrDeliveryFailed is returned when the notifier could not deliver the
	// OTP email. The OTP is already committed when this is surfaced.
	ErrDeliveryFailed = errors.New("otp delivery failed")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Authenticate on a bad email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRefreshInvalid is returned when a refresh token fails signature or
	// session validation.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrStoreUnavailable indicates a Redis connectivity failure. Unlike the
	// domain errors above it is not recoverable by the caller: no workflow
	// guarantee holds without the store.
	ErrStoreUnavailable = errors.New("state store unavailable")
	// ErrEngineNotReady is returned when a required collaborator was not wired.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitReason identifies which restriction blocked an OTP request.
type RateLimitReason int

const (
	// ReasonLockout means the failed-attempt lockout key is active.
	ReasonLockout RateLimitReason = iota
	// ReasonSpamLock means the request-count spam lock is active.
	ReasonSpamLock
	// ReasonCooldown means the 60-second issuance cooldown is active.
	ReasonCooldown
)

func (r RateLimitReason) String() string {
	switch r {
	case ReasonLockout:
		return "lockout"
	case ReasonSpamLock:
		return "spam_lock"
	case ReasonCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// RateLimitedError carries the restriction that blocked the request and an
// upper bound on how long it lasts. It unwraps to [ErrRateLimited].
type RateLimitedError struct {
	Reason     RateLimitReason
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	switch e.Reason {
	case ReasonLockout:
		return "otp requests are temporarily locked"
	case ReasonSpamLock:
		return "too many otp requests, try again in 1 hour"
	case ReasonCooldown:
		return "wait 60 seconds before requesting another otp"
	default:
		return ErrRateLimited.Error()
	}
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// OTPInvalidError reports an OTP mismatch and how many attempts remain before
// the lockout engages. It unwraps to [ErrOTPInvalid].
type OTPInvalidError struct {
	Remaining int
}

func (e *OTPInvalidError) Error() string {
	return fmt.Sprintf("invalid otp, %d attempts remaining", e.Remaining)
}

func (e *OTPInvalidError) Unwrap() error { return ErrOTPInvalid }
