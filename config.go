package youlyauth

import (
	"errors"
	"time"
)

// Config holds all engine tuning parameters. Zero values are filled from
// [DefaultConfig] by the builder; explicit values are validated in Build.
type Config struct {
	OTP            OTPFlowConfig
	ForgotPassword OTPFlowConfig
	ResetToken     ResetTokenConfig
	Session        SessionConfig
	JWT            JWTConfig
	Password       PasswordConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
}

// OTPFlowConfig tunes one OTP keyspace (registration or forgot-password).
type OTPFlowConfig struct {
	// CodeTTL bounds how long an issued code can validate.
	CodeTTL time.Duration
	// CooldownTTL is the minimum wait between issuances for one email.
	CooldownTTL time.Duration
	// MaxAttempts failed verifications engage the lockout.
	MaxAttempts int
	// AttemptWindow is the TTL set on the attempt counter's first increment.
	AttemptWindow time.Duration
	// LockTTL is how long the failed-attempt lockout lasts.
	LockTTL time.Duration
	// TrackRequests enables the sliding issuance counter and spam lock.
	TrackRequests bool
	// MaxRequests issuances per RequestWindow before the spam lock engages.
	MaxRequests int
	// RequestWindow is the TTL set on the request counter's first increment.
	RequestWindow time.Duration
	// SpamLockTTL is how long the spam lock lasts once engaged.
	SpamLockTTL time.Duration
}

// ResetTokenConfig tunes the single-use password reset token.
type ResetTokenConfig struct {
	TTL time.Duration
}

// SessionConfig tunes refresh-session storage.
type SessionConfig struct {
	// RefreshTTL is the default lifetime of a refresh-session record and of
	// the per-user session index set.
	RefreshTTL time.Duration
}

// JWTConfig configures the HS256 token manager built by [Builder.Build].
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	// DefaultRole is the role claim stamped on tokens for regular accounts.
	DefaultRole string
}

// PasswordConfig holds argon2id parameters, within the minimums enforced by
// the password package.
type PasswordConfig struct {
	Memory      uint32 // KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the caller when the
	// dispatch buffer is full.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: the TTLs and thresholds the
// youly platform runs with.
func DefaultConfig() Config {
	return Config{
		OTP: OTPFlowConfig{
			CodeTTL:       5 * time.Minute,
			CooldownTTL:   60 * time.Second,
			MaxAttempts:   3,
			AttemptWindow: 5 * time.Minute,
			LockTTL:       15 * time.Minute,
			TrackRequests: true,
			MaxRequests:   5,
			RequestWindow: 10 * time.Minute,
			SpamLockTTL:   time.Hour,
		},
		ForgotPassword: OTPFlowConfig{
			CodeTTL:       10 * time.Minute,
			CooldownTTL:   60 * time.Second,
			MaxAttempts:   3,
			AttemptWindow: 10 * time.Minute,
			LockTTL:       15 * time.Minute,
			// The recovery flow has no issuance counter: an attacker cannot
			// mint accounts through it, and the cooldown alone bounds volume.
			TrackRequests: false,
		},
		ResetToken: ResetTokenConfig{
			TTL: 15 * time.Minute,
		},
		Session: SessionConfig{
			RefreshTTL: 7 * 24 * time.Hour,
		},
		JWT: JWTConfig{
			AccessTTL:   15 * time.Minute,
			RefreshTTL:  7 * 24 * time.Hour,
			DefaultRole: "user",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate rejects configurations the engine cannot honor.
func (c Config) Validate() error {
	if err := c.OTP.validate(); err != nil {
		return err
	}
	if err := c.ForgotPassword.validate(); err != nil {
		return err
	}
	if c.ResetToken.TTL <= 0 {
		return errors.New("reset token TTL must be positive")
	}
	if c.Session.RefreshTTL <= 0 {
		return errors.New("session refresh TTL must be positive")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt TTLs must be positive")
	}
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("jwt access and refresh secrets are required")
	}
	if c.JWT.DefaultRole == "" {
		return errors.New("jwt default role is required")
	}
	return nil
}

func (c OTPFlowConfig) validate() error {
	if c.CodeTTL <= 0 || c.CooldownTTL <= 0 || c.AttemptWindow <= 0 || c.LockTTL <= 0 {
		return errors.New("otp flow TTLs must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("otp max attempts must be positive")
	}
	if c.TrackRequests {
		if c.MaxRequests <= 0 || c.RequestWindow <= 0 || c.SpamLockTTL <= 0 {
			return errors.New("request tracking requires max requests, window, and spam lock TTL")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
