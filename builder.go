package youlyauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/am-IRh/youly-auth/internal/audit"
	"github.com/am-IRh/youly-auth/internal/limiters"
	"github.com/am-IRh/youly-auth/internal/stores"
	"github.com/am-IRh/youly-auth/jwt"
	"github.com/am-IRh/youly-auth/password"
	"github.com/am-IRh/youly-auth/session"
)

// Redis key prefixes, one keyspace per flow. Every key embeds the normalized
// email (or user id) after the prefix.
const (
	keyOTP         = "otp:"
	keyOTPCooldown = "otp_cooldown:"
	keyOTPRequests = "otp_requests_count:"
	keyOTPSpamLock = "otp_spam_lock:"
	keyOTPAttempts = "otp_attempts:"
	keyOTPLock     = "otp_lock:"
	keyPending     = "pending:"
	keyForgotOTP   = "forgot_password_otp:"
	keyForgotCool  = "forgot_password_cooldown:"
	keyForgotTries = "forgot_password_attempts:"
	keyForgotLock  = "forgot_password_lock:"
	keyResetToken  = "password_reset_token:"
)

// Builder assembles an [Engine]. Configure it with the With* methods and call
// Build once; the builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users    UserProvider
	notifier Notifier

	auditSink AuditSink

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing every store and limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the relational user store.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.users = up
	return b
}

// WithNotifier sets the OTP email sender.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink enables audit dispatch into the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithJWTSecrets sets the HS256 signing secrets for the access and refresh
// token families.
func (b *Builder) WithJWTSecrets(access, refresh []byte) *Builder {
	b.config.JWT.AccessSecret = cloneBytes(access)
	b.config.JWT.RefreshSecret = cloneBytes(refresh)
	return b
}

// Build validates the configuration, wires the stores and limiters onto the
// Redis client, and returns the immutable engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user provider required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: cfg,
		users:  b.users,
		notify: b.notifier,
	}

	e.otpLimiter = limiters.New(b.redis, limiters.Config{
		LockKey:         prefixKey(keyOTPLock),
		SpamLockKey:     prefixKey(keyOTPSpamLock),
		CooldownKey:     prefixKey(keyOTPCooldown),
		RequestCountKey: prefixKey(keyOTPRequests),
		CooldownTTL:     cfg.OTP.CooldownTTL,
		TrackRequests:   cfg.OTP.TrackRequests,
		MaxRequests:     cfg.OTP.MaxRequests,
		RequestWindow:   cfg.OTP.RequestWindow,
		SpamLockTTL:     cfg.OTP.SpamLockTTL,
	})
	e.forgotLimiter = limiters.New(b.redis, limiters.Config{
		LockKey:       prefixKey(keyForgotLock),
		CooldownKey:   prefixKey(keyForgotCool),
		CooldownTTL:   cfg.ForgotPassword.CooldownTTL,
		TrackRequests: cfg.ForgotPassword.TrackRequests,
		MaxRequests:   cfg.ForgotPassword.MaxRequests,
		RequestWindow: cfg.ForgotPassword.RequestWindow,
		SpamLockTTL:   cfg.ForgotPassword.SpamLockTTL,
	})

	e.otpStore = stores.NewOTPStore(b.redis, stores.OTPConfig{
		OTPKey:        prefixKey(keyOTP),
		AttemptsKey:   prefixKey(keyOTPAttempts),
		LockKey:       prefixKey(keyOTPLock),
		CodeTTL:       cfg.OTP.CodeTTL,
		AttemptWindow: cfg.OTP.AttemptWindow,
		MaxAttempts:   cfg.OTP.MaxAttempts,
		LockTTL:       cfg.OTP.LockTTL,
	})
	e.forgotOTPStore = stores.NewOTPStore(b.redis, stores.OTPConfig{
		OTPKey:        prefixKey(keyForgotOTP),
		AttemptsKey:   prefixKey(keyForgotTries),
		LockKey:       prefixKey(keyForgotLock),
		CodeTTL:       cfg.ForgotPassword.CodeTTL,
		AttemptWindow: cfg.ForgotPassword.AttemptWindow,
		MaxAttempts:   cfg.ForgotPassword.MaxAttempts,
		LockTTL:       cfg.ForgotPassword.LockTTL,
	})

	e.pendingStore = stores.NewPendingStore(b.redis, prefixKey(keyPending), cfg.OTP.CodeTTL)
	e.resetStore = stores.NewResetTokenStore(b.redis, prefixKey(keyResetToken), cfg.ResetToken.TTL)
	e.sessions = session.NewStore(b.redis, cfg.Session.RefreshTTL)

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	e.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}
	e.jwtManager = jm

	if cfg.Audit.Enabled && b.auditSink != nil {
		e.audit = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}
	e.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return e, nil
}

func prefixKey(prefix string) func(string) string {
	return func(email string) string {
		return prefix + email
	}
}
