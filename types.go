package youlyauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/am-IRh/youly-auth/internal/audit"
	"go.uber.org/zap"
)

// User is the account record exchanged with the [UserProvider]. PasswordHash
// is only populated by lookups that need credential verification.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserProvider is the relational user store consumed by the engine. Lookup
// misses must be reported as [ErrUserNotFound] (wrapped or bare); Insert must
// enforce a uniqueness constraint on email, which is the final backstop
// against duplicate registrations racing through verification.
type UserProvider interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Insert(ctx context.Context, name, email, hashedPassword string) (User, error)
	UpdatePassword(ctx context.Context, id, hashedPassword string) error
}

// Notifier delivers OTP emails. A non-nil error is surfaced to the caller as
// [ErrDeliveryFailed]; by that point the OTP is already committed, so the
// failure must not be swallowed.
type Notifier interface {
	SendOTPEmail(ctx context.Context, to, name, code string) error
}

// RegistrationInput carries the staged account fields for BeginRegistration.
type RegistrationInput struct {
	Name     string
	Email    string
	Password string
}

// SessionTokens bundles the signed token pair handed to a client on login.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// AuditEvent is a structured event emitted by the engine's audit dispatcher.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values.
type AuditSink = internalaudit.Sink

// NoOpSink discards all audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON-encoded event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink forwards audit events to a zap logger.
type ZapSink = internalaudit.ZapSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink] that logs events through logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
