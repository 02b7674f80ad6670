package youlyauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/am-IRh/youly-auth/session"
)

// CreateSession signs an access/refresh token pair for the user and records
// the refresh token as a session in Redis. The session expires with the
// configured refresh TTL; a user can hold any number of sessions, one per
// device.
func (e *Engine) CreateSession(ctx context.Context, user User) (SessionTokens, error) {
	if e == nil {
		return SessionTokens{}, ErrEngineNotReady
	}

	role := e.config.JWT.DefaultRole

	access, err := e.jwtManager.SignAccess(user.ID, role)
	if err != nil {
		return SessionTokens{}, err
	}
	refresh, err := e.jwtManager.SignRefresh(user.ID, role)
	if err != nil {
		return SessionTokens{}, err
	}

	sessionID, err := e.sessions.Create(ctx, user.ID, refresh, e.config.Session.RefreshTTL)
	if err != nil {
		return SessionTokens{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, user.Email, user.ID, nil, func() map[string]string {
		return map[string]string{"session_id": sessionID}
	})

	return SessionTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
	}, nil
}

// Refresh validates the refresh token against its stored session and mints a
// fresh access token. The refresh token itself is not rotated: it stays valid
// until its session expires or is revoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	userID, err := e.validateRefresh(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", userID, err, nil)
		return "", err
	}

	// The account can disappear while its sessions live on in Redis.
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = e.sessions.RevokeAll(ctx, userID)
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", userID, ErrRefreshInvalid, func() map[string]string {
				return map[string]string{"reason": "user_deleted"}
			})
			return "", ErrRefreshInvalid
		}
		return "", err
	}

	access, err := e.jwtManager.SignAccess(user.ID, e.config.JWT.DefaultRole)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.Email, user.ID, nil, nil)
	return access, nil
}

// ValidateSession reports the user id behind a refresh token, or
// [ErrRefreshInvalid] when the signature or the stored session check fails.
func (e *Engine) ValidateSession(ctx context.Context, refreshToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return e.validateRefresh(ctx, refreshToken)
}

// RevokeSession deletes the session holding the refresh token. Revoking a
// token that is unknown or already revoked fails with [ErrRefreshInvalid].
func (e *Engine) RevokeSession(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		return ErrRefreshInvalid
	}

	revoked, err := e.sessions.Revoke(ctx, claims.UserID, refreshToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !revoked {
		return ErrRefreshInvalid
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, "", claims.UserID, nil, nil)
	return nil
}

// RevokeAllSessions deletes every session the user holds and returns how many
// were removed. Already-issued access tokens stay valid until they expire.
func (e *Engine) RevokeAllSessions(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	count, err := e.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for i := 0; i < count; i++ {
		e.metricInc(MetricSessionRevoked)
	}
	e.emitAudit(ctx, auditEventSessionRevoked, true, "", userID, nil, func() map[string]string {
		return map[string]string{"scope": "all"}
	})
	return count, nil
}

func (e *Engine) validateRefresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		return "", ErrRefreshInvalid
	}

	ok, err := e.sessions.Validate(ctx, claims.UserID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return claims.UserID, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return claims.UserID, err
	}
	if !ok {
		return claims.UserID, ErrRefreshInvalid
	}

	return claims.UserID, nil
}
