package youlyauth

import (
	"context"
	"errors"
)

// Authenticate checks the email and password against the relational store.
// A missing account and a wrong password both fail with
// [ErrInvalidCredentials]; the password is verified either way so the two
// cases cost the same.
func (e *Engine) Authenticate(ctx context.Context, email, plaintext string) (User, error) {
	if e == nil {
		return User{}, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a hash verification so a miss is not distinguishable from
			// a wrong password by timing.
			_, _ = e.passwordHash.Verify(plaintext, phantomHash)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, email, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "user_not_found"}
			})
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	ok, err := e.passwordHash.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, email, user.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return User{}, ErrInvalidCredentials
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, email, user.ID, nil, nil)
	return user, nil
}

// Login authenticates and opens a refresh session in one call.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (User, SessionTokens, error) {
	user, err := e.Authenticate(ctx, email, plaintext)
	if err != nil {
		return User{}, SessionTokens{}, err
	}

	tokens, err := e.CreateSession(ctx, user)
	if err != nil {
		return User{}, SessionTokens{}, err
	}

	return user, tokens, nil
}

// phantomHash is a syntactically valid argon2id hash of no real password,
// used to equalize the cost of lookups that miss.
const phantomHash = "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$Y2hhZmZjaGFmZmNoYWZmY2hhZmZjaGFmZmNoYWZmY2g"
