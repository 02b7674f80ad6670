package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	youlyauth "github.com/am-IRh/youly-auth"
)

type registerSendOTPRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type registerVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type forgotVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	ResetToken  string `json:"resetToken" validate:"required,len=64,hexadecimal"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleRegisterSendOTP(w http.ResponseWriter, r *http.Request) {
	var req registerSendOTPRequest
	if !a.decode(w, r, &req) {
		return
	}

	err := a.engine.BeginRegistration(r.Context(), youlyauth.RegistrationInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "otp sent"})
}

func (a *API) handleRegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req registerVerifyRequest
	if !a.decode(w, r, &req) {
		return
	}

	user, err := a.engine.CompleteRegistration(r.Context(), req.Email, req.OTP)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	user, tokens, err := a.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, struct {
		User   userResponse   `json:"user"`
		Tokens tokensResponse `json:"tokens"`
	}{
		User:   userResponse{ID: user.ID, Name: user.Name, Email: user.Email},
		Tokens: tokensResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken},
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}

	access, err := a.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}

	if err := a.engine.RevokeSession(r.Context(), req.RefreshToken); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (a *API) handleForgotSendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !a.decode(w, r, &req) {
		return
	}

	if err := a.engine.RequestPasswordResetOTP(r.Context(), req.Email); err != nil {
		a.writeError(w, r, err)
		return
	}
	// Same response whether or not the address has an account.
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "if the account exists, an otp was sent"})
}

func (a *API) handleForgotVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req forgotVerifyRequest
	if !a.decode(w, r, &req) {
		return
	}

	token, err := a.engine.VerifyPasswordResetOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"resetToken": token})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !a.decode(w, r, &req) {
		return
	}

	if err := a.engine.ResetPassword(r.Context(), req.Email, req.ResetToken, req.NewPassword); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation failed"})
		return false
	}
	return true
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("response encode failed", zap.Error(err))
	}
}

// writeError maps engine errors onto HTTP statuses. Rate-limit responses
// carry a Retry-After header when the engine knows the bound.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rateLimited *youlyauth.RateLimitedError
	var otpInvalid *youlyauth.OTPInvalidError

	switch {
	case errors.As(err, &rateLimited):
		if rateLimited.RetryAfter > 0 {
			w.Header().Set("Retry-After", formatSeconds(rateLimited.RetryAfter))
		}
		a.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": rateLimited.Error()})
	case errors.Is(err, youlyauth.ErrOTPLocked):
		a.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.As(err, &otpInvalid):
		a.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid otp",
			"attemptsRemaining": otpInvalid.Remaining,
		})
	case errors.Is(err, youlyauth.ErrOTPExpired),
		errors.Is(err, youlyauth.ErrOTPInvalid),
		errors.Is(err, youlyauth.ErrResetTokenInvalid):
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, youlyauth.ErrSessionExpired):
		a.writeJSON(w, http.StatusGone, map[string]string{"error": err.Error()})
	case errors.Is(err, youlyauth.ErrAccountExists):
		a.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, youlyauth.ErrInvalidCredentials),
		errors.Is(err, youlyauth.ErrRefreshInvalid):
		a.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, youlyauth.ErrUserNotFound):
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, youlyauth.ErrDeliveryFailed):
		a.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.Is(err, youlyauth.ErrStoreUnavailable):
		a.logger.Error("store unavailable", zap.Error(err), zap.String("path", r.URL.Path))
		a.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
	default:
		a.logger.Error("unhandled error", zap.Error(err), zap.String("path", r.URL.Path))
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func formatSeconds(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
