package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/httputil"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
)

// EmailCooldown throttles repeated emails to one address.
type EmailCooldown interface {
	CheckEmailCooldown(ctx context.Context, address string) (bool, error)
	SetEmailCooldown(ctx context.Context, address string) error
}

// ValidationPage renders the result of following a validation link.
type ValidationPage interface {
	RenderValidation(w http.ResponseWriter, r *http.Request, status int, u *user.User)
}

// Handler contains HTTP handlers for the token and account workflow
// endpoints.
type Handler struct {
	service  *Service
	cooldown EmailCooldown
	pages    ValidationPage
}

func NewHandler(service *Service, cooldown EmailCooldown, pages ValidationPage) *Handler {
	return &Handler{service: service, cooldown: cooldown, pages: pages}
}

// TokenRequest represents the token request body
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by the token endpoints.
type TokenResponse struct {
	AuthTokens
	ID uuid.UUID `json:"id"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PasswordResetConfirmRequest carries the new password.
type PasswordResetConfirmRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// PasswordResetLookupResponse is the email bound to a reset key.
type PasswordResetLookupResponse struct {
	Email string `json:"email"`
}

// ObtainToken exchanges credentials for tokens
// @Summary      Obtain a bearer token
// @Description  Authenticate with email and password. Unvalidated accounts are rejected unless AUTH_REQUIRE_VALIDATED=false.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "Credentials"
// @Success      200 {object} TokenResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials or account not validated"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/tokens [post]
func (h *Handler) ObtainToken(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid token request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	tokens, u, err := h.service.ObtainToken(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthentication) {
			logger.Warn("token request rejected", "error", err.Error())
		}
		httputil.RespondAppError(w, r, err)
		return
	}

	logger.Info("token issued", "user_id", u.ID)
	httputil.RespondJSON(w, TokenResponse{AuthTokens: *tokens, ID: u.ID}, http.StatusOK)
}

// Refresh handles token refresh
// @Summary      Refresh tokens
// @Description  Exchange a refresh token for a new token pair. The old refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      200 {object} AuthTokens
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid or expired refresh token"
// @Router       /auth/tokens/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.RespondErrorWithCode(w, "refresh_token is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			logger.Warn("refresh rejected")
		}
		httputil.RespondAppError(w, r, err)
		return
	}

	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Logout handles refresh token revocation
// @Summary      Log out
// @Description  Revoke a refresh token.
// @Tags         auth
// @Accept       json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      204
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httputil.RespondErrorWithCode(w, "refresh_token is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RequestPasswordReset handles password reset requests
// @Summary      Request a password reset
// @Description  Email a password reset link. Always answers 202 so account existence is not revealed.
// @Tags         password-reset
// @Param        email path string true "Account email"
// @Success      202
// @Failure      400 {object} httputil.ErrorResponse "Malformed email escape"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /password-reset-requests/{email} [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	address, ok := emailParam(w, r)
	if !ok || !h.checkCooldown(w, r, address) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), address); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			httputil.RespondAppError(w, r, err)
			return
		}
		logging.GetLoggerFromContext(r.Context()).Debug("password reset requested for unknown email")
	}

	w.WriteHeader(http.StatusAccepted)
}

// LookupPasswordReset returns the email bound to a reset key
// @Summary      Look up a password reset key
// @Tags         password-reset
// @Produce      json
// @Param        token path string true "Reset key"
// @Success      200 {object} PasswordResetLookupResponse
// @Failure      404 {object} httputil.ErrorResponse "Unknown key"
// @Router       /password-resets/{token} [get]
func (h *Handler) LookupPasswordReset(w http.ResponseWriter, r *http.Request) {
	address, err := h.service.LookupResetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	httputil.RespondJSON(w, PasswordResetLookupResponse{Email: address}, http.StatusOK)
}

// ConfirmPasswordReset sets a new password
// @Summary      Confirm a password reset
// @Tags         password-reset
// @Accept       json
// @Param        token path string true "Reset key"
// @Param        request body PasswordResetConfirmRequest true "New password"
// @Success      204
// @Failure      400 {object} httputil.ErrorResponse "Missing or mismatched password"
// @Failure      404 {object} httputil.ErrorResponse "Unknown key"
// @Router       /password-resets/{token} [post]
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid password reset body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ConfirmPasswordReset(r.Context(), chi.URLParam(r, "token"), req.Password, req.PasswordConfirm)
	if err != nil {
		httputil.RespondAppError(w, r, err)
		return
	}

	logger.Info("password reset successfully")
	w.WriteHeader(http.StatusNoContent)
}

// ValidateAccount consumes a validation link and renders the result page.
func (h *Handler) ValidateAccount(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, err := h.service.ConsumeValidationToken(r.Context(), chi.URLParam(r, "token"))
	switch {
	case err == nil:
		logger.Info("account validated", "user_id", u.ID)
		h.pages.RenderValidation(w, r, http.StatusOK, u)
	case errors.Is(err, apperr.ErrNotFound):
		h.pages.RenderValidation(w, r, http.StatusNotFound, nil)
	case u != nil:
		// Validated, but the confirmation email failed.
		logger.Error("failed to send validated email", "user_id", u.ID, "error", err)
		h.pages.RenderValidation(w, r, http.StatusOK, u)
	default:
		logger.Error("validation failed", "error", err)
		h.pages.RenderValidation(w, r, http.StatusInternalServerError, nil)
	}
}

// ResendValidation handles validation email resend requests
// @Summary      Resend the validation email
// @Description  Always answers 202 so account existence is not revealed.
// @Tags         validation
// @Param        email path string true "Account email"
// @Success      202
// @Failure      400 {object} httputil.ErrorResponse "Malformed email escape"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /validation-requests/{email} [post]
func (h *Handler) ResendValidation(w http.ResponseWriter, r *http.Request) {
	address, ok := emailParam(w, r)
	if !ok || !h.checkCooldown(w, r, address) {
		return
	}

	if err := h.service.ResendValidation(r.Context(), address); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		httputil.RespondAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// emailParam returns the {email} path segment. chi matches on the raw path
// when it holds escapes, so "ada%40example.com" arrives still encoded.
func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	address, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid email in path", httputil.CodeInvalidEmail, http.StatusBadRequest)
		return "", false
	}
	return address, true
}

// checkCooldown rejects a second email to address within the cooldown and
// starts the cooldown otherwise. Limiter failures do not block the request.
func (h *Handler) checkCooldown(w http.ResponseWriter, r *http.Request, address string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	onCooldown, err := h.cooldown.CheckEmailCooldown(r.Context(), address)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", address)
		httputil.RespondErrorWithCode(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return false
	}

	if err := h.cooldown.SetEmailCooldown(r.Context(), address); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}
	return true
}
