package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/http/middleware"
	"github.com/taskory/taskory/internal/http/response"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/security"
	"github.com/taskory/taskory/internal/service"
)

// AuthHandler exposes the account lifecycle: registration, email
// confirmation, both login credential shapes, and password changes.
type AuthHandler struct {
	auth     service.AuthServiceInterface
	tokens   service.TokenServiceInterface
	strategy string
}

func NewAuthHandler(auth service.AuthServiceInterface, tokens service.TokenServiceInterface, strategy string) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, strategy: strategy}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "register", status, time.Since(start))
	}()

	var body struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if body.Password != body.PasswordConfirm {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "passwords do not match", nil)
		return
	}

	account, err := h.auth.Register(body.Email, body.Password)
	if err != nil {
		status = "failure"
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, security.ErrWeakPassword):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		case errors.Is(err, service.ErrEmailTaken):
			response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed", nil)
		}
		return
	}

	observability.Audit(r, "account.register", "account_id", account.ID)
	response.JSON(w, r, http.StatusCreated, account)
}

// Confirm consumes the verification link mailed at registration. The token
// travels in the path on canonical links and is also accepted as a query
// parameter, so the handler tolerates repeat clicks either way.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "confirm", status, time.Since(start))
	}()

	token := chi.URLParam(r, "token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing token", nil)
		return
	}
	if err := h.auth.Confirm(token); err != nil {
		status = "failure"
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		case errors.Is(err, service.ErrInvalidVerifyToken):
			response.Error(w, r, http.StatusBadRequest, "INVALID_TOKEN", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "confirmation failed", nil)
		}
		return
	}

	observability.Audit(r, "account.confirm")
	response.JSON(w, r, http.StatusOK, map[string]any{"verified": true})
}

func (h *AuthHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "resend_confirmation", status, time.Since(start))
	}()

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	if err := h.auth.ResendConfirmation(body.Email); err != nil {
		status = "failure"
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		case errors.Is(err, service.ErrAlreadyVerified):
			response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "resend failed", nil)
		}
		return
	}

	observability.Audit(r, "account.confirm.resend")
	response.JSON(w, r, http.StatusOK, map[string]any{"sent": true})
}

// Login checks credentials and hands out whichever credential shape the
// deployment is configured for.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	account, ok := h.authenticateBody(w, r, h.strategy)
	if !ok {
		status = "failure"
		return
	}

	if h.strategy == config.LoginStrategySigned {
		pair, err := h.tokens.IssueSignedPair(account.ID)
		if err != nil {
			status = "failure"
			observability.RecordAuthLogin(r.Context(), h.strategy, "failure")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
			return
		}
		observability.Audit(r, "auth.login.success", "account_id", account.ID, "strategy", h.strategy)
		observability.RecordAuthLogin(r.Context(), h.strategy, "success")
		response.JSON(w, r, http.StatusOK, pair)
		return
	}

	key, created, err := h.tokens.IssueOpaque(account.ID)
	if err != nil {
		status = "failure"
		observability.RecordAuthLogin(r.Context(), h.strategy, "failure")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}
	observability.Audit(r, "auth.login.success", "account_id", account.ID, "strategy", h.strategy, "minted", created)
	observability.RecordAuthLogin(r.Context(), h.strategy, "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"token": key, "email": account.Email})
}

// Logout revokes the caller's opaque key. Signed credentials cannot be
// revoked server-side; they simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", status, time.Since(start))
	}()

	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		status = "failure"
		observability.RecordAuthLogout(r.Context(), "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	if err := h.tokens.RevokeOpaque(account.ID); err != nil {
		status = "failure"
		observability.RecordAuthLogout(r.Context(), "failure")
		if errors.Is(err, service.ErrNoActiveToken) {
			response.Error(w, r, http.StatusBadRequest, "NO_ACTIVE_SESSION", err.Error(), nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}

	observability.Audit(r, "auth.logout.success", "account_id", account.ID)
	observability.RecordAuthLogout(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"detail": "logged out"})
}

// JWTCreate always issues a signed pair regardless of the login strategy.
func (h *AuthHandler) JWTCreate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "jwt_create", status, time.Since(start))
	}()

	account, ok := h.authenticateBody(w, r, "signed")
	if !ok {
		status = "failure"
		return
	}
	pair, err := h.tokens.IssueSignedPair(account.ID)
	if err != nil {
		status = "failure"
		observability.RecordAuthLogin(r.Context(), "signed", "failure")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}
	observability.Audit(r, "auth.jwt.create", "account_id", account.ID)
	observability.RecordAuthLogin(r.Context(), "signed", "success")
	response.JSON(w, r, http.StatusOK, pair)
}

func (h *AuthHandler) JWTRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "jwt_refresh", status, time.Since(start))
	}()

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing refresh token", nil)
		return
	}

	pair, err := h.tokens.RefreshAccess(body.Refresh)
	if err != nil {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, pair)
}

func (h *AuthHandler) JWTVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "jwt_verify", status, time.Since(start))
	}()

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing token", nil)
		return
	}
	if err := h.tokens.VerifySigned(body.Token); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"valid": true})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "change_password", status, time.Since(start))
	}()

	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	var body struct {
		CurrentPassword    string `json:"current_password"`
		NewPassword        string `json:"new_password"`
		NewPasswordConfirm string `json:"new_password_confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if body.NewPassword != body.NewPasswordConfirm {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "passwords do not match", nil)
		return
	}

	if err := h.auth.ChangePassword(account.ID, body.CurrentPassword, body.NewPassword); err != nil {
		status = "failure"
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "current password is incorrect", nil)
		case errors.Is(err, security.ErrWeakPassword):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "password change failed", nil)
		}
		return
	}

	observability.Audit(r, "account.password.change", "account_id", account.ID)
	response.JSON(w, r, http.StatusOK, map[string]any{"detail": "password changed"})
}

// authenticateBody decodes an email/password body and resolves the account,
// writing the error response itself on failure.
func (h *AuthHandler) authenticateBody(w http.ResponseWriter, r *http.Request, strategy string) (*domain.Account, bool) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return nil, false
	}
	account, err := h.auth.Authenticate(body.Email, body.Password)
	if err != nil {
		observability.Audit(r, "auth.login.failed", "strategy", strategy)
		observability.RecordAuthLogin(r.Context(), strategy, "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
		return nil, false
	}
	return account, true
}
