package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/price-compare/internal/auth"
	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/service"
)

// AuthHandler serves signup, login and the current-user lookup.
type AuthHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// authResponse flattens the public user and adds the token when one was issued:
//
//	{"id":"user_...","email":"a@x.com","name":"Ada","token":"eyJ..."}
type authResponse struct {
	model.PublicUser
	Token string `json:"token,omitempty"`
}

// HandleSignup creates an account.
//
// HTTP: POST /auth/signup
// BODY: {"email": "...", "password": "...", "name": "..."}
// 200 → public user (+ token), 400 missing fields, 409 email taken
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.writeAuth(w, res)
}

// HandleLogin checks credentials.
//
// HTTP: POST /auth/login
// BODY: {"email": "...", "password": "..."}
// 200 → public user (+ token), 400 missing fields, 401 bad credentials
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.writeAuth(w, res)
}

// HandleMe returns the user the session token belongs to.
//
// HTTP: GET /auth/me
// Only routed when session tokens are enabled; RequireAuth runs first.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r, auth.ErrNoToken)
		return
	}

	user, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// writeAuth sends the auth result. When a token was issued it is also set as
// an HttpOnly cookie so browser clients don't have to store it themselves.
func (h *AuthHandler) writeAuth(w http.ResponseWriter, res service.AuthResult) {
	if res.Token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    res.Token,
			Path:     "/",
			MaxAge:   int(auth.DefaultTokenTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeJSON(w, http.StatusOK, authResponse{PublicUser: res.User, Token: res.Token})
}

// writeUnauthorized is the RequireAuth failure callback.
func writeUnauthorized(w http.ResponseWriter, _ *http.Request, _ error) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "valid authentication required",
	})
}

// RequireAuth wraps auth.RequireAuth with this package's JSON error body.
func RequireAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return auth.RequireAuth(tokens, writeUnauthorized)
}
