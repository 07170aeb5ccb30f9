package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/service"
)

// UserHandler serves public profiles.
type UserHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(accounts *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// HandleGet returns a user without the password hash.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	ProfilePic string `json:"profilePic"`
}

type updateUserResponse struct {
	Success bool             `json:"success"`
	User    model.PublicUser `json:"user"`
}

// HandleUpdate sets the user's profile picture.
//
// HTTP: PUT /users/{id}
// BODY: {"profilePic": "data:image/jpeg;base64,..."}
// 200 → {"success": true, "user": {...}}, 400 missing picture, 404 unknown
// user, 500 when the change could not be saved
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.UpdateProfilePicture(r.Context(), r.PathValue("id"), req.ProfilePic)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updateUserResponse{Success: true, User: user})
}
