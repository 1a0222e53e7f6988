package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"ghostpic/internal/httputil"
	"ghostpic/internal/model"
	"ghostpic/internal/transport/http/middleware"
)

type UserHandler struct {
	users Accounts
}

func NewUserHandler(users Accounts) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the currently authenticated user
// GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /me. A changed state reaches access tokens on the next refresh.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, "update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// SaveUser handles POST /api/save-user, the wallet upsert written after the
// on-chain registration transaction.
func (h *UserHandler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req model.SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.users.SaveWalletUser(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "save user", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User saved successfully",
		"user":    user,
	})
}

// GetUser handles GET /api/get-user?walletAddress=
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("walletAddress"))
	if wallet == "" {
		httputil.WriteBadRequest(w, "Query parameter 'walletAddress' is required")
		return
	}

	user, err := h.users.GetByWallet(r.Context(), wallet)
	if err != nil {
		writeServiceError(w, "get user", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": user,
	})
}
