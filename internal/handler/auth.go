package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ghostpic/internal/httputil"
	"ghostpic/internal/model"
	"ghostpic/internal/transport/http/middleware"
)

// Accounts is the user-service surface the auth and user endpoints need.
type Accounts interface {
	CheckNullifier(ctx context.Context, nullifier string) (*model.CheckNullifierResponse, error)
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByWallet(ctx context.Context, wallet string) (*model.User, error)
	SaveWalletUser(ctx context.Context, req *model.SaveUserRequest) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error)
}

// Sessions issues and revokes token pairs.
type Sessions interface {
	GenerateTokenPair(ctx context.Context, user *model.User, deviceInfo, ipAddress string) (*model.TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken, deviceInfo, ipAddress string) (*model.TokenPair, int64, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
}

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	users    Accounts
	sessions Sessions
}

func NewAuthHandler(users Accounts, sessions Sessions) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

// CheckNullifier handles POST /auth/check-nullifier
func (h *AuthHandler) CheckNullifier(w http.ResponseWriter, r *http.Request) {
	var req model.CheckNullifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	resp, err := h.users.CheckNullifier(r.Context(), req.Nullifier)
	if err != nil {
		writeServiceError(w, "check nullifier", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Register handles POST /auth/register and signs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "register", err)
		return
	}

	h.writeSession(w, r, http.StatusCreated, user)
}

// Login handles POST /auth/login. Username may also be a wallet address.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" {
		httputil.WriteBadRequest(w, "Username is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "Password is required")
		return
	}

	user, err := h.users.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "login", err)
		return
	}

	h.writeSession(w, r, http.StatusOK, user)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	tokenPair, err := h.sessions.GenerateTokenPair(r.Context(), user, r.Header.Get("User-Agent"), getClientIP(r))
	if err != nil {
		writeServiceError(w, "generate tokens", err)
		return
	}

	httputil.WriteJSON(w, status, model.AuthResponse{
		User:         user,
		Token:        tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	})
}

// Refresh handles token refresh
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	tokenPair, _, err := h.sessions.RefreshTokens(r.Context(), req.RefreshToken, r.Header.Get("User-Agent"), getClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenNotFound):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid refresh token")
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Refresh token has expired")
		case errors.Is(err, model.ErrRefreshTokenReused):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenReused, "Refresh token reuse detected. Please login again.")
		default:
			writeServiceError(w, "refresh tokens", err)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenPair)
}

// Logout handles user logout
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "Refresh token is required")
		return
	}

	// Unknown or already revoked tokens still log out successfully.
	err := h.sessions.RevokeRefreshToken(r.Context(), req.RefreshToken)
	if err != nil && !errors.Is(err, model.ErrRefreshTokenNotFound) {
		writeServiceError(w, "logout", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// LogoutAll handles logout from all devices
// POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.sessions.RevokeAllUserTokens(r.Context(), userID); err != nil {
		writeServiceError(w, "logout from all devices", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out from all devices",
	})
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// RemoteAddr is "IP:port"
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
