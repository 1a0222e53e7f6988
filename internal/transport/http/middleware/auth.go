package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"ghostpic/internal/httputil"
	"ghostpic/internal/model"
	"ghostpic/internal/service"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
	WalletKey contextKey = "wallet"
	StateKey  contextKey = "state"
	ActorKey  contextKey = "actor"

	// WalletHeader carries a wallet address for clients without a session.
	WalletHeader = "X-Wallet-Address"
)

var (
	errNoToken      = errors.New("missing token")
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("token invalid")
)

type tokenIdentity struct {
	userID int64
	wallet string
	state  string
}

// tokenFromRequest checks the Authorization header first (mobile), then the
// access_token cookie (web).
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func parseToken(r *http.Request, jwtSecret string) (*tokenIdentity, error) {
	tokenString := tokenFromRequest(r)
	if tokenString == "" {
		return nil, errNoToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, errTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errTokenInvalid
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return nil, errTokenInvalid
	}
	id := &tokenIdentity{userID: int64(userIDFloat)}
	id.wallet, _ = claims["wallet"].(string)
	id.state, _ = claims["state"].(string)
	return id, nil
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNoToken):
		httputil.WriteUnauthorized(w, "Missing authentication token")
	case errors.Is(err, errTokenExpired):
		httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
	default:
		httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
	}
}

func withIdentity(ctx context.Context, id *tokenIdentity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id.userID)
	ctx = context.WithValue(ctx, WalletKey, id.wallet)
	ctx = context.WithValue(ctx, StateKey, id.state)
	if id.wallet != "" {
		ctx = context.WithValue(ctx, ActorKey, &model.Actor{UserID: id.userID, Wallet: id.wallet, State: id.state})
	}
	return ctx
}

// AuthMiddleware rejects requests without a valid access token.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := parseToken(r, jwtSecret)
			if err != nil {
				writeTokenError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuthMiddleware attaches the identity when a valid token is sent and
// otherwise lets the request through. A stale or broken token is ignored, so
// public reads keep working for a browser with an old cookie. Without a usable
// token, a valid X-Wallet-Address is honoured when allowWalletHeader is set.
func OptionalAuthMiddleware(jwtSecret string, allowWalletHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := parseToken(r, jwtSecret); err == nil {
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
				return
			}
			if allowWalletHeader {
				if wallet, err := walletFromHeader(r); err == nil && wallet != "" {
					r = r.WithContext(withWallet(r.Context(), wallet))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorMiddleware resolves the acting wallet for the post API. A bearer token
// wins; a bad token is rejected rather than downgraded. Without a token, the
// X-Wallet-Address header is honoured when allowWalletHeader is set.
// Requests with neither pass through and handlers decide if an actor is required.
func ActorMiddleware(jwtSecret string, allowWalletHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := parseToken(r, jwtSecret)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
				return
			case !errors.Is(err, errNoToken):
				writeTokenError(w, err)
				return
			}

			if !allowWalletHeader {
				next.ServeHTTP(w, r)
				return
			}

			wallet, err := walletFromHeader(r)
			if err != nil {
				httputil.WriteBadRequest(w, "Invalid wallet address")
				return
			}
			if wallet != "" {
				r = r.WithContext(withWallet(r.Context(), wallet))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// walletFromHeader returns the checksummed X-Wallet-Address, or "" when absent.
func walletFromHeader(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(WalletHeader))
	if header == "" {
		return "", nil
	}
	return service.NormalizeWallet(header)
}

func withWallet(ctx context.Context, wallet string) context.Context {
	ctx = context.WithValue(ctx, WalletKey, wallet)
	return context.WithValue(ctx, ActorKey, &model.Actor{Wallet: wallet})
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or 0 and false if not found
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

func GetWalletFromContext(ctx context.Context) (string, bool) {
	wallet, ok := ctx.Value(WalletKey).(string)
	return wallet, ok && wallet != ""
}

func GetStateFromContext(ctx context.Context) (string, bool) {
	state, ok := ctx.Value(StateKey).(string)
	return state, ok && state != ""
}

// GetActorFromContext returns the acting identity, nil when the request is anonymous.
func GetActorFromContext(ctx context.Context) *model.Actor {
	actor, _ := ctx.Value(ActorKey).(*model.Actor)
	return actor
}
