package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ghostpic/internal/handler"
	"ghostpic/internal/httputil"
	authmw "ghostpic/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	PostHandler      *handler.PostHandler
	MediaHandler     *handler.MediaHandler
	DiscoveryHandler *handler.DiscoveryHandler
	JWTSecret        string
	// AllowWalletHeader lets /api callers identify with X-Wallet-Address.
	AllowWalletHeader bool
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/check-nullifier", cfg.AuthHandler.CheckNullifier)
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Session routes
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/me", cfg.UserHandler.Me)
		r.Patch("/me", cfg.UserHandler.UpdateMe)

		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/save-user", cfg.UserHandler.SaveUser)
		r.Get("/get-user", cfg.UserHandler.GetUser)

		r.Get("/hashtags/trending", cfg.DiscoveryHandler.Trending)
		r.Post("/captions/suggest", cfg.DiscoveryHandler.SuggestCaption)
		r.Post("/ai-suggest-caption", cfg.DiscoveryHandler.SuggestCaption)

		// Public reads: a stale token is ignored rather than rejected.
		r.Group(func(r chi.Router) {
			r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret, cfg.AllowWalletHeader))

			r.Get("/posts", cfg.PostHandler.List)
			r.Get("/posts/{postId}", cfg.PostHandler.Get)
		})

		// Writes and per-actor reads; handlers check that an actor is present.
		r.Group(func(r chi.Router) {
			r.Use(authmw.ActorMiddleware(cfg.JWTSecret, cfg.AllowWalletHeader))

			r.Post("/media/images", cfg.MediaHandler.Upload)

			r.Post("/posts", cfg.PostHandler.Create)
			r.Delete("/posts/{postId}", cfg.PostHandler.Deactivate)
			r.Get("/posts/{postId}/vote", cfg.PostHandler.Vote)
			r.Patch("/posts/{postId}/like", cfg.PostHandler.Like)
			r.Post("/posts/{postId}/like", cfg.PostHandler.Like)
			r.Patch("/posts/{postId}/dislike", cfg.PostHandler.Dislike)
			r.Post("/posts/{postId}/dislike", cfg.PostHandler.Dislike)
		})
	})

	return r
}
