package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"konnekt/internal/handler"
	"konnekt/internal/httputil"
	"konnekt/internal/metrics"
	authmw "konnekt/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	FriendshipHandler   *handler.FriendshipHandler
	FollowHandler       *handler.FollowHandler
	ReactionHandler     *handler.ReactionHandler
	EngagementHandler   *handler.EngagementHandler
	NotificationHandler *handler.NotificationHandler
	DiscoveryHandler    *handler.DiscoveryHandler
	RateLimiter         *authmw.RateLimiter
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Public reads with optional authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))

		r.Get("/users/{id}/friends", cfg.FriendshipHandler.ListFriends)
		r.Get("/users/{id}/friends/count", cfg.FriendshipHandler.Count)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{id}/follow-counts", cfg.FollowHandler.Counts)
		r.Get("/reactions/{subject}/{id}", cfg.ReactionHandler.Get)
		r.Get("/posts/{id}/stats", cfg.EngagementHandler.Stats)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/users/{id}/friendship", cfg.FriendshipHandler.Status)
		r.Get("/users/{id}/mutual/{kind}", cfg.DiscoveryHandler.Mutual)
		r.Get("/me/friend-requests/incoming", cfg.FriendshipHandler.ListIncoming)
		r.Get("/me/friend-requests/outgoing", cfg.FriendshipHandler.ListOutgoing)
		r.Get("/suggestions", cfg.DiscoveryHandler.Suggestions)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/counts", cfg.NotificationHandler.Counts)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
		})

		// Mutations are rate limited per user
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Middleware)
			}

			r.Post("/users/{id}/friend-request", cfg.FriendshipHandler.Request)
			r.Post("/users/{id}/friend-request/accept", cfg.FriendshipHandler.Accept)
			r.Post("/users/{id}/friend-request/reject", cfg.FriendshipHandler.Reject)
			r.Delete("/users/{id}/friend", cfg.FriendshipHandler.Remove)
			r.Post("/users/{id}/block", cfg.FriendshipHandler.Block)
			r.Delete("/users/{id}/block", cfg.FriendshipHandler.Unblock)

			r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
			r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

			r.Put("/reactions/{subject}/{id}", cfg.ReactionHandler.React)
			r.Delete("/reactions/{subject}/{id}", cfg.ReactionHandler.Unreact)

			r.Post("/posts/{id}/views", cfg.EngagementHandler.RecordView)
			r.Post("/posts/{id}/tags", cfg.EngagementHandler.TagPost)
			r.Post("/posts/{id}/comments/{commentID}", cfg.EngagementHandler.CommentAdded)
			r.Delete("/posts/{id}/comments/{commentID}", cfg.EngagementHandler.CommentDeleted)

			r.Post("/me/interests", cfg.DiscoveryHandler.AddInterest)
			r.Post("/me/sync", cfg.DiscoveryHandler.Sync)
		})
	})

	return r
}
