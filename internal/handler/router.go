package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/limiter"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// Router assembles the full HTTP surface: the REST API under /api, the
// websocket entry point at /ws, and a health probe.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	development := deps.Config.Environment == "development"

	corsOptions := cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if development {
		corsOptions.AllowedOrigins = []string{"*"}
		corsOptions.AllowCredentials = false
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(cors.New(corsOptions).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{"status": "ok"})
	})

	// Credential guessing gets a tighter budget than general API traffic.
	loginLimiter := limiter.NewIPRateLimiter(rate.Limit(1), 5)
	apiLimiter := limiter.NewIPRateLimiter(rate.Limit(20), 40)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(1), 10)

	r.Route("/api", func(api chi.Router) {
		api.Use(apiLimiter.Middleware)
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.With(loginLimiter.Middleware).Post("/login", HandleLogin(deps))
			auth.Post("/logout", HandleLogout())
			auth.Get("/session", HandleSession(deps))
		})

		api.Route("/messages", func(messages chi.Router) {
			messages.Get("/", HandleListMessages(deps))
			messages.Post("/", HandleCreateMessage(deps))
		})

		api.Post("/upload", HandleUpload(deps))
		api.Get("/files/download", HandleDownload(deps))

		api.Get("/users/online", HandleOnlineUsers(deps))

		api.Route("/admin/users", func(admin chi.Router) {
			admin.Get("/", HandleListUsers(deps))
			admin.Post("/", HandleCreateUser(deps))
			admin.Patch("/{id}", HandleUpdateUser(deps))
			admin.Delete("/{id}", HandleDeleteUser(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsLimiter))

	return r
}
