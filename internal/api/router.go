package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/taskboard/internal/api/handlers"
	"github.com/hugh/taskboard/internal/api/middleware"
	"github.com/hugh/taskboard/internal/auth"
	"github.com/hugh/taskboard/internal/domain"
	"github.com/hugh/taskboard/internal/organizations"
	"github.com/hugh/taskboard/internal/projects"
	"github.com/hugh/taskboard/internal/states"
	"github.com/hugh/taskboard/internal/todos"
	"github.com/hugh/taskboard/internal/users"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client // optional
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    auth.Authenticator
	Reminders      handlers.ReminderEnqueuer // nil disables the reminder trigger
	AllowedOrigins []string                  // CORS allowed origins
	RateLimitReqs  int                       // Rate limit requests per window
	RateLimitSecs  int                       // Rate limit window in seconds
	TrustProxy     bool                      // take the client IP from X-Forwarded-For / X-Real-IP
	DevTesting     bool
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	if cfg.TrustProxy {
		// Only behind a proxy that overwrites these headers, otherwise
		// clients can pick their own rate limit bucket.
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Vite and CRA dev servers
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.DevTesting)
	taskHandler := handlers.NewTaskHandler(todos.NewService(cfg.DB))
	stateHandler := handlers.NewTodoStateHandler(states.NewService(cfg.DB))
	projectHandler := handlers.NewProjectHandler(projects.NewService(cfg.DB))
	orgHandler := handlers.NewOrganizationHandler(organizations.NewService(cfg.DB))
	userHandler := handlers.NewUserHandler(users.NewService(cfg.DB))
	reminderHandler := handlers.NewReminderHandler(cfg.Reminders)

	// Public auth routes are throttled per IP, everything behind Auth per user
	ipLimit, userLimit := passThrough, passThrough
	if cfg.RateLimitReqs > 0 {
		ipLimit = middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs)
		userLimit = middleware.RateLimitByUser(cfg.RateLimitReqs, cfg.RateLimitSecs)
	}

	adminOnly := middleware.RequireRole(domain.RoleAdmin)
	writers := middleware.RequireRole(domain.RoleAdmin, domain.RoleUser)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/ready", healthHandler.Ready)

		// Public auth endpoints
		r.With(ipLimit).Post("/auth/register", authHandler.Register)
		r.With(ipLimit).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			r.Use(userLimit)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Get("/stats", taskHandler.Stats)
				r.With(adminOnly).Get("/stats/advanced", taskHandler.AdvancedStats)
				r.Get("/{id}", taskHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(writers)
					r.Post("/", taskHandler.Create)
					r.Post("/reorder", taskHandler.Reorder)
					r.Put("/{id}", taskHandler.Update)
					r.Patch("/{id}/status", taskHandler.ToggleStatus)
					r.Delete("/{id}", taskHandler.Delete)
				})
			})

			r.Route("/todostates", func(r chi.Router) {
				r.Get("/", stateHandler.List)
				r.Get("/{id}", stateHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Post("/", stateHandler.Create)
					r.Post("/reorder", stateHandler.Reorder)
					r.Put("/{id}", stateHandler.Update)
					r.Delete("/{id}", stateHandler.Delete)
				})
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Get("/{id}", projectHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(writers)
					r.Post("/", projectHandler.Create)
					r.Put("/{id}", projectHandler.Update)
					r.Delete("/{id}", projectHandler.Delete)
				})
			})

			r.Get("/organization", orgHandler.Get)
			r.With(adminOnly).Put("/organization", orgHandler.Update)

			r.Route("/usermanagement", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
			})

			r.Get("/userpreferences", userHandler.GetPreferences)
			r.Put("/userpreferences", userHandler.UpdatePreferences)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.Me)
				r.Get("/for-assignment", userHandler.ForAssignment)
				r.Get("/dev-settings", authHandler.DevSettings)
				r.Post("/me/role", authHandler.SwitchRole)
			})

			r.With(adminOnly).Post("/admin/reminders/run", reminderHandler.Run)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	return &Router{r}
}

func passThrough(next http.Handler) http.Handler {
	return next
}
