package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/tasknest/tasknest-api/internal/auth"
	"github.com/tasknest/tasknest-api/internal/category"
	"github.com/tasknest/tasknest-api/internal/config"
	"github.com/tasknest/tasknest-api/internal/httputil"
	"github.com/tasknest/tasknest-api/internal/logging"
	"github.com/tasknest/tasknest-api/internal/product"
	"github.com/tasknest/tasknest-api/internal/task"
)

// Handlers groups the resource handlers wired into the router.
type Handlers struct {
	Auth     *auth.Handler
	Task     *task.Handler
	Product  *product.Handler
	Category *category.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		log.Println("Swagger UI disabled (production mode)")
	}

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
	})

	// Activation is public on purpose: the handler pulls the bearer token
	// itself and answers with the same acknowledgment whether or not the
	// tokens resolve, so the route must not sit behind Authenticate.
	r.Post("/authenticate-email", h.Auth.Confirm)

	// Account self-management requires a resolvable session but not an
	// activated account, otherwise a never-activated user could not fix a
	// typoed email or remove the account.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Put("/users/me", h.Auth.UpdateMe)
		r.Delete("/users/me", h.Auth.DeleteMe)
	})

	// Everything else requires an activated account
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(authMiddleware.RequireActive)

		r.Get("/users/me", h.Auth.Me)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.Task.List)
			r.Post("/", h.Task.Create)
			r.Get("/{taskID}", h.Task.Get)
			r.Put("/{taskID}", h.Task.Update)
			r.Delete("/{taskID}", h.Task.Delete)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Product.List)
			r.Post("/", h.Product.Create)
			r.Get("/{sku}", h.Product.Get)
			r.Put("/{sku}", h.Product.Update)
			r.Delete("/{sku}", h.Product.Delete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Category.List)
			r.Post("/", h.Category.Create)
			r.Get("/{categoryID}", h.Category.Get)
			r.Delete("/{categoryID}", h.Category.Delete)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
