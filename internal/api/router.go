package api

import (
	"net/http"
	"time"

	"book_market/internal/api/handler"
	"book_market/internal/api/middleware"
	"book_market/internal/common/security"
	"book_market/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Services groups what the HTTP layer calls into.
type Services struct {
	Auth      handler.AuthService
	Books     handler.BookService
	Purchases handler.PurchaseService
	Reviews   handler.ReviewService
	Catalog   handler.CatalogService
}

// NewRouter builds the API. uploadDir is served under /uploads when set,
// which is only the case for the local cover store.
func NewRouter(log logrus.FieldLogger, rdb *redis.Client, svc Services, uploadDir string) http.Handler {
	cfg := config.AppConfig
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Purchase-Intent"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifier only parses the token; routes opt in with middleware.Authenticator.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	if uploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}

	authLimiter := middleware.NewRateLimiter(rdb, log, "auth", cfg.RateLimitAuthBurst, cfg.RateLimitAuthRPS)
	confirmLimiter := middleware.NewRateLimiter(rdb, log, "confirm", cfg.RateLimitAuthBurst, cfg.RateLimitAuthRPS)

	r.Route("/api", func(api chi.Router) {
		authHandler := handler.NewAuthHandler(svc.Auth)
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(authLimiter.Middleware)
			authHandler.RegisterRoutes(auth)
		})

		bookHandler := handler.NewBookHandler(svc.Books, svc.Purchases, cfg.MaxCoverBytes, confirmLimiter.Middleware)
		api.Route("/books", bookHandler.RegisterRoutes)

		catalogHandler := handler.NewCatalogHandler(svc.Catalog)
		api.Route("/catalog", catalogHandler.RegisterRoutes)

		// Reviews live directly under /api: /api/reviews, /api/user.
		reviewHandler := handler.NewReviewHandler(svc.Reviews)
		api.Group(reviewHandler.RegisterRoutes)
	})

	profileHandler := handler.NewProfileHandler(svc.Books, svc.Purchases, cfg.MaxCoverBytes)
	r.Route("/profile", profileHandler.RegisterRoutes)

	return r
}
