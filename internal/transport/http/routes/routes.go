package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/infra/config"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/handlers"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Users        *usecase.UserService
	Books        *usecase.BookService
	Authors      *usecase.AuthorService
	Bookshelf    *usecase.BookshelfService
	Wishlists    *usecase.WishlistService
	Registration *usecase.RegistrationService
	Search       *usecase.SearchService
	Stats        *usecase.StatsService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Tokens      port.SessionTokens
	Policy      *ability.Policy
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.Config.Telemetry.ServiceName))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{deps.Config.Frontend.BaseURL}))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	if global := buildRateLimit(deps, "global_ip", deps.Config.RateLimit.GlobalMaxAttempts); len(global) > 0 {
		r.Use(global...)
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(deps.Tokens, deps.Policy, deps.Config.JWT.CookieName)

	cookie := handlers.CookieSettings{
		Name:   deps.Config.JWT.CookieName,
		Secure: deps.Config.App.Env == "production",
	}

	api := r.Group("/api")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Users, cookie)
		authGroup := api.Group("/auth")
		authHandler.RegisterRoutes(authGroup,
			buildRateLimit(deps, "auth_signup_ip", deps.Config.RateLimit.SignupMaxAttempts),
			buildRateLimit(deps, "auth_signin_ip", deps.Config.RateLimit.SigninMaxAttempts),
			buildRateLimit(deps, "auth_reset_ip", deps.Config.RateLimit.PasswordResetMaxAttempts),
		)

		sessionGroup := api.Group("/auth")
		sessionGroup.Use(requireAuth)
		authHandler.RegisterSessionRoutes(sessionGroup)

		userHandler := handlers.NewUserHandler(deps.Services.Users)
		userHandler.RegisterPublicRoutes(api.Group("/users"))
		userGroup := api.Group("/users")
		userGroup.Use(requireAuth)
		userHandler.RegisterRoutes(userGroup)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registrationHandler.RegisterPublicRoutes(api.Group(""))
		adminGroup := api.Group("/admin")
		adminGroup.Use(requireAuth)
		registrationHandler.RegisterRoutes(adminGroup)

		bookGroup := api.Group("/books")
		bookGroup.Use(requireAuth)
		handlers.NewBookHandler(deps.Services.Books).RegisterRoutes(bookGroup)

		authorGroup := api.Group("/authors")
		authorGroup.Use(requireAuth)
		handlers.NewAuthorHandler(deps.Services.Authors).RegisterRoutes(authorGroup)

		shelfGroup := api.Group("/bookshelf")
		shelfGroup.Use(requireAuth)
		handlers.NewBookshelfHandler(deps.Services.Bookshelf).RegisterRoutes(shelfGroup)

		wishlistGroup := api.Group("/wishlists")
		wishlistGroup.Use(requireAuth)
		handlers.NewWishlistHandler(deps.Services.Wishlists).RegisterRoutes(wishlistGroup)

		searchGroup := api.Group("")
		searchGroup.Use(requireAuth)
		handlers.NewSearchHandler(deps.Services.Search).RegisterRoutes(searchGroup)
		handlers.NewStatsHandler(deps.Services.Stats).RegisterRoutes(searchGroup)
	}

	return r
}

// buildRateLimit assembles a sliding-window rule keyed on client IP, or nil
// when the limiter or the limit is not configured.
func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
