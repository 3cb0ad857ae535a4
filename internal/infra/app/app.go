package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/infra/config"
	croninfra "github.com/Frederic-K/bibliophile-server/internal/infra/cron"
	"github.com/Frederic-K/bibliophile-server/internal/infra/database"
	kafkainfra "github.com/Frederic-K/bibliophile-server/internal/infra/kafka"
	"github.com/Frederic-K/bibliophile-server/internal/infra/logger"
	"github.com/Frederic-K/bibliophile-server/internal/infra/mailer"
	redisinfra "github.com/Frederic-K/bibliophile-server/internal/infra/redis"
	"github.com/Frederic-K/bibliophile-server/internal/infra/security"
	"github.com/Frederic-K/bibliophile-server/internal/infra/storage"
	"github.com/Frederic-K/bibliophile-server/internal/infra/telemetry"
	postgresrepo "github.com/Frederic-K/bibliophile-server/internal/repository/postgres"
	redisrepo "github.com/Frederic-K/bibliophile-server/internal/repository/redis"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/routes"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// Application bundles the wired service with its long-lived resources.
type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	store     *postgresrepo.Store
	redis     *redisinfra.Client
	tracer    *telemetry.TracerProvider
	scheduler *croninfra.Scheduler
	producer  *kafkainfra.Producer
}

// New wires configuration, infrastructure, repositories, services, and routes
// into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	store := postgresrepo.NewStore(pool)

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	policy, err := ability.Load(cfg.Policy.File)
	if err != nil {
		store.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("load permission policy: %w", err)
	}

	hasher, err := security.NewPasswordHasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		store.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		store.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	passwordValidator := security.NewPasswordValidator(
		security.MinLengthRule(cfg.Password.MinLength),
		security.RequireCharacterClassesRule(3),
		security.RequirePasswordStrengthRule(cfg.Password.MinScore),
	)

	var events port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("kafka producer init failed, using stub publisher", zap.Error(err))
			events = kafkainfra.NewStubPublisher(log)
		} else {
			events = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		events = kafkainfra.NewStubPublisher(log)
	}

	var mail port.Mailer
	if cfg.SMTP.Host != "" {
		mail, err = mailer.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			log.Warn("smtp mailer init failed, logging mail instead", zap.Error(err))
			mail = mailer.NewLoggingMailer(log)
		}
	} else {
		mail = mailer.NewLoggingMailer(log)
	}

	var objects port.ObjectStore
	if cfg.S3.Bucket != "" {
		objects, err = storage.NewS3Store(ctx, cfg.S3, log)
		if err != nil {
			store.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	repos := postgresrepo.NewRepositories(store)

	rateLimitTTL := cfg.Redis.RateLimitTTL
	if rateLimitTTL <= 0 {
		rateLimitTTL = 2 * cfg.RateLimit.WindowDuration
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), cfg.Redis.RateLimitPrefix, rateLimitTTL)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		store.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	authService := usecase.NewAuthService(repos.Users, repos.Registration, hasher, tokens,
		passwordValidator, mail, events, cfg.Frontend.BaseURL)
	userService := usecase.NewUserService(repos.Users, repos.Tx, hasher, passwordValidator,
		mail, objects, cfg.Frontend.BaseURL)
	bookService := usecase.NewBookService(repos.Books, repos.Authors, repos.Tx, objects, events)
	authorService := usecase.NewAuthorService(repos.Authors, repos.Books, repos.Tx, events)
	bookshelfService := usecase.NewBookshelfService(repos.Bookshelf, repos.Books)
	wishlistService := usecase.NewWishlistService(repos.Wishlists, repos.Users, mail, events)
	registrationService := usecase.NewRegistrationService(repos.Registration)
	searchService := usecase.NewSearchService(repos.Search)
	statsService := usecase.NewStatsService(repos.Bookshelf, repos.Books, repos.Authors)
	maintenanceService := usecase.NewMaintenanceService(repos.Users)

	scheduler := croninfra.NewScheduler(maintenanceService, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Tokens:      tokens,
		Policy:      policy,
		Database:    store,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Users:        userService,
			Books:        bookService,
			Authors:      authorService,
			Bookshelf:    bookshelfService,
			Wishlists:    wishlistService,
			Registration: registrationService,
			Search:       searchService,
			Stats:        statsService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		store:     store,
		redis:     redisClient,
		tracer:    tracer,
		scheduler: scheduler,
		producer:  producer,
	}, nil
}

// Run starts the HTTP server and the cleanup scheduler, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.store.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.tracer.Shutdown(shutdownCtx)
	}()

	if err := a.scheduler.Start(a.cfg.Cron.CleanupSchedule); err != nil {
		return fmt.Errorf("start cleanup scheduler: %w", err)
	}
	defer a.scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting bibliophile API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
