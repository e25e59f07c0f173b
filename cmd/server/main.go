package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/catalog"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/database"
	"github.com/stemsi/coursehub-backend/internal/feed"
	"github.com/stemsi/coursehub-backend/internal/handler"
	"github.com/stemsi/coursehub-backend/internal/logger"
	"github.com/stemsi/coursehub-backend/internal/middleware"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
	"github.com/stemsi/coursehub-backend/internal/router"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/store"
	"github.com/stemsi/coursehub-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("feed_driver", cfg.FeedDriver).
		Msg("Starting CourseHub Backend")

	// ─── Load Catalog & Validator ──────────────────────────────────────
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogFile).Msg("Failed to load program catalog")
	}
	validator.Setup(cat)

	metrics := service.NewMetricsService()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlers := &router.Handlers{}
	var (
		authService  *service.AuthService
		loginLimiter *middleware.RateLimiter
		pool         *pgxpool.Pool
		rdb          *redis.Client
		storeDone    = make(chan struct{})
	)

	configErr := cfg.Validate()
	if configErr == nil {
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			configErr = err
		}
	}

	if configErr != nil {
		// ─── Degraded Mode ─────────────────────────────────────────────
		// Health and metrics stay up; every catalog route answers 503.
		log.Error().Err(configErr).Msg("Course database not configured, serving degraded mode")
		handlers.System = handler.NewSystemHandler(nil, metrics, configErr)
		close(storeDone)
	} else {
		// ─── Initialize Repositories ───────────────────────────────────
		courseRepo := repository.NewCourseRepository(pool)
		adminRepo := repository.NewAdminRepository(pool)

		resolve := func(ctx context.Context, id int) (*model.Course, error) {
			c, err := courseRepo.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			return c, err
		}

		// ─── Change Feed ───────────────────────────────────────────────
		var (
			source    feed.Source
			publisher service.ChangePublisher
		)
		switch cfg.FeedDriver {
		case config.FeedDriverRedis:
			rdb, err = database.NewRedisClient(ctx, cfg, log)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to Redis")
			}
			channel := config.CacheKey.CourseChangesChannel(cfg.FeedChannel)
			source = feed.NewRedisSource(rdb, channel, resolve, log)
			publisher = feed.NewRedisPublisher(rdb, channel)
		default:
			source = feed.NewPostgresSource(pool, cfg.FeedChannel, resolve, log)
		}

		// ─── Course Store ──────────────────────────────────────────────
		st := store.New(store.NewProvider(courseRepo, source), log, store.WithRecorder(metrics))
		go func() {
			defer close(storeDone)
			st.Run(ctx)
		}()

		// ─── Initialize Services ───────────────────────────────────────
		authService = service.NewAuthService(cfg, adminRepo)
		courseService := service.NewCourseService(st, courseRepo, publisher, cat, log)

		loginLimiter = middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
		go loginLimiter.RunCleanup(ctx)

		// ─── Initialize Handlers ───────────────────────────────────────
		handlers.System = handler.NewSystemHandler(courseService, metrics, nil)
		handlers.Course = handler.NewCourseHandler(courseService, log)
		handlers.Auth = handler.NewAuthHandler(authService, log)
		handlers.WS = handler.NewWSHandler(courseService, metrics, log, cfg.AllowedOrigins)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, metrics, loginLimiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. End live streams; Shutdown does not wait for hijacked connections.
	if handlers.WS != nil {
		handlers.WS.Close()
	}
	if handlers.Course != nil {
		handlers.Course.Close()
	}

	// 2. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 3. Stop the store, which releases the change feed subscription.
	cancel()
	select {
	case <-storeDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Course store did not stop in time")
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if pool != nil {
		pool.Close()
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
