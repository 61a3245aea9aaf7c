package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kokare-darshan/quickconnect/internal/config"
	"github.com/kokare-darshan/quickconnect/internal/database"
	"github.com/kokare-darshan/quickconnect/internal/handler"
	"github.com/kokare-darshan/quickconnect/internal/jobs"
	"github.com/kokare-darshan/quickconnect/internal/middleware"
	"github.com/kokare-darshan/quickconnect/internal/redis"
	"github.com/kokare-darshan/quickconnect/internal/repository"
	"github.com/kokare-darshan/quickconnect/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	deviceRepo := repository.NewAuthorizedDeviceRepository(db.DB)
	sessionRepo := repository.NewDeviceSessionRepository(db.DB)

	qcService := service.NewQuickConnectService(
		deviceRepo, sessionRepo, cfg.RequestTTL(), cfg.ActiveWindow(), cfg.SessionTTL(),
	)
	authService := service.NewAuthService(userRepo, sessionRepo, cfg.SessionTTL())
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	authMiddleware := middleware.NewAuthMiddleware(sessionRepo, userRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)
	anonLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		rateLimiter, config.AnonymousRateLimit, config.AnonymousRateWindow, "quickconnect",
	)
	loginLimiter := middleware.NewLoginRateLimiter()
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	qcHandler := handler.NewQuickConnectHandler(qcService)
	deviceHandler := handler.NewDeviceHandler(qcService)
	authHandler := handler.NewAuthHandler(authService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimiter.Handler).Post("/login", authHandler.Login)
		r.With(authMiddleware.Handler).Post("/logout", authHandler.Logout)
	})

	r.Route("/quickconnect", func(r chi.Router) {
		// Anonymous device-side endpoints, throttled per IP.
		r.Group(func(r chi.Router) {
			r.Use(anonLimitMiddleware.Handler)
			r.Get("/status", qcHandler.Status)
			r.Post("/initiate", qcHandler.Initiate)
			r.Get("/connect", qcHandler.Connect)
		})

		// User-side endpoints behind a session.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(rateLimitMiddleware.Handler)
			r.Post("/activate", qcHandler.Activate)
			r.Post("/authorize", qcHandler.Authorize)
			r.With(middleware.RequireAdmin).Post("/availability", qcHandler.SetAvailability)
		})
	})

	r.Route("/devices", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Get("/", deviceHandler.List)
		r.Delete("/", deviceHandler.RevokeAll)
	})

	cleanupJob := jobs.NewCleanupJob(qcService, sessionRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
