package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	authapi "go.pilab.hu/pacs-auth/api/echo"
	"go.pilab.hu/pacs-auth/cache"
	redisledger "go.pilab.hu/pacs-auth/cache/redis"
	"go.pilab.hu/pacs-auth/config"
	"go.pilab.hu/pacs-auth/domain"
	"go.pilab.hu/pacs-auth/internal/auth"
	"go.pilab.hu/pacs-auth/middleware"
	"go.pilab.hu/pacs-auth/mongodb"
	"go.pilab.hu/pacs-auth/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg)

	ctx := context.Background()

	// --- Stores ---
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize user repository")
	}
	sessionRepo, err := mongodb.NewSessionRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session repository")
	}

	ledger := newRevocationLedger(ctx, cfg)

	// --- Services ---
	signer := services.NewTokenSigner()
	signer.AddKeySigner(cfg.JWTSecretKey)

	tokenService := services.NewTokenService(
		signer,
		cfg.JWTSecretKey,
		"pacs-auth",
		time.Duration(cfg.AccessTokenTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLDays)*24*time.Hour,
	)
	authService := services.NewAuthService(userRepo, sessionRepo, ledger, tokenService, auth.NewBcryptPasswordHasher(0))

	// --- HTTP pipeline: recover, authenticate, audit, handlers ---
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.Authn(middleware.AuthnConfig{
		TokenService:    tokenService,
		Ledger:          ledger,
		Users:           userRepo,
		PublicPaths:     cfg.PublicPaths(),
		UnavailableMode: middleware.UnavailableMode(cfg.AuthnUnavailableMode),
	}))
	e.Use(middleware.Audit())

	authapi.NewAuthAPI(authService).RegisterRoutes(e)

	// Background sweep of expired session records. Not needed for
	// correctness, only to bound storage growth.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go sweepSessions(sweepCtx, sessionRepo, time.Duration(cfg.SessionSweepIntervalMin)*time.Minute)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting HTTP server")
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := mongodb.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("MongoDB disconnect failed")
	}
}

func setupLogging(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("invalid LOG_LEVEL, defaulting to info")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// newRevocationLedger picks Redis when configured, so all instances share
// one revocation view; otherwise the in-process ledger serves
// single-instance deployments.
func newRevocationLedger(ctx context.Context, cfg *config.ServerConfig) cache.RevocationLedger {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, using in-memory revocation ledger")
		return cache.NewMemoryRevocationLedger()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("using Redis revocation ledger")
	return redisledger.NewRevocationLedger(client)
}

func sweepSessions(ctx context.Context, sessions domain.SessionRepository, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := sessions.DeleteExpiredBefore(ctx, time.Now()); err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
