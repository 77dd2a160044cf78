// Command server boots the admin backend: configuration, logging, both
// SQLite databases, the upload store, tracing, and the HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/ai"
	"github.com/tbourn/go-admin-backend/internal/auth"
	"github.com/tbourn/go-admin-backend/internal/config"
	httpapi "github.com/tbourn/go-admin-backend/internal/http"
	"github.com/tbourn/go-admin-backend/internal/observability"
	"github.com/tbourn/go-admin-backend/internal/repo"
	"github.com/tbourn/go-admin-backend/internal/storage"
	"github.com/tbourn/go-admin-backend/internal/sysutil"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title                      Admin Backend API
// @version                    1.0
// @description                Account, catalog, directory, KYC review and conversation services.
// @license.name               MIT
// @BasePath                   /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the token.
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open primary database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate primary database failed")
	}

	dirDB, err := repo.OpenSQLite(cfg.DirectoryDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DirectoryDBPath).Msg("open directory database failed")
	}
	if err := repo.AutoMigrateDirectory(dirDB); err != nil {
		log.Fatal().Err(err).Msg("migrate directory database failed")
	}

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("upload store init failed")
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	generator := ai.NewHTTPGenerator(cfg.AI.Endpoint, cfg.AI.Timeout)

	// Periodically drop expired idempotency records.
	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeIdempotencyLoop(purgeCtx, db, time.Hour)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		DirDB:     dirDB,
		Tokens:    tokens,
		Files:     files,
		Generator: generator,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Bool("kyc_enabled", cfg.KYCEnabled).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	stopPurge()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

// purgeIdempotencyLoop removes expired idempotency records on a fixed
// interval until ctx is cancelled.
func purgeIdempotencyLoop(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC()); err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
			} else if n > 0 {
				log.Debug().Int64("purged", n).Msg("idempotency purge")
			}
		}
	}
}
