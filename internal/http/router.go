// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Single bootstrap: optional surfaces (KYC review, Swagger UI) are
//     mounted conditionally from explicit configuration, never discovered
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-admin-backend/docs" // swagger spec
	"github.com/tbourn/go-admin-backend/internal/ai"
	"github.com/tbourn/go-admin-backend/internal/auth"
	"github.com/tbourn/go-admin-backend/internal/config"
	"github.com/tbourn/go-admin-backend/internal/http/handlers"
	"github.com/tbourn/go-admin-backend/internal/http/middleware"
	"github.com/tbourn/go-admin-backend/internal/repo"
	"github.com/tbourn/go-admin-backend/internal/services"
	"github.com/tbourn/go-admin-backend/internal/storage"
)

// Deps carries the shared dependencies injected into the HTTP layer.
type Deps struct {
	// DB is the primary database (accounts, books, conversations).
	DB *gorm.DB
	// DirDB is the directory database (lawyers, KYC submissions).
	DirDB *gorm.DB
	// Tokens signs and verifies bearer tokens.
	Tokens *auth.TokenIssuer
	// Files stores uploaded attachments.
	Files *storage.FileStore
	// Generator produces bot replies for conversation turns.
	Generator ai.Generator
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, static
// serving of uploads, and then mounts the versioned public API.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. CORS and Security headers
//
// Idempotency validation and rate limiting run inside the authenticated
// group, after RequireAuth, so the idempotency lookup and the limiter key
// see the account id. Public routes are rate limited by client IP.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (32 MiB; uploads go through multipart)
	r.Use(limitBody(32 << 20))

	// 6) Compress responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health: reports process plus both database connections.
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		dbState := func(db *gorm.DB) string {
			if db == nil {
				return "absent"
			}
			if err := repo.Ping(ctx, db); err != nil {
				return "down"
			}
			return "up"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"env":          cfg.GinMode,
			"db":           dbState(deps.DB),
			"directory_db": dbState(deps.DirDB),
		})
	})

	// Swagger UI (optional)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Static serving of uploaded assets
	if deps.Files != nil {
		r.Static("/uploads", deps.Files.Dir())
	}

	// Dependency injection: services ← repos/db
	accountSvc := &services.AccountService{
		DB:            deps.DB,
		Tokens:        deps.Tokens,
		Files:         deps.Files,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	bookSvc := &services.BookService{
		DB:            deps.DB,
		Files:         deps.Files,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	convSvc := &services.ConversationService{
		DB:        deps.DB,
		Generator: deps.Generator,
	}
	dirSvc := &services.DirectoryService{
		AppDB:    deps.DB,
		DirDB:    deps.DirDB,
		Accounts: accountSvc,
	}
	var kycSvc handlers.KYCService
	if cfg.KYCEnabled {
		kycSvc = &services.KYCService{DB: deps.DirDB}
	}
	h := handlers.New(accountSvc, bookSvc, convSvc, dirSvc, kycSvc)

	// Token-bucket rate limiter: account-keyed once authenticated, IP-keyed
	// on the public endpoints.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// Idempotency validation: validates the Idempotency-Key header and marks
	// replays so the rate limiter lets them through without consuming tokens.
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, accountID, conversationID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, deps.DB, accountID, conversationID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	api.Use(rl.Handler())
	{
		// Registration and sessions are unauthenticated.
		api.POST("/accounts", h.Register)
		api.POST("/sessions", h.Login)

		// Catalog reads are public; writes require a token.
		api.GET("/books", h.ListBooks)
		api.GET("/books/:id", h.GetBook)
	}

	authed := groupWithPrefix(r, apiBase)
	authed.Use(middleware.RequireAuth(deps.Tokens))
	authed.Use(idem)
	authed.Use(rl.Handler())
	{
		// Accounts
		authed.GET("/accounts", h.ListAccounts)
		authed.GET("/accounts/me", h.GetMe)
		authed.PUT("/accounts/me", h.UpdateMe)
		authed.DELETE("/accounts/me", h.DeleteMe)
		authed.GET("/accounts/:id", h.GetAccount)

		// Books (writes only; reads are mounted on the public group)
		authed.POST("/books", h.CreateBook)
		authed.PUT("/books/:id", h.UpdateBook)
		authed.DELETE("/books/:id", h.DeleteBook)

		// Conversations
		authed.POST("/conversations", h.CreateConversation)
		authed.GET("/conversations", h.ListConversations)
		authed.POST("/conversations/first-turn", h.CreateFirstTurn)
		authed.GET("/conversations/:id", h.GetConversation)
		authed.DELETE("/conversations/:id", h.DeleteConversation)
		authed.POST("/conversations/:id/turns", h.PostTurn)
		authed.PATCH("/conversations/:id/turns/:turnId", h.EditTurn)

		// Directory
		authed.GET("/directory/accounts", h.ListDirectoryAccounts)
		authed.PUT("/directory/accounts/:id", h.UpdateDirectoryAccount)
		authed.DELETE("/directory/accounts/:id", h.DeleteDirectoryAccount)
		authed.GET("/directory/lawyers", h.ListLawyers)
		authed.GET("/directory/lawyers/:id", h.GetLawyer)
		authed.PUT("/directory/lawyers/:id", h.UpdateLawyer)
		authed.DELETE("/directory/lawyers/:id", h.DeleteLawyer)

		// KYC review (mounted only when enabled)
		if cfg.KYCEnabled {
			authed.GET("/kyc", h.ListKYC)
			authed.PUT("/kyc/:id/accept", h.AcceptKYC)
			authed.PUT("/kyc/:id/reject", h.RejectKYC)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
