package handler

import (
	"donation-ledger/internal/adapter/http/middleware"
	redisStore "donation-ledger/internal/adapter/storage/redis"
	"donation-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IntakeSvc      ports.IntakeService
	SettlementSvc  ports.SettlementService
	WithdrawalSvc  ports.WithdrawalService
	AuthSvc        ports.AuthService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (donors and the payment provider) ---
	donationHandler := NewDonationHandler(deps.IntakeSvc, deps.SettlementSvc)
	donations := v1.Group("/donations")
	{
		donations.POST("", rl("donations"), donationHandler.Donate)
		donations.POST("/webhook", rl("webhook"), donationHandler.Webhook)
		donations.GET("/:tx_ref", rl("donations"), donationHandler.GetDonation)
	}

	// --- Recipient wallet routes ---
	walletHandler := NewWalletHandler(deps.SettlementSvc, deps.WithdrawalSvc)
	wallets := v1.Group("/wallets")
	{
		wallets.GET("/:recipient_id", rl("wallets"), walletHandler.GetWallet)
		wallets.POST("/:recipient_id/withdrawals", rl("wallets"), walletHandler.RequestWithdrawal)
	}

	// --- Admin routes (JWT-authenticated except login) ---
	adminHandler := NewAdminHandler(deps.AuthSvc, deps.WithdrawalSvc, deps.ReportingSvc)
	admin := v1.Group("/admin")
	{
		admin.POST("/login", rl("auth_login"), adminHandler.Login)

		jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
		authed := admin.Group("", jwtAuth)
		{
			authed.GET("/withdrawals", rl("admin"), adminHandler.ListWithdrawals)
			authed.POST("/withdrawals/:id/approve", rl("admin"), adminHandler.ApproveWithdrawal)
			authed.POST("/withdrawals/:id/reject", rl("admin"), adminHandler.RejectWithdrawal)
			authed.GET("/stats", rl("admin"), adminHandler.GetStats)
		}
	}

	return r
}
