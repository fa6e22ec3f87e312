package main

import (
	"context" // context package is needed for Redis operations

	"fin_flow/internal/api"        // Custom package for API handlers
	"fin_flow/internal/approval"   // Lifecycle machines
	"fin_flow/internal/audit"      // Audit trail
	"fin_flow/internal/config"     // Custom package for configuration
	"fin_flow/internal/db"         // Database connection
	"fin_flow/internal/ledger"     // Wallet ledger
	"fin_flow/internal/middleware" // Custom package for middleware
	"fin_flow/internal/notify"     // Live updates
	"fin_flow/internal/permission" // Role capabilities

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"github.com/sirupsen/logrus"                              // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if cfg.DBDriver == "sqlite" {
		// The embedded database has no separate migrate step
		if err := db.Migrate(gdb); err != nil {
			logrus.Fatalf("%v", err)
		}
	}

	// Setup Redis client; without one, caching is off and locks are process-local
	var redisClient *redis.Client
	var locker approval.Locker = approval.NewLocalLocker()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		locker = approval.NewRedisLocker(redisClient, cfg.LockTTL)
	} else {
		logrus.Warn("REDIS_ADDR not set, using in-process locks and no cache")
	}

	// Wire the domain services
	authz := permission.NewResolver(gdb, permission.DefaultPolicy)
	auditLogger := audit.NewLogger(gdb)
	hub := notify.NewHub()
	deps := approval.Deps{
		DB:         gdb,                                     // Storage
		Authorizer: authz,                                   // Role capabilities
		Auditor:    auditLogger,                             // Audit trail
		Notifier:   notify.NewBroadcaster(hub, redisClient), // Websocket push and cache invalidation
		Locker:     locker,                                  // Per-record locks
	}
	creator := approval.NewCreator(deps)
	collections := approval.NewCollectionMachine(deps)
	transactions := approval.NewTransactionMachine(deps)
	expenses := approval.NewExpenseMachine(deps)
	walletLedger := ledger.New(gdb)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.New()                                    // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger()) // Recover panics and log requests

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(gdb))                   // Registration endpoint
	r.POST("/user/login", api.LoginHandler(gdb, cfg.JWTSecret)) // Login endpoint

	// Operational routes
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))        // Prometheus scrape endpoint
	r.GET("/ws", notify.UpgradeHandler(hub, cfg.JWTSecret)) // Live updates

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet", auth)
	walletGroup.GET("", api.GetWalletHandler(walletLedger, redisClient))                     // Get wallet endpoint
	walletGroup.GET("/transactions", api.GetWalletHistoryHandler(walletLedger, redisClient)) // Ledger history endpoint
	walletGroup.GET("/check", api.CheckBalanceHandler(walletLedger))                         // Balance check endpoint

	// Money movement routes (protected by JWT, capabilities checked per action)
	api.RegisterCollectionRoutes(r.Group("/collections", auth), gdb, creator, collections, authz)
	api.RegisterTransactionRoutes(r.Group("/transactions", auth), gdb, creator, transactions, authz)
	api.RegisterExpenseRoutes(r.Group("/expenses", auth), gdb, creator, expenses, authz)

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", auth, middleware.AdminOnlyMiddleware(gdb))
	adminGroup.GET("/users", api.ListUsersHandler(gdb, redisClient))                              // List users endpoint
	adminGroup.GET("/wallets/:userID", api.GetUserWalletHandler(walletLedger))                    // Any user's wallet
	adminGroup.GET("/wallets/:userID/reconcile", api.ReconcileHandler(ledger.NewReconciler(gdb))) // Ledger replay
	adminGroup.GET("/wallet-transactions", api.ListWalletTransactionsHandler(gdb, redisClient))   // Ledger rows
	adminGroup.GET("/audit/:entity/:id", api.AuditTrailHandler(auditLogger))                      // Audit trail
	adminGroup.GET("/autopay", api.ListAutoPayHandler(creator, authz))                            // AutoPay settings
	adminGroup.PUT("/autopay", api.SetAutoPayHandler(creator, authz))                             // Update AutoPay

	logrus.Infof("Server running on %s", cfg.AppPort) // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil {  // Start the server on port cfg.AppPort
		logrus.Fatalf("server stopped: %v", err)
	}
}
