package api

import (
	"net/http" // HTTP status codes
	"time"     // Time durations

	"fin_flow/internal/domain" // Importing domain models
	"fin_flow/internal/ledger" // Wallet ledger
	"fin_flow/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Decimal money amounts
)

// walletCacheTTL bounds how long a cached wallet view may be served. A read
// racing a balance change can re-cache the old balance after invalidation,
// so the window stays short.
const walletCacheTTL = 15 * time.Second

// GetWalletHandler returns wallet info for the authenticated user, creating
// the wallet on first access
func GetWalletHandler(l *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()                                // Request-scoped context
		cacheKey := utils.WalletKey(userID)                       // Cache key for wallet
		var wallet domain.Wallet                                  // Wallet struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet) // Try to get from cache
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		w, err := l.GetOrCreateWallet(ctx, userID) // Fetch from DB
		if err != nil {
			respondError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, w, walletCacheTTL)  // Cache the wallet
		c.JSON(http.StatusOK, gin.H{"wallet": w, "cached": false}) // Return wallet info
	}
}

// GetUserWalletHandler returns any user's wallet for administrators
func GetUserWalletHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := uintParam(c, "userID")
		if !ok {
			return
		}
		w, err := l.GetOrCreateWallet(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallet": w})
	}
}

// historyPage is the cached shape of one history page
type historyPage struct {
	Entries    []domain.WalletTransaction `json:"entries"`     // Ledger rows
	Page       int                        `json:"page"`        // Current page
	PageSize   int                        `json:"page_size"`   // Page size
	Total      int64                      `json:"total"`       // Total rows
	TotalPages int                        `json:"total_pages"` // Total pages
	Cached     bool                       `json:"cached"`      // Served from cache
}

// GetWalletHistoryHandler returns the caller's wallet transactions, newest first
func GetWalletHistoryHandler(l *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		page, pageSize := pageParams(c)
		ctx := c.Request.Context()
		cacheKey := utils.HistoryKey(userID, page, pageSize) // Redis cache key
		var cached historyPage
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		rows, total, err := l.History(ctx, userID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := historyPage{
			Entries:    rows,                        // Ledger rows
			Page:       page,                        // Current page
			PageSize:   pageSize,                    // Page size
			Total:      total,                       // Total rows
			TotalPages: totalPages(total, pageSize), // Total pages
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, walletCacheTTL) // Cache the page
		c.JSON(http.StatusOK, resp)
	}
}

// CheckBalanceHandler reports whether the caller can cover amount in mode
func CheckBalanceHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := actorID(c)
		if !ok {
			return
		}
		mode, err := domain.ParseMode(c.Query("mode"))
		if err != nil {
			respondError(c, err)
			return
		}
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		sufficient, err := l.CheckBalance(c.Request.Context(), userID, mode, amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": mode, "amount": amount, "sufficient": sufficient})
	}
}
