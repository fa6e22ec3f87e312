package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Time durations

	"fin_flow/internal/approval"   // AutoPay settings
	"fin_flow/internal/audit"      // Audit trail
	"fin_flow/internal/domain"     // Importing domain models
	"fin_flow/internal/ledger"     // Reconciliation
	"fin_flow/internal/permission" // Capability resolution
	"fin_flow/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       uint          `json:"id"`       // User ID
	Username string        `json:"username"` // Username
	Role     domain.Role   `json:"role"`     // User role
	Wallet   domain.Wallet `json:"wallet"`   // Associated wallet
}

// userPage is the cached shape of one page of users
type userPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
	Cached     bool                `json:"cached"`      // Served from cache
}

// ListUsersHandler returns all users with their wallet info
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pageParams(c)
		// Create a cache key based on pagination parameters
		cacheKey := utils.UsersKey(page, pageSize)
		var cached userPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		var total int64 // Total user count
		if err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"}) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		// Preload Wallet relation, apply offset and limit for pagination
		if err := db.WithContext(ctx).Preload("Wallet").Order("id asc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		resp := userPage{
			Users:      make([]UserAdminResponse, len(users)), // List of users
			Page:       page,                                  // Current page
			PageSize:   pageSize,                              // Page size
			Total:      total,                                 // Total number of users
			TotalPages: totalPages(total, pageSize),           // Total pages
		}
		// Map users to response format
		for i, u := range users {
			resp.Users[i] = UserAdminResponse{
				ID:       u.ID,       // User ID
				Username: u.Username, // Username
				Role:     u.Role,     // User role
				Wallet:   u.Wallet,   // Associated wallet
			}
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, walletCacheTTL)
		c.JSON(http.StatusOK, resp) // Return the response
	}
}

// ListWalletTransactionsHandler returns ledger rows across all wallets, with
// optional filtering by user, mode, reason, related record or date
func ListWalletTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		filters := []string{"user_id", "mode", "reason", "related_model", "related_id", "from", "to", "page", "page_size"}
		// Build cache key from all query params
		var keyParts []string
		for _, k := range filters {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, "")) // Append key-value pair
		}
		cacheKey := "admin:wallet_txs:" + strings.Join(keyParts, ":")
		var cached struct {
			Entries    []domain.WalletTransaction `json:"entries"`     // Ledger rows
			Page       int                        `json:"page"`        // Current page
			PageSize   int                        `json:"page_size"`   // Page size
			Total      int64                      `json:"total"`       // Total rows
			TotalPages int                        `json:"total_pages"` // Total pages
		}
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"entries":     cached.Entries,    // Ledger rows
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total rows
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page, pageSize := pageParams(c)
		query := db.WithContext(ctx).Model(&domain.WalletTransaction{}) // Start building the query
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID) // Filter by user ID
		}
		if mode := c.Query("mode"); mode != "" {
			query = query.Where("mode = ?", mode) // Filter by payment mode
		}
		if reason := c.Query("reason"); reason != "" {
			query = query.Where("reason = ?", reason) // Filter by reason
		}
		if model := c.Query("related_model"); model != "" {
			query = query.Where("related_model = ?", model) // Filter by related record type
		}
		if relatedID := c.Query("related_id"); relatedID != "" {
			query = query.Where("related_id = ?", relatedID) // Filter by related record
		}
		if from := c.Query("from"); from != "" {
			if t, err := time.Parse(time.RFC3339, from); err == nil {
				query = query.Where("created_at >= ?", t.UnixMilli()) // Filter by start date
			}
		}
		if to := c.Query("to"); to != "" {
			if t, err := time.Parse(time.RFC3339, to); err == nil {
				query = query.Where("created_at <= ?", t.UnixMilli()) // Filter by end date
			}
		}
		query = query.Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count wallet transactions"})
			return
		}
		var rows []domain.WalletTransaction
		if err := query.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet transactions"})
			return
		}
		respData := gin.H{
			"entries":     rows,                        // Ledger rows
			"page":        page,                        // Current page
			"page_size":   pageSize,                    // Page size
			"total":       total,                       // Total rows
			"total_pages": totalPages(total, pageSize), // Total pages
			"cached":      false,                       // Indicate response is not from cache
		}
		// Ledger rows are append-only, a short TTL only hides the newest ones
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 10*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// ReconcileHandler replays a user's ledger and compares it with the stored wallet
func ReconcileHandler(rec *ledger.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := uintParam(c, "userID")
		if !ok {
			return
		}
		report, err := rec.Replay(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": report})
	}
}

// AuditTrailHandler lists the audit entries of one record
func AuditTrailHandler(logger *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		entity := domain.Entity(c.Param("entity"))
		switch entity {
		case domain.EntityCollection, domain.EntityTransaction, domain.EntityExpense, domain.EntityAutoPay:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown entity"})
			return
		}
		entries, err := logger.List(c.Request.Context(), entity, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

// AutoPayRequest represents an AutoPay update for one mode
type AutoPayRequest struct {
	Mode       string `json:"mode" binding:"required"` // Cash, UPI or Bank
	ReceiverID uint   `json:"receiver_id"`             // Redirect target
	Enabled    bool   `json:"enabled"`                 // Toggle
}

// ListAutoPayHandler returns every AutoPay setting
func ListAutoPayHandler(creator *approval.Creator, authz *permission.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireCapability(c, authz, domain.ActionView, domain.EntityAutoPay) {
			return
		}
		settings, err := creator.AutoPaySettings(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

// SetAutoPayHandler enables, retargets or disables AutoPay for a mode
func SetAutoPayHandler(creator *approval.Creator, authz *permission.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireCapability(c, authz, domain.ActionManage, domain.EntityAutoPay) {
			return
		}
		actor, _ := actorID(c)
		var req AutoPayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		mode, err := domain.ParseMode(req.Mode)
		if err != nil {
			respondError(c, err)
			return
		}
		setting, err := creator.SetAutoPay(c.Request.Context(), mode, req.ReceiverID, req.Enabled, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"setting": setting})
	}
}

// requireCapability writes 403 unless the caller holds action on entity
func requireCapability(c *gin.Context, authz *permission.Resolver, action domain.Action, entity domain.Entity) bool {
	actor, ok := actorID(c)
	if !ok {
		return false
	}
	allowed, err := authz.CanPerform(c.Request.Context(), actor, action, entity)
	if err != nil {
		respondError(c, err)
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return false
	}
	return true
}
