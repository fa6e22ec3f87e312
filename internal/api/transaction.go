package api

import (
	"net/http" // HTTP status codes

	"fin_flow/internal/approval"   // Transaction lifecycle
	"fin_flow/internal/domain"     // Importing domain models
	"fin_flow/internal/permission" // Capability resolution

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal money amounts
	"gorm.io/gorm"                  // GORM ORM library
)

// TransactionRequest represents a transfer request
type TransactionRequest struct {
	ReceiverID uint            `json:"receiver_id" binding:"required"` // Target user
	Amount     decimal.Decimal `json:"amount"`                         // Transfer amount
	Mode       string          `json:"mode" binding:"required"`        // Cash, UPI or Bank
	Purpose    string          `json:"purpose" binding:"max=255"`      // Free text
}

// CreateTransactionHandler records a Pending transfer from the caller
func CreateTransactionHandler(creator *approval.Creator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		var req TransactionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		mode, err := domain.ParseMode(req.Mode)
		if err != nil {
			respondError(c, err)
			return
		}
		tr, err := creator.CreateTransaction(c.Request.Context(), approval.TransactionInput{
			SenderID:   actor,          // Caller sends the money
			ReceiverID: req.ReceiverID, // Target user
			Amount:     req.Amount,     // Transfer amount
			Mode:       mode,           // Payment mode
			Purpose:    req.Purpose,    // Free text
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"transaction": tr})
	}
}

// ListTransactionsHandler lists transfers the caller sent or receives, or
// every transfer for holders of the view capability
func ListTransactionsHandler(db *gorm.DB, authz *permission.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		all, err := canViewAll(ctx, authz, actor, domain.EntityTransaction)
		if err != nil {
			respondError(c, err)
			return
		}
		page, pageSize := pageParams(c)
		query := db.WithContext(ctx).Model(&domain.Transaction{}) // Start building the query
		if !all {
			query = query.Where("sender_id = ? OR receiver_id = ?", actor, actor) // Own transfers only
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status) // Filter by status
		}
		if mode := c.Query("mode"); mode != "" {
			query = query.Where("mode = ?", mode) // Filter by mode
		}
		query = query.Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var txs []domain.Transaction
		if err := query.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": txs,                         // List of transactions
			"page":         page,                        // Current page
			"page_size":    pageSize,                    // Page size
			"total":        total,                       // Total number of transactions
			"total_pages":  totalPages(total, pageSize), // Total pages
		})
	}
}

// GetTransactionHandler returns one transfer visible to the caller
func GetTransactionHandler(m *approval.TransactionMachine, authz *permission.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		tr, err := m.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !tr.Involves(actor) {
			all, err := canViewAll(ctx, authz, actor, domain.EntityTransaction)
			if err != nil {
				respondError(c, err)
				return
			}
			if !all {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"transaction": tr})
	}
}

// RegisterTransactionRoutes mounts the transfer lifecycle endpoints
func RegisterTransactionRoutes(g *gin.RouterGroup, db *gorm.DB, creator *approval.Creator, m *approval.TransactionMachine, authz *permission.Resolver) {
	g.POST("", CreateTransactionHandler(creator))                  // Create transfer
	g.GET("", ListTransactionsHandler(db, authz))                  // List transfers
	g.GET("/:id", GetTransactionHandler(m, authz))                 // Get transfer
	g.POST("/:id/approve", transitionHandler(m.Approve))           // Receiver settles
	g.POST("/:id/reject", noteHandler(noteReason, m.Reject))       // Reject
	g.POST("/:id/cancel", transitionHandler(m.Cancel))             // Back to Pending
	g.POST("/:id/withdraw", transitionHandler(m.Withdraw))         // Sender withdraws
	g.POST("/:id/flag", noteHandler(noteReason, m.Flag))           // Flag for review
	g.POST("/:id/resubmit", noteHandler(noteResponse, m.Resubmit)) // Answer a flag
}
