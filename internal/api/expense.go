package api

import (
	"net/http" // HTTP status codes

	"fin_flow/internal/approval"   // Expense lifecycle
	"fin_flow/internal/domain"     // Importing domain models
	"fin_flow/internal/permission" // Capability resolution

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal money amounts
	"gorm.io/gorm"                  // GORM ORM library
)

// ExpenseRequest represents a new expense
type ExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`                        // Spent amount
	Mode        string          `json:"mode" binding:"required"`       // Cash, UPI or Bank
	Category    string          `json:"category" binding:"max=64"`     // Expense category
	Description string          `json:"description" binding:"max=500"` // Free text
}

// CreateExpenseHandler records a Pending expense spent by the caller
func CreateExpenseHandler(creator *approval.Creator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		var req ExpenseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		mode, err := domain.ParseMode(req.Mode)
		if err != nil {
			respondError(c, err)
			return
		}
		e, err := creator.CreateExpense(c.Request.Context(), approval.ExpenseInput{
			SpentBy:     actor,
			Amount:      req.Amount,
			Mode:        mode,
			Category:    req.Category,
			Description: req.Description,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"expense": e})
	}
}

// ListExpensesHandler lists the caller's expenses, or all of them for holders
// of the view capability
func ListExpensesHandler(db *gorm.DB, authz *permission.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		all, err := canViewAll(ctx, authz, actor, domain.EntityExpense)
		if err != nil {
			respondError(c, err)
			return
		}
		page, pageSize := pageParams(c)
		query := db.WithContext(ctx).Model(&domain.Expense{})
		if !all {
			query = query.Where("spent_by = ?", actor)
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category)
		}
		query = query.Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count expenses"})
			return
		}
		var expenses []domain.Expense
		if err := query.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&expenses).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"expenses":    expenses,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		})
	}
}

// GetExpenseHandler returns one expense visible to the caller
func GetExpenseHandler(m *approval.ExpenseMachine, authz *permission.Resolver) gin.HandlerFunc {
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
		e, err := m.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if e.SpentBy != actor {
			all, err := canViewAll(ctx, authz, actor, domain.EntityExpense)
			if err != nil {
				respondError(c, err)
				return
			}
			if !all {
				c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"expense": e})
	}
}

// RegisterExpenseRoutes mounts the expense lifecycle endpoints
func RegisterExpenseRoutes(g *gin.RouterGroup, db *gorm.DB, creator *approval.Creator, m *approval.ExpenseMachine, authz *permission.Resolver) {
	g.POST("", CreateExpenseHandler(creator))
	g.GET("", ListExpensesHandler(db, authz))
	g.GET("/:id", GetExpenseHandler(m, authz))
	g.POST("/:id/approve", transitionHandler(m.Approve))
	g.POST("/:id/reject", noteHandler(noteReason, m.Reject))
	g.POST("/:id/flag", noteHandler(noteReason, m.Flag))
	g.POST("/:id/resubmit", noteHandler(noteResponse, m.Resubmit))
	g.POST("/:id/restore", transitionHandler(m.Restore))
}
