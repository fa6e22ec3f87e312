package api

import (
	"net/http" // HTTP status codes

	"fin_flow/internal/approval"   // Collection lifecycle
	"fin_flow/internal/domain"     // Importing domain models
	"fin_flow/internal/permission" // Capability resolution

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal money amounts
	"gorm.io/gorm"                  // GORM ORM library
)

// CollectionRequest represents a new collection
type CollectionRequest struct {
	AssignedReceiver *uint           `json:"assigned_receiver"`               // Receiver, defaults to the collector
	Amount           decimal.Decimal `json:"amount"`                          // Collected amount
	Mode             string          `json:"mode" binding:"required"`         // Cash, UPI or Bank
	CustomerName     string          `json:"customer_name" binding:"max=120"` // Paying customer
	Notes            string          `json:"notes" binding:"max=500"`         // Free text
}

// CreateCollectionHandler records a Pending collection collected by the caller
func CreateCollectionHandler(creator *approval.Creator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		var req CollectionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		mode, err := domain.ParseMode(req.Mode) // Normalise the mode name
		if err != nil {
			respondError(c, err)
			return
		}
		col, err := creator.CreateCollection(c.Request.Context(), approval.CollectionInput{
			CollectedBy:      actor,                // Caller collected the money
			AssignedReceiver: req.AssignedReceiver, // Optional receiver
			Amount:           req.Amount,           // Collected amount
			Mode:             mode,                 // Payment mode
			CustomerName:     req.CustomerName,     // Paying customer
			Notes:            req.Notes,            // Free text
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"collection": col})
	}
}

// ListCollectionsHandler lists collections. Holders of the view capability see
// every record; everyone else sees what they collected or receive.
func ListCollectionsHandler(db *gorm.DB, authz *permission.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		all, err := canViewAll(ctx, authz, actor, domain.EntityCollection)
		if err != nil {
			respondError(c, err)
			return
		}
		page, pageSize := pageParams(c)
		query := db.WithContext(ctx).Model(&domain.Collection{}) // Start building the query
		if !all {
			query = query.Where("collected_by = ? OR assigned_receiver = ?", actor, actor) // Own records only
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status) // Filter by status
		}
		if c.Query("system") != "true" {
			query = query.Where("is_system_collection = ?", false) // Hide mirrors unless asked
		}
		query = query.Session(&gorm.Session{})
		var total int64 // Total collection count
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count collections"})
			return
		}
		var cols []domain.Collection // Slice to hold collections
		if err := query.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&cols).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch collections"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"collections": cols,                        // List of collections
			"page":        page,                        // Current page
			"page_size":   pageSize,                    // Page size
			"total":       total,                       // Total number of collections
			"total_pages": totalPages(total, pageSize), // Total pages
		})
	}
}

// GetCollectionHandler returns one collection and its mirror, if any
func GetCollectionHandler(m *approval.CollectionMachine, authz *permission.Resolver) gin.HandlerFunc {
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
		col, err := m.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !col.CollectedByUser(actor) && col.Receiver() != actor {
			all, err := canViewAll(ctx, authz, actor, domain.EntityCollection)
			if err != nil {
				respondError(c, err)
				return
			}
			if !all {
				c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"}) // Do not leak existence
				return
			}
		}
		mirror, err := m.Mirror(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"collection": col, "mirror": mirror})
	}
}

// RegisterCollectionRoutes mounts the collection lifecycle endpoints
func RegisterCollectionRoutes(g *gin.RouterGroup, db *gorm.DB, creator *approval.Creator, m *approval.CollectionMachine, authz *permission.Resolver) {
	g.POST("", CreateCollectionHandler(creator))                   // Create collection
	g.GET("", ListCollectionsHandler(db, authz))                   // List collections
	g.GET("/:id", GetCollectionHandler(m, authz))                  // Get collection
	g.POST("/:id/approve", transitionHandler(m.Approve))           // Approve and credit
	g.POST("/:id/reject", noteHandler(noteReason, m.Reject))       // Reject
	g.POST("/:id/flag", noteHandler(noteReason, m.Flag))           // Flag for review
	g.POST("/:id/resubmit", noteHandler(noteResponse, m.Resubmit)) // Answer a flag
	g.POST("/:id/restore", transitionHandler(m.Restore))           // Back to Pending
	g.POST("/:id/delete", transitionHandler(m.Delete))             // Permanent delete
}
