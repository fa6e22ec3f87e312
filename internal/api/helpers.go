package api

import (
	"context"  // Context for permission lookups
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"fin_flow/internal/domain"     // Importing domain models
	"fin_flow/internal/permission" // Capability resolution

	"github.com/gin-gonic/gin" // Gin web framework
)

// actorID returns the authenticated user id, writing 401 when it is missing
func actorID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID") // Set by JWTAuthMiddleware
	id, ok := v.(uint)
	if !exists || !ok || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return id, true
}

// uintParam parses a positive path parameter, writing 400 when it is malformed
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// pageParams reads page and page_size with the defaults used across the API
func pageParams(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}

// totalPages is the number of pages needed for total rows
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}

// canViewAll reports whether the actor may list every record of entity
func canViewAll(ctx context.Context, authz *permission.Resolver, actor uint, entity domain.Entity) (bool, error) {
	return authz.CanPerform(ctx, actor, domain.ActionView, entity)
}

// noteRequest carries the free text of reject, flag and resubmit calls
type noteRequest struct {
	Reason   string `json:"reason"`   // Rejection or flag reason
	Response string `json:"response"` // Resubmission response
}

func noteReason(r noteRequest) string   { return r.Reason }
func noteResponse(r noteRequest) string { return r.Response }

// transitionHandler adapts a machine transition to a gin handler
func transitionHandler[T any](fn func(ctx context.Context, id, actorID uint) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		record, err := fn(c.Request.Context(), id, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": record})
	}
}

// noteHandler adapts a machine transition that takes free text
func noteHandler[T any](text func(noteRequest) string, fn func(ctx context.Context, id, actorID uint, text string) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorID(c)
		if !ok {
			return
		}
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req noteRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		record, err := fn(c.Request.Context(), id, actor, text(req))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": record})
	}
}
