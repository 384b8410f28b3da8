package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claimhub/ClaimHub/internal/aggregator"
	"github.com/claimhub/ClaimHub/internal/storage"
	"github.com/gin-gonic/gin"
)

const updateTimeout = 5 * time.Minute

type Server struct {
	store *storage.Store
	agg   *aggregator.Aggregator
}

func NewServer(store *storage.Store, agg *aggregator.Aggregator) *Server {
	return &Server{store: store, agg: agg}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/claims", s.listClaims)
		v1.GET("/sources", s.listSources)
		v1.POST("/sources/toggle", s.toggleSource)
		v1.POST("/update", s.update)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listClaims(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	filter := storage.ClaimFilter{
		Language: c.Query("language"),
		Category: c.Query("category"),
		Verdict:  c.Query("verdict"),
		Search:   c.Query("search"),
		Limit:    limit,
	}
	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = t
		}
	}

	items, err := s.store.ListClaims(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    s.agg.Status(),
	})
}

type toggleRequest struct {
	SourceID string `json:"source_id" binding:"required"`
	Enabled  *bool  `json:"enabled" binding:"required"`
}

func (s *Server) toggleSource(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": err.Error(),
		})
		return
	}

	if !s.agg.Toggle(req.SourceID, *req.Enabled) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "source not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": fmt.Sprintf("source %s updated", req.SourceID),
		"enabled": *req.Enabled,
	})
}

// update triggers a full cycle synchronously and reports the number of new
// claims. The aggregator guarantees this never propagates a source failure.
func (s *Server) update(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), updateTimeout)
	defer cancel()

	added := s.agg.UpdateAll(ctx, s.store)
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": fmt.Sprintf("added %d new claims from active sources", added),
		"added":   added,
	})
}
