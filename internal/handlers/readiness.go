package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegisshield/readiness-engine/internal/cache"
	"github.com/aegisshield/readiness-engine/internal/orchestrator"
	"github.com/aegisshield/readiness-engine/internal/processor"
)

// ReadinessHandler handles readiness-check HTTP requests
type ReadinessHandler struct {
	orch       *orchestrator.Orchestrator
	processor  *processor.FieldProcessor
	whitelists *cache.WhitelistCache
	logger     *zap.Logger
}

// NewReadinessHandler creates a new readiness handler
func NewReadinessHandler(
	orch *orchestrator.Orchestrator,
	fieldProcessor *processor.FieldProcessor,
	whitelists *cache.WhitelistCache,
	logger *zap.Logger,
) *ReadinessHandler {
	return &ReadinessHandler{
		orch:       orch,
		processor:  fieldProcessor,
		whitelists: whitelists,
		logger:     logger,
	}
}

// RegisterRoutes registers all readiness-related routes
func (h *ReadinessHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")

	api.POST("/checks/run", h.RunCheck)
	api.POST("/fields/validate", h.ValidateField)
	api.GET("/fields", h.ListFields)
	api.GET("/cache/stats", h.CacheStats)
	api.POST("/cache/refresh", h.RefreshCache)

	router.GET("/health", h.Health)
}

// RunCheck triggers one compliance check run and returns its outcome.
func (h *ReadinessHandler) RunCheck(c *gin.Context) {
	started := time.Now()
	result, err := h.orch.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("Check run failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "check run failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":                result.RunID,
		"report_id":             result.ReportID,
		"degree_of_fulfillment": result.DegreeOfFulfillment,
		"summary":               result.Summary,
		"status":                result.Status,
		"results":               len(result.Lines),
		"bom_results":           len(result.BomNodes),
		"duration_ms":           time.Since(started).Milliseconds(),
	})
}

// ValidateFieldRequest is the body of a single-value validation request.
type ValidateFieldRequest struct {
	Key   string      `json:"key" binding:"required"`
	Value interface{} `json:"value"`
}

// ValidateField validates one value against a registered field definition.
func (h *ReadinessHandler) ValidateField(c *gin.Context) {
	var req ValidateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, err := h.processor.ValidateValue(c.Request.Context(), req.Key, req.Value)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListFields returns the registered field definitions.
func (h *ReadinessHandler) ListFields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": h.processor.Definitions()})
}

// CacheStats returns whitelist cache statistics.
func (h *ReadinessHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.whitelists.GetStats())
}

// RefreshCacheRequest names the whitelist source to reload.
type RefreshCacheRequest struct {
	Key string `json:"key" binding:"required"`
}

// RefreshCache forces a reload of one whitelist source.
func (h *ReadinessHandler) RefreshCache(c *gin.Context) {
	var req RefreshCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	values, err := h.whitelists.Refresh(c.Request.Context(), req.Key)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": req.Key, "values": len(values)})
}

// Health reports service liveness.
func (h *ReadinessHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
