package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/pkg/config"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
)

// HistoryReader reads persisted predictions.
type HistoryReader interface {
	GetRecent(ctx context.Context, item string, limit int) ([]models.PredictionRecord, error)
	GetItemStats(ctx context.Context, from, to time.Time) ([]models.ItemStats, error)
}

type HistoryHandler struct {
	repo   HistoryReader
	items  *validation.AllowList
	config *config.APIConfig
}

func NewHistoryHandler(repo HistoryReader, items *validation.AllowList, cfg *config.APIConfig) *HistoryHandler {
	return &HistoryHandler{
		repo:   repo,
		items:  items,
		config: cfg,
	}
}

func (h *HistoryHandler) getDefaultLimit() int {
	if h.config != nil && h.config.DefaultLimit > 0 {
		return h.config.DefaultLimit
	}
	return 50
}

func (h *HistoryHandler) getMaxLimit() int {
	if h.config != nil && h.config.MaxLimit > 0 {
		return h.config.MaxLimit
	}
	return 500
}

// Recent godoc
// @Summary Recent predictions
// @Description Most recent stored predictions, newest first
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows"
// @Param item query string false "Only this crop item"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Unknown item"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/predictions/recent [get]
func (h *HistoryHandler) Recent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	item := c.Query("item")
	if item != "" && h.items != nil && !h.items.Contains(item) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown item"})
		return
	}

	limit := h.parseLimit(c)
	records, err := h.repo.GetRecent(ctx, item, limit)
	if err != nil {
		logger.ErrorCtxf(ctx, "Failed to fetch recent predictions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": records,
		"count":       len(records),
		"unit":        models.YieldUnit,
	})
}

// Stats godoc
// @Summary Per-item prediction statistics
// @Tags History
// @Produce json
// @Security BearerAuth
// @Param from query string false "RFC3339 start"
// @Param to query string false "RFC3339 end"
// @Param range query string false "Relative window such as 24h or 7d"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/predictions/stats [get]
func (h *HistoryHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	from, to := parseTimeRange(c)
	stats, err := h.repo.GetItemStats(ctx, from, to)
	if err != nil {
		logger.ErrorCtxf(ctx, "Failed to compute prediction stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":  from.UTC().Format(time.RFC3339),
		"to":    to.UTC().Format(time.RFC3339),
		"items": stats,
		"unit":  models.YieldUnit,
	})
}

func (h *HistoryHandler) parseLimit(c *gin.Context) int {
	limit := h.getDefaultLimit()
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if maxLimit := h.getMaxLimit(); limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func parseTimeRange(c *gin.Context) (time.Time, time.Time) {
	to := time.Now()
	from := to.Add(-7 * 24 * time.Hour)

	if fromStr := c.Query("from"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = parsed
		}
	}

	if toStr := c.Query("to"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = parsed
		}
	}

	// relative windows such as "24h" or "7d" override from
	if rangeStr := c.Query("range"); rangeStr != "" {
		if d, ok := parseDuration(rangeStr); ok {
			from = to.Add(-d)
		}
	}

	return from, to
}

func parseDuration(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, false
	}

	switch s[len(s)-1] {
	case 'm':
		return time.Duration(value) * time.Minute, true
	case 'h':
		return time.Duration(value) * time.Hour, true
	case 'd':
		return time.Duration(value) * 24 * time.Hour, true
	default:
		return 0, false
	}
}
