package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nmehra/riskdesk/internal/validation"
)

// Handler provides the analytics API endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new analytics handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up analytics routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/analytics/overview", h.Overview)
	r.GET("/analytics/histogram", h.Histogram)
	r.GET("/analytics/corridors", h.Corridors)
}

// Overview returns dataset totals and the monthly decision mix.
func (h *Handler) Overview(c *gin.Context) {
	months, ok := monthsParam(c)
	if !ok {
		return
	}

	overview, err := h.svc.Overview(c.Request.Context(), months)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, overview)
}

// Histogram returns the risk-score distribution.
func (h *Handler) Histogram(c *gin.Context) {
	months, ok := monthsParam(c)
	if !ok {
		return
	}

	bins := parseIntQuery(c, "bins", DefaultHistogramBins, 100)

	hist, err := h.svc.Histogram(c.Request.Context(), months, bins)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, hist)
}

// Corridors returns the riskiest origin->destination pairs.
func (h *Handler) Corridors(c *gin.Context) {
	months, ok := monthsParam(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 5, 50)

	corridors, err := h.svc.TopCorridors(c.Request.Context(), months, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"corridors": corridors,
		"count":     len(corridors),
	})
}

// monthsParam reads the repeatable months query parameter, rejecting
// malformed labels. A false return means the response is already written.
func monthsParam(c *gin.Context) ([]string, bool) {
	months := c.QueryArray("months")
	for _, m := range months {
		if !validation.IsValidMonth(m) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_month",
				"message": "months must be in YYYY-MM format",
			})
			return nil, false
		}
	}
	return months, true
}

func parseIntQuery(c *gin.Context, name string, defaultVal, maxVal int) int {
	val := defaultVal
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			val = n
		}
	}
	if val > maxVal {
		val = maxVal
	}
	return val
}
