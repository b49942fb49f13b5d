// Package explorer serves filtered transaction search, single-record lookup,
// and the cursor-paginated recent feed.
package explorer

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nmehra/riskdesk/internal/dataset"
	"github.com/nmehra/riskdesk/internal/decision"
	"github.com/nmehra/riskdesk/internal/pagination"
	"github.com/nmehra/riskdesk/internal/validation"
)

// MaxListLimit caps a single search response.
const MaxListLimit = 500

// Handler provides the transaction explorer endpoints.
type Handler struct {
	store dataset.Store
}

// NewHandler creates a new explorer handler.
func NewHandler(store dataset.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up explorer routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions", h.List)
	r.GET("/transactions/feed", h.Feed)
	r.GET("/transactions/:id", validation.TransactionIDParamMiddleware(), h.Get)
}

// List returns transactions matching the month, decision, and minimum-risk
// filters, sorted by risk score descending.
func (h *Handler) List(c *gin.Context) {
	months := c.QueryArray("months")
	for _, m := range months {
		if !validation.IsValidMonth(m) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_month",
				"message": "months must be in YYYY-MM format",
			})
			return
		}
	}

	var decisions []decision.Decision
	for _, raw := range c.QueryArray("decisions") {
		d, err := decision.ParseDecision(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_decision",
				"message": "decisions must be ALLOW, REVIEW, or BLOCK",
			})
			return
		}
		decisions = append(decisions, d)
	}

	minRisk := 0.0
	if v := c.Query("minRisk"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_min_risk",
				"message": "minRisk must be a number",
			})
			return
		}
		minRisk = f
	}

	limit := parseLimit(c, 100, MaxListLimit)

	txns, err := h.store.List(c.Request.Context(), dataset.Query{
		Months:    months,
		Decisions: decisions,
		MinRisk:   minRisk,
		Limit:     limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"count":        len(txns),
	})
}

// Get returns a single transaction by ID.
func (h *Handler) Get(c *gin.Context) {
	tx, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, dataset.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// Feed returns the most recent transactions with an opaque cursor for the
// next page.
func (h *Handler) Feed(c *gin.Context) {
	limit := parseLimit(c, 50, 200)

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor"})
		return
	}

	var before time.Time
	var beforeID string
	if cursor != nil {
		before = cursor.Timestamp
		beforeID = cursor.ID
	}

	txns, err := h.store.ListRecent(c.Request.Context(), before, beforeID, limit+1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	page, next, hasMore := pagination.ComputePage(txns, limit, func(t *dataset.Transaction) (time.Time, string) {
		return t.Timestamp, t.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"transactions": page,
		"count":        len(page),
		"nextCursor":   next,
		"hasMore":      hasMore,
	})
}

func parseLimit(c *gin.Context, defaultVal, maxVal int) int {
	limit := defaultVal
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxVal {
		limit = maxVal
	}
	return limit
}
