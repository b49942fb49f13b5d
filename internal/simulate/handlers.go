package simulate

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nmehra/riskdesk/internal/decision"
	"github.com/nmehra/riskdesk/internal/validation"
)

// Slider bounds from the analyst console. The HTTP layer enforces each
// field's range but never the ordering between fields.
const (
	blockMin  = 0.5
	blockMax  = 1.0
	reviewMin = 0.1
	reviewMax = 0.9
	trustMin  = 0.0
	trustMax  = 100.0

	thresholdStep = 0.05
	trustStep     = 5.0
)

// Handler provides the simulation API endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new simulation handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up simulation routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/simulations", h.Run)
	r.GET("/simulations/defaults", h.Defaults)
}

// runRequest carries the three policy controls. Omitted fields fall back to
// the default policy, so POST {} scores the baseline.
type runRequest struct {
	BlockThreshold  *float64 `json:"blockThreshold"`
	ReviewThreshold *float64 `json:"reviewThreshold"`
	TrustOverride   *float64 `json:"trustOverride"`
	Months          []string `json:"months"`
}

// Run executes a simulation and returns the decision mix shift.
func (h *Handler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	t := decision.DefaultThresholds()
	if req.BlockThreshold != nil {
		t.Block = *req.BlockThreshold
	}
	if req.ReviewThreshold != nil {
		t.Review = *req.ReviewThreshold
	}
	if req.TrustOverride != nil {
		t.TrustOverride = *req.TrustOverride
	}

	checks := []func() *validation.ValidationError{
		validation.InRange("blockThreshold", t.Block, blockMin, blockMax),
		validation.InRange("reviewThreshold", t.Review, reviewMin, reviewMax),
		validation.InRange("trustOverride", t.TrustOverride, trustMin, trustMax),
	}
	for _, m := range req.Months {
		checks = append(checks, validation.ValidMonth("months", m))
	}
	if errs := validation.Validate(checks...); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "errors": errs})
		return
	}

	res, err := h.svc.Run(c.Request.Context(), Params{Thresholds: t, Months: req.Months})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, res)
}

type bound struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Defaults returns the default policy plus the accepted range and step for
// each control.
func (h *Handler) Defaults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"thresholds": decision.DefaultThresholds(),
		"bounds": gin.H{
			"blockThreshold":  bound{Min: blockMin, Max: blockMax, Step: thresholdStep},
			"reviewThreshold": bound{Min: reviewMin, Max: reviewMax, Step: thresholdStep},
			"trustOverride":   bound{Min: trustMin, Max: trustMax, Step: trustStep},
		},
	})
}
