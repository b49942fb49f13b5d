package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nmehra/riskdesk/internal/config"
	"github.com/nmehra/riskdesk/internal/dataset"
	"github.com/nmehra/riskdesk/internal/decision"
	"github.com/nmehra/riskdesk/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "development",
		LogLevel:       "error",
		LogFormat:      "text",
		RateLimitRPM:   1200,
		RateLimitBurst: 100,
	}
}

// seededStore builds an in-memory store with a small january batch.
func seededStore(t *testing.T) dataset.Store {
	t.Helper()

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	txns := []*dataset.Transaction{
		{ID: "txn-1", Timestamp: base, CustomerID: "cust-1", OriginCountry: "Nigeria", DestinationCountry: "United Kingdom", Amount: 120.00, RiskScore: 0.95, TrustScore: 20, Decision: decision.Block},
		{ID: "txn-2", Timestamp: base.Add(time.Hour), CustomerID: "cust-2", OriginCountry: "Ghana", DestinationCountry: "Germany", Amount: 80.00, RiskScore: 0.70, TrustScore: 40, Decision: decision.Review},
		{ID: "txn-3", Timestamp: base.Add(2 * time.Hour), CustomerID: "cust-1", OriginCountry: "Kenya", DestinationCountry: "United States", Amount: 45.50, RiskScore: 0.30, TrustScore: 90, Decision: decision.Allow},
	}

	store := dataset.NewMemoryStore()
	if err := store.InsertBatch(context.Background(), txns); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}
	return store
}

// newTestServer creates a server backed by a seeded in-memory store
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(),
		WithLogger(logging.New("error", "text")),
		WithStore(seededStore(t)),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Checks []struct {
			Name    string `json:"name"`
			Healthy bool   `json:"healthy"`
			Detail  string `json:"detail"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp.Status)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("Expected 2 checks, got %d", len(resp.Checks))
	}
	if resp.Checks[0].Name != "database" || !resp.Checks[0].Healthy {
		t.Errorf("Expected healthy database check, got %+v", resp.Checks[0])
	}
	if resp.Checks[1].Name != "dataset" || resp.Checks[1].Detail != "3 transactions" {
		t.Errorf("Expected dataset check with row count, got %+v", resp.Checks[1])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/ws",
		"POST:/v1/simulations",
		"GET:/v1/simulations/defaults",
		"GET:/v1/analytics/overview",
		"GET:/v1/analytics/histogram",
		"GET:/v1/analytics/corridors",
		"GET:/v1/transactions",
		"GET:/v1/transactions/feed",
		"GET:/v1/transactions/:id",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// End-to-end wiring tests
// ---------------------------------------------------------------------------

func TestSimulationThroughRouter(t *testing.T) {
	s := newTestServer(t)

	body := `{"blockThreshold": 0.5, "reviewThreshold": 0.1, "trustOverride": 100}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/simulations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SimulationID string `json:"simulationId"`
		Total        int    `json:"total"`
		Changed      int    `json:"changed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.Total != 3 {
		t.Errorf("Expected total 3, got %d", resp.Total)
	}
	// Tightened policy: 0.70 and 0.30 cross the 0.5 block line
	if resp.Changed != 2 {
		t.Errorf("Expected 2 changed decisions, got %d", resp.Changed)
	}
	if !strings.HasPrefix(resp.SimulationID, "sim_") {
		t.Errorf("Expected sim_ id prefix, got %q", resp.SimulationID)
	}
}

func TestOverviewThroughRouter(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/analytics/overview", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		TotalTransactions int      `json:"totalTransactions"`
		Months            []string `json:"months"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp.TotalTransactions != 3 {
		t.Errorf("Expected 3 transactions, got %d", resp.TotalTransactions)
	}
	if len(resp.Months) != 1 || resp.Months[0] != "2025-01" {
		t.Errorf("Expected months [2025-01], got %v", resp.Months)
	}
}

// ---------------------------------------------------------------------------
// Middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-from-lb")
	s.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-from-lb" {
		t.Errorf("Expected upstream request ID to be kept, got %q", got)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("Expected nosniff header, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
