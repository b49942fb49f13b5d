package riskdesk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "code and message",
			err:  &Error{StatusCode: 400, Code: "invalid_month", Message: "months must be in YYYY-MM format"},
			want: "invalid_month: months must be in YYYY-MM format",
		},
		{
			name: "field errors",
			err: &Error{StatusCode: 400, Code: "validation_failed", Fields: []FieldError{
				{Field: "blockThreshold", Message: "must be between 0.5 and 1"},
			}},
			want: "validation_failed: blockThreshold: must be between 0.5 and 1",
		},
		{
			name: "bare code",
			err:  &Error{StatusCode: 404, Code: "not_found"},
			want: "not_found (HTTP 404)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&Error{StatusCode: http.StatusNotFound, Code: "not_found"}))
	assert.False(t, IsNotFound(&Error{StatusCode: http.StatusBadRequest, Code: "invalid_month"}))
	assert.False(t, IsNotFound(io.EOF))
	assert.False(t, IsNotFound(nil))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(&Error{StatusCode: http.StatusTooManyRequests, Code: "rate_limit_exceeded"}))
	assert.False(t, IsRateLimited(&Error{StatusCode: http.StatusNotFound, Code: "not_found"}))
}

func TestFloat(t *testing.T) {
	p := Float(0.85)
	require.NotNil(t, p)
	assert.Equal(t, 0.85, *p)
}

// Integration-style tests with mock server

func TestClient_Simulate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/simulations", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var m map[string]any
		require.NoError(t, json.Unmarshal(body, &m))
		assert.Equal(t, 0.85, m["blockThreshold"])
		_, hasTrust := m["trustOverride"]
		assert.False(t, hasTrust, "omitted controls stay out of the body")

		_, _ = w.Write([]byte(`{
			"simulationId": "sim_0a1b2c3d4e5f60718293a4b5",
			"thresholds": {"blockThreshold": 0.85, "reviewThreshold": 0.6, "trustOverride": 70},
			"total": 1200,
			"changed": 90,
			"originalCounts": {"ALLOW": 900, "REVIEW": 180, "BLOCK": 120},
			"simulatedCounts": {"ALLOW": 900, "REVIEW": 150, "BLOCK": 150},
			"mix": {"BLOCK": {"originalPct": 10, "simulatedPct": 12.5, "deltaPct": 2.5}},
			"shards": 4,
			"elapsedMs": 3,
			"completedAt": "2025-03-01T12:00:00Z"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	res, err := client.Simulate(context.Background(), SimulationParams{
		BlockThreshold: Float(0.85),
	})
	require.NoError(t, err)
	assert.Equal(t, "sim_0a1b2c3d4e5f60718293a4b5", res.SimulationID)
	assert.Equal(t, 1200, res.Total)
	assert.Equal(t, 90, res.Changed)
	assert.Equal(t, 150, res.SimulatedCounts["BLOCK"])
	assert.Equal(t, 2.5, res.Mix["BLOCK"].DeltaPct)
}

func TestClient_Defaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/simulations/defaults", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"thresholds": {"blockThreshold": 0.9, "reviewThreshold": 0.6, "trustOverride": 70},
			"bounds": {
				"blockThreshold": {"min": 0.5, "max": 1, "step": 0.05},
				"trustOverride": {"min": 0, "max": 100, "step": 5}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	res, err := client.Defaults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.9, res.Thresholds.Block)
	assert.Equal(t, 1.0, res.Bounds["blockThreshold"].Max)
	assert.Equal(t, 5.0, res.Bounds["trustOverride"].Step)
}

func TestClient_Overview_MonthScope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analytics/overview", r.URL.Path)
		assert.Equal(t, []string{"2025-01", "2025-02"}, r.URL.Query()["months"])
		_, _ = w.Write([]byte(`{
			"totalTransactions": 640,
			"uniqueCustomers": 212,
			"uniqueDestinations": 14,
			"totalAmount": 81234.50,
			"months": ["2025-01", "2025-02"],
			"monthlyMix": [{"month": "2025-01", "count": 320, "mix": {"ALLOW": 75, "REVIEW": 15, "BLOCK": 10}}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	res, err := client.Overview(context.Background(), "2025-01", "2025-02")
	require.NoError(t, err)
	assert.Equal(t, 640, res.TotalTransactions)
	require.Len(t, res.MonthlyMix, 1)
	assert.Equal(t, 75.0, res.MonthlyMix[0].Mix["ALLOW"])
}

func TestClient_Histogram(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analytics/histogram", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("bins"))
		_, _ = w.Write([]byte(`{"bins": [{"lo": 0, "hi": 0.1, "count": 42}], "total": 42}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	res, err := client.Histogram(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 42, res.Total)
	require.Len(t, res.Bins, 1)
	assert.Equal(t, 0.1, res.Bins[0].Hi)
}

func TestClient_Corridors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analytics/corridors", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{
			"corridors": [
				{"corridor": "Nigeria->United Kingdom", "origin": "Nigeria", "destination": "United Kingdom", "count": 3, "meanRisk": 0.91},
				{"corridor": "Ghana->Germany", "origin": "Ghana", "destination": "Germany", "count": 5, "meanRisk": 0.44}
			],
			"count": 2
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	corridors, err := client.Corridors(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, corridors, 2)
	assert.Equal(t, "Nigeria->United Kingdom", corridors[0].Corridor)
	assert.Equal(t, 0.91, corridors[0].MeanRisk)
}

func TestClient_Transactions_Filters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, []string{"2025-01"}, r.URL.Query()["months"])
		assert.Equal(t, []string{"REVIEW", "BLOCK"}, r.URL.Query()["decisions"])
		assert.Equal(t, "0.75", r.URL.Query().Get("minRisk"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{
			"transactions": [
				{"id": "txn-91", "timestamp": "2025-01-15T10:00:00Z", "customerId": "c1",
				 "originCountry": "Nigeria", "destinationCountry": "United Kingdom",
				 "amount": 120, "riskScore": 0.95, "trustScore": 20, "decision": "BLOCK", "month": "2025-01"}
			],
			"count": 1
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	txns, err := client.Transactions(context.Background(), TransactionFilter{
		Months:    []string{"2025-01"},
		Decisions: []string{"REVIEW", "BLOCK"},
		MinRisk:   0.75,
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "txn-91", txns[0].ID)
	assert.Equal(t, "BLOCK", txns[0].Decision)
}

func TestClient_Transaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "not_found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Transaction(context.Background(), "txn-missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClient_Feed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/feed", r.URL.Path)
		assert.Equal(t, "abc123", r.URL.Query().Get("cursor"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{
			"transactions": [
				{"id": "txn-3", "timestamp": "2025-01-15T12:00:00Z", "decision": "ALLOW", "month": "2025-01"},
				{"id": "txn-2", "timestamp": "2025-01-15T11:00:00Z", "decision": "REVIEW", "month": "2025-01"}
			],
			"count": 2,
			"nextCursor": "def456",
			"hasMore": true
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	page, err := client.Feed(context.Background(), "abc123", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, "def456", page.NextCursor)
	assert.True(t, page.HasMore)
}

func TestClient_RetryOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": "rate_limit_exceeded", "message": "Too many requests. Please slow down."}`))
			return
		}
		_, _ = w.Write([]byte(`{"totalTransactions": 3, "months": ["2025-01"]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.RetryWait = time.Millisecond
	var hookWait time.Duration
	client.OnRateLimit = func(wait time.Duration) { hookWait = wait }

	res, err := client.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalTransactions)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, time.Millisecond, hookWait)
}

func TestClient_RetryDisabled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate_limit_exceeded", "message": "Too many requests. Please slow down."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.MaxRetries = 0

	_, err := client.Overview(context.Background())
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Defaults(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "http_error", apiErr.Code)
	assert.Equal(t, "upstream timeout", apiErr.Message)
}

// Benchmark

func BenchmarkDecodeSimulationResult(b *testing.B) {
	body := []byte(`{
		"simulationId": "sim_0a1b2c3d4e5f60718293a4b5",
		"thresholds": {"blockThreshold": 0.85, "reviewThreshold": 0.6, "trustOverride": 70},
		"total": 1200,
		"changed": 90,
		"originalCounts": {"ALLOW": 900, "REVIEW": 180, "BLOCK": 120},
		"simulatedCounts": {"ALLOW": 900, "REVIEW": 150, "BLOCK": 150},
		"mix": {
			"ALLOW": {"originalPct": 75, "simulatedPct": 75, "deltaPct": 0},
			"REVIEW": {"originalPct": 15, "simulatedPct": 12.5, "deltaPct": -2.5},
			"BLOCK": {"originalPct": 10, "simulatedPct": 12.5, "deltaPct": 2.5}
		},
		"shards": 4,
		"elapsedMs": 3,
		"completedAt": "2025-03-01T12:00:00Z"
	}`)

	for i := 0; i < b.N; i++ {
		var res SimulationResult
		_ = json.Unmarshal(body, &res)
	}
}
