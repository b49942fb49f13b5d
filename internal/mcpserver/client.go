package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the connection settings for the riskdesk API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// RiskdeskClient is a pure HTTP client for the riskdesk API. It never
// touches the store directly; everything goes through the /v1 endpoints.
type RiskdeskClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewRiskdeskClient creates a new client for the riskdesk API.
func NewRiskdeskClient(cfg Config) *RiskdeskClient {
	return &RiskdeskClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *RiskdeskClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// SimulationParams mirrors the POST /v1/simulations request body. Nil
// threshold fields fall back to the stored policy server-side.
type SimulationParams struct {
	BlockThreshold  *float64 `json:"blockThreshold,omitempty"`
	ReviewThreshold *float64 `json:"reviewThreshold,omitempty"`
	TrustOverride   *float64 `json:"trustOverride,omitempty"`
	Months          []string `json:"months,omitempty"`
}

// Simulate re-scores the dataset under a candidate threshold policy.
func (c *RiskdeskClient) Simulate(ctx context.Context, params SimulationParams) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/simulations", nil, params)
}

// Defaults returns the stored thresholds and the per-field bounds.
func (c *RiskdeskClient) Defaults(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/simulations/defaults", nil, nil)
}

// Overview returns dataset totals and the per-month decision mix.
func (c *RiskdeskClient) Overview(ctx context.Context, months []string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/analytics/overview", monthsQuery(months), nil)
}

// Histogram returns the risk score distribution. bins <= 0 keeps the
// server default.
func (c *RiskdeskClient) Histogram(ctx context.Context, months []string, bins int) (json.RawMessage, error) {
	q := monthsQuery(months)
	if bins > 0 {
		q.Set("bins", strconv.Itoa(bins))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/analytics/histogram", q, nil)
}

// Corridors returns origin->destination pairs ranked by mean risk.
func (c *RiskdeskClient) Corridors(ctx context.Context, months []string, limit int) (json.RawMessage, error) {
	q := monthsQuery(months)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/analytics/corridors", q, nil)
}

// Transactions lists stored transactions matching the filters, highest
// risk first.
func (c *RiskdeskClient) Transactions(ctx context.Context, months, decisions []string, minRisk float64, limit int) (json.RawMessage, error) {
	q := monthsQuery(months)
	for _, d := range decisions {
		q.Add("decisions", d)
	}
	if minRisk > 0 {
		q.Set("minRisk", strconv.FormatFloat(minRisk, 'f', -1, 64))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/transactions", q, nil)
}

func monthsQuery(months []string) url.Values {
	q := url.Values{}
	for _, m := range months {
		q.Add("months", m)
	}
	return q
}
