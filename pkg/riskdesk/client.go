package riskdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client wraps http.Client with typed access to the riskdesk API and
// automatic retry when the server rate-limits.
type Client struct {
	httpClient *http.Client
	baseURL    string

	// Configuration
	MaxRetries int           // Max retries after a 429 (default: 1)
	RetryWait  time.Duration // Wait when the server names no delay (default: 1s)
	UserAgent  string        // Sent as User-Agent when non-empty

	// Hooks
	OnRateLimit func(wait time.Duration) // Called before each retry sleep
}

// NewClient creates a client for the riskdesk API at baseURL,
// e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		MaxRetries: 1,
		RetryWait:  time.Second,
	}
}

// Simulate re-scores the dataset under a candidate policy. Nothing is
// persisted server-side.
func (c *Client) Simulate(ctx context.Context, params SimulationParams) (*SimulationResult, error) {
	var res SimulationResult
	if err := c.do(ctx, http.MethodPost, "/v1/simulations", nil, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Defaults returns the stored policy and the accepted range for each
// control.
func (c *Client) Defaults(ctx context.Context) (*Defaults, error) {
	var res Defaults
	if err := c.do(ctx, http.MethodGet, "/v1/simulations/defaults", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Overview returns dataset totals and the per-month decision mix,
// optionally scoped to the given YYYY-MM months.
func (c *Client) Overview(ctx context.Context, months ...string) (*Overview, error) {
	var res Overview
	if err := c.do(ctx, http.MethodGet, "/v1/analytics/overview", monthsQuery(months), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Histogram returns the risk score distribution. bins <= 0 keeps the
// server default of 20.
func (c *Client) Histogram(ctx context.Context, bins int, months ...string) (*Histogram, error) {
	q := monthsQuery(months)
	if bins > 0 {
		q.Set("bins", strconv.Itoa(bins))
	}
	var res Histogram
	if err := c.do(ctx, http.MethodGet, "/v1/analytics/histogram", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Corridors returns origin->destination pairs ranked by mean risk,
// highest first. limit <= 0 keeps the server default of 5.
func (c *Client) Corridors(ctx context.Context, limit int, months ...string) ([]Corridor, error) {
	q := monthsQuery(months)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res struct {
		Corridors []Corridor `json:"corridors"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/analytics/corridors", q, nil, &res); err != nil {
		return nil, err
	}
	return res.Corridors, nil
}

// Transactions lists stored transactions matching the filter, highest
// risk first.
func (c *Client) Transactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	q := monthsQuery(filter.Months)
	for _, d := range filter.Decisions {
		q.Add("decisions", d)
	}
	if filter.MinRisk > 0 {
		q.Set("minRisk", strconv.FormatFloat(filter.MinRisk, 'f', -1, 64))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	var res struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/transactions", q, nil, &res); err != nil {
		return nil, err
	}
	return res.Transactions, nil
}

// Transaction fetches a single transaction by ID. Use IsNotFound to tell
// a missing record from other failures.
func (c *Client) Transaction(ctx context.Context, id string) (*Transaction, error) {
	var res Transaction
	path := "/v1/transactions/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Feed returns the most recent transactions. Pass the previous page's
// NextCursor to continue; an empty cursor starts from the newest record.
// limit <= 0 keeps the server default of 50.
func (c *Client) Feed(ctx context.Context, cursor string, limit int) (*TransactionPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res TransactionPage
	if err := c.do(ctx, http.MethodGet, "/v1/transactions/feed", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do performs one API call, retrying after 429s up to MaxRetries times.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	// Marshal the body once; retries reuse the same bytes
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		var reqBody io.Reader
		if bodyBytes != nil {
			reqBody = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 400 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}

		apiErr := &Error{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = "http_error"
			apiErr.Message = strings.TrimSpace(string(respBody))
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.MaxRetries {
			return apiErr
		}

		wait := c.RetryWait
		if apiErr.RetryAfter > 0 {
			wait = time.Duration(apiErr.RetryAfter) * time.Second
		}
		if c.OnRateLimit != nil {
			c.OnRateLimit(wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func monthsQuery(months []string) url.Values {
	q := url.Values{}
	for _, m := range months {
		q.Add("months", m)
	}
	return q
}
