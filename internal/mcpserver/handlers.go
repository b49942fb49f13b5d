package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// categories is the fixed display order for decision mixes.
var categories = []string{"ALLOW", "REVIEW", "BLOCK"}

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *RiskdeskClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *RiskdeskClient) *Handlers {
	return &Handlers{client: client}
}

// HandleSimulateThresholds re-scores the dataset under a candidate policy.
func (h *Handlers) HandleSimulateThresholds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := SimulationParams{
		Months: splitList(req.GetString("months", "")),
	}

	args := req.GetArguments()
	if v, ok := argFloat(args, "block_threshold"); ok {
		params.BlockThreshold = &v
	}
	if v, ok := argFloat(args, "review_threshold"); ok {
		params.ReviewThreshold = &v
	}
	if v, ok := argFloat(args, "trust_override"); ok {
		params.TrustOverride = &v
	}

	raw, err := h.client.Simulate(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Simulation failed: %v", err)), nil
	}

	text, err := formatSimulation(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse simulation result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetOverview returns dataset totals and the monthly decision mix.
func (h *Handlers) HandleGetOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	months := splitList(req.GetString("months", ""))

	raw, err := h.client.Overview(ctx, months)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get overview: %v", err)), nil
	}

	text, err := formatOverview(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse overview: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetRiskHistogram returns the risk score distribution.
func (h *Handlers) HandleGetRiskHistogram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	months := splitList(req.GetString("months", ""))
	bins := req.GetInt("bins", 0)

	raw, err := h.client.Histogram(ctx, months, bins)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get histogram: %v", err)), nil
	}

	text, err := formatHistogram(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse histogram: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListRiskyCorridors returns corridors ranked by mean risk.
func (h *Handlers) HandleListRiskyCorridors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	months := splitList(req.GetString("months", ""))
	limit := req.GetInt("limit", 0)

	raw, err := h.client.Corridors(ctx, months, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list corridors: %v", err)), nil
	}

	text, err := formatCorridors(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse corridors: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleSearchTransactions lists stored transactions matching the filters.
func (h *Handlers) HandleSearchTransactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	months := splitList(req.GetString("months", ""))
	decisions := splitList(req.GetString("decisions", ""))
	limit := req.GetInt("limit", 20)

	minRisk := 0.0
	if v, ok := argFloat(req.GetArguments(), "min_risk"); ok {
		minRisk = v
	}

	raw, err := h.client.Transactions(ctx, months, decisions, minRisk, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	text, err := formatTransactions(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse transactions: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// --- Argument helpers ---

// splitList turns a comma-separated argument into a slice, dropping blanks.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// argFloat reads an optional numeric argument, distinguishing absent from
// zero so omitted thresholds keep the stored policy.
func argFloat(args map[string]any, key string) (float64, bool) {
	if v, ok := args[key]; ok {
		if f, ok := v.(float64); ok {
			return f, true
		}
	}
	return 0, false
}

// --- Formatting helpers ---

type mixShift struct {
	OriginalPct  float64 `json:"originalPct"`
	SimulatedPct float64 `json:"simulatedPct"`
	DeltaPct     float64 `json:"deltaPct"`
}

type simulationResult struct {
	SimulationID string `json:"simulationId"`
	Thresholds   struct {
		Block         float64 `json:"blockThreshold"`
		Review        float64 `json:"reviewThreshold"`
		TrustOverride float64 `json:"trustOverride"`
	} `json:"thresholds"`
	Months  []string            `json:"months"`
	Total   int                 `json:"total"`
	Changed int                 `json:"changed"`
	Mix     map[string]mixShift `json:"mix"`
}

func formatSimulation(raw json.RawMessage) (string, error) {
	var res simulationResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Policy: block >= %g, review >= %g, trust override >= %g\n",
		res.Thresholds.Block, res.Thresholds.Review, res.Thresholds.TrustOverride)
	if len(res.Months) > 0 {
		fmt.Fprintf(&sb, "Scope: %s\n", strings.Join(res.Months, ", "))
	}

	if res.Total == 0 {
		sb.WriteString("\nThe scoped dataset is empty; nothing to score.")
		return sb.String(), nil
	}

	changedPct := 100 * float64(res.Changed) / float64(res.Total)
	fmt.Fprintf(&sb, "\nScored %d transaction(s); %d decision(s) changed (%.1f%%)\n", res.Total, res.Changed, changedPct)

	sb.WriteString("\nDecision mix (original -> simulated):\n")
	for _, cat := range categories {
		s := res.Mix[cat]
		fmt.Fprintf(&sb, "  %-6s %6.2f%% -> %6.2f%%  (%+.2f)\n", cat, s.OriginalPct, s.SimulatedPct, s.DeltaPct)
	}

	return sb.String(), nil
}

type overviewResult struct {
	TotalTransactions  int      `json:"totalTransactions"`
	UniqueCustomers    int      `json:"uniqueCustomers"`
	UniqueDestinations int      `json:"uniqueDestinations"`
	TotalAmount        float64  `json:"totalAmount"`
	Months             []string `json:"months"`
	MonthlyMix         []struct {
		Month string             `json:"month"`
		Count int                `json:"count"`
		Mix   map[string]float64 `json:"mix"`
	} `json:"monthlyMix"`
}

func formatOverview(raw json.RawMessage) (string, error) {
	var ov overviewResult
	if err := json.Unmarshal(raw, &ov); err != nil {
		return "", err
	}

	if ov.TotalTransactions == 0 {
		return "The dataset is empty. Load monthly CSV exports to get started.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset: %d transaction(s), %d customer(s), %d destination(s), total amount %.2f\n",
		ov.TotalTransactions, ov.UniqueCustomers, ov.UniqueDestinations, ov.TotalAmount)
	fmt.Fprintf(&sb, "Months loaded: %s\n", strings.Join(ov.Months, ", "))

	sb.WriteString("\nDecision mix by month (ALLOW / REVIEW / BLOCK %):\n")
	for _, m := range ov.MonthlyMix {
		fmt.Fprintf(&sb, "  %s: %.2f / %.2f / %.2f  (%d rows)\n",
			m.Month, m.Mix["ALLOW"], m.Mix["REVIEW"], m.Mix["BLOCK"], m.Count)
	}

	return sb.String(), nil
}

type histogramResult struct {
	Bins []struct {
		Lo    float64 `json:"lo"`
		Hi    float64 `json:"hi"`
		Count int     `json:"count"`
	} `json:"bins"`
	Total int `json:"total"`
}

const maxBarWidth = 40

func formatHistogram(raw json.RawMessage) (string, error) {
	var hist histogramResult
	if err := json.Unmarshal(raw, &hist); err != nil {
		return "", err
	}

	if hist.Total == 0 {
		return "The dataset is empty; no risk scores to plot.", nil
	}

	maxCount := 0
	for _, b := range hist.Bins {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk score distribution (%d transactions, %d buckets):\n", hist.Total, len(hist.Bins))
	for i, b := range hist.Bins {
		// Final bucket is closed on 1.0
		bracket := ")"
		if i == len(hist.Bins)-1 {
			bracket = "]"
		}
		bar := barFor(b.Count, maxCount)
		fmt.Fprintf(&sb, "  [%.2f, %.2f%s %s %d\n", b.Lo, b.Hi, bracket, bar, b.Count)
	}

	return sb.String(), nil
}

func barFor(count, maxCount int) string {
	if count == 0 || maxCount == 0 {
		return ""
	}
	width := count * maxBarWidth / maxCount
	if width < 1 {
		width = 1
	}
	return strings.Repeat("#", width)
}

type corridorsResult struct {
	Corridors []struct {
		Corridor string  `json:"corridor"`
		Count    int     `json:"count"`
		MeanRisk float64 `json:"meanRisk"`
	} `json:"corridors"`
	Count int `json:"count"`
}

func formatCorridors(raw json.RawMessage) (string, error) {
	var res corridorsResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", err
	}

	if len(res.Corridors) == 0 {
		return "No corridors found; the scoped dataset is empty.", nil
	}

	var sb strings.Builder
	sb.WriteString("Corridors by mean risk (highest first):\n")
	for i, c := range res.Corridors {
		fmt.Fprintf(&sb, "  %d. %s  mean risk %.4f  (%d transaction(s))\n", i+1, c.Corridor, c.MeanRisk, c.Count)
	}

	return sb.String(), nil
}

type transactionsResult struct {
	Transactions []struct {
		ID                 string    `json:"id"`
		Timestamp          time.Time `json:"timestamp"`
		OriginCountry      string    `json:"originCountry"`
		DestinationCountry string    `json:"destinationCountry"`
		Amount             float64   `json:"amount"`
		RiskScore          float64   `json:"riskScore"`
		TrustScore         float64   `json:"trustScore"`
		Decision           string    `json:"decision"`
	} `json:"transactions"`
	Count int `json:"count"`
}

func formatTransactions(raw json.RawMessage) (string, error) {
	var res transactionsResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", err
	}

	if res.Count == 0 {
		return "No transactions matched your filters.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d transaction(s), highest risk first:\n", res.Count)
	for i, t := range res.Transactions {
		fmt.Fprintf(&sb, "  %d. %s  %s  %s->%s  amount %.2f  risk %.2f  trust %.0f  %s\n",
			i+1, t.ID, t.Timestamp.UTC().Format("2006-01-02"),
			t.OriginCountry, t.DestinationCountry,
			t.Amount, t.RiskScore, t.TrustScore, t.Decision)
	}

	return sb.String(), nil
}
