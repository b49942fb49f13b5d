package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the riskdesk MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolSimulateThresholds = mcp.NewTool("simulate_thresholds",
	mcp.WithDescription(
		"Re-score the stored cross-border transaction dataset under a candidate threshold policy. "+
			"Returns how many decisions would change and the ALLOW/REVIEW/BLOCK mix shift against the "+
			"original decisions. Nothing is persisted. Omitted thresholds keep the stored policy "+
			"(block 0.90, review 0.60, trust override 70)."),
	mcp.WithNumber("block_threshold",
		mcp.Description("Risk score at or above which a transaction is blocked (0.5 to 1.0)")),
	mcp.WithNumber("review_threshold",
		mcp.Description("Risk score at or above which a transaction goes to manual review (0.1 to 0.9)")),
	mcp.WithNumber("trust_override",
		mcp.Description("Customer trust score at or above which a non-blocked transaction is allowed anyway (0 to 100)")),
	mcp.WithString("months",
		mcp.Description("Comma-separated YYYY-MM months to scope the run (e.g. '2025-01,2025-02'). Omit for the whole dataset.")),
)

var ToolGetOverview = mcp.NewTool("get_overview",
	mcp.WithDescription(
		"Get dataset-wide totals for the loaded transactions: row count, unique customers and "+
			"destinations, total amount, and the ALLOW/REVIEW/BLOCK mix per month. "+
			"Use this first to learn what months and volumes are loaded."),
	mcp.WithString("months",
		mcp.Description("Comma-separated YYYY-MM months to scope the overview. Omit for the whole dataset.")),
)

var ToolGetRiskHistogram = mcp.NewTool("get_risk_histogram",
	mcp.WithDescription(
		"Get the distribution of ML risk scores across the dataset as fixed-width buckets over [0, 1]. "+
			"Useful for judging where a block or review threshold would bite."),
	mcp.WithString("months",
		mcp.Description("Comma-separated YYYY-MM months to scope the histogram. Omit for the whole dataset.")),
	mcp.WithNumber("bins",
		mcp.Description("Number of buckets (default 20, max 100)")),
)

var ToolListRiskyCorridors = mcp.NewTool("list_risky_corridors",
	mcp.WithDescription(
		"List origin->destination country corridors ranked by mean ML risk score, highest first. "+
			"Shows which payment routes carry the most fraud risk."),
	mcp.WithString("months",
		mcp.Description("Comma-separated YYYY-MM months to scope the ranking. Omit for the whole dataset.")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of corridors to return (default 5, max 50)")),
)

var ToolSearchTransactions = mcp.NewTool("search_transactions",
	mcp.WithDescription(
		"Search stored transactions, highest risk first. Filter by month, stored decision, and a "+
			"minimum risk score. Returns individual transactions with scores and corridors."),
	mcp.WithString("months",
		mcp.Description("Comma-separated YYYY-MM months to search. Omit for the whole dataset.")),
	mcp.WithString("decisions",
		mcp.Description("Comma-separated stored decisions to match: ALLOW, REVIEW, BLOCK")),
	mcp.WithNumber("min_risk",
		mcp.Description("Only transactions with an ML risk score at or above this value (0 to 1)")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of transactions to return (default 20, max 500)")),
)
