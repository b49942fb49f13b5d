// Package riskdesk is a typed Go client for the riskdesk HTTP API.
// This is the foundation for dashboards and agents built on top of a
// riskdesk server.
package riskdesk

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Thresholds is the three-control decision policy.
type Thresholds struct {
	Block         float64 `json:"blockThreshold"`
	Review        float64 `json:"reviewThreshold"`
	TrustOverride float64 `json:"trustOverride"`
}

// SimulationParams selects the candidate policy and month scope for one
// simulation run. Nil threshold fields keep the stored policy; empty
// months scope the whole dataset.
type SimulationParams struct {
	BlockThreshold  *float64 `json:"blockThreshold,omitempty"`
	ReviewThreshold *float64 `json:"reviewThreshold,omitempty"`
	TrustOverride   *float64 `json:"trustOverride,omitempty"`
	Months          []string `json:"months,omitempty"`
}

// Float returns a pointer to v, for filling SimulationParams fields.
func Float(v float64) *float64 { return &v }

// Shift is the original vs simulated share of one decision category.
type Shift struct {
	OriginalPct  float64 `json:"originalPct"`
	SimulatedPct float64 `json:"simulatedPct"`
	DeltaPct     float64 `json:"deltaPct"`
}

// SimulationResult is the outcome of one simulation run.
type SimulationResult struct {
	SimulationID    string           `json:"simulationId"`
	Thresholds      Thresholds       `json:"thresholds"`
	Months          []string         `json:"months,omitempty"`
	Total           int              `json:"total"`
	Changed         int              `json:"changed"`
	OriginalCounts  map[string]int   `json:"originalCounts"`
	SimulatedCounts map[string]int   `json:"simulatedCounts"`
	Mix             map[string]Shift `json:"mix"`
	Shards          int              `json:"shards"`
	ElapsedMS       int64            `json:"elapsedMs"`
	CompletedAt     time.Time        `json:"completedAt"`
}

// Bound is the accepted range and UI step for one policy control.
type Bound struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Defaults is the stored policy plus the per-control bounds.
type Defaults struct {
	Thresholds Thresholds       `json:"thresholds"`
	Bounds     map[string]Bound `json:"bounds"`
}

// MonthMix is the decision mix for a single month.
type MonthMix struct {
	Month string             `json:"month"`
	Count int                `json:"count"`
	Mix   map[string]float64 `json:"mix"`
}

// Overview summarizes the loaded dataset.
type Overview struct {
	TotalTransactions  int        `json:"totalTransactions"`
	UniqueCustomers    int        `json:"uniqueCustomers"`
	UniqueDestinations int        `json:"uniqueDestinations"`
	TotalAmount        float64    `json:"totalAmount"`
	Months             []string   `json:"months"`
	MonthlyMix         []MonthMix `json:"monthlyMix"`
}

// Bin is a single histogram bucket over [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram is the risk score distribution.
type Histogram struct {
	Bins  []Bin `json:"bins"`
	Total int   `json:"total"`
}

// Corridor aggregates one origin->destination pair.
type Corridor struct {
	Corridor    string  `json:"corridor"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Count       int     `json:"count"`
	MeanRisk    float64 `json:"meanRisk"`
}

// Transaction is a scored cross-border transaction.
type Transaction struct {
	ID                 string    `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	CustomerID         string    `json:"customerId"`
	OriginCountry      string    `json:"originCountry"`
	DestinationCountry string    `json:"destinationCountry"`
	Amount             float64   `json:"amount"`
	RiskScore          float64   `json:"riskScore"`
	TrustScore         float64   `json:"trustScore"`
	Decision           string    `json:"decision"`
	ReasonCodes        []string  `json:"reasonCodes,omitempty"`
	Month              string    `json:"month"`
}

// TransactionFilter narrows a transaction search. Zero values mean no
// filter; Limit 0 keeps the server default.
type TransactionFilter struct {
	Months    []string
	Decisions []string
	MinRisk   float64
	Limit     int
}

// TransactionPage is one page of the recent-transactions feed.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Count        int           `json:"count"`
	NextCursor   string        `json:"nextCursor"`
	HasMore      bool          `json:"hasMore"`
}

// FieldError points at a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an error response from the riskdesk API.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"error"`
	Message    string       `json:"message"`
	Fields     []FieldError `json:"errors"`
	RetryAfter int          `json:"retry_after"` // seconds, set on 429s
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case len(e.Fields) > 0:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Fields[0].Field, e.Fields[0].Message)
	default:
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.StatusCode)
	}
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429 from the API.
func IsRateLimited(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
