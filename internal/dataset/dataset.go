// Package dataset holds the pre-scored cross-border transactions the service
// analyzes and simulates over.
//
// Records arrive as monthly CSV batches exported by the upstream scoring
// pipeline and are immutable once ingested. Simulated decisions are derived
// transiently elsewhere and never written back here.
package dataset

import (
	"context"
	"errors"
	"time"

	"github.com/nmehra/riskdesk/internal/decision"
)

var (
	ErrTransactionNotFound = errors.New("dataset: transaction not found")
	ErrEmptyBatch          = errors.New("dataset: empty batch")
)

// Transaction is one scored cross-border payment.
type Transaction struct {
	ID                 string            `json:"id"`
	Timestamp          time.Time         `json:"timestamp"`
	CustomerID         string            `json:"customerId"`
	OriginCountry      string            `json:"originCountry"`
	DestinationCountry string            `json:"destinationCountry"`
	Amount             float64           `json:"amount"`
	RiskScore          float64           `json:"riskScore"`
	TrustScore         float64           `json:"trustScore"`
	Decision           decision.Decision `json:"decision"`
	ReasonCodes        []string          `json:"reasonCodes,omitempty"`
	Month              string            `json:"month"`
}

// Corridor labels the origin -> destination pair for aggregation.
func (t *Transaction) Corridor() string {
	return t.OriginCountry + "->" + t.DestinationCountry
}

// MonthOf derives the batch month label from a timestamp.
func MonthOf(ts time.Time) string {
	return ts.UTC().Format("2006-01")
}

// Query filters a transaction listing. Zero values mean "no filter";
// Limit <= 0 leaves the result uncapped (callers cap it).
type Query struct {
	Months    []string
	Decisions []decision.Decision
	MinRisk   float64
	Limit     int
}

// Store is the persistence interface for ingested transactions.
// Snapshot hands the caller its own materialized copy of the dataset, so
// simulations and analytics never share mutable state with the store.
type Store interface {
	InsertBatch(ctx context.Context, txns []*Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	// List returns transactions matching the query, highest risk first.
	List(ctx context.Context, q Query) ([]*Transaction, error)
	// ListRecent returns transactions strictly older than (before, beforeID)
	// in reverse timestamp order. A zero before starts from the newest.
	ListRecent(ctx context.Context, before time.Time, beforeID string, limit int) ([]*Transaction, error)
	// Snapshot returns a copy of the dataset, optionally restricted to the
	// given months; nil or empty months means everything.
	Snapshot(ctx context.Context, months []string) ([]*Transaction, error)
	Count(ctx context.Context) (int64, error)
	CountByDecision(ctx context.Context) (map[decision.Decision]int64, error)
	Ping(ctx context.Context) error
}

func matches(t *Transaction, q Query) bool {
	if len(q.Months) > 0 && !containsString(q.Months, t.Month) {
		return false
	}
	if len(q.Decisions) > 0 && !containsDecision(q.Decisions, t.Decision) {
		return false
	}
	if t.RiskScore < q.MinRisk {
		return false
	}
	return true
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsDecision(set []decision.Decision, v decision.Decision) bool {
	for _, d := range set {
		if d == v {
			return true
		}
	}
	return false
}
