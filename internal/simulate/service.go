// Package simulate runs what-if threshold policies against the loaded
// dataset and reports how the decision mix would move.
//
// A run never writes anything back: every simulation re-scores a working
// copy of the dataset and the result lives only in the response. Threshold
// ordering is deliberately not checked here or anywhere below; an inverted
// policy is scored exactly as written.
package simulate

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/nmehra/riskdesk/internal/dataset"
	"github.com/nmehra/riskdesk/internal/decision"
	"github.com/nmehra/riskdesk/internal/idgen"
	"github.com/nmehra/riskdesk/internal/logging"
	"github.com/nmehra/riskdesk/internal/realtime"
	"github.com/nmehra/riskdesk/internal/traces"
)

// Params configure a single simulation run.
type Params struct {
	Thresholds decision.Thresholds `json:"thresholds"`
	Months     []string            `json:"months,omitempty"`
}

// Result summarizes one run: how many records were scored, what the
// simulated decision mix looks like next to the stored one, and how many
// individual records flipped.
type Result struct {
	SimulationID    string                               `json:"simulationId"`
	Thresholds      decision.Thresholds                  `json:"thresholds"`
	Months          []string                             `json:"months,omitempty"`
	Total           int                                  `json:"total"`
	Changed         int                                  `json:"changed"`
	OriginalCounts  map[decision.Decision]int            `json:"originalCounts"`
	SimulatedCounts map[decision.Decision]int            `json:"simulatedCounts"`
	Mix             map[decision.Decision]decision.Shift `json:"mix"`
	Shards          int                                  `json:"shards"`
	ElapsedMS       int64                                `json:"elapsedMs"`
	CompletedAt     time.Time                            `json:"completedAt"`
}

// Service runs simulations against a caller-owned dataset store.
type Service struct {
	store  dataset.Store
	hub    *realtime.Hub
	shards int
}

// NewService creates a simulation service. shards <= 0 means one classifier
// goroutine per CPU. hub may be nil when no event stream is wired.
func NewService(store dataset.Store, hub *realtime.Hub, shards int) *Service {
	return &Service{store: store, hub: hub, shards: shards}
}

// Run scores the dataset under the given thresholds and compares the
// resulting decision mix against the stored decisions.
func (s *Service) Run(ctx context.Context, p Params) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "simulate.run")
	defer span.End()

	start := time.Now()

	snapshot, err := s.store.Snapshot(ctx, p.Months)
	if err != nil {
		return nil, fmt.Errorf("simulate: snapshot: %w", err)
	}

	shards := s.effectiveShards(len(snapshot))
	span.SetAttributes(traces.Shards(shards), traces.TransactionCount(len(snapshot)))

	original := make([]decision.Decision, len(snapshot))
	simulated := make([]decision.Decision, len(snapshot))
	classifyShards(snapshot, p.Thresholds, shards, original, simulated)

	changed := 0
	for i := range original {
		if original[i] != simulated[i] {
			changed++
		}
	}

	mix := decision.Compare(original, simulated)
	roundShifts(mix)

	elapsed := time.Since(start)
	res := &Result{
		SimulationID:    idgen.WithPrefix("sim_"),
		Thresholds:      p.Thresholds,
		Months:          p.Months,
		Total:           len(snapshot),
		Changed:         changed,
		OriginalCounts:  decision.Tally(original),
		SimulatedCounts: decision.Tally(simulated),
		Mix:             mix,
		Shards:          shards,
		ElapsedMS:       elapsed.Milliseconds(),
		CompletedAt:     time.Now().UTC(),
	}

	SimulationsTotal.Inc()
	SimulationDuration.Observe(elapsed.Seconds())
	SimulationRecords.Observe(float64(res.Total))

	if s.hub != nil {
		s.hub.BroadcastSimulationCompleted(map[string]interface{}{
			"simulationId":    res.SimulationID,
			"blockThreshold":  p.Thresholds.Block,
			"reviewThreshold": p.Thresholds.Review,
			"trustOverride":   p.Thresholds.TrustOverride,
			"months":          p.Months,
			"total":           res.Total,
			"changed":         res.Changed,
		})
	}

	logging.L(ctx).Info("simulation completed",
		"simulationId", res.SimulationID,
		"total", res.Total,
		"changed", res.Changed,
		"shards", shards,
		"elapsedMs", res.ElapsedMS,
	)

	return res, nil
}

// effectiveShards clamps the configured shard count to something useful for
// this run: at least one, at most one per record.
func (s *Service) effectiveShards(records int) int {
	n := s.shards
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	if records > 0 && n > records {
		n = records
	}
	return n
}

// classifyShards scores every record across n goroutines. Records are
// independent, so each goroutine owns a disjoint index range of the
// pre-allocated result slices and the final join is the only
// synchronization.
func classifyShards(snapshot []*dataset.Transaction, t decision.Thresholds, n int, original, simulated []decision.Decision) {
	if len(snapshot) == 0 {
		return
	}
	if n > len(snapshot) {
		n = len(snapshot)
	}

	chunk := (len(snapshot) + n - 1) / n
	var wg sync.WaitGroup
	for lo := 0; lo < len(snapshot); lo += chunk {
		hi := lo + chunk
		if hi > len(snapshot) {
			hi = len(snapshot)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				tx := snapshot[i]
				original[i] = tx.Decision
				simulated[i] = decision.Classify(tx.RiskScore, tx.TrustScore, t)
			}
		}(lo, hi)
	}
	wg.Wait()
}

// roundShifts trims each share to two decimals for presentation. The core
// comparator stays unrounded; only the API payload is shaped here.
func roundShifts(mix map[decision.Decision]decision.Shift) {
	for k, v := range mix {
		v.OriginalPct = round2(v.OriginalPct)
		v.SimulatedPct = round2(v.SimulatedPct)
		v.DeltaPct = round2(v.DeltaPct)
		mix[k] = v
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
