// Package analytics aggregates the loaded dataset into the dashboard's
// overview, risk histogram, and corridor rankings.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/nmehra/riskdesk/internal/dataset"
	"github.com/nmehra/riskdesk/internal/decision"
)

// DefaultHistogramBins matches the analyst console's fixed 20-bucket view.
const DefaultHistogramBins = 20

// MonthMix is one month's transaction count and decision share.
type MonthMix struct {
	Month string                        `json:"month"`
	Count int                           `json:"count"`
	Mix   map[decision.Decision]float64 `json:"mix"`
}

// Overview summarizes the dataset for the landing view.
type Overview struct {
	TotalTransactions  int        `json:"totalTransactions"`
	UniqueCustomers    int        `json:"uniqueCustomers"`
	UniqueDestinations int        `json:"uniqueDestinations"`
	TotalAmount        float64    `json:"totalAmount"`
	Months             []string   `json:"months"`
	MonthlyMix         []MonthMix `json:"monthlyMix"`
}

// Bin is one histogram bucket over the risk-score axis.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram is the risk-score distribution over [0, 1].
type Histogram struct {
	Bins  []Bin `json:"bins"`
	Total int   `json:"total"`
}

// CorridorStat aggregates one origin->destination pair.
type CorridorStat struct {
	Corridor    string  `json:"corridor"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Count       int     `json:"count"`
	MeanRisk    float64 `json:"meanRisk"`
}

// Service computes aggregates over a caller-owned dataset store.
type Service struct {
	store dataset.Store
}

// NewService creates an analytics service.
func NewService(store dataset.Store) *Service {
	return &Service{store: store}
}

// Overview returns dataset totals and the per-month decision mix. Every
// month's mix carries all three categories, zero when unseen.
func (s *Service) Overview(ctx context.Context, months []string) (*Overview, error) {
	snapshot, err := s.store.Snapshot(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("analytics: snapshot: %w", err)
	}

	customers := make(map[string]struct{})
	destinations := make(map[string]struct{})
	byMonth := make(map[string][]decision.Decision)
	totalAmount := 0.0

	for _, tx := range snapshot {
		customers[tx.CustomerID] = struct{}{}
		destinations[tx.DestinationCountry] = struct{}{}
		byMonth[tx.Month] = append(byMonth[tx.Month], tx.Decision)
		totalAmount += tx.Amount
	}

	monthLabels := make([]string, 0, len(byMonth))
	for m := range byMonth {
		monthLabels = append(monthLabels, m)
	}
	sort.Strings(monthLabels)

	monthly := make([]MonthMix, 0, len(monthLabels))
	for _, m := range monthLabels {
		decisions := byMonth[m]
		mix := decision.Distribution(decisions)
		for c, pct := range mix {
			mix[c] = round2(pct)
		}
		monthly = append(monthly, MonthMix{Month: m, Count: len(decisions), Mix: mix})
	}

	return &Overview{
		TotalTransactions:  len(snapshot),
		UniqueCustomers:    len(customers),
		UniqueDestinations: len(destinations),
		TotalAmount:        round2(totalAmount),
		Months:             monthLabels,
		MonthlyMix:         monthly,
	}, nil
}

// Histogram buckets risk scores into bins equal-width buckets over [0, 1].
// The final bucket is closed on 1.0 so a perfect score still lands inside.
func (s *Service) Histogram(ctx context.Context, months []string, bins int) (*Histogram, error) {
	if bins < 1 {
		bins = DefaultHistogramBins
	}

	snapshot, err := s.store.Snapshot(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("analytics: snapshot: %w", err)
	}

	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = float64(i) / float64(bins)
		out[i].Hi = float64(i+1) / float64(bins)
	}

	for _, tx := range snapshot {
		idx := int(tx.RiskScore * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}

	return &Histogram{Bins: out, Total: len(snapshot)}, nil
}

// TopCorridors ranks origin->destination pairs by mean risk score,
// descending, ties broken by corridor label.
func (s *Service) TopCorridors(ctx context.Context, months []string, limit int) ([]CorridorStat, error) {
	if limit < 1 {
		limit = 5
	}

	snapshot, err := s.store.Snapshot(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("analytics: snapshot: %w", err)
	}

	type agg struct {
		origin      string
		destination string
		count       int
		riskSum     float64
	}
	byCorridor := make(map[string]*agg)
	for _, tx := range snapshot {
		key := tx.Corridor()
		a, ok := byCorridor[key]
		if !ok {
			a = &agg{origin: tx.OriginCountry, destination: tx.DestinationCountry}
			byCorridor[key] = a
		}
		a.count++
		a.riskSum += tx.RiskScore
	}

	stats := make([]CorridorStat, 0, len(byCorridor))
	for key, a := range byCorridor {
		stats = append(stats, CorridorStat{
			Corridor:    key,
			Origin:      a.origin,
			Destination: a.destination,
			Count:       a.count,
			MeanRisk:    round4(a.riskSum / float64(a.count)),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].MeanRisk != stats[j].MeanRisk {
			return stats[i].MeanRisk > stats[j].MeanRisk
		}
		return stats[i].Corridor < stats[j].Corridor
	})

	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
