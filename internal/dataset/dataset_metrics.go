package dataset

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BatchesLoaded counts ingested CSV batches.
	BatchesLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskdesk",
		Name:      "dataset_batches_loaded_total",
		Help:      "Total CSV batches ingested.",
	})

	// RowsLoaded counts rows read from ingested batches.
	RowsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "riskdesk",
		Name:      "dataset_rows_loaded_total",
		Help:      "Total transaction rows read from ingested batches.",
	})

	// TransactionsStored tracks the current dataset size.
	TransactionsStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "riskdesk",
		Name:      "dataset_transactions",
		Help:      "Number of transactions currently in the store.",
	})

	// TransactionsByDecision tracks dataset size per original decision.
	TransactionsByDecision = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "riskdesk",
			Name:      "dataset_transactions_by_decision",
			Help:      "Number of stored transactions per original decision.",
		},
		[]string{"decision"},
	)
)

func init() {
	prometheus.MustRegister(
		BatchesLoaded,
		RowsLoaded,
		TransactionsStored,
		TransactionsByDecision,
	)
}

// StartStatsCollector periodically samples store counts into the dataset
// gauges. Call in a goroutine; exits when ctx is done.
func StartStatsCollector(ctx context.Context, store Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if total, err := store.Count(ctx); err == nil {
				TransactionsStored.Set(float64(total))
			}
			if counts, err := store.CountByDecision(ctx); err == nil {
				for d, n := range counts {
					TransactionsByDecision.WithLabelValues(string(d)).Set(float64(n))
				}
			}
		}
	}
}
