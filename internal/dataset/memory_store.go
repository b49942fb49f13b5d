package dataset

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nmehra/riskdesk/internal/decision"
)

// MemoryStore is a thread-safe in-memory Store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Transaction
	txns []*Transaction // insertion order
}

// NewMemoryStore creates an empty in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*Transaction),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) InsertBatch(ctx context.Context, txns []*Transaction) error {
	if len(txns) == 0 {
		return ErrEmptyBatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range txns {
		if _, exists := m.byID[t.ID]; exists {
			continue // re-imported batches are idempotent
		}
		c := cloneTransaction(t)
		if c.Month == "" {
			c.Month = MonthOf(c.Timestamp)
		}
		m.byID[c.ID] = c
		m.txns = append(m.txns, c)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.byID[id]
	if !exists {
		return nil, ErrTransactionNotFound
	}
	return cloneTransaction(t), nil
}

func (m *MemoryStore) List(ctx context.Context, q Query) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Transaction, 0)
	for _, t := range m.txns {
		if matches(t, q) {
			result = append(result, cloneTransaction(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RiskScore != result[j].RiskScore {
			return result[i].RiskScore > result[j].RiskScore
		}
		return result[i].ID < result[j].ID
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (m *MemoryStore) ListRecent(ctx context.Context, before time.Time, beforeID string, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Transaction, 0)
	for _, t := range m.txns {
		if !before.IsZero() {
			if t.Timestamp.After(before) {
				continue
			}
			if t.Timestamp.Equal(before) && t.ID >= beforeID {
				continue
			}
		}
		result = append(result, cloneTransaction(t))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) Snapshot(ctx context.Context, months []string) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Transaction, 0, len(m.txns))
	for _, t := range m.txns {
		if len(months) > 0 && !containsString(months, t.Month) {
			continue
		}
		result = append(result, cloneTransaction(t))
	}
	return result, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.txns)), nil
}

func (m *MemoryStore) CountByDecision(ctx context.Context) (map[decision.Decision]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[decision.Decision]int64, len(decision.Categories))
	for _, c := range decision.Categories {
		counts[c] = 0
	}
	for _, t := range m.txns {
		counts[t.Decision]++
	}
	return counts, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func cloneTransaction(t *Transaction) *Transaction {
	c := *t
	if t.ReasonCodes != nil {
		c.ReasonCodes = make([]string, len(t.ReasonCodes))
		copy(c.ReasonCodes, t.ReasonCodes)
	}
	return &c
}
