package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/nmehra/riskdesk/internal/decision"
)

// PostgresStore persists transactions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the transactions table if it doesn't exist. cmd/migrate
// runs the same DDL through goose; this inline path keeps ad-hoc databases
// usable without the migration binary.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id                  VARCHAR(64) PRIMARY KEY,
			ts                  TIMESTAMPTZ NOT NULL,
			customer_id         VARCHAR(64) NOT NULL,
			origin_country      VARCHAR(64) NOT NULL,
			destination_country VARCHAR(64) NOT NULL,
			amount              NUMERIC(14,2) NOT NULL,
			risk_score          DOUBLE PRECISION NOT NULL CHECK (risk_score >= 0 AND risk_score <= 1),
			trust_score         DOUBLE PRECISION NOT NULL CHECK (trust_score >= 0 AND trust_score <= 100),
			decision            VARCHAR(10) NOT NULL CHECK (decision IN ('ALLOW', 'REVIEW', 'BLOCK')),
			reason_codes        TEXT[] NOT NULL DEFAULT '{}',
			month               VARCHAR(7) NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_month
			ON transactions (month);

		CREATE INDEX IF NOT EXISTS idx_transactions_risk
			ON transactions (risk_score DESC, id);

		CREATE INDEX IF NOT EXISTS idx_transactions_recent
			ON transactions (ts DESC, id DESC);

		CREATE INDEX IF NOT EXISTS idx_transactions_corridor
			ON transactions (origin_country, destination_country);
	`)
	return err
}

const transactionColumns = `id, ts, customer_id, origin_country, destination_country,
	amount, risk_score, trust_score, decision, reason_codes, month`

func (s *PostgresStore) InsertBatch(ctx context.Context, txns []*Transaction) error {
	if len(txns) == 0 {
		return ErrEmptyBatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range txns {
		month := t.Month
		if month == "" {
			month = MonthOf(t.Timestamp)
		}
		_, err := stmt.ExecContext(ctx,
			t.ID,
			t.Timestamp,
			t.CustomerID,
			t.OriginCountry,
			t.DestinationCountry,
			t.Amount,
			t.RiskScore,
			t.TrustScore,
			string(t.Decision),
			pq.Array(t.ReasonCodes),
			month,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, id)

	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) List(ctx context.Context, q Query) ([]*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`

	var conditions []string
	var args []interface{}
	argIdx := 1

	if len(q.Months) > 0 {
		conditions = append(conditions, "month = ANY($"+strconv.Itoa(argIdx)+")")
		args = append(args, pq.Array(q.Months))
		argIdx++
	}
	if len(q.Decisions) > 0 {
		ds := make([]string, len(q.Decisions))
		for i, d := range q.Decisions {
			ds[i] = string(d)
		}
		conditions = append(conditions, "decision = ANY($"+strconv.Itoa(argIdx)+")")
		args = append(args, pq.Array(ds))
		argIdx++
	}
	if q.MinRisk > 0 {
		conditions = append(conditions, "risk_score >= $"+strconv.Itoa(argIdx))
		args = append(args, q.MinRisk)
		argIdx++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY risk_score DESC, id"
	if q.Limit > 0 {
		query += " LIMIT $" + strconv.Itoa(argIdx)
		args = append(args, q.Limit)
	}

	return s.queryTransactions(ctx, query, args...)
}

func (s *PostgresStore) ListRecent(ctx context.Context, before time.Time, beforeID string, limit int) ([]*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var args []interface{}

	if !before.IsZero() {
		query += " WHERE (ts, id) < ($1, $2) ORDER BY ts DESC, id DESC LIMIT $3"
		args = []interface{}{before, beforeID, limit}
	} else {
		query += " ORDER BY ts DESC, id DESC LIMIT $1"
		args = []interface{}{limit}
	}

	return s.queryTransactions(ctx, query, args...)
}

func (s *PostgresStore) Snapshot(ctx context.Context, months []string) ([]*Transaction, error) {
	if len(months) > 0 {
		return s.queryTransactions(ctx, `
			SELECT `+transactionColumns+`
			FROM transactions
			WHERE month = ANY($1)
			ORDER BY ts, id
		`, pq.Array(months))
	}
	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY ts, id
	`)
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountByDecision(ctx context.Context) (map[decision.Decision]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT decision, COUNT(*)
		FROM transactions
		GROUP BY decision
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by decision: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[decision.Decision]int64, len(decision.Categories))
	for _, c := range decision.Categories {
		counts[c] = 0
	}
	for rows.Next() {
		var d string
		var n int64
		if err := rows.Scan(&d, &n); err != nil {
			return nil, fmt.Errorf("failed to scan decision count: %w", err)
		}
		counts[decision.Decision(d)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]*Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (*Transaction, error) {
	var t Transaction
	var d string
	var codes pq.StringArray

	err := row.Scan(
		&t.ID,
		&t.Timestamp,
		&t.CustomerID,
		&t.OriginCountry,
		&t.DestinationCountry,
		&t.Amount,
		&t.RiskScore,
		&t.TrustScore,
		&d,
		&codes,
		&t.Month,
	)
	if err != nil {
		return nil, err
	}
	t.Decision = decision.Decision(d)
	t.ReasonCodes = []string(codes)
	return &t, nil
}
