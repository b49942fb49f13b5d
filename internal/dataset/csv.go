package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nmehra/riskdesk/internal/decision"
)

// Column names of the scoring pipeline's monthly CSV export.
var csvColumns = []string{
	"transaction_id",
	"transaction_timestamp",
	"customer_id",
	"origin_country",
	"destination_country",
	"transaction_amount",
	"ml_risk_score",
	"trust_score",
	"decision",
	"reason_codes",
}

// ReadBatch parses one monthly CSV export. Columns are matched by header
// name, so column order does not matter. Reason codes are pipe-separated
// within their field. Any malformed row fails the whole batch; partially
// ingested months are worse than absent ones.
func ReadBatch(r io.Reader) ([]*Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyBatch
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("dataset: missing column %q", col)
		}
	}

	var txns []*Transaction
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}

		t, err := parseRow(record, idx)
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		txns = append(txns, t)
	}

	if len(txns) == 0 {
		return nil, ErrEmptyBatch
	}
	return txns, nil
}

func parseRow(record []string, idx map[string]int) (*Transaction, error) {
	field := func(col string) string { return strings.TrimSpace(record[idx[col]]) }

	ts, err := time.Parse(time.RFC3339, field("transaction_timestamp"))
	if err != nil {
		return nil, fmt.Errorf("bad transaction_timestamp: %w", err)
	}
	amount, err := strconv.ParseFloat(field("transaction_amount"), 64)
	if err != nil {
		return nil, fmt.Errorf("bad transaction_amount: %w", err)
	}
	riskScore, err := strconv.ParseFloat(field("ml_risk_score"), 64)
	if err != nil {
		return nil, fmt.Errorf("bad ml_risk_score: %w", err)
	}
	trustScore, err := strconv.ParseFloat(field("trust_score"), 64)
	if err != nil {
		return nil, fmt.Errorf("bad trust_score: %w", err)
	}
	d, err := decision.ParseDecision(field("decision"))
	if err != nil {
		return nil, err
	}

	var codes []string
	if raw := field("reason_codes"); raw != "" {
		codes = strings.Split(raw, "|")
	}

	id := field("transaction_id")
	if id == "" {
		return nil, fmt.Errorf("empty transaction_id")
	}

	return &Transaction{
		ID:                 id,
		Timestamp:          ts,
		CustomerID:         field("customer_id"),
		OriginCountry:      field("origin_country"),
		DestinationCountry: field("destination_country"),
		Amount:             amount,
		RiskScore:          riskScore,
		TrustScore:         trustScore,
		Decision:           d,
		ReasonCodes:        codes,
		Month:              MonthOf(ts),
	}, nil
}

// LoadDir ingests every *.csv file under dir in name order, the way monthly
// exports are dropped by the scoring pipeline. Returns the number of rows
// read across all files.
func LoadDir(ctx context.Context, store Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("dataset: read dir: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}

		n, err := loadFile(ctx, store, filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, fmt.Errorf("dataset: %s: %w", entry.Name(), err)
		}
		total += n
	}
	return total, nil
}

func loadFile(ctx context.Context, store Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	txns, err := ReadBatch(f)
	if err != nil {
		return 0, err
	}
	if err := store.InsertBatch(ctx, txns); err != nil {
		return 0, err
	}

	BatchesLoaded.Inc()
	RowsLoaded.Add(float64(len(txns)))
	return len(txns), nil
}
