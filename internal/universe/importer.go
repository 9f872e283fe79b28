// Package universe loads historical membership intervals from CSV.
package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sieng/factor-engine/internal/contracts"
	"github.com/sieng/factor-engine/pkg/logger"
)

// Importer loads membership rows from a CSV with the header
// ticker,start_date,end_date,source. An empty end_date keeps the interval
// open; a missing source column defaults to "csv".
type Importer struct {
	store contracts.Store
	log   *logger.Logger
}

// NewImporter creates a membership importer.
func NewImporter(store contracts.Store, log *logger.Logger) *Importer {
	return &Importer{store: store, log: log}
}

// ImportFile reads the CSV at path and upserts every row in one
// transaction, returning the number of imported rows.
func (i *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open membership file: %w", err)
	}
	defer file.Close()
	return i.Import(ctx, file)
}

// Import reads membership rows from r and upserts them.
func (i *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := parseRows(r)
	if err != nil {
		return 0, err
	}

	err = i.store.WithTx(ctx, func(tx contracts.Store) error {
		for _, row := range rows {
			symbol := contracts.Symbol{Ticker: row.Ticker, Name: row.Ticker}
			if err := tx.Universe().EnsureSymbol(ctx, symbol); err != nil {
				return fmt.Errorf("ensure symbol %s: %w", row.Ticker, err)
			}
			if err := tx.Universe().UpsertMembership(ctx, row); err != nil {
				return fmt.Errorf("upsert membership %s: %w", row.Ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	i.log.WithField("rows", len(rows)).Info("membership import finished")
	return len(rows), nil
}

func parseRows(r io.Reader) ([]contracts.Membership, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read membership header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	for _, required := range []string{"ticker", "start_date"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("membership CSV missing %q column", required)
		}
	}

	var rows []contracts.Membership
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read membership row: %w", err)
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		start, err := time.Parse("2006-01-02", field("start_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad start_date: %w", line, err)
		}
		row := contracts.Membership{
			Ticker:    field("ticker"),
			StartDate: start,
			Source:    field("source"),
		}
		if row.Ticker == "" {
			return nil, fmt.Errorf("line %d: empty ticker", line)
		}
		if row.Source == "" {
			row.Source = "csv"
		}
		if endText := field("end_date"); endText != "" {
			end, err := time.Parse("2006-01-02", endText)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad end_date: %w", line, err)
			}
			row.EndDate = &end
		}
		rows = append(rows, row)
	}
	return rows, nil
}
