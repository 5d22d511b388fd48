// Package ingest reads raw transaction rows from CSV files and writes the
// cleaned output. Extraction is intentionally dumb: it locates columns by
// header name and hands every cell to the pipeline untouched, so all
// normalization decisions live in one place.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Column headers accepted in source files, matched case-insensitively
// after trimming.
var (
	dateHeaders     = []string{"date", "transaction date"}
	merchantHeaders = []string{"merchant", "merchant name", "description"}
	amountHeaders   = []string{"amount"}
	categoryHeaders = []string{"category"}
)

// ReadRecords extracts raw records from CSV input. The first row must be a
// header naming at least the date, merchant, and amount columns; the
// category column is optional. Data rows are numbered from 2 so failures
// point at the physical file line.
func ReadRecords(r io.Reader) ([]domain.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	dateCol := findColumn(header, dateHeaders)
	merchantCol := findColumn(header, merchantHeaders)
	amountCol := findColumn(header, amountHeaders)
	categoryCol := findColumn(header, categoryHeaders)

	if dateCol < 0 || merchantCol < 0 || amountCol < 0 {
		return nil, fmt.Errorf("header must name date, merchant, and amount columns, got %v", header)
	}

	var records []domain.RawRecord
	row := 1
	for {
		fields, err := reader.Read()
		row++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		rec := domain.RawRecord{
			Row:      row,
			Date:     cell(fields, dateCol),
			Merchant: cell(fields, merchantCol),
			Amount:   cell(fields, amountCol),
		}
		if categoryCol >= 0 {
			rec.Category = cell(fields, categoryCol)
		}
		records = append(records, rec)
	}

	return records, nil
}

// ReadFile extracts raw records from a CSV file on disk.
func ReadFile(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// WriteTransactions writes normalized transactions as a clean CSV with a
// fixed header. Amounts render at exactly two decimal places.
func WriteTransactions(w io.Writer, batch []*domain.Transaction) error {
	writer := csv.NewWriter(w)

	header := []string{"date", "merchant", "amount", "currency", "category", "is_refund", "anomaly_severity", "anomaly_reason"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, tx := range batch {
		row := []string{
			tx.Day(),
			tx.Merchant,
			tx.Amount.StringFixed(2),
			tx.Currency,
			tx.Category,
			fmt.Sprintf("%v", tx.IsRefund),
			tx.Severity.String(),
			tx.Reason,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing transaction %s: %w", tx.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes normalized transactions to a CSV file on disk.
func WriteFile(path string, batch []*domain.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteTransactions(f, batch); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		cleaned := strings.ToLower(strings.TrimSpace(h))
		for _, name := range names {
			if cleaned == name {
				return i
			}
		}
	}
	return -1
}

func cell(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
