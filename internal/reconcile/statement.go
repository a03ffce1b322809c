package reconcile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Statement is the result of parsing a bank statement CSV export.
type Statement struct {
	Lines    []StatementLine
	Warnings []string // rows that failed to parse
}

// StatementLine is a single credit row from a bank statement.
type StatementLine struct {
	RowNum      int // 1-based row in the uploaded file, header included
	Date        time.Time
	Reference   string
	Description string
	Amount      decimal.Decimal
}

// Date layouts seen across Nigerian bank CSV exports.
var dateLayouts = []string{
	"02-Jan-2006",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

var amountCleaner = strings.NewReplacer(",", "", "₦", "", "NGN", "", " ", "")

// ParseStatement parses a bank statement CSV into credit lines.
// The first row containing a date column and a credit/amount column is
// treated as the header; debit and zero rows are skipped with a warning.
func ParseStatement(r io.Reader) (*Statement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols, headerRow := findHeader(records)
	if headerRow < 0 {
		return nil, fmt.Errorf("no header row found in statement")
	}

	var lines []StatementLine
	var warnings []string

	for i := headerRow + 1; i < len(records); i++ {
		rowNum := i + 1
		record := records[i]
		if isBlankRow(record) {
			continue
		}

		line, err := parseRow(record, cols, rowNum)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		lines = append(lines, *line)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no credit lines found in statement")
	}

	return &Statement{Lines: lines, Warnings: warnings}, nil
}

// columnMap holds the indexes of the columns we care about. -1 means absent.
type columnMap struct {
	date   int
	amount int
	ref    int
	desc   int
}

// findHeader locates the header row and maps its columns. Bank exports
// often carry account metadata above the real header, so we scan down
// for the first row naming both a date and a credit/amount column.
func findHeader(records [][]string) (columnMap, int) {
	for rowIdx, record := range records {
		cols := columnMap{date: -1, amount: -1, ref: -1, desc: -1}
		for colIdx, cell := range record {
			name := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case strings.Contains(name, "date") && cols.date == -1:
				cols.date = colIdx
			case strings.Contains(name, "credit"):
				// Prefer an explicit credit column over a generic amount one.
				cols.amount = colIdx
			case strings.Contains(name, "amount") && cols.amount == -1:
				cols.amount = colIdx
			case strings.Contains(name, "ref") && cols.ref == -1:
				cols.ref = colIdx
			case containsAny(name, "narration", "description", "details", "remarks") && cols.desc == -1:
				cols.desc = colIdx
			}
		}
		if cols.date >= 0 && cols.amount >= 0 {
			return cols, rowIdx
		}
	}
	return columnMap{}, -1
}

func parseRow(record []string, cols columnMap, rowNum int) (*StatementLine, error) {
	date, err := parseDate(cell(record, cols.date))
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(cell(record, cols.amount))
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("not a credit: %s", amount)
	}

	return &StatementLine{
		RowNum:      rowNum,
		Date:        date,
		Reference:   strings.TrimSpace(cell(record, cols.ref)),
		Description: strings.TrimSpace(cell(record, cols.desc)),
		Amount:      amount,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(amountCleaner.Replace(s))
	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unrecognized amount: %q", s)
	}
	return amount, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func isBlankRow(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
