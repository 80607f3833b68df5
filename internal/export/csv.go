// Package export renders expense history for use outside the app.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"spendwise/internal/core"
)

// ErrNoExpenses reports an export with nothing to write.
var ErrNoExpenses = errors.New("no expenses to export")

var csvHeader = []string{"Date", "Category", "Amount", "Note"}

// WriteCSV writes the expenses as CSV, header first, in the order
// given. Amounts are rendered with two decimal places.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	if len(expenses) == 0 {
		return ErrNoExpenses
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		row := []string{e.Date, string(e.Category), e.Amount.StringFixed(2), e.Note}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// MonthFilename names a one-month export, e.g. expenses_2025_03.csv.
func MonthFilename(year int, month int) string {
	return fmt.Sprintf("expenses_%d_%02d.csv", year, month)
}

// RangeFilename names an export covering an arbitrary date filter.
// Unbounded sides are omitted.
func RangeFilename(f core.Filters) string {
	switch {
	case f.StartDate == "" && f.EndDate == "":
		return "expenses_all.csv"
	case f.EndDate == "":
		return fmt.Sprintf("expenses_from_%s.csv", datePart(f.StartDate))
	case f.StartDate == "":
		return fmt.Sprintf("expenses_to_%s.csv", datePart(f.EndDate))
	default:
		return fmt.Sprintf("expenses_%s_%s.csv", datePart(f.StartDate), datePart(f.EndDate))
	}
}

func datePart(date string) string {
	return strings.ReplaceAll(date, "-", "")
}
