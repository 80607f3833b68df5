package export

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestWriteCSV(t *testing.T) {
	expenses := []core.Expense{
		{Date: "2025-03-02", Category: core.CategoryTravel, Amount: decimal.NewFromInt(30), Note: "bus pass"},
		{Date: "2025-03-01", Category: core.CategoryFood, Amount: decimal.RequireFromString("12.50"), Note: "note, with comma"},
	}

	var b strings.Builder
	require.NoError(t, WriteCSV(&b, expenses))

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Category,Amount,Note", lines[0])
	assert.Equal(t, "2025-03-02,Travel,30.00,bus pass", lines[1])
	assert.Equal(t, `2025-03-01,Food,12.50,"note, with comma"`, lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var b strings.Builder
	err := WriteCSV(&b, nil)
	assert.ErrorIs(t, err, ErrNoExpenses)
	assert.Empty(t, b.String())
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "expenses_2025_03.csv", MonthFilename(2025, 3))
	assert.Equal(t, "expenses_all.csv", RangeFilename(core.Filters{}))
	assert.Equal(t, "expenses_from_20250301.csv", RangeFilename(core.Filters{StartDate: "2025-03-01"}))
	assert.Equal(t, "expenses_to_20250331.csv", RangeFilename(core.Filters{EndDate: "2025-03-31"}))
	assert.Equal(t, "expenses_20250301_20250331.csv",
		RangeFilename(core.Filters{StartDate: "2025-03-01", EndDate: "2025-03-31"}))
}
