// Package core holds the expense domain model and the aggregation engine.
//
// The aggregation functions are pure: they recompute from the full list on
// every call instead of maintaining running totals, so there is no cache
// invalidation to get wrong. Lists are personal-finance sized and O(n)
// recomputation is cheap.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount is an amount aggregated under one category.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Color    string          `json:"color"`
}

// DailyTotal is the spend total for one calendar day.
type DailyTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// TrendDays is the length of the trailing daily-totals series.
const TrendDays = 7

// Filter returns the expenses matching f as a new slice. Unset filter
// fields degrade to match-all; the input is never mutated.
func Filter(in []Expense, f Filters) []Expense {
	out := make([]Expense, 0, len(in))
	for _, e := range in {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.StartDate != "" && e.Date < f.StartDate {
			continue
		}
		if f.EndDate != "" && e.Date > f.EndDate {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Total sums all amounts. Returns zero for an empty list.
func Total(in []Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range in {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// CategoryTotal sums the amounts of expenses in the given category.
func CategoryTotal(in []Expense, c Category) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range in {
		if e.Category == c {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// TotalOn sums the amounts of expenses whose calendar date equals date.
func TotalOn(in []Expense, date string) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range in {
		if e.Date == date {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// TodayTotal sums the amounts dated today in the local timezone. The result
// is a function of the wall clock and changes as the day rolls over.
func TodayTotal(in []Expense) decimal.Decimal {
	return TotalOn(in, time.Now().Format(DateLayout))
}

// WeeklyTrend returns the daily totals for the 7 calendar days ending today,
// oldest first. Days without expenses report zero; the series always has
// exactly TrendDays entries.
func WeeklyTrend(in []Expense) []DailyTotal {
	return trendEnding(in, time.Now())
}

func trendEnding(in []Expense, end time.Time) []DailyTotal {
	out := make([]DailyTotal, 0, TrendDays)
	for i := TrendDays - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i).Format(DateLayout)
		out = append(out, DailyTotal{Date: day, Total: TotalOn(in, day)})
	}
	return out
}

// Breakdown returns per-category totals over the closed enumeration, in
// display order, including zero-total categories. Expenses carrying an
// unknown category are excluded here but still counted by Total.
func Breakdown(in []Expense) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryAmount{
			Category: c,
			Amount:   CategoryTotal(in, c),
			Color:    c.Meta().Color,
		})
	}
	return out
}
