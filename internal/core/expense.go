package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the fixed-width calendar date form used everywhere in the
// domain. Lexicographic comparison of dates in this form matches
// chronological order, which the filter logic relies on.
const DateLayout = "2006-01-02"

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNoteTooLong     = errors.New("note too long (max 200 characters)")
)

type (
	// Expense is a single user-entered spending event. Date is the
	// user-chosen calendar day; CreatedAt is the record's creation instant
	// in epoch milliseconds and is used only for ordering.
	Expense struct {
		ID        string          `json:"id"`
		Amount    decimal.Decimal `json:"amount"`
		Category  Category        `json:"category"`
		Date      string          `json:"date"`
		Note      string          `json:"note,omitempty"`
		CreatedAt int64           `json:"createdAt"`
	}

	// Draft holds the user-supplied fields of a new expense. Identity and
	// creation timestamp are assigned elsewhere (optimistically by the sync
	// client, authoritatively by the store).
	Draft struct {
		Amount   decimal.Decimal
		Category Category
		Date     string
		Note     string
	}

	// Filters narrows an expense list. Every field is optional; the zero
	// value matches all expenses. Date bounds are inclusive and compared
	// lexicographically on the fixed-width form.
	Filters struct {
		Category  Category
		StartDate string
		EndDate   string
	}
)

// ValidateDate checks that s is a real calendar date in DateLayout form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (d Draft) Validate() error {
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Category.Valid() {
		return ErrUnknownCategory
	}
	if err := ValidateDate(d.Date); err != nil {
		return err
	}
	if len(strings.TrimSpace(d.Note)) > 200 {
		return ErrNoteTooLong
	}
	return nil
}

// Draft returns the user-supplied portion of the expense.
func (e Expense) Draft() Draft {
	return Draft{Amount: e.Amount, Category: e.Category, Date: e.Date, Note: e.Note}
}
