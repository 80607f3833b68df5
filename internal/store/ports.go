// Package store defines the port to the remote persistence store holding
// authoritative expense rows, scoped per user. Row-level authorization is
// the store's concern; clients only ever pass their own user id.
package store

import (
	"context"
	"errors"
	"time"

	"spendwise/internal/core"
)

var ErrNotFound = errors.New("expense not found")

// Store is the outbound port for expense persistence.
type Store interface {
	// Insert persists a new expense for the user and returns the
	// authoritative record with store-assigned id and creation timestamp.
	Insert(ctx context.Context, userID string, d core.Draft) (core.Expense, error)

	// ListByUser returns every expense of the user ordered by date
	// descending (ties broken by creation time descending). Amounts are
	// returned as decimals and dates normalized to YYYY-MM-DD regardless
	// of the store's native representation.
	ListByUser(ctx context.Context, userID string) ([]core.Expense, error)

	// Delete removes an expense by id, scoped to the user. Deleting an id
	// that does not exist is not an error.
	Delete(ctx context.Context, userID, id string) error

	// Ping is a cheap reachability probe.
	Ping(ctx context.Context) error
}

// NormalizeDate coerces a store-native timestamp string to the YYYY-MM-DD
// form. Values already in that form pass through unchanged.
func NormalizeDate(s string) string {
	if len(s) <= len(core.DateLayout) {
		return s
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(core.DateLayout)
		}
	}
	return s[:len(core.DateLayout)]
}
