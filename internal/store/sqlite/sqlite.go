// Package sqlite implements the expense and user stores on an embedded
// SQLite database. Schema changes are applied through golang-migrate with
// migrations embedded in the binary.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/store"
)

type Repository struct {
	db *sql.DB
}

var (
	_ store.Store    = (*Repository)(nil)
	_ auth.UserStore = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert implements store.Store. The id and creation timestamp are
// assigned here, not taken from the caller's optimistic record.
func (r *Repository) Insert(ctx context.Context, userID string, d core.Draft) (core.Expense, error) {
	if err := d.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}

	id := uuid.NewString()
	createdAt := time.Now().UnixMilli()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, amount, category, date, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, d.Amount.String(), string(d.Category), d.Date, d.Note, createdAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", userID,
		"category", string(d.Category),
		"amount", d.Amount.String(),
		"date", d.Date)

	return core.Expense{
		ID:        id,
		Amount:    d.Amount,
		Category:  d.Category,
		Date:      d.Date,
		Note:      d.Note,
		CreatedAt: createdAt,
	}, nil
}

// ListByUser implements store.Store.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, category, date, note, created_at
		 FROM expenses
		 WHERE user_id = ?
		 ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			amount   string
			category string
			date     string
		)
		if err := rows.Scan(&e.ID, &amount, &category, &date, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q for expense %s: %w", amount, e.ID, err)
		}
		e.Amount = amt
		e.Category = core.Category(category)
		e.Date = store.NormalizeDate(date)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// Delete implements store.Store. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.DebugContext(ctx, "Delete matched no rows", "id", id, "user_id", userID)
	}
	return nil
}

// Ping implements store.Store.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser implements auth.UserStore.
func (r *Repository) CreateUser(ctx context.Context, u auth.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, auth_provider, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.AuthProvider, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByEmail implements auth.UserStore.
func (r *Repository) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, auth_provider, created_at
		 FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.AuthProvider, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}
