// Package memory provides an in-memory expense and user store. It backs
// tests and local development where no database file is wanted.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/store"
)

type Repository struct {
	mu       sync.RWMutex
	expenses map[string][]core.Expense // keyed by user id
	users    map[string]auth.User      // keyed by email
}

var (
	_ store.Store    = (*Repository)(nil)
	_ auth.UserStore = (*Repository)(nil)
)

func NewRepository() *Repository {
	return &Repository{
		expenses: make(map[string][]core.Expense),
		users:    make(map[string]auth.User),
	}
}

func (r *Repository) Insert(_ context.Context, userID string, d core.Draft) (core.Expense, error) {
	if err := d.Validate(); err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		ID:        uuid.NewString(),
		Amount:    d.Amount,
		Category:  d.Category,
		Date:      d.Date,
		Note:      d.Note,
		CreatedAt: time.Now().UnixMilli(),
	}

	r.mu.Lock()
	r.expenses[userID] = append(r.expenses[userID], e)
	r.mu.Unlock()

	return e, nil
}

func (r *Repository) ListByUser(_ context.Context, userID string) ([]core.Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Expense, len(r.expenses[userID]))
	copy(out, r.expenses[userID])

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

func (r *Repository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.expenses[userID]
	for i, e := range list {
		if e.ID == id {
			r.expenses[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *Repository) Ping(context.Context) error {
	return nil
}

func (r *Repository) CreateUser(_ context.Context, u auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Email]; ok {
		return auth.ErrEmailTaken
	}
	r.users[u.Email] = u
	return nil
}

func (r *Repository) UserByEmail(_ context.Context, email string) (auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}
