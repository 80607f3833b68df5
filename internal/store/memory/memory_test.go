package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/auth"
	"spendwise/internal/core"
)

func TestInsertAndList(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	first, err := repo.Insert(ctx, "u1", core.Draft{
		Amount:   decimal.NewFromInt(12),
		Category: core.CategoryFood,
		Date:     "2025-01-10",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotZero(t, first.CreatedAt)

	second, err := repo.Insert(ctx, "u1", core.Draft{
		Amount:   decimal.NewFromInt(30),
		Category: core.CategoryTravel,
		Date:     "2025-01-12",
	})
	require.NoError(t, err)

	// A different user's records stay invisible.
	_, err = repo.Insert(ctx, "u2", core.Draft{
		Amount:   decimal.NewFromInt(99),
		Category: core.CategoryRent,
		Date:     "2025-01-11",
	})
	require.NoError(t, err)

	got, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "newest date first")
	assert.Equal(t, first.ID, got[1].ID)
}

func TestInsertRejectsInvalidDraft(t *testing.T) {
	repo := NewRepository()

	_, err := repo.Insert(context.Background(), "u1", core.Draft{
		Amount:   decimal.NewFromInt(-5),
		Category: core.CategoryFood,
		Date:     "2025-01-10",
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	e, err := repo.Insert(ctx, "u1", core.Draft{
		Amount:   decimal.NewFromInt(7),
		Category: core.CategoryHealth,
		Date:     "2025-02-01",
	})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "u1", e.ID))
	require.NoError(t, repo.Delete(ctx, "u1", e.ID), "second delete is a no-op")
	require.NoError(t, repo.Delete(ctx, "u1", "missing-id"))

	got, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUserStore(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	u := auth.User{ID: "id-1", Email: "a@b.c", AuthProvider: auth.ProviderLocal}
	require.NoError(t, repo.CreateUser(ctx, u))

	got, err := repo.UserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	err = repo.CreateUser(ctx, auth.User{ID: "id-2", Email: "a@b.c"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	_, err = repo.UserByEmail(ctx, "nobody@b.c")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
