package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mharuka/kabuban/internal/models"
)

func TestPortfolioStore_UpsertAndGet(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	avgCost := 152.30
	p := &models.Portfolio{
		Name: "growth",
		Holdings: []models.Holding{
			{Ticker: "7203.T", Shares: 100},
			{Ticker: "AAPL", Shares: 25.5, AvgCost: &avgCost},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, store.Upsert(ctx, p))

	got, err := store.Get(ctx, "growth")
	require.NoError(t, err)
	assert.Equal(t, "growth", got.Name)
	require.Len(t, got.Holdings, 2)
	assert.Equal(t, "7203.T", got.Holdings[0].Ticker)
	assert.Equal(t, 100.0, got.Holdings[0].Shares)
	assert.Nil(t, got.Holdings[0].AvgCost)
	require.NotNil(t, got.Holdings[1].AvgCost)
	assert.Equal(t, 152.30, *got.Holdings[1].AvgCost)
}

func TestPortfolioStore_GetMissing(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPortfolioStore_UpsertReplaces(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	p := &models.Portfolio{
		Name:     "growth",
		Holdings: []models.Holding{{Ticker: "AAPL", Shares: 10}, {Ticker: "MSFT", Shares: 5}},
	}
	require.NoError(t, store.Upsert(ctx, p))

	// Replace with a single holding; the old composition must not survive
	p.Holdings = []models.Holding{{Ticker: "GOOG", Shares: 3}}
	require.NoError(t, store.Upsert(ctx, p))

	got, err := store.Get(ctx, "growth")
	require.NoError(t, err)
	require.Len(t, got.Holdings, 1)
	assert.Equal(t, "GOOG", got.Holdings[0].Ticker)
}

func TestPortfolioStore_Scan(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &models.Portfolio{Name: "alpha"}))
	require.NoError(t, store.Upsert(ctx, &models.Portfolio{Name: "beta"}))

	all, err := store.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPortfolioStore_DeleteIdempotent(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &models.Portfolio{Name: "growth"}))
	require.NoError(t, store.Delete(ctx, "growth"))

	_, err := store.Get(ctx, "growth")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Second delete of the same name must succeed
	assert.NoError(t, store.Delete(ctx, "growth"))
}
