package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseDateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	first, err := db.CloseDate(ctx, day)
	require.NoError(t, err)
	assert.False(t, first.IsAvailable)
	assert.Equal(t, "2026-09-10", first.DateOnly())

	// Closing again returns the same record, no duplicate rows.
	second, err := db.CloseDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	overrides, err := db.OverridesByRange(ctx, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, overrides, 1)
}

func TestSetDayAvailabilityFlips(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	closed, err := db.CloseDate(ctx, day)
	require.NoError(t, err)

	opened, err := db.OpenDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, closed.ID, opened.ID)
	assert.True(t, opened.IsAvailable)

	got, err := db.OverrideForDate(ctx, day)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
}

func TestOverrideForDateNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.OverrideForDate(context.Background(), time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOverride(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	o, err := db.CloseDate(ctx, day)
	require.NoError(t, err)

	require.NoError(t, db.DeleteOverride(ctx, o.ID))
	assert.ErrorIs(t, db.DeleteOverride(ctx, o.ID), ErrNotFound)

	_, err = db.OverrideForDate(ctx, day)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOverridesByRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, d := range []int{5, 10, 15} {
		_, err := db.CloseDate(ctx, time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	got, err := db.OverridesByRange(ctx,
		time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-09-10", got[0].DateOnly())
}
