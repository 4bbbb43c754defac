package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenwatch/internal/domain"
	"tokenwatch/internal/storage"
)

func TestDeadLetterStore_InsertAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDeadLetterStore(pool)

	letters := []*domain.DeadLetter{
		{Time: 2000, EventID: "ev2", Mint: "MintB", Attempts: 5, LastError: "persist: connection refused"},
		{Time: 1000, EventID: "ev1", Mint: "MintA", Attempts: 5, LastError: "persist: timeout", Payload: json.RawMessage(`{"mint":"MintA"}`)},
		{Time: 100, EventID: "ev0", Mint: "MintZ", Attempts: 3, LastError: "old"},
	}
	for _, d := range letters {
		require.NoError(t, store.Insert(ctx, d))
	}

	got, err := store.List(ctx, 1000)
	require.NoError(t, err)

	// Oldest first, window excludes ev0.
	require.Len(t, got, 2)
	assert.Equal(t, "ev1", got[0].EventID)
	assert.Equal(t, "MintA", got[0].Mint)
	assert.Equal(t, 5, got[0].Attempts)
	assert.Equal(t, "persist: timeout", got[0].LastError)
	assert.JSONEq(t, `{"mint":"MintA"}`, string(got[0].Payload))
	assert.Equal(t, "ev2", got[1].EventID)
}

func TestDeadLetterStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDeadLetterStore(pool)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.DeadLetter{Time: 1000, Mint: "MintA"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
