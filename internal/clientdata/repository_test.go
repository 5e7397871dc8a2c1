package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)

	// In-memory SQLite is per-connection; keep the pool at one
	db.SetMaxOpenConns(1)

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	data := map[string]interface{}{
		"ticker": "AAPL",
		"beta":   1.2,
	}

	err := repo.Store("fundamentals", "AAPL", data, TTLFundamentals)
	require.NoError(t, err)

	raw, err := repo.GetIfFresh("fundamentals", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "AAPL", decoded["ticker"])
	assert.InDelta(t, 1.2, decoded["beta"].(float64), 1e-9)
}

func TestGetIfFreshExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// Store with negative TTL so the entry is already expired
	err := repo.Store("weekly_series", "MSFT", map[string]string{"x": "y"}, -time.Hour)
	require.NoError(t, err)

	raw, err := repo.GetIfFresh("weekly_series", "MSFT")
	require.NoError(t, err)
	assert.Nil(t, raw, "expired data should not be returned as fresh")

	// Stale fallback still works
	stale, err := repo.Get("weekly_series", "MSFT")
	require.NoError(t, err)
	assert.NotNil(t, stale, "stale data should be retrievable via Get")
}

func TestGetMissingKey(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	raw, err := repo.GetIfFresh("fundamentals", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestInvalidTableRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store("securities; DROP TABLE fundamentals", "X", "data", time.Hour)
	assert.Error(t, err)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store("fundamentals", "OLD", "stale", -time.Hour))
	require.NoError(t, repo.Store("fundamentals", "NEW", "fresh", time.Hour))
	require.NoError(t, repo.Store("weekly_series", "OLD", "stale", -time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["fundamentals"])
	assert.Equal(t, int64(1), results["weekly_series"])

	fresh, err := repo.GetIfFresh("fundamentals", "NEW")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}
