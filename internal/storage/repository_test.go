package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilStoreIsNotConfigured(t *testing.T) {
	var s *Store
	ctx := context.Background()

	_, _, err := s.TryAdvisoryLock(ctx, 1)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.True(t, errors.Is(s.UpsertArtifact(ctx, PublishedArtifact{}), ErrNotConfigured))
	_, err = s.LatestArtifact(ctx, "x")
	assert.True(t, errors.Is(err, ErrNotConfigured))
	s.Close()
}

// testStore connects to PADDLECAST_TEST_DSN, skipping when unset.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PADDLECAST_TEST_DSN")
	if dsn == "" {
		t.Skip("PADDLECAST_TEST_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	s := NewStore(pool)
	t.Cleanup(s.Close)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestArtifactMirrorRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	location := "test-" + uuid.NewString()

	_, err := s.LatestArtifact(ctx, location)
	require.ErrorIs(t, err, ErrNotFound)

	best := decimal.RequireFromString("4.5")
	first := PublishedArtifact{
		Location:      location,
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Date(2025, 8, 7, 21, 0, 0, 0, time.UTC),
		WeatherSource: "nws",
		DayCount:      7,
		WindowCount:   3,
		BestScore:     &best,
		Payload:       json.RawMessage(`{"location":"x","days":[]}`),
	}
	require.NoError(t, s.UpsertArtifact(ctx, first))

	second := first
	second.RunID = uuid.NewString()
	second.WeatherSource = "open-meteo"
	second.BestScore = nil
	require.NoError(t, s.UpsertArtifact(ctx, second))

	got, err := s.LatestArtifact(ctx, location)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, got.RunID)
	assert.Equal(t, "open-meteo", got.WeatherSource)
	assert.Nil(t, got.BestScore)
	assert.JSONEq(t, string(first.Payload), string(got.Payload))
}

func TestAdvisoryLockIsExclusive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	key := int64(time.Now().UnixNano() & 0x7fffffff)

	unlock, ok, err := s.TryAdvisoryLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.TryAdvisoryLock(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	unlock()
	unlock2, ok, err := s.TryAdvisoryLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	unlock2()
}
