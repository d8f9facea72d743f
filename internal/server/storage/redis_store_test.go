package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/shswrite/internal/game/role"
	"github.com/palemoky/shswrite/internal/types"
)

func newTestRedisStore(t *testing.T, opts ...Option) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewRedisStore(client, opts...), mr
}

var finishedAt = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func result(id string, elapsed float64) types.RoundResult {
	return types.RoundResult{
		RoundID:        id,
		Phrase:         "merhaba",
		ElapsedSeconds: elapsed,
		StartedAt:      finishedAt.Add(-time.Duration(elapsed * float64(time.Second))),
		FinishedAt:     finishedAt,
		Players: []types.RoundPlayer{
			{ID: "p1", Nickname: "Player-1", Role: role.Blind},
			{ID: "p2", Nickname: "Player-2", Role: role.Mute},
		},
	}
}

func TestRedisStore_RecordAndLoadRound(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRound(ctx, result("r1", 12.5)))

	rec, err := store.LoadRound(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "merhaba", rec.Phrase)
	assert.InDelta(t, 12.5, rec.ElapsedSeconds, 1e-9)
	assert.Equal(t, finishedAt.UnixMilli(), rec.FinishedAt)
	require.Len(t, rec.Players, 2)
	assert.Equal(t, role.Blind, rec.Players[0].Role)

	missing, err := store.LoadRound(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	total, err := store.TotalRounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRedisStore_RecordRound_EmptyID(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	assert.Error(t, store.RecordRound(context.Background(), types.RoundResult{}))
}

func TestRedisStore_Fastest(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for id, elapsed := range map[string]float64{"slow": 40, "fast": 8.25, "mid": 19} {
		require.NoError(t, store.RecordRound(ctx, result(id, elapsed)))
	}

	top, err := store.Fastest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, "fast", top[0].RoundID)
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, "mid", top[1].RoundID)

	daily, err := store.FastestOn(ctx, finishedAt, 10)
	require.NoError(t, err)
	assert.Len(t, daily, 3)

	other, err := store.FastestOn(ctx, finishedAt.AddDate(0, 0, 1), 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRedisStore_DailyKeyExpires(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t, WithKeyPrefix("test:"))
	require.NoError(t, store.RecordRound(context.Background(), result("r1", 5)))

	assert.Equal(t, dailyExpiration, mr.TTL("test:leaderboard:daily:2026-03-14"))
	assert.True(t, mr.Exists("test:round:r1"))
	assert.True(t, mr.Exists("test:leaderboard:fastest"))
}

func TestRedisStore_RoundTTL(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t, WithRoundTTL(time.Hour))
	ctx := context.Background()
	require.NoError(t, store.RecordRound(ctx, result("r1", 5)))
	require.NoError(t, store.RecordRound(ctx, result("r2", 6)))

	mr.FastForward(2 * time.Hour)

	// Expired rounds drop out of the leaderboard.
	top, err := store.Fastest(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestRedisStore_RecentRounds(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for i := range recentRoundsLimit + 5 {
		require.NoError(t, store.RecordRound(ctx, result(fmt.Sprintf("r%d", i), float64(i+1))))
	}

	recent, err := store.RecentRounds(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, fmt.Sprintf("r%d", recentRoundsLimit+4), recent[0].RoundID)

	all, err := store.RecentRounds(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, all, recentRoundsLimit)

	none, err := store.RecentRounds(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRedisStore_Observer(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	var observer types.RoundObserver = store
	require.NoError(t, observer.RoundStarted(ctx, types.RoundStarted{RoundID: "r1"}))
	require.NoError(t, observer.RoundFinished(ctx, result("r1", 3)))

	rec, err := store.LoadRound(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestRedisStore_Ping(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	assert.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
