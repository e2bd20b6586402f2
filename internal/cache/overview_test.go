// internal/cache/overview_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/kanboard/internal/models"
)

// Requires Redis on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T, ttl time.Duration) *OverviewCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	c := NewOverviewCache(client, "kanboard-test:"+uuid.NewString()+":", ttl)
	t.Cleanup(func() {
		_, _ = c.deleteMatching(context.Background(), c.prefix+"*")
		_ = c.Close()
	})
	return c
}

func TestOverviewCache_RoundTrip(t *testing.T) {
	c := setupTestCache(t, time.Minute)
	ctx := context.Background()
	ws := uuid.New()

	_, version, ok, err := c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), version)

	col := uuid.New()
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	want := []models.ProjectOverview{{
		ID:          uuid.New(),
		Name:        "Launch",
		Status:      models.ProjectActive,
		Deadline:    &due,
		MemberCount: 2,
		TaskStats:   models.TaskStats{Total: 3, Overdue: 1, ByColumn: map[uuid.UUID]int{col: 3}},
	}}
	require.NoError(t, c.SetOverviews(ctx, ws, version, want))

	got, _, ok, err := c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, 3, got[0].TaskStats.ByColumn[col])
	assert.True(t, due.Equal(*got[0].Deadline))

	require.NoError(t, c.InvalidateWorkspace(ctx, ws))
	_, version, ok, err = c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), version)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(1), stats.Invalidations)
}

func TestOverviewCache_FillAfterInvalidationIsIgnored(t *testing.T) {
	c := setupTestCache(t, time.Minute)
	ctx := context.Background()
	ws := uuid.New()

	// a reader misses and starts loading
	_, version, ok, err := c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	require.False(t, ok)

	// a writer commits and invalidates before the reader fills
	require.NoError(t, c.InvalidateWorkspace(ctx, ws))
	stale := []models.ProjectOverview{{ID: uuid.New(), Name: "stale"}}
	require.NoError(t, c.SetOverviews(ctx, ws, version, stale))

	_, next, ok, err := c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, version+1, next)

	fresh := []models.ProjectOverview{{ID: uuid.New(), Name: "fresh"}}
	require.NoError(t, c.SetOverviews(ctx, ws, next, fresh))
	got, _, ok, err := c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", got[0].Name)
}

func TestOverviewCache_EmptyListIsAHit(t *testing.T) {
	c := setupTestCache(t, time.Minute)
	ctx := context.Background()
	ws := uuid.New()

	require.NoError(t, c.SetOverviews(ctx, ws, 0, nil))
	got, _, ok, err := c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestOverviewCache_Expires(t *testing.T) {
	c := setupTestCache(t, 50*time.Millisecond)
	ctx := context.Background()
	ws := uuid.New()

	require.NoError(t, c.SetOverviews(ctx, ws, 0, []models.ProjectOverview{{ID: uuid.New()}}))
	require.Eventually(t, func() bool {
		_, _, ok, err := c.GetOverviews(ctx, ws)
		return err == nil && !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestOverviewCache_Flush(t *testing.T) {
	c := setupTestCache(t, time.Minute)
	ctx := context.Background()
	ws := uuid.New()
	require.NoError(t, c.InvalidateWorkspace(ctx, ws))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.SetOverviews(ctx, uuid.New(), 0, nil))
	}
	n, err := c.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, version, _, err := c.GetOverviews(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version, "versions survive a flush")
}
