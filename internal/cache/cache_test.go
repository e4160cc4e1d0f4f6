package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromart/marketplace/internal/config"
	"github.com/agromart/marketplace/pkg/logger"
)

func newTestLayer(t *testing.T) (*Layer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLayer(client, logger.Discard()), mr
}

func testKeys() Keys {
	return NewKeys(config.CacheConfig{
		CategoriesTTL:      30 * time.Minute,
		NewArrivalsTTL:     5 * time.Minute,
		ProductSnapshotTTL: 5 * time.Minute,
		SearchHistoryTTL:   time.Hour,
	})
}

func TestLayer_SetGet(t *testing.T) {
	l, _ := newTestLayer(t)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", []string{"seeds", "tools"}, time.Minute))

	var got []string
	found, err := l.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"seeds", "tools"}, got)
}

func TestLayer_GetMissing(t *testing.T) {
	l, _ := newTestLayer(t)

	var got []string
	found, err := l.Get(context.Background(), "absent", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLayer_ExpiredIsAbsent(t *testing.T) {
	l, mr := newTestLayer(t)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", 1, 5*time.Second))
	mr.FastForward(6 * time.Second)

	var got int
	found, err := l.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLayer_SetResetsTTL(t *testing.T) {
	l, mr := newTestLayer(t)
	ctx := context.Background()

	require.NoError(t, l.Set(ctx, "k", 1, 5*time.Second))
	mr.FastForward(4 * time.Second)
	require.NoError(t, l.Set(ctx, "k", 2, 5*time.Second))
	mr.FastForward(4 * time.Second)

	var got int
	found, err := l.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, got)
}

func TestLayer_UndecodableIsDeleted(t *testing.T) {
	l, mr := newTestLayer(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var got []string
	found, err := l.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("k"))
}

func TestLayer_InvalidateIdempotent(t *testing.T) {
	l, mr := newTestLayer(t)
	ctx := context.Background()
	require.NoError(t, l.Set(ctx, "a", 1, time.Minute))

	require.NoError(t, l.Invalidate(ctx, "a", "b"))
	require.NoError(t, l.Invalidate(ctx, "a", "b"))
	require.NoError(t, l.Invalidate(ctx))
	assert.False(t, mr.Exists("a"))
}

func TestLayer_ErrorsWhenRedisDown(t *testing.T) {
	l, mr := newTestLayer(t)
	mr.Close()

	var got int
	_, err := l.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.Error(t, l.Set(context.Background(), "k", 1, time.Minute))
	assert.Error(t, l.Ping(context.Background()))
}

func TestKeys(t *testing.T) {
	k := testKeys()
	assert.Equal(t, 30*time.Minute, k.Categories.TTL)
	assert.Equal(t, 5*time.Minute, k.NewArrivals.TTL)
	assert.Equal(t, 5*time.Minute, k.ProductSnapshot.TTL)

	h := k.SearchHistory("u-1")
	assert.Equal(t, "search_history:u-1", h.Value)
	assert.Equal(t, "search_history", h.Name)
	assert.Equal(t, time.Hour, h.TTL)
}

func TestFetch_MissThenHit(t *testing.T) {
	l, mr := newTestLayer(t)
	key := testKeys().Categories
	var loads int

	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"fertilizer"}, nil
	}

	hitsBefore := testutil.ToFloat64(requests.WithLabelValues(key.Name, "hit"))

	got, err := Fetch(context.Background(), l, logger.Discard(), key, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"fertilizer"}, got)
	assert.True(t, mr.Exists(key.Value))
	ttl := mr.TTL(key.Value)
	assert.Equal(t, 30*time.Minute, ttl)

	got, err = Fetch(context.Background(), l, logger.Discard(), key, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"fertilizer"}, got)
	assert.Equal(t, 1, loads)
	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(requests.WithLabelValues(key.Name, "hit")))
}

func TestFetch_LoadErrorNotCached(t *testing.T) {
	l, mr := newTestLayer(t)
	key := testKeys().NewArrivals
	boom := errors.New("db down")

	_, err := Fetch(context.Background(), l, logger.Discard(), key, func(context.Context) ([]int, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(key.Value))
}

func TestFetch_CacheDownFallsThrough(t *testing.T) {
	l, mr := newTestLayer(t)
	mr.Close()
	key := testKeys().ProductSnapshot

	got, err := Fetch(context.Background(), l, logger.Discard(), key, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestFetch_SharesConcurrentLoads(t *testing.T) {
	l, _ := newTestLayer(t)
	key := testKeys().ProductSnapshot

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		loads.Add(1)
		<-release
		return 7, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), l, logger.Discard(), key, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let the callers pile up on the in-flight load before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 7, v)
	}
	assert.Less(t, loads.Load(), int32(callers))
}

func TestFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	l, mr := newTestLayer(t)
	key := testKeys().ProductSnapshot

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	loadErrs := make(chan error, 2)
	load := func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-release
		loadErrs <- ctx.Err()
		return 11, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := Fetch(firstCtx, l, logger.Discard(), key, load)
		firstDone <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	secondDone := make(chan result, 1)
	go func() {
		v, err := Fetch(context.Background(), l, logger.Discard(), key, load)
		secondDone <- result{v, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	// Give the second caller time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)

	second := <-secondDone
	require.NoError(t, second.err)
	assert.Equal(t, 11, second.v)
	assert.NoError(t, <-loadErrs)
	assert.True(t, mr.Exists(key.Value))
}

func TestInvalidate_LogsFailure(t *testing.T) {
	l, mr := newTestLayer(t)
	ctx := context.Background()
	keys := testKeys()
	require.NoError(t, l.Set(ctx, keys.Categories.Value, []string{"x"}, time.Minute))
	require.NoError(t, l.Set(ctx, keys.NewArrivals.Value, []string{"y"}, time.Minute))

	Invalidate(ctx, l, logger.Discard(), keys.Categories, keys.NewArrivals)
	assert.False(t, mr.Exists(keys.Categories.Value))
	assert.False(t, mr.Exists(keys.NewArrivals.Value))

	mr.Close()
	assert.NotPanics(t, func() {
		Invalidate(ctx, l, logger.Discard(), keys.Categories)
	})
}
