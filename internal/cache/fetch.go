package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "marketplace",
	Name:      "cache_requests_total",
	Help:      "Cache lookups by key name and result (hit, miss, error).",
}, []string{"key", "result"})

// loadTimeout bounds a shared load once it is detached from its caller.
const loadTimeout = 30 * time.Second

// fallbackFlight dedups loads for Cache implementations other than *Layer.
var fallbackFlight singleflight.Group

func flightFor(c Cache) *singleflight.Group {
	if l, ok := c.(*Layer); ok {
		return &l.flight
	}
	return &fallbackFlight
}

// Fetch returns the cached value at key, or calls load and caches its
// result for key.TTL. Concurrent misses on one key share a single load.
// Cache faults are logged at WARN and fall through to load; the result is
// then not written back, since the cache is evidently unhealthy.
func Fetch[T any](ctx context.Context, c Cache, logger *slog.Logger, key Key, load func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := c.Get(ctx, key.Value, &cached)
	switch {
	case err != nil:
		requests.WithLabelValues(key.Name, "error").Inc()
		logger.WarnContext(ctx, "cache read failed, loading from source",
			slog.String("key", key.Value),
			slog.String("error", err.Error()),
		)
	case found:
		requests.WithLabelValues(key.Name, "hit").Inc()
		return cached, nil
	default:
		requests.WithLabelValues(key.Name, "miss").Inc()
	}
	cacheHealthy := err == nil

	// The shared load outlives any single caller: it runs detached from
	// ctx so one cancelled request cannot fail the others waiting on it.
	ch := flightFor(c).DoChan(key.Value, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return value, err
		}
		if cacheHealthy {
			if err := c.Set(loadCtx, key.Value, value, key.TTL); err != nil {
				logger.WarnContext(ctx, "cache write failed",
					slog.String("key", key.Value),
					slog.String("error", err.Error()),
				)
			}
		}
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate deletes keys and logs, rather than returns, any failure.
// Writers call it after their transaction commits.
func Invalidate(ctx context.Context, c Cache, logger *slog.Logger, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = k.Value
	}
	if err := c.Invalidate(ctx, values...); err != nil {
		logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", values),
			slog.String("error", err.Error()),
		)
	}
}
