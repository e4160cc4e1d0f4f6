package cache

import (
	"time"

	"github.com/agromart/marketplace/internal/config"
)

// Key is one named cache entry. Name is the stable metric label; Value is
// the Redis key, which for per-user entries includes the user id.
type Key struct {
	Name  string
	Value string
	TTL   time.Duration
}

// Keys is the registry of every key the marketplace caches. It is built
// once at startup and injected into the services that read or invalidate.
type Keys struct {
	Categories      Key
	NewArrivals     Key
	ProductSnapshot Key

	historyTTL time.Duration
}

const historyPrefix = "search_history:"

func NewKeys(cfg config.CacheConfig) Keys {
	return Keys{
		Categories:      Key{Name: "product_categories", Value: "product_categories", TTL: cfg.CategoriesTTL},
		NewArrivals:     Key{Name: "new_arrivals", Value: "new_arrivals", TTL: cfg.NewArrivalsTTL},
		ProductSnapshot: Key{Name: "product_snapshot", Value: "product_snapshot", TTL: cfg.ProductSnapshotTTL},
		historyTTL:      cfg.SearchHistoryTTL,
	}
}

// SearchHistory is the per-user history entry.
func (k Keys) SearchHistory(userID string) Key {
	return Key{Name: "search_history", Value: historyPrefix + userID, TTL: k.historyTTL}
}
