package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agromart/marketplace/internal/cache"
	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/repository"
	"github.com/agromart/marketplace/internal/search"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

const (
	// HistoryLimit bounds the stored search history of a user.
	HistoryLimit = 20
	// SuggestionLimit bounds the suggestions returned.
	SuggestionLimit = 4

	suggestConcurrency = 4
)

// Snapshotter supplies the product catalog that search ranks.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]domain.ProductSummary, error)
}

// SearchService ranks the catalog for a term and derives suggestions from
// a user's search history.
type SearchService struct {
	catalog Snapshotter
	history repository.HistoryRepository
	cache   cache.Cache
	keys    cache.Keys
	logger  *slog.Logger
	shuffle func(n int, swap func(i, j int))
}

func NewSearchService(catalog Snapshotter, history repository.HistoryRepository, c cache.Cache, keys cache.Keys, logger *slog.Logger) *SearchService {
	return &SearchService{
		catalog: catalog,
		history: history,
		cache:   c,
		keys:    keys,
		logger:  logger,
		shuffle: rand.Shuffle,
	}
}

// Search ranks the catalog against term. When userID is set the term is
// recorded in the user's history; failing to record it only logs.
func (s *SearchService) Search(ctx context.Context, userID, term string) ([]domain.ProductSummary, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperrors.InvalidInput("search term is required")
	}

	products, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, apperrors.NotFoundf("no products")
	}
	results := search.Rank(term, products)

	if userID != "" {
		if err := s.AppendHistory(ctx, userID, term); err != nil {
			s.logger.WarnContext(ctx, "failed to record search history",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return results, nil
}

// Suggest ranks the catalog against each term of the user's history and
// returns up to SuggestionLimit distinct products in random order.
func (s *SearchService) Suggest(ctx context.Context, userID string) ([]domain.ProductSummary, error) {
	terms, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return []domain.ProductSummary{}, nil
	}

	products, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []domain.ProductSummary{}, nil
	}

	perTerm := make([][]domain.ProductSummary, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(suggestConcurrency)
	for i, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perTerm[i] = search.Rank(term, products)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	merged := []domain.ProductSummary{}
	for _, results := range perTerm {
		for _, p := range results {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}

	s.shuffle(len(merged), func(i, j int) { merged[i], merged[j] = merged[j], merged[i] })
	if len(merged) > SuggestionLimit {
		merged = merged[:SuggestionLimit]
	}
	return merged, nil
}

// History returns the user's terms, most recent first.
func (s *SearchService) History(ctx context.Context, userID string) ([]string, error) {
	return cache.Fetch(ctx, s.cache, s.logger, s.keys.SearchHistory(userID), func(ctx context.Context) ([]string, error) {
		terms, err := s.history.List(ctx, userID, HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("load search history: %w", err)
		}
		return terms, nil
	})
}

// AppendHistory stores term and drops the cached history.
func (s *SearchService) AppendHistory(ctx context.Context, userID, term string) error {
	if err := s.history.Append(ctx, userID, strings.TrimSpace(term), HistoryLimit); err != nil {
		return fmt.Errorf("append search history: %w", err)
	}
	cache.Invalidate(ctx, s.cache, s.logger, s.keys.SearchHistory(userID))
	return nil
}
