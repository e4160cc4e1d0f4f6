package search

import (
	"sort"

	"github.com/agromart/marketplace/internal/domain"
)

// Threshold is the score a candidate must exceed to be returned.
const Threshold = 0.06

type rating struct {
	index int
	score float64
}

// Rank scores term against every product name and then every product
// description, and returns the products whose candidates beat Threshold,
// best first. A product that matches on both name and description appears
// twice. Catalogs of zero or one product are returned as they are.
func Rank(term string, products []domain.ProductSummary) []domain.ProductSummary {
	n := len(products)
	if n <= 1 {
		return products
	}

	ratings := make([]rating, 0, 2*n)
	for i := 0; i < 2*n; i++ {
		p := products[i%n]
		candidate := p.Name
		if i >= n {
			candidate = p.Description
		}
		if score := Similarity(term, candidate); score > Threshold {
			ratings = append(ratings, rating{index: i, score: score})
		}
	}

	sort.SliceStable(ratings, func(a, b int) bool {
		return ratings[a].score > ratings[b].score
	})

	out := make([]domain.ProductSummary, len(ratings))
	for i, r := range ratings {
		out[i] = products[r.index%n]
	}
	return out
}
