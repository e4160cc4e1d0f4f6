package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agromart/marketplace/internal/cache"
	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/repository"
	"github.com/agromart/marketplace/internal/storage"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/pagination"
)

// RecentLimit is the number of products in the new-arrivals list.
const RecentLimit = 7

// CatalogService implements product writes and the cached catalog reads.
type CatalogService struct {
	repo   repository.ProductRepository
	cache  cache.Cache
	keys   cache.Keys
	store  storage.Storage
	events ProductEvents
	logger *slog.Logger
	now    func() time.Time
}

func NewCatalogService(
	repo repository.ProductRepository,
	c cache.Cache,
	keys cache.Keys,
	store storage.Storage,
	events ProductEvents,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		repo:   repo,
		cache:  c,
		keys:   keys,
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// AddProduct stores the images, then inserts the product and its image
// rows in one transaction. Uploaded files are removed if the insert fails.
func (s *CatalogService) AddProduct(ctx context.Context, sellerID string, fields domain.ProductFields, images []ImageUpload) (*domain.Product, error) {
	if msg := fields.Check(); msg != "" {
		return nil, apperrors.InvalidInput(msg)
	}
	if len(images) > domain.MaxProductImages {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d images are allowed", domain.MaxProductImages))
	}

	now := s.now().UTC()
	product := &domain.Product{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(product)

	keys, err := storeImages(ctx, s.store, "products/"+product.ID, images)
	if err != nil {
		return nil, err
	}
	product.Images = s.imageRows(product.ID, keys)

	if err := s.repo.Create(ctx, product); err != nil {
		s.discard(ctx, keys)
		return nil, fmt.Errorf("create product: %w", err)
	}

	cache.Invalidate(ctx, s.cache, s.logger, s.keys.Categories, s.keys.NewArrivals, s.keys.ProductSnapshot)

	if err := s.events.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("seller_id", sellerID),
		slog.Int("images", len(keys)),
	)
	return product, nil
}

// UpdateProduct rewrites a product owned by sellerID. When images are
// given they replace the existing set and the old files are deleted after
// the transaction commits. Nothing is invalidated when the product is not
// found or belongs to another seller.
func (s *CatalogService) UpdateProduct(ctx context.Context, sellerID, productID string, fields domain.ProductFields, images []ImageUpload) (*domain.Product, error) {
	if msg := fields.Check(); msg != "" {
		return nil, apperrors.InvalidInput(msg)
	}
	if len(images) > domain.MaxProductImages {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d images are allowed", domain.MaxProductImages))
	}

	product := &domain.Product{
		ID:        productID,
		SellerID:  sellerID,
		UpdatedAt: s.now().UTC(),
	}
	fields.Apply(product)

	keys, err := storeImages(ctx, s.store, "products/"+productID, images)
	if err != nil {
		return nil, err
	}
	product.Images = s.imageRows(productID, keys)

	replaced, err := s.repo.Update(ctx, product, len(keys) > 0)
	if err != nil {
		s.discard(ctx, keys)
		return nil, fmt.Errorf("update product: %w", err)
	}

	old := make([]string, len(replaced))
	for i, img := range replaced {
		old[i] = img.StorageKey
	}
	s.discard(ctx, old)

	cache.Invalidate(ctx, s.cache, s.logger, s.keys.Categories, s.keys.NewArrivals, s.keys.ProductSnapshot)

	updated, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishProductUpdated(ctx, updated); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", productID),
		slog.Bool("images_replaced", len(keys) > 0),
	)
	return updated, nil
}

// GetProduct returns the product with every image URL resolved.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	s.resolveURLs(product)
	return product, nil
}

// ListByCategory is read straight from the database.
func (s *CatalogService) ListByCategory(ctx context.Context, category string, page pagination.Page) ([]domain.ProductSummary, int, error) {
	products, total, err := s.repo.ListByCategory(ctx, category, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list products by category: %w", err)
	}
	return s.summarize(products), total, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return cache.Fetch(ctx, s.cache, s.logger, s.keys.Categories, func(ctx context.Context) ([]string, error) {
		categories, err := s.repo.Categories(ctx)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		return categories, nil
	})
}

// RecentlyAdded returns the RecentLimit newest products.
func (s *CatalogService) RecentlyAdded(ctx context.Context) ([]domain.ProductSummary, error) {
	return cache.Fetch(ctx, s.cache, s.logger, s.keys.NewArrivals, func(ctx context.Context) ([]domain.ProductSummary, error) {
		products, err := s.repo.Recent(ctx, RecentLimit)
		if err != nil {
			return nil, fmt.Errorf("list recent products: %w", err)
		}
		return s.summarize(products), nil
	})
}

// Snapshot is the full catalog that search ranks against.
func (s *CatalogService) Snapshot(ctx context.Context) ([]domain.ProductSummary, error) {
	return cache.Fetch(ctx, s.cache, s.logger, s.keys.ProductSnapshot, func(ctx context.Context) ([]domain.ProductSummary, error) {
		products, err := s.repo.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("load product snapshot: %w", err)
		}
		return s.summarize(products), nil
	})
}

func (s *CatalogService) imageRows(productID string, keys []string) []domain.ProductImage {
	if len(keys) == 0 {
		return nil
	}
	images := make([]domain.ProductImage, len(keys))
	for i, k := range keys {
		images[i] = domain.ProductImage{
			ID:         uuid.NewString(),
			ProductID:  productID,
			StorageKey: k,
			Position:   i,
			URL:        s.store.URL(k),
		}
	}
	return images
}

func (s *CatalogService) resolveURLs(p *domain.Product) {
	for i := range p.Images {
		p.Images[i].URL = s.store.URL(p.Images[i].StorageKey)
	}
}

func (s *CatalogService) summarize(products []domain.Product) []domain.ProductSummary {
	out := make([]domain.ProductSummary, len(products))
	for i := range products {
		s.resolveURLs(&products[i])
		out[i] = domain.Summarize(products[i])
	}
	return out
}

// discard deletes stored files, logging failures.
func (s *CatalogService) discard(ctx context.Context, keys []string) {
	for _, err := range removeKeys(ctx, s.store, keys) {
		s.logger.WarnContext(ctx, "failed to delete product image", slog.String("error", err.Error()))
	}
}
