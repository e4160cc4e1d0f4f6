package service

import (
	"context"
	"fmt"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/repository"
	"github.com/agromart/marketplace/internal/storage"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

// CartService manages a user's cart.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	store    storage.Storage
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, store storage.Storage) *CartService {
	return &CartService{carts: carts, products: products, store: store}
}

// AddItem adds quantity of a product, creating the cart on first use.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return apperrors.InvalidInput("quantity must be greater than 0")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if err := s.carts.AddItem(ctx, userID, productID, quantity); err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// Cart returns the lines with image URLs and the server-side total.
func (s *CartService) Cart(ctx context.Context, userID string) (domain.CartView, error) {
	cartID, lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("get cart: %w", err)
	}
	for i := range lines {
		if lines[i].ImageKey != "" {
			lines[i].ImageURL = s.store.URL(lines[i].ImageKey)
		}
	}
	return domain.NewCartView(cartID, lines), nil
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if err := s.carts.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}
