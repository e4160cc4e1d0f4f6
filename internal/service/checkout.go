package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/repository"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

// PlaceOrderInput is the delivery address and the payment details the
// client reports. Payment fields are stored as given.
type PlaceOrderInput struct {
	Address string
	Payment domain.Payment
}

// CheckoutService turns carts into orders.
type CheckoutService struct {
	cart   *CartService
	orders repository.OrderRepository
	events OrderEvents
	logger *slog.Logger
	now    func() time.Time
}

func NewCheckoutService(cart *CartService, orders repository.OrderRepository, events OrderEvents, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		cart:   cart,
		orders: orders,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Summary is the cart as it would be ordered.
func (s *CheckoutService) Summary(ctx context.Context, userID string) (domain.CartView, error) {
	return s.cart.Cart(ctx, userID)
}

// PlaceOrder orders the whole cart. The total is computed from the cart
// inside the order transaction, never taken from the client.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (*domain.Order, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return nil, apperrors.InvalidInput("delivery address is required")
	}

	payment := in.Payment
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusPending
	}
	order := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Address:     address,
		Payment:     payment,
		OrderStatus: domain.OrderStatusPlaced,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.orders.Place(ctx, order); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}
