package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/database"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

const (
	lockCartLinesSQL = `
		SELECT c.id, ci.product_id, p.name, p.category, p.selling_price, ci.quantity, ''
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id = $1
		ORDER BY ci.added_at, ci.product_id
		FOR UPDATE OF ci`

	insertOrderSQL = `
		INSERT INTO orders (id, user_id, address, total_amount, transaction_id, payment_id,
		                    payment_method, payment_status, order_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertOrderItemSQL = `
		INSERT INTO order_items (order_id, product_id, name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5)`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

// errEmptyCart aborts the order transaction.
var errEmptyCart = errors.New("cart is empty")

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Place turns the user's cart into an order. The cart rows are locked for
// the duration so a concurrent add cannot slip past the snapshot.
func (r *OrderRepository) Place(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "order.place", insertOrderSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		cartID, lines, err := queryCartLines(ctx, tx, lockCartLinesSQL, o.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return errEmptyCart
		}

		view := domain.NewCartView(cartID, lines)
		o.TotalAmount = view.Total
		o.Items = make([]domain.OrderItem, len(view.Lines))
		for i, l := range view.Lines {
			o.Items[i] = domain.OrderItem{
				ProductID: l.ProductID,
				Name:      l.Name,
				UnitPrice: l.UnitPrice,
				Quantity:  l.Quantity,
			}
		}

		_, err = tx.Exec(ctx, insertOrderSQL,
			o.ID,
			o.UserID,
			o.Address,
			o.TotalAmount,
			o.Payment.TransactionID,
			o.Payment.PaymentID,
			o.Payment.Method,
			o.Payment.Status,
			o.OrderStatus,
			o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, it := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL, o.ID, it.ProductID, it.Name, it.UnitPrice, it.Quantity); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, clearCartSQL, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if errors.Is(err, errEmptyCart) {
		return apperrors.InvalidInput("cart is empty")
	}
	return err
}
