package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/database"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

const (
	// The no-op DO UPDATE makes RETURNING yield the existing cart id.
	ensureCartSQL = `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`

	addCartItemSQL = `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity`

	cartLinesSQL = `
		SELECT c.id, ci.product_id, p.name, p.category, p.selling_price, ci.quantity,
		       COALESCE(img.storage_key, '')
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN LATERAL (
			SELECT i.storage_key FROM product_images i
			WHERE i.product_id = p.id
			ORDER BY i.position
			LIMIT 1
		) img ON TRUE
		WHERE c.user_id = $1
		ORDER BY ci.added_at, ci.product_id`

	setCartQuantitySQL = `
		UPDATE cart_items SET quantity = $3
		WHERE product_id = $2 AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`

	removeCartItemSQL = `
		DELETE FROM cart_items
		WHERE product_id = $2 AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	db database.DBTX
}

func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) (err error) {
	ctx, end := database.TraceQuery(ctx, "cart.add_item", addCartItemSQL)
	defer func() { end(err) }()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var cartID string
		if err := tx.QueryRow(ctx, ensureCartSQL, uuid.NewString(), userID).Scan(&cartID); err != nil {
			return fmt.Errorf("ensure cart: %w", err)
		}
		if _, err := tx.Exec(ctx, addCartItemSQL, cartID, productID, quantity); err != nil {
			return fmt.Errorf("add cart item: %w", err)
		}
		return nil
	})
}

// Lines returns the user's cart lines. The cart id is "" when the cart
// has no items.
func (r *CartRepository) Lines(ctx context.Context, userID string) (cartID string, lines []domain.CartLine, err error) {
	ctx, end := database.TraceQuery(ctx, "cart.lines", cartLinesSQL)
	defer func() { end(err) }()

	cartID, lines, err = queryCartLines(ctx, r.db, cartLinesSQL, userID)
	return cartID, lines, err
}

func queryCartLines(ctx context.Context, db querier, query, userID string) (string, []domain.CartLine, error) {
	rows, err := db.Query(ctx, query, userID)
	if err != nil {
		return "", nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	var cartID string
	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&cartID, &l.ProductID, &l.Name, &l.Category, &l.UnitPrice, &l.Quantity, &l.ImageKey); err != nil {
			return "", nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return cartID, lines, nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) (err error) {
	ctx, end := database.TraceQuery(ctx, "cart.set_quantity", setCartQuantitySQL)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, setCartQuantitySQL, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}
	return nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) (err error) {
	ctx, end := database.TraceQuery(ctx, "cart.remove_item", removeCartItemSQL)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, removeCartItemSQL, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}
	return nil
}
