package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/database"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/pagination"
)

const productColumns = `p.id, p.seller_id, p.name, p.brand, p.title, p.description, p.category,
	p.cost_price, p.selling_price, p.quantity, p.about, p.created_at, p.updated_at`

// firstImageJoin attaches the lowest-position image, if any, as img.*.
const firstImageJoin = `LEFT JOIN LATERAL (
		SELECT i.id, i.storage_key, i.position
		FROM product_images i
		WHERE i.product_id = p.id
		ORDER BY i.position
		LIMIT 1
	) img ON TRUE`

const (
	insertProductSQL = `
		INSERT INTO products (id, seller_id, name, brand, title, description, category,
		                      cost_price, selling_price, quantity, about, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	insertImageSQL = `
		INSERT INTO product_images (id, product_id, storage_key, position)
		VALUES ($1, $2, $3, $4)`

	updateProductSQL = `
		UPDATE products
		SET name = $3, brand = $4, title = $5, description = $6, category = $7,
		    cost_price = $8, selling_price = $9, quantity = $10, about = $11, updated_at = $12
		WHERE id = $1 AND seller_id = $2
		RETURNING created_at`

	selectImagesSQL = `
		SELECT id, product_id, storage_key, position
		FROM product_images
		WHERE product_id = $1
		ORDER BY position`

	deleteImagesSQL = `DELETE FROM product_images WHERE product_id = $1`
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts the product row and its image rows in one transaction.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "product.create", insertProductSQL)
	defer func() { end(err) }()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertProductSQL,
			p.ID,
			p.SellerID,
			p.Name,
			p.Brand,
			p.Title,
			p.Description,
			p.Category,
			p.CostPrice,
			p.SellingPrice,
			p.Quantity,
			p.About,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return insertImages(ctx, tx, p.Images)
	})
}

func insertImages(ctx context.Context, tx pgx.Tx, images []domain.ProductImage) error {
	for _, img := range images {
		if _, err := tx.Exec(ctx, insertImageSQL, img.ID, img.ProductID, img.StorageKey, img.Position); err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}
	return nil
}

// Update rewrites the product scoped to its seller. Zero matching rows
// means the product is missing or owned by someone else; the two are not
// distinguished.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, replaceImages bool) (replaced []domain.ProductImage, err error) {
	ctx, end := database.TraceQuery(ctx, "product.update", updateProductSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, updateProductSQL,
			p.ID,
			p.SellerID,
			p.Name,
			p.Brand,
			p.Title,
			p.Description,
			p.Category,
			p.CostPrice,
			p.SellingPrice,
			p.Quantity,
			p.About,
			p.UpdatedAt,
		).Scan(&p.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFoundf("product not found or not owned by seller")
			}
			return fmt.Errorf("update product: %w", err)
		}

		if !replaceImages {
			return nil
		}

		replaced, err = queryImages(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, deleteImagesSQL, p.ID); err != nil {
			return fmt.Errorf("delete product images: %w", err)
		}
		return insertImages(ctx, tx, p.Images)
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// querier is satisfied by both database.DBTX and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryImages(ctx context.Context, db querier, productID string) ([]domain.ProductImage, error) {
	rows, err := db.Query(ctx, selectImagesSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("query product images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.StorageKey, &img.Position); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product images: %w", err)
	}
	return images, nil
}

// GetByID retrieves a product and all of its images.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	ctx, end := database.TraceQuery(ctx, "product.get", query)
	defer func() { end(err) }()

	var product domain.Product
	err = r.db.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.SellerID,
		&product.Name,
		&product.Brand,
		&product.Title,
		&product.Description,
		&product.Category,
		&product.CostPrice,
		&product.SellingPrice,
		&product.Quantity,
		&product.About,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	product.Images, err = queryImages(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByCategory returns one page of a category, newest first.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string, page pagination.Page) (products []domain.Product, total int, err error) {
	query := `
		SELECT ` + productColumns + `, img.id, img.storage_key, img.position,
		       count(*) OVER() AS total_count
		FROM products p
		` + firstImageJoin + `
		WHERE p.category = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "product.list_by_category", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, category, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list products by category: %w", err)
	}
	defer rows.Close()

	products = []domain.Product{}
	for rows.Next() {
		p, err := scanListed(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

func (r *ProductRepository) Categories(ctx context.Context) (categories []string, err error) {
	const query = `SELECT DISTINCT category FROM products ORDER BY category`

	ctx, end := database.TraceQuery(ctx, "product.categories", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (r *ProductRepository) Recent(ctx context.Context, limit int) (products []domain.Product, err error) {
	query := `
		SELECT ` + productColumns + `, img.id, img.storage_key, img.position
		FROM products p
		` + firstImageJoin + `
		ORDER BY p.created_at DESC
		LIMIT $1`

	ctx, end := database.TraceQuery(ctx, "product.recent", query)
	defer func() { end(err) }()

	return r.listed(ctx, query, limit)
}

func (r *ProductRepository) All(ctx context.Context) (products []domain.Product, err error) {
	query := `
		SELECT ` + productColumns + `, img.id, img.storage_key, img.position
		FROM products p
		` + firstImageJoin + `
		ORDER BY p.created_at DESC`

	ctx, end := database.TraceQuery(ctx, "product.all", query)
	defer func() { end(err) }()

	return r.listed(ctx, query)
}

func (r *ProductRepository) listed(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanListed(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// scanListed scans productColumns followed by the nullable first-image
// columns and any extra destinations.
func scanListed(rows pgx.Rows, extra ...any) (domain.Product, error) {
	var (
		p      domain.Product
		imgID  *string
		imgKey *string
		imgPos *int
	)
	dest := []any{
		&p.ID,
		&p.SellerID,
		&p.Name,
		&p.Brand,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.CostPrice,
		&p.SellingPrice,
		&p.Quantity,
		&p.About,
		&p.CreatedAt,
		&p.UpdatedAt,
		&imgID,
		&imgKey,
		&imgPos,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return p, fmt.Errorf("scan product row: %w", err)
	}
	if imgID != nil && imgKey != nil {
		img := domain.ProductImage{ID: *imgID, ProductID: p.ID, StorageKey: *imgKey}
		if imgPos != nil {
			img.Position = *imgPos
		}
		p.Images = []domain.ProductImage{img}
	}
	return p, nil
}
