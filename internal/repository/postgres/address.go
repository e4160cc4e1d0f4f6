package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/database"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

const addressColumns = `id, user_id, line_one, line_two, street, landmark, city, state, country, zip_code, created_at`

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	db database.DBTX
}

func NewAddressRepository(db database.DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) Create(ctx context.Context, a *domain.Address) (err error) {
	const query = `
		INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ctx, end := database.TraceQuery(ctx, "address.create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.LineOne,
		a.LineTwo,
		a.Street,
		a.Landmark,
		a.City,
		a.State,
		a.Country,
		a.ZipCode,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *AddressRepository) List(ctx context.Context, userID string) (addresses []domain.Address, err error) {
	const query = `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY created_at`

	ctx, end := database.TraceQuery(ctx, "address.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	addresses, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Address, error) {
		var a domain.Address
		err := row.Scan(
			&a.ID,
			&a.UserID,
			&a.LineOne,
			&a.LineTwo,
			&a.Street,
			&a.Landmark,
			&a.City,
			&a.State,
			&a.Country,
			&a.ZipCode,
			&a.CreatedAt,
		)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan address rows: %w", err)
	}
	if addresses == nil {
		addresses = []domain.Address{}
	}
	return addresses, nil
}

func (r *AddressRepository) Update(ctx context.Context, a *domain.Address) (err error) {
	const query = `
		UPDATE addresses
		SET line_one = $3, line_two = $4, street = $5, landmark = $6, city = $7,
		    state = $8, country = $9, zip_code = $10
		WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "address.update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.LineOne,
		a.LineTwo,
		a.Street,
		a.Landmark,
		a.City,
		a.State,
		a.Country,
		a.ZipCode,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", a.ID)
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, userID, id string) (err error) {
	const query = `DELETE FROM addresses WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "address.delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", id)
	}
	return nil
}
