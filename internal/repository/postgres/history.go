package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agromart/marketplace/pkg/database"
)

const (
	selectHistorySQL = `
		SELECT term
		FROM search_history
		WHERE user_id = $1
		ORDER BY searched_at DESC, id
		LIMIT $2`

	insertHistorySQL = `
		INSERT INTO search_history (id, user_id, term, searched_at)
		VALUES ($1, $2, $3, $4)`

	trimHistorySQL = `
		DELETE FROM search_history
		WHERE user_id = $1
		  AND id NOT IN (
		      SELECT id FROM search_history
		      WHERE user_id = $1
		      ORDER BY searched_at DESC, id
		      LIMIT $2
		  )`
)

// HistoryRepository implements repository.HistoryRepository using PostgreSQL.
type HistoryRepository struct {
	db database.DBTX
}

func NewHistoryRepository(db database.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) List(ctx context.Context, userID string, limit int) (terms []string, err error) {
	ctx, end := database.TraceQuery(ctx, "search_history.list", selectHistorySQL)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, selectHistorySQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	terms, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan search history: %w", err)
	}
	if terms == nil {
		terms = []string{}
	}
	return terms, nil
}

// Append inserts term and drops everything beyond the keep most recent
// entries, in one transaction.
func (r *HistoryRepository) Append(ctx context.Context, userID, term string, keep int) (err error) {
	ctx, end := database.TraceQuery(ctx, "search_history.append", insertHistorySQL)
	defer func() { end(err) }()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertHistorySQL, uuid.NewString(), userID, term, time.Now().UTC()); err != nil {
			return fmt.Errorf("insert search history: %w", err)
		}
		if _, err := tx.Exec(ctx, trimHistorySQL, userID, keep); err != nil {
			return fmt.Errorf("trim search history: %w", err)
		}
		return nil
	})
}
