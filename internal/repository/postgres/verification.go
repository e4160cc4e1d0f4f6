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
	upsertVerificationSQL = `
		INSERT INTO verifications (id, role, channel, identifier, code, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT ON CONSTRAINT verifications_identity_key DO UPDATE
		SET code = EXCLUDED.code,
		    expires_at = EXCLUDED.expires_at,
		    verified = FALSE,
		    attempts = 0,
		    created_at = EXCLUDED.created_at
		RETURNING id`

	selectVerificationSQL = `
		SELECT id, role, channel, identifier, code, expires_at, verified, attempts, created_at
		FROM verifications
		WHERE role = $1 AND channel = $2 AND identifier = $3`

	markVerifiedSQL = `UPDATE verifications SET verified = TRUE WHERE id = $1`

	failedAttemptSQL = `
		UPDATE verifications
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`
)

// VerificationRepository implements repository.VerificationRepository using PostgreSQL.
type VerificationRepository struct {
	db database.DBTX
}

func NewVerificationRepository(db database.DBTX) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Upsert writes v, keeping the id of any existing record for the same
// identifier. v.ID is set to the stored id.
func (r *VerificationRepository) Upsert(ctx context.Context, v *domain.Verification) (err error) {
	ctx, end := database.TraceQuery(ctx, "verification.upsert", upsertVerificationSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, upsertVerificationSQL,
		v.ID,
		string(v.Role),
		string(v.Channel),
		v.Identifier,
		v.Code,
		v.ExpiresAt,
		v.CreatedAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("upsert verification: %w", err)
	}
	v.Verified = false
	v.Attempts = 0
	return nil
}

func (r *VerificationRepository) Get(ctx context.Context, role domain.Role, channel domain.Channel, identifier string) (v *domain.Verification, err error) {
	ctx, end := database.TraceQuery(ctx, "verification.get", selectVerificationSQL)
	defer func() { end(err) }()

	var (
		out        domain.Verification
		roleStr    string
		channelStr string
	)
	err = r.db.QueryRow(ctx, selectVerificationSQL, string(role), string(channel), identifier).Scan(
		&out.ID,
		&roleStr,
		&channelStr,
		&out.Identifier,
		&out.Code,
		&out.ExpiresAt,
		&out.Verified,
		&out.Attempts,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no verification pending for %s", identifier)
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	out.Role = domain.Role(roleStr)
	out.Channel = domain.Channel(channelStr)
	return &out, nil
}

func (r *VerificationRepository) MarkVerified(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, "verification.mark_verified", markVerifiedSQL)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, markVerifiedSQL, id)
	if err != nil {
		return fmt.Errorf("mark verification verified: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("verification", id)
	}
	return nil
}

// RecordFailedAttempt bumps the wrong-code counter and returns its new value.
func (r *VerificationRepository) RecordFailedAttempt(ctx context.Context, id string) (attempts int, err error) {
	ctx, end := database.TraceQuery(ctx, "verification.failed_attempt", failedAttemptSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, failedAttemptSQL, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("verification", id)
		}
		return 0, fmt.Errorf("record failed otp attempt: %w", err)
	}
	return attempts, nil
}
