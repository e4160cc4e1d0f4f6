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

const accountColumns = `id, role, first_name, last_name, COALESCE(email, ''), phone, COALESCE(gst_number, ''),
	password_hash, expertise, experience_years, starting_charges, profile_image, created_at, updated_at`

const insertAccountSQL = `
	INSERT INTO accounts (id, role, first_name, last_name, email, phone, gst_number, password_hash,
	                      expertise, experience_years, starting_charges, profile_image, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const deleteVerificationsSQL = `DELETE FROM verifications WHERE id = ANY($1)`

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db database.DBTX
}

func NewAccountRepository(db database.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Register inserts the account and consumes its verification records.
func (r *AccountRepository) Register(ctx context.Context, acc *domain.Account, consumed []string) (err error) {
	ctx, end := database.TraceQuery(ctx, "account.register", insertAccountSQL)
	defer func() { end(err) }()

	var (
		expertise, profileImage *string
		experience              *int
		charges                 *int64
	)
	if c := acc.Consultant; c != nil {
		expertise = &c.Expertise
		experience = &c.ExperienceYears
		charges = &c.StartingCharges
		profileImage = &c.ProfileImage
	}

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertAccountSQL,
			acc.ID,
			string(acc.Role),
			acc.FirstName,
			acc.LastName,
			nullable(acc.Email),
			acc.Phone,
			nullable(acc.GSTNumber),
			acc.PasswordHash,
			expertise,
			experience,
			charges,
			profileImage,
			acc.CreatedAt,
			acc.UpdatedAt,
		)
		if err != nil {
			if dup := duplicateAccount(err, acc); dup != nil {
				return dup
			}
			return fmt.Errorf("insert account: %w", err)
		}
		if len(consumed) > 0 {
			if _, err := tx.Exec(ctx, deleteVerificationsSQL, consumed); err != nil {
				return fmt.Errorf("consume verifications: %w", err)
			}
		}
		return nil
	})
}

// duplicateAccount maps a unique violation to the field that collided.
func duplicateAccount(err error, acc *domain.Account) error {
	constraint, ok := database.IsUniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case "accounts_role_email_key":
		return apperrors.AlreadyExists(string(acc.Role), "email", acc.Email)
	case "accounts_role_phone_key":
		return apperrors.AlreadyExists(string(acc.Role), "phone", acc.Phone)
	case "accounts_role_gst_number_key":
		return apperrors.AlreadyExists(string(acc.Role), "GST number", acc.GSTNumber)
	default:
		return apperrors.Conflict("account already exists")
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, "account.get", `WHERE id = $1`, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error) {
	return r.getOne(ctx, "account.get_by_email", `WHERE role = $1 AND email = $2`, string(role), email)
}

func (r *AccountRepository) GetByPhone(ctx context.Context, role domain.Role, phone string) (*domain.Account, error) {
	return r.getOne(ctx, "account.get_by_phone", `WHERE role = $1 AND phone = $2`, string(role), phone)
}

func (r *AccountRepository) getOne(ctx context.Context, op, where string, args ...any) (acc *domain.Account, err error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ` + where

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	acc, err = scanAccount(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("account not found")
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

func scanAccount(row pgx.Row, extra ...any) (*domain.Account, error) {
	var (
		acc          domain.Account
		role         string
		expertise    *string
		experience   *int
		charges      *int64
		profileImage *string
	)
	dest := []any{
		&acc.ID,
		&role,
		&acc.FirstName,
		&acc.LastName,
		&acc.Email,
		&acc.Phone,
		&acc.GSTNumber,
		&acc.PasswordHash,
		&expertise,
		&experience,
		&charges,
		&profileImage,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	acc.Role = domain.Role(role)

	if acc.Role == domain.RoleConsultant {
		c := &domain.ConsultantProfile{}
		if expertise != nil {
			c.Expertise = *expertise
		}
		if experience != nil {
			c.ExperienceYears = *experience
		}
		if charges != nil {
			c.StartingCharges = *charges
		}
		if profileImage != nil {
			c.ProfileImage = *profileImage
		}
		acc.Consultant = c
	}
	return &acc, nil
}

func (r *AccountRepository) UpdateName(ctx context.Context, id, firstName, lastName string) (err error) {
	const query = `UPDATE accounts SET first_name = $2, last_name = $3, updated_at = now() WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "account.update_name", query)
	defer func() { end(err) }()

	return r.execOne(ctx, query, id, firstName, lastName)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (err error) {
	const query = `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "account.update_password", query)
	defer func() { end(err) }()

	return r.execOne(ctx, query, id, passwordHash)
}

func (r *AccountRepository) execOne(ctx context.Context, query string, args ...any) error {
	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundf("account not found")
	}
	return nil
}

// UpdatePhone changes the phone number and consumes the verification that
// proved ownership of it.
func (r *AccountRepository) UpdatePhone(ctx context.Context, id, phone, verificationID string) (err error) {
	const query = `UPDATE accounts SET phone = $2, updated_at = now() WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "account.update_phone", query)
	defer func() { end(err) }()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, query, id, phone)
		if err != nil {
			if _, ok := database.IsUniqueViolation(err); ok {
				return apperrors.AlreadyExists("account", "phone", phone)
			}
			return fmt.Errorf("update phone: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFoundf("account not found")
		}
		if _, err := tx.Exec(ctx, deleteVerificationsSQL, []string{verificationID}); err != nil {
			return fmt.Errorf("consume verification: %w", err)
		}
		return nil
	})
}

func (r *AccountRepository) UpdateConsultantProfile(ctx context.Context, acc *domain.Account) (err error) {
	const query = `
		UPDATE accounts
		SET first_name = $2, last_name = $3, expertise = $4, experience_years = $5,
		    starting_charges = $6, profile_image = $7, updated_at = now()
		WHERE id = $1 AND role = 'consultant'`

	ctx, end := database.TraceQuery(ctx, "account.update_consultant", query)
	defer func() { end(err) }()

	c := acc.Consultant
	if c == nil {
		c = &domain.ConsultantProfile{}
	}
	return r.execOne(ctx, query,
		acc.ID,
		acc.FirstName,
		acc.LastName,
		c.Expertise,
		c.ExperienceYears,
		c.StartingCharges,
		nullable(c.ProfileImage),
	)
}

func (r *AccountRepository) ListConsultants(ctx context.Context, page pagination.Page) (accounts []domain.Account, total int, err error) {
	query := `
		SELECT ` + accountColumns + `, count(*) OVER() AS total_count
		FROM accounts
		WHERE role = 'consultant'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "account.list_consultants", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list consultants: %w", err)
	}
	defer rows.Close()

	accounts = []domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan consultant row: %w", err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate consultant rows: %w", err)
	}
	return accounts, total, nil
}
