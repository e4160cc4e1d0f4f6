package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/database"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

const appointmentColumns = `id, consultant_id, user_id, mode, date, start_time, end_time, status, created_at`

const (
	// Serialises bookings per consultant and day so two overlapping
	// requests cannot both pass the overlap check.
	lockDaySQL = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	blockingSlotsSQL = `
		SELECT start_time, end_time
		FROM appointments
		WHERE consultant_id = $1 AND date = $2 AND status NOT IN ('cancelled', 'rejected')
		ORDER BY start_time`

	insertAppointmentSQL = `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateAppointmentStatusSQL = `
		UPDATE appointments SET status = $3
		WHERE id = $1 AND consultant_id = $2
		RETURNING ` + appointmentColumns

	appointmentOwnerSQL = `SELECT consultant_id FROM appointments WHERE id = $1`
)

// AppointmentRepository implements repository.AppointmentRepository using PostgreSQL.
type AppointmentRepository struct {
	db database.DBTX
}

func NewAppointmentRepository(db database.DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Book(ctx context.Context, a *domain.Appointment) (err error) {
	ctx, end := database.TraceQuery(ctx, "appointment.book", insertAppointmentSQL)
	defer func() { end(err) }()

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		lockKey := a.ConsultantID + "/" + a.Date.Format(domain.DateLayout)
		if _, err := tx.Exec(ctx, lockDaySQL, lockKey); err != nil {
			return fmt.Errorf("lock consultant day: %w", err)
		}

		slots, err := querySlots(ctx, tx, a.ConsultantID, a.Date)
		if err != nil {
			return err
		}
		for _, s := range slots {
			if s.Overlaps(a.Slot()) {
				return apperrors.Conflict(fmt.Sprintf("consultant is already booked from %s to %s", s.StartTime, s.EndTime))
			}
		}

		_, err = tx.Exec(ctx, insertAppointmentSQL,
			a.ID,
			a.ConsultantID,
			a.UserID,
			string(a.Mode),
			a.Date,
			a.StartTime,
			a.EndTime,
			string(a.Status),
			a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id, consultantID string, status domain.AppointmentStatus) (a *domain.Appointment, err error) {
	ctx, end := database.TraceQuery(ctx, "appointment.update_status", updateAppointmentStatusSQL)
	defer func() { end(err) }()

	a, err = scanAppointment(r.db.QueryRow(ctx, updateAppointmentStatusSQL, id, consultantID, string(status)))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	var owner string
	if err := r.db.QueryRow(ctx, appointmentOwnerSQL, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", id)
		}
		return nil, fmt.Errorf("get appointment owner: %w", err)
	}
	return nil, apperrors.Forbidden("appointment belongs to another consultant")
}

func (r *AppointmentRepository) ListForUser(ctx context.Context, userID string) ([]domain.Appointment, error) {
	return r.list(ctx, "appointment.list_for_user", `WHERE user_id = $1`, userID)
}

func (r *AppointmentRepository) ListForConsultant(ctx context.Context, consultantID string) ([]domain.Appointment, error) {
	return r.list(ctx, "appointment.list_for_consultant", `WHERE consultant_id = $1`, consultantID)
}

func (r *AppointmentRepository) list(ctx context.Context, op, where, id string) (out []domain.Appointment, err error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments ` + where + ` ORDER BY date DESC, start_time`

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out = []domain.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return out, nil
}

func (r *AppointmentRepository) BookedSlots(ctx context.Context, consultantID string, date time.Time) (slots []domain.Slot, err error) {
	ctx, end := database.TraceQuery(ctx, "appointment.booked_slots", blockingSlotsSQL)
	defer func() { end(err) }()

	return querySlots(ctx, r.db, consultantID, date)
}

func querySlots(ctx context.Context, db querier, consultantID string, date time.Time) ([]domain.Slot, error) {
	rows, err := db.Query(ctx, blockingSlotsSQL, consultantID, date)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Slot, error) {
		var s domain.Slot
		err := row.Scan(&s.StartTime, &s.EndTime)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan booked slots: %w", err)
	}
	if slots == nil {
		slots = []domain.Slot{}
	}
	return slots, nil
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var (
		a      domain.Appointment
		mode   string
		status string
	)
	err := row.Scan(
		&a.ID,
		&a.ConsultantID,
		&a.UserID,
		&mode,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&status,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Mode = domain.AppointmentMode(mode)
	a.Status = domain.AppointmentStatus(status)
	return &a, nil
}
