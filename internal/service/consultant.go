package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/repository"
	"github.com/agromart/marketplace/internal/storage"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/pagination"
)

// ProfileInput is a consultant's editable public profile.
type ProfileInput struct {
	FirstName       string
	LastName        string
	Expertise       string
	ExperienceYears int
	StartingCharges int64
}

// BookInput requests an appointment. Date is "YYYY-MM-DD", times "HH:MM".
type BookInput struct {
	ConsultantID string
	Mode         domain.AppointmentMode
	Date         string
	StartTime    string
	EndTime      string
}

// ConsultantService manages consultant profiles and appointments.
type ConsultantService struct {
	accounts     repository.AccountRepository
	appointments repository.AppointmentRepository
	store        storage.Storage
	logger       *slog.Logger
	now          func() time.Time
}

func NewConsultantService(
	accounts repository.AccountRepository,
	appointments repository.AppointmentRepository,
	store storage.Storage,
	logger *slog.Logger,
) *ConsultantService {
	return &ConsultantService{
		accounts:     accounts,
		appointments: appointments,
		store:        store,
		logger:       logger,
		now:          time.Now,
	}
}

// UpdateProfile rewrites the consultant's profile. A new profile image,
// when given, replaces the stored one.
func (s *ConsultantService) UpdateProfile(ctx context.Context, consultantID string, in ProfileInput, image *ImageUpload) (*domain.Account, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, apperrors.InvalidInput("first name is required")
	}
	if in.ExperienceYears < 0 || in.StartingCharges < 0 {
		return nil, apperrors.InvalidInput("experience and starting charges must not be negative")
	}

	acc, err := s.accounts.GetByID(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("get consultant: %w", err)
	}
	if acc.Role != domain.RoleConsultant {
		return nil, apperrors.Forbidden("only consultants have a profile")
	}
	previous := ""
	if acc.Consultant != nil {
		previous = acc.Consultant.ProfileImage
	}

	acc.FirstName = strings.TrimSpace(in.FirstName)
	acc.LastName = strings.TrimSpace(in.LastName)
	acc.Consultant = &domain.ConsultantProfile{
		Expertise:       strings.TrimSpace(in.Expertise),
		ExperienceYears: in.ExperienceYears,
		StartingCharges: in.StartingCharges,
		ProfileImage:    previous,
	}

	var stored []string
	if image != nil {
		stored, err = storeImages(ctx, s.store, "consultants/"+consultantID, []ImageUpload{*image})
		if err != nil {
			return nil, err
		}
		acc.Consultant.ProfileImage = stored[0]
	}

	if err := s.accounts.UpdateConsultantProfile(ctx, acc); err != nil {
		removeKeys(ctx, s.store, stored)
		return nil, fmt.Errorf("update consultant profile: %w", err)
	}
	if len(stored) > 0 && previous != "" {
		for _, err := range removeKeys(ctx, s.store, []string{previous}) {
			s.logger.WarnContext(ctx, "failed to delete old profile image", slog.String("error", err.Error()))
		}
	}

	s.resolveImage(acc)
	return acc, nil
}

func (s *ConsultantService) ListConsultants(ctx context.Context, page pagination.Page) ([]domain.Account, int, error) {
	accounts, total, err := s.accounts.ListConsultants(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list consultants: %w", err)
	}
	for i := range accounts {
		s.resolveImage(&accounts[i])
	}
	return accounts, total, nil
}

// Book reserves a slot with a consultant. Overlapping a pending, accepted
// or completed appointment on the same day is a Conflict.
func (s *ConsultantService) Book(ctx context.Context, userID string, in BookInput) (*domain.Appointment, error) {
	if in.Mode != domain.ModeOnline && in.Mode != domain.ModeOffline {
		return nil, apperrors.InvalidInput("mode must be online or offline")
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if !domain.ValidClock(in.StartTime) || !domain.ValidClock(in.EndTime) {
		return nil, apperrors.InvalidInput("times must be in HH:MM format")
	}
	if in.StartTime >= in.EndTime {
		return nil, apperrors.InvalidInput("start time must be before end time")
	}

	consultant, err := s.accounts.GetByID(ctx, in.ConsultantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("consultant", in.ConsultantID)
		}
		return nil, fmt.Errorf("get consultant: %w", err)
	}
	if consultant.Role != domain.RoleConsultant {
		return nil, apperrors.NotFound("consultant", in.ConsultantID)
	}

	appt := &domain.Appointment{
		ID:           uuid.NewString(),
		ConsultantID: in.ConsultantID,
		UserID:       userID,
		Mode:         in.Mode,
		Date:         date,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Status:       domain.AppointmentPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.appointments.Book(ctx, appt); err != nil {
		return nil, fmt.Errorf("book appointment: %w", err)
	}

	s.logger.InfoContext(ctx, "appointment booked",
		slog.String("appointment_id", appt.ID),
		slog.String("consultant_id", appt.ConsultantID),
	)
	return appt, nil
}

// UpdateStatus is only allowed to the consultant the appointment is with.
func (s *ConsultantService) UpdateStatus(ctx context.Context, consultantID, appointmentID string, status domain.AppointmentStatus) (*domain.Appointment, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown appointment status %q", status))
	}
	appt, err := s.appointments.UpdateStatus(ctx, appointmentID, consultantID, status)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return appt, nil
}

func (s *ConsultantService) ListForUser(ctx context.Context, userID string) ([]domain.Appointment, error) {
	appts, err := s.appointments.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user appointments: %w", err)
	}
	return appts, nil
}

func (s *ConsultantService) ListForConsultant(ctx context.Context, consultantID string) ([]domain.Appointment, error) {
	appts, err := s.appointments.ListForConsultant(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("list consultant appointments: %w", err)
	}
	return appts, nil
}

// BookedSlots lists the occupied intervals of a consultant's day.
func (s *ConsultantService) BookedSlots(ctx context.Context, consultantID, day string) ([]domain.Slot, error) {
	date, err := parseDate(day)
	if err != nil {
		return nil, err
	}
	slots, err := s.appointments.BookedSlots(ctx, consultantID, date)
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	return slots, nil
}

func (s *ConsultantService) resolveImage(acc *domain.Account) {
	if acc.Consultant != nil && acc.Consultant.ProfileImage != "" {
		acc.Consultant.ProfileImage = s.store.URL(acc.Consultant.ProfileImage)
	}
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("date must be in YYYY-MM-DD format")
	}
	return d, nil
}
