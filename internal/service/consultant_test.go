package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/storage"
	"github.com/agromart/marketplace/internal/storage/memory"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/logger"
	"github.com/agromart/marketplace/pkg/pagination"
)

func newConsultants() (*ConsultantService, *mockAccountRepository, *mockAppointmentRepository, *memory.Storage) {
	accounts := new(mockAccountRepository)
	appointments := new(mockAppointmentRepository)
	store := memory.New("/media")
	svc := NewConsultantService(accounts, appointments, store, logger.Discard())
	svc.now = clock
	return svc, accounts, appointments, store
}

func validBooking() BookInput {
	return BookInput{
		ConsultantID: "cons-1",
		Mode:         domain.ModeOnline,
		Date:         "2025-04-02",
		StartTime:    "10:00",
		EndTime:      "10:30",
	}
}

// ─── Book ───────────────────────────────────────────────────────────────────

func TestBook_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*BookInput)
	}{
		{"unknown mode", func(in *BookInput) { in.Mode = "phone" }},
		{"bad date", func(in *BookInput) { in.Date = "02/04/2025" }},
		{"bad start", func(in *BookInput) { in.StartTime = "9:00" }},
		{"hour out of range", func(in *BookInput) { in.EndTime = "24:00" }},
		{"end before start", func(in *BookInput) { in.StartTime, in.EndTime = "11:00", "10:00" }},
		{"empty interval", func(in *BookInput) { in.EndTime = in.StartTime }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, accounts, appointments, _ := newConsultants()
			in := validBooking()
			tt.modify(&in)

			_, err := svc.Book(context.Background(), "user-1", in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			appointments.AssertNotCalled(t, "Book", mock.Anything, mock.Anything)
		})
	}
}

func TestBook_NotAConsultant(t *testing.T) {
	svc, accounts, appointments, _ := newConsultants()
	ctx := context.Background()
	accounts.On("GetByID", ctx, "cons-1").Return(&domain.Account{ID: "cons-1", Role: domain.RoleSeller}, nil)

	_, err := svc.Book(ctx, "user-1", validBooking())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "consultant")
	appointments.AssertNotCalled(t, "Book", mock.Anything, mock.Anything)
}

func TestBook_UnknownConsultant(t *testing.T) {
	svc, accounts, _, _ := newConsultants()
	ctx := context.Background()
	accounts.On("GetByID", ctx, "cons-1").Return(nil, apperrors.NotFoundf("account not found"))

	_, err := svc.Book(ctx, "user-1", validBooking())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBook(t *testing.T) {
	svc, accounts, appointments, _ := newConsultants()
	ctx := context.Background()
	accounts.On("GetByID", ctx, "cons-1").Return(&domain.Account{ID: "cons-1", Role: domain.RoleConsultant}, nil)
	appointments.On("Book", ctx, mock.AnythingOfType("*domain.Appointment")).Return(nil)

	appt, err := svc.Book(ctx, "user-1", validBooking())
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentPending, appt.Status)
	assert.Equal(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), appt.Date)
	assert.Equal(t, "user-1", appt.UserID)
	assert.Equal(t, fixedNow, appt.CreatedAt)
}

func TestBook_Overlap(t *testing.T) {
	svc, accounts, appointments, _ := newConsultants()
	ctx := context.Background()
	accounts.On("GetByID", ctx, "cons-1").Return(&domain.Account{ID: "cons-1", Role: domain.RoleConsultant}, nil)
	appointments.On("Book", ctx, mock.Anything).Return(apperrors.Conflict("slot 10:00-10:30 is already booked"))

	_, err := svc.Book(ctx, "user-1", validBooking())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

// ─── Status & Slots ─────────────────────────────────────────────────────────

func TestUpdateStatus_Unknown(t *testing.T) {
	svc, _, appointments, _ := newConsultants()

	_, err := svc.UpdateStatus(context.Background(), "cons-1", "appt-1", "maybe")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	appointments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus(t *testing.T) {
	svc, _, appointments, _ := newConsultants()
	ctx := context.Background()
	appointments.On("UpdateStatus", ctx, "appt-1", "cons-1", domain.AppointmentAccepted).
		Return(&domain.Appointment{ID: "appt-1", Status: domain.AppointmentAccepted}, nil)

	appt, err := svc.UpdateStatus(ctx, "cons-1", "appt-1", domain.AppointmentAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentAccepted, appt.Status)
}

func TestBookedSlots(t *testing.T) {
	svc, _, appointments, _ := newConsultants()
	ctx := context.Background()
	day := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	appointments.On("BookedSlots", ctx, "cons-1", day).
		Return([]domain.Slot{{StartTime: "10:00", EndTime: "10:30"}}, nil)

	slots, err := svc.BookedSlots(ctx, "cons-1", "2025-04-02")
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	_, err = svc.BookedSlots(ctx, "cons-1", "tomorrow")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ─── Profile ────────────────────────────────────────────────────────────────

func TestUpdateProfile_ReplacesImage(t *testing.T) {
	svc, accounts, _, store := newConsultants()
	ctx := context.Background()
	_, err := store.Upload(ctx, &storage.UploadInput{Key: "consultants/cons-1/old.jpg", Data: strings.NewReader("jpg")})
	require.NoError(t, err)

	accounts.On("GetByID", ctx, "cons-1").Return(&domain.Account{
		ID:         "cons-1",
		Role:       domain.RoleConsultant,
		Consultant: &domain.ConsultantProfile{ProfileImage: "consultants/cons-1/old.jpg"},
	}, nil)
	accounts.On("UpdateConsultantProfile", ctx, mock.AnythingOfType("*domain.Account")).Return(nil)

	acc, err := svc.UpdateProfile(ctx, "cons-1", ProfileInput{
		FirstName:       "Meera",
		Expertise:       "Soil health",
		ExperienceYears: 6,
		StartingCharges: 50000,
	}, &ImageUpload{Filename: "me.png", ContentType: "image/png", Size: 3, Data: strings.NewReader("png")})
	require.NoError(t, err)

	assert.False(t, store.Has("consultants/cons-1/old.jpg"))
	assert.Equal(t, 1, store.Len())
	assert.True(t, strings.HasPrefix(acc.Consultant.ProfileImage, "/media/consultants/cons-1/"))
	assert.True(t, strings.HasSuffix(acc.Consultant.ProfileImage, ".png"))
	assert.Equal(t, "Soil health", acc.Consultant.Expertise)
}

func TestUpdateProfile_OnlyConsultants(t *testing.T) {
	svc, accounts, _, store := newConsultants()
	ctx := context.Background()
	accounts.On("GetByID", ctx, "user-1").Return(&domain.Account{ID: "user-1", Role: domain.RoleUser}, nil)

	_, err := svc.UpdateProfile(ctx, "user-1", ProfileInput{FirstName: "Ravi"}, &ImageUpload{Filename: "me.png", Data: strings.NewReader("png")})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Zero(t, store.Len())
}

func TestUpdateProfile_Validation(t *testing.T) {
	svc, accounts, _, _ := newConsultants()

	_, err := svc.UpdateProfile(context.Background(), "cons-1", ProfileInput{FirstName: "Meera", ExperienceYears: -1}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestListConsultants_ResolvesImages(t *testing.T) {
	svc, accounts, _, _ := newConsultants()
	ctx := context.Background()
	page := pagination.Page{Number: 1, PerPage: 20}
	accounts.On("ListConsultants", ctx, page).Return([]domain.Account{
		{ID: "cons-1", Consultant: &domain.ConsultantProfile{ProfileImage: "consultants/cons-1/a.png"}},
		{ID: "cons-2", Consultant: &domain.ConsultantProfile{}},
	}, 2, nil)

	list, total, err := svc.ListConsultants(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "/media/consultants/cons-1/a.png", list[0].Consultant.ProfileImage)
	assert.Empty(t, list[1].Consultant.ProfileImage)
}
