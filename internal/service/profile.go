package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/repository"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

// ProfileService manages a user's own account details and addresses.
type ProfileService struct {
	accounts      repository.AccountRepository
	addresses     repository.AddressRepository
	verifications repository.VerificationRepository
	logger        *slog.Logger
	now           func() time.Time
}

func NewProfileService(
	accounts repository.AccountRepository,
	addresses repository.AddressRepository,
	verifications repository.VerificationRepository,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		accounts:      accounts,
		addresses:     addresses,
		verifications: verifications,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *ProfileService) AddAddress(ctx context.Context, userID string, in domain.Address) (*domain.Address, error) {
	addr := in
	addr.ID = uuid.NewString()
	addr.UserID = userID
	addr.CreatedAt = s.now().UTC()
	if strings.TrimSpace(addr.Country) == "" {
		addr.Country = domain.DefaultCountry
	}
	if err := s.addresses.Create(ctx, &addr); err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}
	return &addr, nil
}

func (s *ProfileService) Addresses(ctx context.Context, userID string) ([]domain.Address, error) {
	addrs, err := s.addresses.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addrs, nil
}

func (s *ProfileService) UpdateAddress(ctx context.Context, userID, id string, in domain.Address) (*domain.Address, error) {
	addr := in
	addr.ID = id
	addr.UserID = userID
	if strings.TrimSpace(addr.Country) == "" {
		addr.Country = domain.DefaultCountry
	}
	if err := s.addresses.Update(ctx, &addr); err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}
	return &addr, nil
}

func (s *ProfileService) DeleteAddress(ctx context.Context, userID, id string) error {
	if err := s.addresses.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}

func (s *ProfileService) UpdateName(ctx context.Context, accountID, firstName, lastName string) error {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" {
		return apperrors.InvalidInput("first name is required")
	}
	if err := s.accounts.UpdateName(ctx, accountID, firstName, lastName); err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *ProfileService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	if len(next) < MinPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(current)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", slog.String("account_id", accountID))
	return nil
}

// UpdatePhone moves the account to a phone number verified through the
// OTP flow. The verification is consumed.
func (s *ProfileService) UpdatePhone(ctx context.Context, accountID, phone string) error {
	phone = strings.TrimSpace(phone)
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if acc.Phone == phone {
		return apperrors.InvalidInput("phone is unchanged")
	}

	v, err := s.verifications.Get(ctx, acc.Role, domain.ChannelPhone, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput("phone " + phone + " has not been verified")
		}
		return fmt.Errorf("get verification: %w", err)
	}
	if !v.Verified {
		return apperrors.InvalidInput("phone " + phone + " has not been verified")
	}

	if err := s.accounts.UpdatePhone(ctx, accountID, phone, v.ID); err != nil {
		return fmt.Errorf("update phone: %w", err)
	}
	return nil
}
