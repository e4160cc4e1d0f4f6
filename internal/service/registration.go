package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/notify"
	"github.com/agromart/marketplace/internal/repository"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

const (
	// BcryptCost is the work factor of stored password hashes.
	BcryptCost = 12

	// MinPasswordLength applies to signup and password changes.
	MinPasswordLength = 8

	otpMin = 100000
	otpMax = 999999

	// MaxOTPAttempts wrong codes void an OTP; a new one must be requested.
	MaxOTPAttempts = 5
)

func tooManyAttempts() error {
	return apperrors.Unauthorized("too many failed attempts, request a new otp")
}

// policy lists the channels a role must verify, in the order they are
// verified.
type policy struct {
	role     domain.Role
	channels []domain.Channel
}

var policies = map[domain.Role]policy{
	domain.RoleUser:       {role: domain.RoleUser, channels: []domain.Channel{domain.ChannelPhone}},
	domain.RoleSeller:     {role: domain.RoleSeller, channels: []domain.Channel{domain.ChannelEmail, domain.ChannelPhone}},
	domain.RoleConsultant: {role: domain.RoleConsultant, channels: []domain.Channel{domain.ChannelEmail, domain.ChannelPhone}},
}

func (p policy) uses(ch domain.Channel) bool {
	for _, c := range p.channels {
		if c == ch {
			return true
		}
	}
	return false
}

// SignupInput carries the registration form of any role. Fields a role
// does not use are ignored.
type SignupInput struct {
	Role       domain.Role
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	GSTNumber  string
	Password   string
	Consultant *domain.ConsultantProfile
}

// RegistrationService runs the OTP signup flow shared by every role.
type RegistrationService struct {
	accounts      repository.AccountRepository
	verifications repository.VerificationRepository
	notifier      Notifier
	otpTTL        time.Duration
	logger        *slog.Logger
	now           func() time.Time
	generate      func() (string, error)
}

func NewRegistrationService(
	accounts repository.AccountRepository,
	verifications repository.VerificationRepository,
	notifier Notifier,
	otpTTL time.Duration,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		accounts:      accounts,
		verifications: verifications,
		notifier:      notifier,
		otpTTL:        otpTTL,
		logger:        logger,
		now:           time.Now,
		generate:      GenerateOTP,
	}
}

// GenerateOTP returns a uniformly random 6 digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func policyFor(role domain.Role) (policy, error) {
	p, ok := policies[role]
	if !ok {
		return policy{}, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
	}
	return p, nil
}

// SendEmailOTP starts email verification for sellers and consultants.
func (s *RegistrationService) SendEmailOTP(ctx context.Context, role domain.Role, email string) error {
	p, err := policyFor(role)
	if err != nil {
		return err
	}
	if !p.uses(domain.ChannelEmail) {
		return apperrors.InvalidInput(fmt.Sprintf("%s accounts do not register by email", role))
	}
	email = normalizeEmail(email)
	return s.send(ctx, p, domain.ChannelEmail, email)
}

// SendPhoneOTP starts phone verification. Roles that verify email first
// must pass the already verified email.
func (s *RegistrationService) SendPhoneOTP(ctx context.Context, role domain.Role, phone, email string) error {
	p, err := policyFor(role)
	if err != nil {
		return err
	}
	if p.uses(domain.ChannelEmail) {
		if err := s.requireVerified(ctx, role, domain.ChannelEmail, normalizeEmail(email)); err != nil {
			return err
		}
	}
	return s.send(ctx, p, domain.ChannelPhone, strings.TrimSpace(phone))
}

// SendPhoneChangeOTP sends a code to a new phone number for an existing
// account. The number must not belong to another account of that role.
func (s *RegistrationService) SendPhoneChangeOTP(ctx context.Context, role domain.Role, phone string) error {
	p, err := policyFor(role)
	if err != nil {
		return err
	}
	return s.send(ctx, p, domain.ChannelPhone, strings.TrimSpace(phone))
}

func (s *RegistrationService) send(ctx context.Context, p policy, ch domain.Channel, identifier string) error {
	if err := s.ensureUnregistered(ctx, p.role, ch, identifier); err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	v := &domain.Verification{
		ID:         uuid.NewString(),
		Role:       p.role,
		Channel:    ch,
		Identifier: identifier,
		Code:       code,
		ExpiresAt:  now.Add(s.otpTTL),
		CreatedAt:  now,
	}
	if err := s.verifications.Upsert(ctx, v); err != nil {
		return fmt.Errorf("store verification: %w", err)
	}

	msg := &notify.Message{
		Channel: ch,
		To:      identifier,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.otpTTL.Minutes())),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return apperrors.Unavailable(string(ch)+" delivery", err)
	}

	s.logger.InfoContext(ctx, "otp sent",
		slog.String("role", string(p.role)),
		slog.String("channel", string(ch)),
	)
	return nil
}

func (s *RegistrationService) ensureUnregistered(ctx context.Context, role domain.Role, ch domain.Channel, identifier string) error {
	var err error
	switch ch {
	case domain.ChannelEmail:
		_, err = s.accounts.GetByEmail(ctx, role, identifier)
	default:
		_, err = s.accounts.GetByPhone(ctx, role, identifier)
	}
	switch {
	case err == nil:
		return apperrors.AlreadyExists(string(role), string(ch), identifier)
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check existing %s: %w", ch, err)
	}
}

// VerifyEmailOTP checks an email code.
func (s *RegistrationService) VerifyEmailOTP(ctx context.Context, role domain.Role, email, code string) error {
	return s.verify(ctx, role, domain.ChannelEmail, normalizeEmail(email), code)
}

// VerifyPhoneOTP checks a phone code.
func (s *RegistrationService) VerifyPhoneOTP(ctx context.Context, role domain.Role, phone, code string) error {
	return s.verify(ctx, role, domain.ChannelPhone, strings.TrimSpace(phone), code)
}

func (s *RegistrationService) verify(ctx context.Context, role domain.Role, ch domain.Channel, identifier, code string) error {
	if _, err := policyFor(role); err != nil {
		return err
	}
	v, err := s.verifications.Get(ctx, role, ch, identifier)
	if err != nil {
		return err
	}
	if v.Attempts >= MaxOTPAttempts {
		return tooManyAttempts()
	}
	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) != 1 {
		attempts, err := s.verifications.RecordFailedAttempt(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("record failed attempt: %w", err)
		}
		if attempts >= MaxOTPAttempts {
			s.logger.WarnContext(ctx, "otp locked after failed attempts",
				slog.String("role", string(role)),
				slog.String("channel", string(ch)),
			)
			return tooManyAttempts()
		}
		return apperrors.InvalidInput("invalid otp")
	}
	if v.Expired(s.now()) {
		return apperrors.Unauthorized("otp has expired")
	}
	if err := s.verifications.MarkVerified(ctx, v.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// requireVerified returns the verification record of identifier when it
// has been verified.
func (s *RegistrationService) requireVerified(ctx context.Context, role domain.Role, ch domain.Channel, identifier string) error {
	_, err := s.verified(ctx, role, ch, identifier)
	return err
}

func (s *RegistrationService) verified(ctx context.Context, role domain.Role, ch domain.Channel, identifier string) (*domain.Verification, error) {
	v, err := s.verifications.Get(ctx, role, ch, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("%s %s has not been verified", ch, identifier))
		}
		return nil, err
	}
	if !v.Verified {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s %s has not been verified", ch, identifier))
	}
	return v, nil
}

// Signup creates the account once every channel of the role's policy has
// been verified. The verification records are consumed with the insert.
func (s *RegistrationService) Signup(ctx context.Context, in SignupInput) (*domain.Account, error) {
	p, err := policyFor(in.Role)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if in.Role == domain.RoleSeller && strings.TrimSpace(in.GSTNumber) == "" {
		return nil, apperrors.InvalidInput("GST number is required")
	}

	now := s.now().UTC()
	acc := &domain.Account{
		ID:        uuid.NewString(),
		Role:      in.Role,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.uses(domain.ChannelEmail) {
		acc.Email = normalizeEmail(in.Email)
	}
	if in.Role == domain.RoleSeller {
		acc.GSTNumber = strings.ToUpper(strings.TrimSpace(in.GSTNumber))
	}
	if in.Role == domain.RoleConsultant {
		acc.Consultant = &domain.ConsultantProfile{}
		if in.Consultant != nil {
			*acc.Consultant = *in.Consultant
		}
	}

	consumed := make([]string, 0, len(p.channels))
	for _, ch := range p.channels {
		identifier := acc.Phone
		if ch == domain.ChannelEmail {
			identifier = acc.Email
		}
		v, err := s.verified(ctx, in.Role, ch, identifier)
		if err != nil {
			return nil, err
		}
		consumed = append(consumed, v.ID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc.PasswordHash = string(hash)

	if err := s.accounts.Register(ctx, acc, consumed); err != nil {
		return nil, fmt.Errorf("register %s: %w", in.Role, err)
	}

	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", acc.ID),
		slog.String("role", string(acc.Role)),
	)
	return acc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
