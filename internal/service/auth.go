package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/agromart/marketplace/internal/auth"
	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/repository"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

var errInvalidCredentials = apperrors.Unauthorized("invalid credentials")

// AuthService logs accounts in and refreshes their access tokens.
type AuthService struct {
	accounts repository.AccountRepository
	tokens   *auth.JWTManager
	logger   *slog.Logger
}

func NewAuthService(accounts repository.AccountRepository, tokens *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens, logger: logger}
}

// Login checks the password of the account identified by phone (users) or
// email (sellers and consultants). The error does not say which part was
// wrong.
func (s *AuthService) Login(ctx context.Context, role domain.Role, identifier, password string) (*domain.TokenPair, error) {
	var (
		acc *domain.Account
		err error
	)
	switch role {
	case domain.RoleUser:
		acc, err = s.accounts.GetByPhone(ctx, role, strings.TrimSpace(identifier))
	case domain.RoleSeller, domain.RoleConsultant:
		acc, err = s.accounts.GetByEmail(ctx, role, normalizeEmail(identifier))
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(acc.ID, acc.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "account logged in",
		slog.String("account_id", acc.ID),
		slog.String("role", string(acc.Role)),
	)
	return pair, nil
}

// Refresh issues a new access token for a valid refresh token whose
// account still exists. The refresh token is handed back unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	acc, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	access, err := s.tokens.GenerateAccessToken(acc.ID, acc.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessExpiry().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}
