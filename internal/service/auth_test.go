package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agromart/marketplace/internal/auth"
	"github.com/agromart/marketplace/internal/domain"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/logger"
)

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newAuth() (*AuthService, *mockAccountRepository, *auth.JWTManager) {
	accounts := new(mockAccountRepository)
	tokens := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour, 7*24*time.Hour)
	return NewAuthService(accounts, tokens, logger.Discard()), accounts, tokens
}

func TestLogin_UserByPhone(t *testing.T) {
	svc, accounts, tokens := newAuth()
	ctx := context.Background()
	accounts.On("GetByPhone", ctx, domain.RoleUser, "9876543210").
		Return(&domain.Account{ID: "user-1", Role: domain.RoleUser, PasswordHash: hashed(t, "password1")}, nil)

	pair, err := svc.Login(ctx, domain.RoleUser, "9876543210", "password1")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	p, err := tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.AccountID)
	assert.Equal(t, "user", p.Role)
}

func TestLogin_SellerByEmail(t *testing.T) {
	svc, accounts, _ := newAuth()
	ctx := context.Background()
	accounts.On("GetByEmail", ctx, domain.RoleSeller, "asha@example.com").
		Return(&domain.Account{ID: "seller-1", Role: domain.RoleSeller, PasswordHash: hashed(t, "password1")}, nil)

	_, err := svc.Login(ctx, domain.RoleSeller, " ASHA@example.com", "password1")
	require.NoError(t, err)
}

func TestLogin_FailuresLookAlike(t *testing.T) {
	svc, accounts, _ := newAuth()
	ctx := context.Background()
	accounts.On("GetByPhone", ctx, domain.RoleUser, "9000000000").Return(nil, apperrors.NotFoundf("account not found"))
	accounts.On("GetByPhone", ctx, domain.RoleUser, "9876543210").
		Return(&domain.Account{ID: "user-1", Role: domain.RoleUser, PasswordHash: hashed(t, "password1")}, nil)

	_, unknown := svc.Login(ctx, domain.RoleUser, "9000000000", "password1")
	_, wrong := svc.Login(ctx, domain.RoleUser, "9876543210", "nope-nope")

	assert.ErrorIs(t, unknown, apperrors.ErrUnauthorized)
	assert.ErrorIs(t, wrong, apperrors.ErrUnauthorized)
	assert.Equal(t, unknown.Error(), wrong.Error())
}

func TestLogin_DatastoreError(t *testing.T) {
	svc, accounts, _ := newAuth()
	ctx := context.Background()
	accounts.On("GetByPhone", ctx, domain.RoleUser, "9876543210").Return(nil, errors.New("pool closed"))

	_, err := svc.Login(ctx, domain.RoleUser, "9876543210", "password1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh(t *testing.T) {
	svc, accounts, tokens := newAuth()
	ctx := context.Background()
	pair, err := tokens.GeneratePair("seller-1", domain.RoleSeller)
	require.NoError(t, err)
	accounts.On("GetByID", ctx, "seller-1").Return(&domain.Account{ID: "seller-1", Role: domain.RoleSeller}, nil)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken)

	p, err := tokens.VerifyAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "seller", p.Role)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _, tokens := newAuth()
	access, err := tokens.GenerateAccessToken("seller-1", domain.RoleSeller)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_AccountGone(t *testing.T) {
	svc, accounts, tokens := newAuth()
	ctx := context.Background()
	pair, err := tokens.GeneratePair("user-9", domain.RoleUser)
	require.NoError(t, err)
	accounts.On("GetByID", ctx, "user-9").Return(nil, apperrors.NotFoundf("account not found"))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
