package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromart/marketplace/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGeneratePair_RoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)

	pair, err := m.GeneratePair("acc-1", domain.RoleSeller)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)
	assert.Equal(t, "Bearer", pair.TokenType)

	p, err := m.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", p.AccountID)
	assert.Equal(t, "seller", p.Role)

	claims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "seller", claims.Role)
}

func TestValidate_RejectsSwappedTokenTypes(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, time.Hour)
	pair, err := m.GeneratePair("acc-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidate_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute, time.Hour)
	issued := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateAccessToken("acc-1", domain.RoleUser)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidate_WrongSecret(t *testing.T) {
	signer := NewJWTManager(testSecret, time.Hour, time.Hour)
	other := NewJWTManager("another-secret-that-is-long-enough", time.Hour, time.Hour)

	token, err := signer.GenerateAccessToken("acc-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour, time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{AccountID: "acc-1", Type: tokenAccess})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(raw)
	assert.Error(t, err)
}
