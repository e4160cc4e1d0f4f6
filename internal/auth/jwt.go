package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/middleware"
)

const issuer = "marketplace"

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// ErrWrongTokenType is returned when a refresh token is presented as an
// access token or the other way round.
var ErrWrongTokenType = errors.New("wrong token type")

// Claims are carried by both access and refresh tokens. Type tells them apart.
type Claims struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 token pairs.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

// AccessExpiry is the lifetime of access tokens.
func (m *JWTManager) AccessExpiry() time.Duration { return m.accessExpiry }

// GeneratePair signs a fresh access and refresh token for the account.
func (m *JWTManager) GeneratePair(accountID string, role domain.Role) (*domain.TokenPair, error) {
	access, err := m.GenerateAccessToken(accountID, role)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(accountID, role, tokenRefresh, m.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessExpiry.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) GenerateAccessToken(accountID string, role domain.Role) (string, error) {
	token, err := m.sign(accountID, role, tokenAccess, m.accessExpiry)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

func (m *JWTManager) sign(accountID string, role domain.Role, typ string, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := &Claims{
		AccountID: accountID,
		Role:      string(role),
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateAccessToken parses an access token and returns its claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, tokenAccess)
}

// ValidateRefreshToken parses a refresh token and returns its claims.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, tokenRefresh)
}

// VerifyAccessToken satisfies middleware.TokenVerifier.
func (m *JWTManager) VerifyAccessToken(tokenString string) (middleware.Principal, error) {
	claims, err := m.ValidateAccessToken(tokenString)
	if err != nil {
		return middleware.Principal{}, err
	}
	return middleware.Principal{AccountID: claims.AccountID, Role: claims.Role}, nil
}

func (m *JWTManager) parse(tokenString, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse %s token: %w", typ, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid %s token claims", typ)
	}
	if claims.Type != typ {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
