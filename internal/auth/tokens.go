package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cliptube/backend/internal/models"
)

var (
	// ErrInvalidToken indicates the token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token was valid but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

const issuer = "cliptube"

// AccessClaims are carried by access tokens: the user id plus the basic
// profile fields handlers need without a database round trip.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and validates the signed access/refresh token pair.
// Access and refresh tokens are signed with independent secrets so a leaked
// access secret cannot mint refresh tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenManager constructs a TokenManager with the provided secrets and TTLs.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessSecret == "" || refreshSecret == "" {
		panic("auth: token secrets must not be empty")
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Issue creates a new access/refresh token pair for the provided user.
func (m *TokenManager) Issue(user models.User) (models.SessionTokens, error) {
	if user.ID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now().UTC()
	accessExpiry := now.Add(m.accessTTL)
	refreshExpiry := now.Add(m.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	})
	accessToken, err := access.SignedString(m.accessSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
		},
	})
	refreshToken, err := refresh.SignedString(m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// ParseAccess validates an access token and returns its claims.
func (m *TokenManager) ParseAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := m.parse(token, &claims, m.accessSecret); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// ParseRefresh validates a refresh token and returns the embedded user id.
func (m *TokenManager) ParseRefresh(token string) (string, error) {
	var claims refreshClaims
	if err := m.parse(token, &claims, m.refreshSecret); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *TokenManager) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
