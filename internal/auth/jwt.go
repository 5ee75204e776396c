package auth

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fleetgo/dispatch-api/internal/models"
)

// Claims is the JWT claim set issued at login. The subject is the user ID;
// SessionID ties the token to a revocable server-side session.
type Claims struct {
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	ShopID    string `json:"shop_id,omitempty"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to the request context after
// token and session checks pass.
type Identity struct {
	UserID    string
	Role      models.Role
	CompanyID sql.NullString
	ShopID    sql.NullString
	SessionID string
}

// TokenManager issues and parses the platform's HS256 access tokens
type TokenManager struct {
	secret []byte
}

// NewTokenManager creates a TokenManager from the shared JWT secret
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Issue creates a signed token for a user session
func (m *TokenManager) Issue(user *models.User, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Role:      string(user.Role),
		CompanyID: user.CompanyID.String,
		ShopID:    user.ShopID.String,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Parse validates a token string and returns the caller's identity
func (m *TokenManager) Parse(tokenString string) (*Identity, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("invalid token: missing subject or session")
	}

	return &Identity{
		UserID:    claims.Subject,
		Role:      role,
		CompanyID: nullString(claims.CompanyID),
		ShopID:    nullString(claims.ShopID),
		SessionID: claims.SessionID,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
