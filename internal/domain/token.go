package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	AccessToken  TokenType = "access_token"
	RefreshToken TokenType = "refresh_token"
)

const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the payload of every signed token. exp and iat come from the
// embedded registered claims and are stamped by the codec.
type Claims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is what login, registration and refresh hand back to API clients.
type TokenPair struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}
