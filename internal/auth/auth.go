package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the directory-backed login record for one identity.
type Credentials struct {
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims carries the identity email through the JWT. Authorization is
// resolved per request from the directory, so only identity travels in
// the token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates the two token kinds. Access and
// refresh tokens are signed with separate secrets.
type TokenGenerator interface {
	GenerateAccessToken(email, role string) (string, error)
	GenerateRefreshToken(email, role string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * 7 * time.Hour,
	}
}
