// Package auth issues and validates the JWTs that gate agent-scoped
// operations. Guests never hold a token; credential storage and login
// flows live outside this service.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"helpdesk/domain"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and validates HS256 tokens with a shared secret.
// The secret comes from configuration, never from source.
type Tokens struct {
	secret   []byte
	duration time.Duration
}

func NewTokens(secret string, duration time.Duration) Tokens {
	return Tokens{secret: []byte(secret), duration: duration}
}

// Generate creates a signed JWT for a specific participant.
func (t Tokens) Generate(participant domain.Participant) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   participant.ID,
		Username: participant.Username,
		Role:     participant.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "helpdesk",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and checks the signature and expiration of a JWT string.
func (t Tokens) Validate(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
