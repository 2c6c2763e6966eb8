package auth

import (
	"time"

	"github.com/gartstein/placement/internal/placement/models"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "placement-auth"

// GenerateToken signs an HS256 token for actor valid for ttl.
func GenerateToken(actor models.Actor, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  actor.ID.String(),
		"role": string(actor.Role),
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
		"iss":  issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
