package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidGuestToken = errors.New("invalid guest token")

// GuestClaims carries the cart-owner identity for visitors without an
// account, so their cart key survives across requests.
type GuestClaims struct {
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

func NewGuestOwnerID() string {
	return "guest-" + uuid.NewString()
}

func IssueGuestToken(secret []byte, ownerID string, ttl time.Duration) (string, error) {
	claims := GuestClaims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign guest token: %w", err)
	}
	return signed, nil
}

func ParseGuestToken(secret []byte, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &GuestClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidGuestToken
	}

	claims, ok := token.Claims.(*GuestClaims)
	if !ok || claims.OwnerID == "" {
		return "", ErrInvalidGuestToken
	}

	return claims.OwnerID, nil
}
