// Package auth issues and validates the JWT session tokens that scope every
// remote operation to an owner account.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
)

// Claims carries the standard claims plus the owning account id.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

// GenerateToken signs a token for ownerID valid for validityDuration.
func GenerateToken(ownerID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		OwnerID: ownerID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// OwnerIDFromToken validates the token and extracts the owner id. Returns
// common.ErrTokenExpired for expired tokens and common.ErrInvalidToken for
// everything else invalid.
func OwnerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.OwnerID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.OwnerID, nil
}
