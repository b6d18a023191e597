// Package auth verifies bearer tokens issued by the external identity
// provider and carries the resolved identity through the request explicitly.
package auth

import (
	"errors"
	"fmt"

	"github.com/dgrijalva/jwt-go"
	"github.com/psds-microservice/portal-service/internal/model"
)

// Identity is the authenticated caller, resolved once per request and passed
// into services as plain parameters. The role claim is trusted: the provider
// is authoritative for authorization.
type Identity struct {
	UserID uint64
	Email  string
	Name   string
	Role   model.Role
}

// Claims is the token payload the identity provider signs.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

var ErrInvalidToken = errors.New("invalid bearer token")

// ParseToken verifies an HS256 token and extracts the provider claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" || !model.Role(claims.Role).Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs a token with the provider claims. Used by tests and
// local tooling; in production the identity provider issues tokens.
func GenerateToken(email, name string, role model.Role, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		Name:  name,
		Role:  string(role),
	})
	return token.SignedString([]byte(secret))
}
