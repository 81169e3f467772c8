package auth

import (
	"errors"
	"fmt"
	"time"

	"parkometr/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what a verified token says about its bearer.
type Claims struct {
	UserID int64
	Role   string
}

// Tokens signs and verifies HS256 login tokens.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
}

// Issue signs a token for the user that expires TTL after now.
func (t Tokens) Issue(userID int64, role string, now time.Time) (string, error) {
	if len(t.Secret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"iat":     now.Unix(),
		"exp":     now.Add(t.TTL).Unix(),
	})
	return token.SignedString(t.Secret)
}

// Parse verifies the signature and expiry and returns the bearer's claims.
func (t Tokens) Parse(raw string) (Claims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.Secret, nil
	})
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return Claims{}, domain.UnauthorizedError{Msg: msg, Err: err}
	}
	if !token.Valid {
		return Claims{}, domain.UnauthorizedError{Msg: "invalid token"}
	}

	id, ok := claims["user_id"].(float64)
	role, _ := claims["role"].(string)
	if !ok || id <= 0 || role == "" {
		return Claims{}, domain.UnauthorizedError{Msg: "invalid token claims"}
	}
	return Claims{UserID: int64(id), Role: role}, nil
}
