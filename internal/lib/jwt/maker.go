// Package jwt реализует выпуск и разбор JWT токенов сессии пользователя.
//
// Токен подписывается HS256 и содержит идентификатор пользователя.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker описывает выпуск и разбор токенов сессии.
type Maker interface {
	GenerateToken(userID string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// CustomClaims — данные, хранящиеся в токене.
type CustomClaims struct {
	UserID string `json:"user_id"` // Идентификатор пользователя
	jwt.RegisteredClaims
}

// MakerImpl реализует Maker с секретным ключом и временем жизни токена.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
}

// NewJWTMaker создаёт MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// GenerateToken создаёт токен для пользователя.
func (j *MakerImpl) GenerateToken(userID string) (string, error) {
	const op = "jwt.GenerateToken"
	if userID == "" {
		return "", fmt.Errorf("%s: empty user id", op)
	}
	now := time.Now()
	claims := CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token has no user id"))
	}
	return claims, nil
}
