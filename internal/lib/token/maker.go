// Package token реализует выпуск и разбор токенов доступа.
//
// Токен — JWT с идентификатором пользователя и уникальным jti; время жизни
// задаётся на каждый выпуск отдельно и равно остатку оплаченного периода.
// Живость токена определяет кеш, подпись лишь отсекает чужие строки.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims описывает полезную нагрузку токена доступа.
type Claims struct {
	UserID               int64 `json:"user_id"` // Идентификатор пользователя
	jwt.RegisteredClaims       // Стандартные claims (ExpiresAt, IssuedAt, ID)
}

// Maker описывает интерфейс выпуска и разбора токенов доступа.
type Maker interface {
	// Generate выпускает токен для пользователя с заданным временем жизни.
	Generate(userID int64, ttl time.Duration) (string, error)
	// Parse разбирает токен, проверяет подпись и срок, возвращает claims.
	Parse(tokenStr string) (*Claims, error)
}

// MakerImpl реализует Maker на секретном ключе HS256.
type MakerImpl struct {
	secretKey string
}

// NewMaker создаёт новый экземпляр MakerImpl.
func NewMaker(secretKey string) *MakerImpl {
	return &MakerImpl{secretKey: secretKey}
}

// Generate выпускает подписанный токен с jti для неугадываемости.
func (m *MakerImpl) Generate(userID int64, ttl time.Duration) (string, error) {
	const op = "token.Generate"
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Parse разбирает токен и возвращает Claims, если подпись и срок корректны.
func (m *MakerImpl) Parse(tokenStr string) (*Claims, error) {
	const op = "token.Parse"
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
