package transport

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer - issuer всех токенов устройств
const tokenIssuer = "syncmesh"

// DefaultTokenTTL - время жизни токена устройства по умолчанию.
// Токен чеканится на каждый запрос, долгая жизнь ему не нужна.
const DefaultTokenTTL = 5 * time.Minute

// CustomClaims представляет JWT claims токена устройства
type CustomClaims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// MintDeviceToken создает JWT токен устройства, подписанный его
// приватным ключом Ed25519. Токен предъявляется в заголовке
// Authorization при передаче операций пиру; пир проверяет подпись
// публичным ключом устройства из своего реестра доверия.
func MintDeviceToken(key ed25519.PrivateKey, deviceID string, ttl time.Duration) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing key must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}

	now := time.Now()
	claims := CustomClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ParseDeviceToken валидирует токен устройства. Ключ проверки подписи
// не известен заранее: устройство называет себя в claims, а keyFor
// возвращает его публичный ключ (или ошибку для неизвестного
// устройства). Подпись токена доказывает владение приватным ключом.
func ParseDeviceToken(tokenString string, keyFor func(deviceID string) (ed25519.PublicKey, error)) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		claims, ok := token.Claims.(*CustomClaims)
		if !ok || claims.DeviceID == "" {
			return nil, fmt.Errorf("token carries no device id")
		}

		return keyFor(claims.DeviceID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
