package transport

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/imelnik/syncmesh/internal/trust"
)

// contextKey тип для ключей контекста
type contextKey string

// DeviceIDKey ключ для хранения device_id в контексте
const DeviceIDKey contextKey = "device_id"

// GetDeviceID извлекает device_id из контекста запроса
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(DeviceIDKey).(string)
	return deviceID, ok
}

// DeviceAuthMiddleware создает middleware для проверки токена устройства.
// Токен подписан ключом Ed25519 самого устройства; ключ проверки
// разрешается через реестр доверия по device_id из claims. Токены
// неизвестных и недоверенных устройств отклоняются до обработчика.
func DeviceAuthMiddleware(logger *slog.Logger, registry trust.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token format")
				return
			}

			claims, err := ParseDeviceToken(parts[1], func(deviceID string) (ed25519.PublicKey, error) {
				device, err := registry.Get(r.Context(), deviceID)
				if err != nil {
					return nil, fmt.Errorf("unknown device %s: %w", deviceID, err)
				}
				if !device.IsTrusted() {
					return nil, fmt.Errorf("device %s is not trusted", deviceID)
				}
				return ed25519.PublicKey(device.SigningPub), nil
			})
			if err != nil {
				logger.Warn("Invalid device token", "error", err)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			// Добавляем device_id из токена в контекст
			ctx := context.WithValue(r.Context(), DeviceIDKey, claims.DeviceID)

			logger.Debug("Device authenticated", "device_id", claims.DeviceID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
