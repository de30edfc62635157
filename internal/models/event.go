package models

import "time"

// SecurityEvent представляет структурированное событие безопасности,
// публикуемое движком во внешний sink (нарушение политики, сбой
// криптографии, успешная синхронизация). Публикация fire-and-forget:
// sink никогда не блокирует движок и не возвращает в него ошибки.
type SecurityEvent struct {
	CreatedAt time.Time         `json:"created_at"` // время возникновения события
	Details   map[string]string `json:"details"`    // дополнительный контекст (op_id, код нарушения и т.п.)
	ID        string            `json:"id"`         // уникальный идентификатор события (UUID)
	Type      string            `json:"type"`       // тип события
	Severity  string            `json:"severity"`   // уровень серьезности
	DeviceID  string            `json:"device_id"`  // связанное устройство (может быть пустым)
	Message   string            `json:"message"`    // человекочитаемое описание
}

// Типы событий безопасности
const (
	EventPolicyViolation    = "policy_violation"    // операция отклонена политикой
	EventCryptoFailure      = "crypto_failure"      // сбой seal/unseal
	EventSyncCompleted      = "sync_completed"      // раунд синхронизации завершен
	EventSessionEstablished = "session_established" // установлена сессия с пиром
	EventDeviceRevoked      = "device_revoked"      // устройство отозвано
)

// Уровни серьезности событий
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)
