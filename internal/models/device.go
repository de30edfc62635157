package models

import "time"

// Статусы устройства в реестре доверия.
// Устройство регистрируется как pending и начинает участвовать
// в синхронизации только после явного перевода в trusted.
const (
	DeviceStatusPending = "pending"
	DeviceStatusTrusted = "trusted"
	DeviceStatusRevoked = "revoked"
)

// Device - известное устройство в реестре доверия: публичные ключи
// и статус. Приватных ключей чужих устройств узел не хранит.
type Device struct {
	RegisteredAt time.Time `json:"registered_at"` // время регистрации
	NodeID       string    `json:"node_id"`       // идентификатор узла устройства
	Name         string    `json:"name"`          // человекочитаемое имя
	Status       string    `json:"status"`        // pending | trusted | revoked
	Fingerprint  string    `json:"fingerprint"`   // отпечаток ключа подписи
	SigningPub   []byte    `json:"signing_pub"`   // публичный ключ Ed25519
	ExchangePub  []byte    `json:"exchange_pub"`  // публичный ключ X25519
}

// IsTrusted сообщает, допущено ли устройство к синхронизации.
func (d *Device) IsTrusted() bool {
	return d.Status == DeviceStatusTrusted
}
