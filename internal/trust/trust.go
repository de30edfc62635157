package trust

import (
	"context"
	"errors"

	"github.com/imelnik/syncmesh/internal/models"
)

var (
	// ErrDeviceNotFound - устройства нет в реестре
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceExists - устройство с таким идентификатором уже
	// зарегистрировано; повторная регистрация с другими ключами
	// требует явного отзыва старой записи
	ErrDeviceExists = errors.New("device already registered")
	// ErrStorageClosed - реестр уже закрыт
	ErrStorageClosed = errors.New("registry storage is closed")
)

// Registry определяет интерфейс реестра доверенных устройств.
// Реестр отвечает на два вопроса пути синхронизации: доверяем ли
// устройству и каким ключом проверять его подписи.
type Registry interface {
	// Register добавляет устройство в статусе pending
	Register(ctx context.Context, device models.Device) error

	// Get возвращает устройство по идентификатору узла
	Get(ctx context.Context, nodeID string) (*models.Device, error)

	// List возвращает все известные устройства
	List(ctx context.Context) ([]*models.Device, error)

	// Trust переводит устройство в статус trusted
	Trust(ctx context.Context, nodeID string) error

	// Revoke переводит устройство в статус revoked
	Revoke(ctx context.Context, nodeID string) error

	// IsTrusted проверяет, допущено ли устройство к синхронизации.
	// Неизвестное устройство не является доверенным.
	IsTrusted(ctx context.Context, nodeID string) (bool, error)

	// VerifySignature проверяет подпись Ed25519 сохраненным ключом
	// устройства. Возвращает nil только для корректной подписи
	// известного устройства.
	VerifySignature(ctx context.Context, nodeID string, data, signature []byte) error

	// Close освобождает ресурсы реестра
	Close() error
}
