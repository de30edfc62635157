package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/imelnik/syncmesh/internal/crypto"
	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/trust"
	"github.com/imelnik/syncmesh/internal/validation"
)

// devicesBucket stores known devices keyed by node id
var devicesBucket = []byte("devices")

// Registry - реестр доверенных устройств на BoltDB.
type Registry struct {
	db *bbolt.DB
}

// Compile-time check that Registry implements trust.Registry
var _ trust.Registry = (*Registry)(nil)

// New открывает реестр устройств в файле dbPath.
func New(ctx context.Context, dbPath string) (*Registry, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	r := &Registry{db: db}

	if err := r.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return r, nil
}

// Close closes the database connection
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (r *Registry) initBuckets() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(devicesBucket); err != nil {
			return fmt.Errorf("failed to create devices bucket: %w", err)
		}
		return nil
	})
}

// Register добавляет устройство в статусе pending.
// Повторная регистрация существующего устройства запрещена:
// подмена ключей требует явного отзыва старой записи.
func (r *Registry) Register(ctx context.Context, device models.Device) error {
	if r.db == nil {
		return trust.ErrStorageClosed
	}
	if err := validation.ValidateNodeID(device.NodeID); err != nil {
		return fmt.Errorf("invalid device node id: %w", err)
	}
	if len(device.SigningPub) == 0 {
		return fmt.Errorf("device signing key is required")
	}

	device.Status = models.DeviceStatusPending
	device.Fingerprint = crypto.Fingerprint(device.SigningPub)
	if device.RegisteredAt.IsZero() {
		device.RegisteredAt = time.Now().UTC()
	}

	data, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}

	err = r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(devicesBucket)

		if bucket.Get([]byte(device.NodeID)) != nil {
			return trust.ErrDeviceExists
		}

		if err := bucket.Put([]byte(device.NodeID), data); err != nil {
			return fmt.Errorf("failed to save device: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// Get возвращает устройство по идентификатору узла
func (r *Registry) Get(ctx context.Context, nodeID string) (*models.Device, error) {
	if r.db == nil {
		return nil, trust.ErrStorageClosed
	}

	var device *models.Device

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(devicesBucket)

		data := bucket.Get([]byte(nodeID))
		if data == nil {
			return trust.ErrDeviceNotFound
		}

		device = &models.Device{}
		if err := json.Unmarshal(data, device); err != nil {
			return fmt.Errorf("failed to unmarshal device: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return device, nil
}

// List возвращает все известные устройства
func (r *Registry) List(ctx context.Context) ([]*models.Device, error) {
	if r.db == nil {
		return nil, trust.ErrStorageClosed
	}

	var devices []*models.Device

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(devicesBucket)

		return bucket.ForEach(func(k, v []byte) error {
			var device models.Device
			if err := json.Unmarshal(v, &device); err != nil {
				return fmt.Errorf("failed to unmarshal device: %w", err)
			}
			devices = append(devices, &device)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	return devices, nil
}

// Trust переводит устройство в статус trusted
func (r *Registry) Trust(ctx context.Context, nodeID string) error {
	return r.setStatus(nodeID, models.DeviceStatusTrusted)
}

// Revoke переводит устройство в статус revoked
func (r *Registry) Revoke(ctx context.Context, nodeID string) error {
	return r.setStatus(nodeID, models.DeviceStatusRevoked)
}

// setStatus атомарно меняет статус устройства внутри одной транзакции
func (r *Registry) setStatus(nodeID, status string) error {
	if r.db == nil {
		return trust.ErrStorageClosed
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(devicesBucket)

		data := bucket.Get([]byte(nodeID))
		if data == nil {
			return trust.ErrDeviceNotFound
		}

		var device models.Device
		if err := json.Unmarshal(data, &device); err != nil {
			return fmt.Errorf("failed to unmarshal device: %w", err)
		}

		device.Status = status

		updated, err := json.Marshal(device)
		if err != nil {
			return fmt.Errorf("failed to marshal device: %w", err)
		}

		if err := bucket.Put([]byte(nodeID), updated); err != nil {
			return fmt.Errorf("failed to update device: %w", err)
		}

		return nil
	})
}

// IsTrusted проверяет, допущено ли устройство к синхронизации.
// Неизвестное устройство не является доверенным.
func (r *Registry) IsTrusted(ctx context.Context, nodeID string) (bool, error) {
	device, err := r.Get(ctx, nodeID)
	if err != nil {
		if errors.Is(err, trust.ErrDeviceNotFound) {
			return false, nil
		}
		return false, err
	}

	return device.IsTrusted(), nil
}

// VerifySignature проверяет подпись Ed25519 сохраненным ключом устройства
func (r *Registry) VerifySignature(ctx context.Context, nodeID string, data, signature []byte) error {
	device, err := r.Get(ctx, nodeID)
	if err != nil {
		return err
	}

	if !identity.Verify(device.SigningPub, data, signature) {
		return fmt.Errorf("invalid signature from device %s", nodeID)
	}

	return nil
}
