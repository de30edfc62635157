package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/storage"
)

var (
	// BoltDB bucket names
	stateBucket = []byte("state")
)

// Store хранит агрегатное состояние узла в BoltDB.
// Состояние сериализуется в JSON и пишется одной записью по ключу
// NodeID: сохранение атомарно на уровне транзакции BoltDB, частично
// записанного состояния не бывает.
type Store struct {
	db *bbolt.DB
}

// Проверка реализации интерфейса
var _ storage.StateStore = (*Store)(nil)

// New открывает BoltDB хранилище состояния.
// dbPath - путь к файлу базы данных
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	store := &Store{db: db}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

// SaveState атомарно сохраняет состояние узла целиком
func (s *Store) SaveState(ctx context.Context, state *models.CrdtState) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(stateBucket)
		if bucket == nil {
			return fmt.Errorf("state bucket missing")
		}

		if err := bucket.Put([]byte(state.NodeID), data); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// LoadState загружает состояние узла по идентификатору.
// Возвращает storage.ErrStateNotFound, если состояние еще не сохранялось.
func (s *Store) LoadState(ctx context.Context, nodeID string) (*models.CrdtState, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var state *models.CrdtState

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(stateBucket)
		if bucket == nil {
			return storage.ErrStateNotFound
		}

		data := bucket.Get([]byte(nodeID))
		if data == nil {
			return storage.ErrStateNotFound
		}

		state = &models.CrdtState{}
		if err := json.Unmarshal(data, state); err != nil {
			return fmt.Errorf("failed to unmarshal state: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// Close закрывает базу данных
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(stateBucket); err != nil {
			return fmt.Errorf("failed to create state bucket: %w", err)
		}

		return nil
	})
}
