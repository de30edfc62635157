package storage

import (
	"context"

	"github.com/imelnik/syncmesh/internal/models"
)

//go:generate moq -out statestore_mock.go . StateStore

// StateStore определяет интерфейс персистентности агрегатного
// состояния узла. Состояние сохраняется целиком: часы, лог операций
// и момент последней синхронизации атомарно переживают рестарт.
type StateStore interface {
	// SaveState атомарно сохраняет состояние узла целиком
	SaveState(ctx context.Context, state *models.CrdtState) error

	// LoadState загружает состояние узла по идентификатору.
	// Возвращает ErrStateNotFound при первом запуске
	LoadState(ctx context.Context, nodeID string) (*models.CrdtState, error)

	// Close закрывает хранилище
	Close() error
}
