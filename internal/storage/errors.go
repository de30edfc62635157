package storage

import "errors"

// Ошибки хранилища состояния
var (
	// ErrStateNotFound состояние узла отсутствует (первый запуск)
	ErrStateNotFound = errors.New("node state not found")

	// ErrStorageClosed хранилище закрыто
	ErrStorageClosed = errors.New("storage is closed")
)
