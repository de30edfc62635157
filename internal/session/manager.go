package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/imelnik/syncmesh/internal/crypto"
	"github.com/imelnik/syncmesh/internal/events"
	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/validation"
)

// ErrNoSession - с устройством нет установленной сессии.
// Запечатывание операции для такого устройства невозможно.
var ErrNoSession = errors.New("no session established with device")

// Manager хранит сессионные ключи для пар (этот узел, устройство).
// Ключ выводится из ECDH секрета через HKDF при установлении сессии
// и живет в памяти до Drop или рестарта процесса.
type Manager struct {
	id       *identity.Identity
	sink     events.Sink
	sessions map[string]*session
	mu       sync.RWMutex
}

type session struct {
	establishedAt time.Time
	key           []byte
}

// NewManager создает менеджер сессий для идентичности узла.
func NewManager(id *identity.Identity, sink events.Sink) *Manager {
	if sink == nil {
		sink = events.NopSink{}
	}

	return &Manager{
		id:       id,
		sink:     sink,
		sessions: make(map[string]*session),
	}
}

// Establish устанавливает сессию с устройством: вычисляет общий
// секрет X25519 и выводит сессионный ключ AES-256 через HKDF-SHA256.
// Повторный вызов заменяет существующий ключ.
func (m *Manager) Establish(peer identity.PublicIdentity) error {
	if err := validation.ValidateNodeID(peer.NodeID); err != nil {
		return fmt.Errorf("invalid peer node id: %w", err)
	}
	if peer.NodeID == m.id.NodeID {
		return fmt.Errorf("cannot establish session with self")
	}

	secret, err := m.id.SharedSecret(peer.ExchangePub)
	if err != nil {
		return fmt.Errorf("failed to compute shared secret: %w", err)
	}

	key, err := crypto.SessionKey(secret, m.id.NodeID, peer.NodeID)
	if err != nil {
		return fmt.Errorf("failed to derive session key: %w", err)
	}

	m.mu.Lock()
	m.sessions[peer.NodeID] = &session{
		key:           key,
		establishedAt: time.Now().UTC(),
	}
	m.mu.Unlock()

	m.sink.Publish(events.New(
		models.EventSessionEstablished,
		models.SeverityInfo,
		peer.NodeID,
		"session established",
		map[string]string{
			"peer_fingerprint": crypto.ShortFingerprint(peer.SigningPub),
		},
	))

	return nil
}

// SessionKey возвращает копию сессионного ключа устройства.
// Возвращает ErrNoSession, если сессия не установлена.
func (m *Manager) SessionKey(deviceID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, deviceID)
	}

	key := make([]byte, len(s.key))
	copy(key, s.key)

	return key, nil
}

// Has проверяет наличие сессии с устройством.
func (m *Manager) Has(deviceID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.sessions[deviceID]
	return ok
}

// Drop удаляет сессию устройства. Вызывается при отзыве доверия.
func (m *Manager) Drop(deviceID string) {
	m.mu.Lock()
	delete(m.sessions, deviceID)
	m.mu.Unlock()
}

// Active возвращает отсортированный список устройств с активными
// сессиями.
func (m *Manager) Active() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
