package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imelnik/syncmesh/internal/events"
	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
)

func testIdentity(t *testing.T, nodeID string) *identity.Identity {
	t.Helper()

	id, err := identity.Generate(nodeID)
	require.NoError(t, err)

	return id
}

func TestManager_Establish(t *testing.T) {
	a := testIdentity(t, "node-a")
	b := testIdentity(t, "node-b")

	sink := &events.SinkMock{PublishFunc: func(event models.SecurityEvent) {}}
	manager := NewManager(a, sink)

	require.NoError(t, manager.Establish(b.Public()))

	assert.True(t, manager.Has("node-b"))
	assert.Equal(t, []string{"node-b"}, manager.Active())

	key, err := manager.SessionKey("node-b")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// Опубликовано событие установления сессии
	calls := sink.PublishCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.EventSessionEstablished, calls[0].Event.Type)
	assert.Equal(t, "node-b", calls[0].Event.DeviceID)
}

func TestManager_SymmetricKeys(t *testing.T) {
	a := testIdentity(t, "node-a")
	b := testIdentity(t, "node-b")

	managerA := NewManager(a, nil)
	managerB := NewManager(b, nil)

	require.NoError(t, managerA.Establish(b.Public()))
	require.NoError(t, managerB.Establish(a.Public()))

	// Обе стороны вывели одинаковый сессионный ключ
	keyA, err := managerA.SessionKey("node-b")
	require.NoError(t, err)
	keyB, err := managerB.SessionKey("node-a")
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB)
}

func TestManager_NoSession(t *testing.T) {
	manager := NewManager(testIdentity(t, "node-a"), nil)

	_, err := manager.SessionKey("node-b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_EstablishSelf(t *testing.T) {
	a := testIdentity(t, "node-a")
	manager := NewManager(a, nil)

	err := manager.Establish(a.Public())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot establish session with self")
}

func TestManager_EstablishInvalidPeer(t *testing.T) {
	manager := NewManager(testIdentity(t, "node-a"), nil)

	err := manager.Establish(identity.PublicIdentity{NodeID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid peer node id")
}

func TestManager_Drop(t *testing.T) {
	a := testIdentity(t, "node-a")
	b := testIdentity(t, "node-b")

	manager := NewManager(a, nil)
	require.NoError(t, manager.Establish(b.Public()))
	require.True(t, manager.Has("node-b"))

	manager.Drop("node-b")

	assert.False(t, manager.Has("node-b"))
	_, err := manager.SessionKey("node-b")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_SessionKeyCopy(t *testing.T) {
	a := testIdentity(t, "node-a")
	b := testIdentity(t, "node-b")

	manager := NewManager(a, nil)
	require.NoError(t, manager.Establish(b.Public()))

	key1, err := manager.SessionKey("node-b")
	require.NoError(t, err)

	// Мутация возвращенного ключа не влияет на хранимый
	key1[0] ^= 0xFF

	key2, err := manager.SessionKey("node-b")
	require.NoError(t, err)
	assert.NotEqual(t, key1[0], key2[0])
}
