package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/trust"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	registry, err := New(context.Background(), filepath.Join(t.TempDir(), "trust.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = registry.Close()
	})

	return registry
}

func testDevice(t *testing.T, nodeID string) (models.Device, *identity.Identity) {
	t.Helper()

	id, err := identity.Generate(nodeID)
	require.NoError(t, err)

	pub := id.Public()

	return models.Device{
		NodeID:      pub.NodeID,
		Name:        "test device",
		SigningPub:  pub.SigningPub,
		ExchangePub: pub.ExchangePub,
	}, id
}

func TestRegistry_RegisterGet(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	device, _ := testDevice(t, "node-b")
	require.NoError(t, registry.Register(ctx, device))

	got, err := registry.Get(ctx, "node-b")
	require.NoError(t, err)

	// Устройство регистрируется как pending с заполненным отпечатком
	assert.Equal(t, "node-b", got.NodeID)
	assert.Equal(t, models.DeviceStatusPending, got.Status)
	assert.Equal(t, device.SigningPub, got.SigningPub)
	assert.Len(t, got.Fingerprint, 64)
	assert.False(t, got.RegisteredAt.IsZero())
	assert.False(t, got.IsTrusted())
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	device, _ := testDevice(t, "node-b")
	require.NoError(t, registry.Register(ctx, device))

	err := registry.Register(ctx, device)
	require.Error(t, err)
	assert.ErrorIs(t, err, trust.ErrDeviceExists)
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	tests := []struct {
		name   string
		device models.Device
		errMsg string
	}{
		{
			name:   "bad node id",
			device: models.Device{NodeID: "x", SigningPub: []byte("key")},
			errMsg: "invalid device node id",
		},
		{
			name:   "missing signing key",
			device: models.Device{NodeID: "node-b"},
			errMsg: "signing key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(ctx, tt.device)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRegistry_TrustRevoke(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	device, _ := testDevice(t, "node-b")
	require.NoError(t, registry.Register(ctx, device))

	// pending устройство не является доверенным
	trusted, err := registry.IsTrusted(ctx, "node-b")
	require.NoError(t, err)
	assert.False(t, trusted)

	require.NoError(t, registry.Trust(ctx, "node-b"))

	trusted, err = registry.IsTrusted(ctx, "node-b")
	require.NoError(t, err)
	assert.True(t, trusted)

	require.NoError(t, registry.Revoke(ctx, "node-b"))

	trusted, err = registry.IsTrusted(ctx, "node-b")
	require.NoError(t, err)
	assert.False(t, trusted)

	got, err := registry.Get(ctx, "node-b")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusRevoked, got.Status)
}

func TestRegistry_IsTrusted_Unknown(t *testing.T) {
	registry := newTestRegistry(t)

	// Неизвестное устройство не доверено, но это не ошибка
	trusted, err := registry.IsTrusted(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, trusted)
}

func TestRegistry_NotFound(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, trust.ErrDeviceNotFound)

	assert.ErrorIs(t, registry.Trust(context.Background(), "ghost"), trust.ErrDeviceNotFound)
	assert.ErrorIs(t, registry.Revoke(context.Background(), "ghost"), trust.ErrDeviceNotFound)
}

func TestRegistry_List(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	deviceB, _ := testDevice(t, "node-b")
	deviceC, _ := testDevice(t, "node-c")
	require.NoError(t, registry.Register(ctx, deviceB))
	require.NoError(t, registry.Register(ctx, deviceC))

	devices, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	ids := []string{devices[0].NodeID, devices[1].NodeID}
	assert.ElementsMatch(t, []string{"node-b", "node-c"}, ids)
}

func TestRegistry_VerifySignature(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)

	device, id := testDevice(t, "node-b")
	require.NoError(t, registry.Register(ctx, device))

	data := []byte("sealed operation ciphertext")
	signature := id.Sign(data)

	// Корректная подпись проходит
	require.NoError(t, registry.VerifySignature(ctx, "node-b", data, signature))

	// Подпись измененных данных не проходит
	tampered := append([]byte{}, data...)
	tampered[0] ^= 0x01
	err := registry.VerifySignature(ctx, "node-b", tampered, signature)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")

	// Чужая подпись не проходит
	_, other := testDevice(t, "node-c")
	err = registry.VerifySignature(ctx, "node-b", data, other.Sign(data))
	require.Error(t, err)

	// Неизвестное устройство
	err = registry.VerifySignature(ctx, "ghost", data, signature)
	assert.ErrorIs(t, err, trust.ErrDeviceNotFound)
}

func TestRegistry_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trust.db")

	registry, err := New(ctx, path)
	require.NoError(t, err)

	device, _ := testDevice(t, "node-b")
	require.NoError(t, registry.Register(ctx, device))
	require.NoError(t, registry.Trust(ctx, "node-b"))
	require.NoError(t, registry.Close())

	// Состояние переживает переоткрытие
	reopened, err := New(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	trusted, err := reopened.IsTrusted(ctx, "node-b")
	require.NoError(t, err)
	assert.True(t, trusted)
}
