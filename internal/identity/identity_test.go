package identity

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id, err := Generate("node-a")
	require.NoError(t, err)

	assert.Equal(t, "node-a", id.NodeID)
	assert.Len(t, id.SigningKey, ed25519.PrivateKeySize)
	assert.Len(t, id.SigningPub, ed25519.PublicKeySize)
	assert.Len(t, id.ExchangeKey, 32)
	assert.Len(t, id.ExchangePub, 32)
	assert.False(t, id.CreatedAt.IsZero())

	// Две идентичности не совпадают
	other, err := Generate("node-a")
	require.NoError(t, err)
	assert.NotEqual(t, id.SigningPub, other.SigningPub)
	assert.NotEqual(t, id.ExchangePub, other.ExchangePub)
}

func TestGenerate_InvalidNodeID(t *testing.T) {
	tests := []struct {
		name   string
		nodeID string
	}{
		{name: "empty", nodeID: ""},
		{name: "too short", nodeID: "ab"},
		{name: "bad characters", nodeID: "node a!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.nodeID)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid node id")
		})
	}
}

func TestIdentity_SignVerify(t *testing.T) {
	id, err := Generate("node-a")
	require.NoError(t, err)

	data := []byte("ciphertext to authenticate")
	signature := id.Sign(data)

	assert.True(t, Verify(id.SigningPub, data, signature))

	// Подпись не проходит для измененных данных
	tampered := append([]byte{}, data...)
	tampered[0] ^= 0x01
	assert.False(t, Verify(id.SigningPub, tampered, signature))

	// Подпись не проходит с чужим ключом
	other, err := Generate("node-b")
	require.NoError(t, err)
	assert.False(t, Verify(other.SigningPub, data, signature))

	// Ключ неверного размера отклоняется без паники
	assert.False(t, Verify([]byte("short"), data, signature))
}

func TestIdentity_SharedSecret(t *testing.T) {
	a, err := Generate("node-a")
	require.NoError(t, err)
	b, err := Generate("node-b")
	require.NoError(t, err)

	// ECDH: обе стороны вычисляют один секрет
	secretAB, err := a.SharedSecret(b.ExchangePub)
	require.NoError(t, err)
	secretBA, err := b.SharedSecret(a.ExchangePub)
	require.NoError(t, err)

	assert.Equal(t, secretAB, secretBA)
	assert.Len(t, secretAB, 32)

	// С третьим узлом секрет другой
	c, err := Generate("node-c")
	require.NoError(t, err)
	secretAC, err := a.SharedSecret(c.ExchangePub)
	require.NoError(t, err)
	assert.NotEqual(t, secretAB, secretAC)
}

func TestIdentity_SharedSecret_BadKey(t *testing.T) {
	id, err := Generate("node-a")
	require.NoError(t, err)

	_, err = id.SharedSecret([]byte("too short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peer exchange key must be 32 bytes")
}

func TestIdentity_Public(t *testing.T) {
	id, err := Generate("node-a")
	require.NoError(t, err)

	pub := id.Public()
	assert.Equal(t, "node-a", pub.NodeID)
	assert.Equal(t, []byte(id.SigningPub), pub.SigningPub)
	assert.Equal(t, id.ExchangePub, pub.ExchangePub)

	// Публичная часть - копия, мутация не трогает идентичность
	pub.SigningPub[0] ^= 0x01
	assert.NotEqual(t, []byte(id.SigningPub), pub.SigningPub)
}

func TestIdentity_Fingerprint(t *testing.T) {
	id, err := Generate("node-a")
	require.NoError(t, err)

	fp := id.Fingerprint()
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, id.Fingerprint())
}
