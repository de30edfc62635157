package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "correct horse battery staple"

func TestKeystore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "identity.json")

	id, err := Generate("node-a")
	require.NoError(t, err)

	require.NoError(t, SaveKeystore(path, id, testPassphrase))

	// Файл создан с правами 0600
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Приватные ключи не лежат в файле открытым текстом
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "signing_key")

	loaded, err := LoadKeystore(path, testPassphrase)
	require.NoError(t, err)

	assert.Equal(t, id.NodeID, loaded.NodeID)
	assert.Equal(t, id.SigningKey, loaded.SigningKey)
	assert.Equal(t, id.ExchangeKey, loaded.ExchangeKey)
	assert.Equal(t, id.ExchangePub, loaded.ExchangePub)
}

func TestKeystore_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	id, err := Generate("node-a")
	require.NoError(t, err)
	require.NoError(t, SaveKeystore(path, id, testPassphrase))

	_, err = LoadKeystore(path, "another passphrase x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong passphrase or corrupted file")
}

func TestKeystore_NotFound(t *testing.T) {
	_, err := LoadKeystore(filepath.Join(t.TempDir(), "missing.json"), testPassphrase)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeystoreNotFound)
}

func TestKeystore_WeakPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	id, err := Generate("node-a")
	require.NoError(t, err)

	err = SaveKeystore(path, id, "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid passphrase")
}

func TestLoadOrCreateKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	// Первый вызов создает идентичность
	id, created, err := LoadOrCreateKeystore(path, "node-a", testPassphrase)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "node-a", id.NodeID)

	// Повторный вызов загружает ту же идентичность
	again, created, err := LoadOrCreateKeystore(path, "node-a", testPassphrase)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id.SigningPub, again.SigningPub)
}
