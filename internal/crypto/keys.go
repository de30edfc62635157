package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Параметры Argon2id для защиты файла хранилища ключей
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// sessionInfoPrefix - протокольная метка контекста HKDF; гарантирует,
// что сессионные ключи не пересекаются с другими применениями
// того же общего секрета
const sessionInfoPrefix = "syncmesh/session/v1"

// GenerateSalt генерирует криптографически случайную соль указанного размера
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	_, err := rand.Read(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey выводит ключ шифрования хранилища ключей из парольной фразы.
// Использует Argon2id: медленная деривация защищает файл идентичности
// узла от офлайн-перебора.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	return argon2.IDKey([]byte(passphrase), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen), nil
}

// SessionKey выводит 32-байтовый сессионный ключ AES-256 из общего
// секрета ECDH через HKDF-SHA256. Идентификаторы узлов входят
// в info-строку в лексикографическом порядке, поэтому обе стороны
// выводят одинаковый ключ независимо от того, кто инициировал сессию.
func SessionKey(sharedSecret []byte, localID, remoteID string) ([]byte, error) {
	if len(sharedSecret) == 0 {
		return nil, fmt.Errorf("shared secret cannot be empty")
	}
	if localID == "" || remoteID == "" {
		return nil, fmt.Errorf("node identifiers cannot be empty")
	}

	first, second := localID, remoteID
	if first > second {
		first, second = second, first
	}

	info := []byte(sessionInfoPrefix + "|" + first + "|" + second)

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, nil, info), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	return key, nil
}
