package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imelnik/syncmesh/internal/crypto"
	"github.com/imelnik/syncmesh/internal/validation"
)

// keystoreVersion - версия формата файла хранилища ключей
const keystoreVersion = 1

// ErrKeystoreNotFound - файл хранилища ключей отсутствует
var ErrKeystoreNotFound = errors.New("keystore file not found")

// keystoreFile - формат файла на диске. Идентичность сериализуется
// в JSON, шифруется AES-256-GCM ключом из парольной фразы (Argon2id)
// и кодируется в base64 вместе с солью.
type keystoreFile struct {
	Salt    string `json:"salt"`
	Data    string `json:"data"`
	Version int    `json:"version"`
}

// SaveKeystore шифрует идентичность парольной фразой и записывает
// ее в файл path с правами 0600.
func SaveKeystore(path string, id *Identity, passphrase string) error {
	if id == nil {
		return fmt.Errorf("identity is nil")
	}
	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return fmt.Errorf("invalid passphrase: %w", err)
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return fmt.Errorf("failed to derive keystore key: %w", err)
	}

	plaintext, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	encrypted, err := crypto.Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt identity: %w", err)
	}

	file := keystoreFile{
		Version: keystoreVersion,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Data:    base64.StdEncoding.EncodeToString(encrypted),
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keystore file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keystore file: %w", err)
	}

	return nil
}

// LoadKeystore читает файл хранилища и расшифровывает идентичность
// парольной фразой. Неверная фраза проявляется как ошибка
// аутентификации GCM.
func LoadKeystore(path, passphrase string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeystoreNotFound
		}
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}

	var file keystoreFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse keystore file: %w", err)
	}

	if file.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version: %d", file.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	encrypted, err := base64.StdEncoding.DecodeString(file.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keystore data: %w", err)
	}

	key, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keystore key: %w", err)
	}

	plaintext, err := crypto.Decrypt(encrypted, key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: wrong passphrase or corrupted file: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(plaintext, &id); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}

	return &id, nil
}

// LoadOrCreateKeystore загружает существующую идентичность или
// генерирует новую и сохраняет ее. Возвращает признак того, что
// идентичность была создана.
func LoadOrCreateKeystore(path, nodeID, passphrase string) (*Identity, bool, error) {
	id, err := LoadKeystore(path, passphrase)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, ErrKeystoreNotFound) {
		return nil, false, err
	}

	id, err = Generate(nodeID)
	if err != nil {
		return nil, false, err
	}

	if err := SaveKeystore(path, id, passphrase); err != nil {
		return nil, false, err
	}

	return id, true, nil
}
