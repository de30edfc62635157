package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	// KeySize - размер ключа AES-256 в байтах
	KeySize = 32
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12
	// TagSize - размер authentication tag GCM в байтах
	TagSize = 16
)

// EncryptParts шифрует данные с использованием AES-256-GCM и возвращает
// ciphertext, nonce и authentication tag отдельными полями. Раздельный
// формат используется в защищенном конверте операции: тег проверяется
// GCM при расшифровке, а подпись поверх ciphertext считается отдельно.
func EncryptParts(plaintext, key []byte) (ciphertext, nonce, tag []byte, err error) {
	if len(plaintext) == 0 {
		return nil, nil, nil, fmt.Errorf("plaintext cannot be empty")
	}
	if len(key) != KeySize {
		return nil, nil, nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM дописывает authentication tag в конец; отрезаем его
	// в отдельное поле
	sealed := aesGCM.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize

	return sealed[:split], nonce, sealed[split:], nil
}

// DecryptParts дешифрует данные, зашифрованные EncryptParts.
// Подмена любого из трех полей приводит к ошибке аутентификации GCM.
func DecryptParts(ciphertext, nonce, tag, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("auth tag must be %d bytes, got %d", TagSize, len(tag))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: authentication failed or corrupted data: %w", err)
	}

	return plaintext, nil
}

// Encrypt шифрует данные с использованием AES-256-GCM в совмещенном
// формате: nonce (12 bytes) + ciphertext + auth_tag (16 bytes).
// Используется для файла хранилища ключей, где раздельные поля не нужны.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	ciphertext, nonce, tag, err := EncryptParts(plaintext, key)
	if err != nil {
		return nil, err
	}

	result := make([]byte, 0, len(nonce)+len(ciphertext)+len(tag))
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	result = append(result, tag...)

	return result, nil
}

// Decrypt дешифрует данные, зашифрованные с помощью Encrypt.
// Ожидает формат: nonce (12 bytes) + ciphertext + auth_tag (16 bytes)
func Decrypt(encrypted, key []byte) ([]byte, error) {
	if len(encrypted) < NonceSize+TagSize {
		return nil, fmt.Errorf("encrypted data too short")
	}

	nonce := encrypted[:NonceSize]
	ciphertext := encrypted[NonceSize : len(encrypted)-TagSize]
	tag := encrypted[len(encrypted)-TagSize:]

	return DecryptParts(ciphertext, nonce, tag, key)
}
