package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint возвращает SHA-256 отпечаток публичного ключа
// в hex-кодировке. Используется в реестре доверенных устройств
// и в журналах безопасности вместо самого ключа.
func Fingerprint(publicKey []byte) string {
	hash := sha256.Sum256(publicKey)
	return hex.EncodeToString(hash[:])
}

// ShortFingerprint возвращает первые 16 hex-символов отпечатка
// для компактного вывода в логах.
func ShortFingerprint(publicKey []byte) string {
	fp := Fingerprint(publicKey)
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
