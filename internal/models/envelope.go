package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// SecureCrdtOperation представляет транспортный конверт операции.
// Полезная нагрузка зашифрована и подписана; метаданные (идентификаторы,
// timestamp, векторные часы, тип операции) остаются открытыми, чтобы
// принимающая сторона могла дешево отклонить конверт политикой ДО
// дешифрования. Это осознанный компромисс: причинная позиция операции
// утекает в метаданные, зато невалидные конверты не тратят AEAD операцию.
//
// Конверт создается исключительно шагом запечатывания отправителя и
// уничтожается получателем после успешного unseal+merge (или отклонения).
type SecureCrdtOperation struct {
	Timestamp  time.Time   `json:"timestamp"`   // Timestamp открытая wall-clock метка (для проверки свежести)
	Clock      VectorClock `json:"clock"`       // Clock открытый снимок векторных часов операции
	ID         string      `json:"id"`          // ID идентификатор операции
	SourceID   string      `json:"source_id"`   // SourceID идентификатор устройства-отправителя
	Type       string      `json:"type"`        // Type тип операции (для allow-list до дешифрования)
	Ciphertext []byte      `json:"ciphertext"`  // Ciphertext зашифрованная сериализованная операция
	Nonce      []byte      `json:"nonce"`       // Nonce транспортный nonce AEAD (12 bytes)
	AuthTag    []byte      `json:"auth_tag"`    // AuthTag тег аутентичности AEAD (16 bytes)
	Signature  []byte      `json:"signature"`   // Signature подпись Ed25519 над Ciphertext
}

// Equal сравнивает два конверта по содержимому. Байтовые поля
// сравниваются по значению, никогда по ссылке: конверты используются
// как ключи кэша и участвуют в дедупликации.
func (s *SecureCrdtOperation) Equal(other *SecureCrdtOperation) bool {
	if other == nil {
		return false
	}

	return s.ID == other.ID &&
		s.SourceID == other.SourceID &&
		s.Type == other.Type &&
		s.Timestamp.Equal(other.Timestamp) &&
		s.Clock.Equal(other.Clock) &&
		bytes.Equal(s.Ciphertext, other.Ciphertext) &&
		bytes.Equal(s.Nonce, other.Nonce) &&
		bytes.Equal(s.AuthTag, other.AuthTag) &&
		bytes.Equal(s.Signature, other.Signature)
}

// Digest возвращает SHA-256 хеш содержимого конверта (hex).
// Детерминирован по значению всех полей и пригоден как ключ map
// вместо ссылочной идентичности.
func (s *SecureCrdtOperation) Digest() string {
	h := sha256.New()

	h.Write([]byte(s.ID))
	h.Write([]byte(s.SourceID))
	h.Write([]byte(s.Type))

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(s.Timestamp.UnixNano()))
	h.Write(ts[:])

	// Часы в детерминированном порядке
	h.Write([]byte(s.Clock.String()))

	h.Write(s.Ciphertext)
	h.Write(s.Nonce)
	h.Write(s.AuthTag)
	h.Write(s.Signature)

	return hex.EncodeToString(h.Sum(nil))
}

// Clone создает глубокую копию конверта
func (s *SecureCrdtOperation) Clone() *SecureCrdtOperation {
	return &SecureCrdtOperation{
		ID:         s.ID,
		SourceID:   s.SourceID,
		Type:       s.Type,
		Timestamp:  s.Timestamp,
		Clock:      s.Clock.Clone(),
		Ciphertext: bytes.Clone(s.Ciphertext),
		Nonce:      bytes.Clone(s.Nonce),
		AuthTag:    bytes.Clone(s.AuthTag),
		Signature:  bytes.Clone(s.Signature),
	}
}
