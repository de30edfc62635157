package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"golang.org/x/crypto/curve25519"

	"github.com/imelnik/syncmesh/internal/crypto"
	"github.com/imelnik/syncmesh/internal/validation"
)

// Identity - долговременная криптографическая идентичность узла.
// Ed25519 ключи подписывают исходящие операции, X25519 ключи участвуют
// в ECDH при установлении сессии. Приватная часть никогда не покидает
// узел; наружу отдается только PublicIdentity.
type Identity struct {
	CreatedAt   time.Time          `json:"created_at"`
	NodeID      string             `json:"node_id"`
	SigningKey  ed25519.PrivateKey `json:"signing_key"`
	SigningPub  ed25519.PublicKey  `json:"signing_pub"`
	ExchangeKey []byte             `json:"exchange_key"`
	ExchangePub []byte             `json:"exchange_pub"`
}

// PublicIdentity - публичная часть идентичности, которой узлы
// обмениваются при знакомстве. Попадает в реестр доверенных устройств.
type PublicIdentity struct {
	NodeID      string `json:"node_id"`
	SigningPub  []byte `json:"signing_pub"`
	ExchangePub []byte `json:"exchange_pub"`
}

// Generate создает новую идентичность узла: пару Ed25519 для подписей
// и пару X25519 для обмена ключами.
func Generate(nodeID string) (*Identity, error) {
	if err := validation.ValidateNodeID(nodeID); err != nil {
		return nil, fmt.Errorf("invalid node id: %w", err)
	}

	signingPub, signingKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	exchangeKey := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(exchangeKey); err != nil {
		return nil, fmt.Errorf("failed to generate exchange key: %w", err)
	}

	exchangePub, err := curve25519.X25519(exchangeKey, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive exchange public key: %w", err)
	}

	return &Identity{
		NodeID:      nodeID,
		SigningKey:  signingKey,
		SigningPub:  signingPub,
		ExchangeKey: exchangeKey,
		ExchangePub: exchangePub,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Sign подписывает данные приватным Ed25519 ключом узла.
func (id *Identity) Sign(data []byte) []byte {
	return ed25519.Sign(id.SigningKey, data)
}

// SharedSecret вычисляет общий секрет ECDH с публичным X25519 ключом
// другого узла. Секрет не используется напрямую: из него выводится
// сессионный ключ через HKDF.
func (id *Identity) SharedSecret(peerExchangePub []byte) ([]byte, error) {
	if len(peerExchangePub) != curve25519.PointSize {
		return nil, fmt.Errorf("peer exchange key must be %d bytes, got %d", curve25519.PointSize, len(peerExchangePub))
	}

	secret, err := curve25519.X25519(id.ExchangeKey, peerExchangePub)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	return secret, nil
}

// Public возвращает публичную часть идентичности для обмена с узлами.
func (id *Identity) Public() PublicIdentity {
	return PublicIdentity{
		NodeID:      id.NodeID,
		SigningPub:  append([]byte{}, id.SigningPub...),
		ExchangePub: append([]byte{}, id.ExchangePub...),
	}
}

// Fingerprint возвращает отпечаток публичного ключа подписи.
func (id *Identity) Fingerprint() string {
	return crypto.Fingerprint(id.SigningPub)
}

// Verify проверяет подпись Ed25519 публичным ключом pub.
// Вынесена в пакет, чтобы проверяющая сторона не зависела
// от приватной идентичности.
func Verify(pub ed25519.PublicKey, data, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}

	return ed25519.Verify(pub, data, signature)
}
