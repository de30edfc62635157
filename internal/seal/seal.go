package seal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imelnik/syncmesh/internal/crypto"
	"github.com/imelnik/syncmesh/internal/events"
	"github.com/imelnik/syncmesh/internal/models"
)

//go:generate moq -out keysource_mock.go . KeySource

// ErrNoSession - с адресатом нет активной сессии. Запечатывание
// падает сразу, без тихой постановки в очередь: вызывающая сторона
// отвечает за установление сессии и повтор.
var ErrNoSession = errors.New("no active session with peer")

// KeySource отдает сессионный ключ для устройства.
// Реализуется менеджером сессий.
type KeySource interface {
	SessionKey(deviceID string) ([]byte, error)
}

// Signer подписывает байты приватным ключом узла.
// Реализуется идентичностью узла.
type Signer interface {
	Sign(data []byte) []byte
}

// Sealer запечатывает исходящие операции и распечатывает входящие.
// Запечатывание: сериализация операции, AEAD шифрование сессионным
// ключом адресата, подпись поверх ciphertext ключом узла. Метаданные
// (id, часы, метка времени, тип) остаются открытыми, чтобы политика
// получателя отбрасывала операции до расшифровки.
type Sealer struct {
	keys   KeySource
	signer Signer
	sink   events.Sink
	logger *slog.Logger
	nodeID string
}

// NewSealer создает Sealer для узла nodeID.
func NewSealer(nodeID string, keys KeySource, signer Signer, sink events.Sink, logger *slog.Logger) *Sealer {
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sealer{
		nodeID: nodeID,
		keys:   keys,
		signer: signer,
		sink:   sink,
		logger: logger,
	}
}

// Seal запечатывает операцию для узла peerID. Операция не обязана
// быть собственной: узел может ретранслировать чужую операцию, тогда
// SourceID конверта - ретранслятор (его сессией шифруем, его ключом
// подписываем), а автор остается в NodeID запечатанной операции.
// Возвращает ErrNoSession, если сессия с адресатом не установлена.
func (s *Sealer) Seal(ctx context.Context, op *models.CrdtOperation, peerID string) (*models.SecureCrdtOperation, error) {
	key, err := s.keys.SessionKey(peerID)
	if err != nil {
		s.publishCryptoFailure(peerID, op.ID, "no session for sealing: "+err.Error())
		return nil, fmt.Errorf("%w: %s", ErrNoSession, peerID)
	}

	plaintext, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize operation: %w", err)
	}

	ciphertext, nonce, tag, err := crypto.EncryptParts(plaintext, key)
	if err != nil {
		s.publishCryptoFailure(peerID, op.ID, "encryption failed: "+err.Error())
		return nil, fmt.Errorf("failed to encrypt operation: %w", err)
	}

	return &models.SecureCrdtOperation{
		ID:         op.ID,
		SourceID:   s.nodeID,
		Type:       op.Type,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		AuthTag:    tag,
		Signature:  s.signer.Sign(ciphertext),
		Timestamp:  op.Timestamp,
		Clock:      op.Clock.Clone(),
	}, nil
}

// Unseal распечатывает принятый конверт: берет сессионный ключ
// заявленного источника, расшифровывает и десериализует операцию.
// Подпись к этому моменту уже проверена политикой. Любой сбой —
// нарушение безопасности, а не временная ошибка: конверт отбрасывается
// с типизированным решением, повторов нет.
func (s *Sealer) Unseal(ctx context.Context, env *models.SecureCrdtOperation) (*models.CrdtOperation, models.Decision) {
	key, err := s.keys.SessionKey(env.SourceID)
	if err != nil {
		return nil, s.rejectEnvelope(env, models.ViolationNoSession,
			fmt.Sprintf("no session with source device: %v", err))
	}

	plaintext, err := crypto.DecryptParts(env.Ciphertext, env.Nonce, env.AuthTag, key)
	if err != nil {
		return nil, s.rejectEnvelope(env, models.ViolationDecryptFailed,
			fmt.Sprintf("decryption failed: %v", err))
	}

	var op models.CrdtOperation
	if err := json.Unmarshal(plaintext, &op); err != nil {
		return nil, s.rejectEnvelope(env, models.ViolationDecodeFailed,
			fmt.Sprintf("operation decode failed: %v", err))
	}

	// Открытые метаданные конверта обязаны совпадать с запечатанной
	// операцией: политика принимала решение по ним до расшифровки.
	// SourceID с автором не сверяется: конверт мог запечатать
	// узел-ретранслятор, передающий чужую операцию дальше
	if op.ID != env.ID || op.Type != env.Type || !op.Clock.Equal(env.Clock) {
		return nil, s.rejectEnvelope(env, models.ViolationDecodeFailed,
			"envelope metadata does not match sealed operation")
	}

	// Автор операции обязан присутствовать в открытом снимке часов:
	// его координата и есть причинная позиция операции
	if env.Clock.Counter(op.NodeID) == 0 {
		return nil, s.rejectEnvelope(env, models.ViolationDecodeFailed,
			"sealed operation origin is absent from envelope clock")
	}

	return &op, models.Accept()
}

// rejectEnvelope логирует криптографический сбой, публикует событие
// и возвращает отрицательное решение.
func (s *Sealer) rejectEnvelope(env *models.SecureCrdtOperation, code models.ViolationCode, reason string) models.Decision {
	s.logger.Warn("failed to unseal operation",
		"operation_id", env.ID,
		"device_id", env.SourceID,
		"violation", string(code),
		"reason", reason,
	)

	s.sink.Publish(events.New(
		models.EventCryptoFailure,
		models.SeverityCritical,
		env.SourceID,
		reason,
		map[string]string{
			"violation":    string(code),
			"operation_id": env.ID,
		},
	))

	return models.Reject(code, reason)
}

func (s *Sealer) publishCryptoFailure(deviceID, opID, reason string) {
	s.logger.Warn("failed to seal operation",
		"operation_id", opID,
		"device_id", deviceID,
		"reason", reason,
	)

	s.sink.Publish(events.New(
		models.EventCryptoFailure,
		models.SeverityWarning,
		deviceID,
		reason,
		map[string]string{"operation_id": opID},
	))
}
