package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/imelnik/syncmesh/internal/events"
	"github.com/imelnik/syncmesh/internal/models"
)

//go:generate moq -out oracle_mock.go . TrustOracle
//go:generate moq -out verifier_mock.go . SignatureVerifier

// TrustOracle отвечает, доверяет ли узел устройству-источнику.
// Реализуется реестром доверенных устройств.
type TrustOracle interface {
	IsTrusted(ctx context.Context, deviceID string) (bool, error)
}

// SignatureVerifier проверяет подпись устройства его известным
// публичным ключом. Возвращает nil только для корректной подписи.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, deviceID string, data, signature []byte) error
}

// Validator применяет политику безопасности к входящим запечатанным
// операциям. Проверки идут в фиксированном порядке с остановкой
// на первом нарушении: возраст, доверие к источнику, allow-list типа,
// подпись. Все проверки работают по открытым метаданным конверта,
// до расшифровки.
//
// Политика заменяется атомарно: каждая проверка читает снимок политики
// один раз, операции в полете валидируются по прежней версии.
type Validator struct {
	now      func() time.Time
	trust    TrustOracle
	verifier SignatureVerifier
	sink     events.Sink
	logger   *slog.Logger
	policy   models.SecurityPolicy
	mu       sync.RWMutex
}

// NewValidator создает валидатор с начальной политикой.
func NewValidator(policy models.SecurityPolicy, trust TrustOracle, verifier SignatureVerifier, sink events.Sink, logger *slog.Logger) *Validator {
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		policy:   policy,
		trust:    trust,
		verifier: verifier,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Policy возвращает копию текущей политики.
func (v *Validator) Policy() models.SecurityPolicy {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.policy.Clone()
}

// SetPolicy атомарно заменяет политику. Действует только на будущие
// проверки.
func (v *Validator) SetPolicy(policy models.SecurityPolicy) {
	v.mu.Lock()
	v.policy = policy
	v.mu.Unlock()

	v.logger.Info("security policy updated",
		"max_operation_age", policy.MaxOperationAge,
		"max_batch_size", policy.MaxBatchSize,
		"allowed_operations", policy.AllowedOperations,
	)
}

// Evaluate проверяет запечатанную операцию по текущей политике.
// Возраст считается от локального времени получения; компенсации
// расхождения часов нет.
func (v *Validator) Evaluate(ctx context.Context, op *models.SecureCrdtOperation) models.Decision {
	return v.EvaluateWith(ctx, op, v.Policy())
}

// EvaluateWith проверяет операцию по переданному снимку политики.
// Снимок позволяет вызывающей стороне провести весь батч по одной
// версии политики: горячая замена действует со следующего батча.
func (v *Validator) EvaluateWith(ctx context.Context, op *models.SecureCrdtOperation, pol models.SecurityPolicy) models.Decision {
	// 1. Возраст операции
	if pol.MaxOperationAge > 0 {
		age := v.now().Sub(op.Timestamp)
		if age > pol.MaxOperationAge {
			return v.reject(op, models.ViolationAgeExceeded,
				fmt.Sprintf("operation age %s exceeds limit %s", age.Round(time.Millisecond), pol.MaxOperationAge))
		}
	}

	// 2. Доверие к устройству-источнику. Ошибка оракула трактуется
	// как отсутствие доверия: отказ закрытый
	if pol.RequireTrustedDevices {
		trusted, err := v.trust.IsTrusted(ctx, op.SourceID)
		if err != nil {
			return v.reject(op, models.ViolationUntrustedDevice,
				fmt.Sprintf("trust check failed: %v", err))
		}
		if !trusted {
			return v.reject(op, models.ViolationUntrustedDevice,
				fmt.Sprintf("device %s is not trusted", op.SourceID))
		}
	}

	// 3. Allow-list типов операций
	if !pol.Allows(op.Type) {
		return v.reject(op, models.ViolationOperationNotAllowed,
			fmt.Sprintf("operation type %q is not allowed", op.Type))
	}

	// 4. Подпись поверх ciphertext ключом источника
	if pol.RequireAuthentication {
		if err := v.verifier.VerifySignature(ctx, op.SourceID, op.Ciphertext, op.Signature); err != nil {
			return v.reject(op, models.ViolationSignatureInvalid,
				fmt.Sprintf("signature verification failed: %v", err))
		}
	}

	return models.Accept()
}

// CheckBatchSize проверяет размер входящего батча по лимиту
// переданного снимка политики. Снимок общий с EvaluateWith и
// с усечением батча: все решения раунда принимает одна версия
// политики.
func (v *Validator) CheckBatchSize(pol models.SecurityPolicy, size int) models.Decision {
	if pol.MaxBatchSize > 0 && size > pol.MaxBatchSize {
		decision := models.Reject(models.ViolationBatchLimitExceeded,
			fmt.Sprintf("batch size %d exceeds limit %d", size, pol.MaxBatchSize))

		v.logger.Warn("sync batch rejected",
			"batch_size", size,
			"limit", pol.MaxBatchSize,
		)

		return decision
	}

	return models.Accept()
}

// reject логирует нарушение, публикует событие безопасности
// и возвращает отрицательное решение. Нарушения никогда не глотаются
// молча.
func (v *Validator) reject(op *models.SecureCrdtOperation, code models.ViolationCode, reason string) models.Decision {
	v.logger.Warn("operation rejected by security policy",
		"operation_id", op.ID,
		"device_id", op.SourceID,
		"operation_type", op.Type,
		"violation", string(code),
		"reason", reason,
	)

	v.sink.Publish(events.New(
		models.EventPolicyViolation,
		models.SeverityWarning,
		op.SourceID,
		reason,
		map[string]string{
			"violation":    string(code),
			"operation_id": op.ID,
		},
	))

	return models.Reject(code, reason)
}
