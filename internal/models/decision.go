package models

// ViolationCode — закрытое множество причин отклонения операции.
// Каждая проверка политики и каждый сбой seal/unseal имеет свой код:
// отклонение никогда не бывает безликим.
type ViolationCode string

const (
	// ViolationAgeExceeded операция старше policy.MaxOperationAge
	ViolationAgeExceeded ViolationCode = "age_exceeded"
	// ViolationUntrustedDevice устройство-источник не является доверенным
	ViolationUntrustedDevice ViolationCode = "untrusted_device"
	// ViolationOperationNotAllowed тип операции отсутствует в allow-list
	ViolationOperationNotAllowed ViolationCode = "operation_not_allowed"
	// ViolationSignatureInvalid подпись не прошла проверку ключом источника
	ViolationSignatureInvalid ViolationCode = "signature_invalid"
	// ViolationNoSession нет активной сессии с устройством-источником
	ViolationNoSession ViolationCode = "no_session"
	// ViolationDecryptFailed AEAD дешифрование завершилось ошибкой
	ViolationDecryptFailed ViolationCode = "decrypt_failed"
	// ViolationDecodeFailed расшифрованная операция не декодируется
	ViolationDecodeFailed ViolationCode = "decode_failed"
	// ViolationBatchLimitExceeded операция выходит за лимит батча раунда
	ViolationBatchLimitExceeded ViolationCode = "batch_limit_exceeded"
)

// Decision — результат проверки операции: Accepted либо Rejected с кодом
// и причиной. Решение бинарное; частичного доверия на этом уровне нет.
type Decision struct {
	Code   ViolationCode `json:"code,omitempty"`   // код нарушения (пуст для принятых)
	Reason string        `json:"reason,omitempty"` // человекочитаемая причина отклонения
	OK     bool          `json:"ok"`               // true = операция принята
}

// Accept возвращает положительное решение.
func Accept() Decision {
	return Decision{OK: true}
}

// Reject возвращает отрицательное решение с кодом и причиной.
func Reject(code ViolationCode, reason string) Decision {
	return Decision{OK: false, Code: code, Reason: reason}
}

// Rejected сообщает, было ли решение отрицательным.
func (d Decision) Rejected() bool {
	return !d.OK
}
