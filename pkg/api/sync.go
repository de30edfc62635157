package api

import "time"

// SecureOperation представляет запечатанную операцию на проводе.
// Метаданные (id, источник, тип, timestamp, часы) передаются открыто,
// чтобы получатель мог применить политику до расшифровки; нагрузка
// зашифрована и подписана. Байтовые поля кодируются в base64
// стандартным encoding/json.
type SecureOperation struct {
	Timestamp  time.Time         `json:"timestamp"`  // wall-clock метка создания операции
	Clock      map[string]uint64 `json:"clock"`      // снимок векторных часов операции
	ID         string            `json:"id"`         // идентификатор операции
	SourceID   string            `json:"source_id"`  // устройство-отправитель
	Type       string            `json:"type"`       // тип операции (для allow-list)
	Ciphertext []byte            `json:"ciphertext"` // зашифрованная операция
	Nonce      []byte            `json:"nonce"`      // nonce AEAD
	AuthTag    []byte            `json:"auth_tag"`   // тег аутентичности AEAD
	Signature  []byte            `json:"signature"`  // подпись Ed25519 над ciphertext
}

// PushRequest представляет батч запечатанных операций от устройства
type PushRequest struct {
	SourceID   string            `json:"source_id"`  // устройство-отправитель батча
	Operations []SecureOperation `json:"operations"` // запечатанные операции
}

// Decision представляет решение получателя по одной операции
type Decision struct {
	Code   string `json:"code,omitempty"`   // код нарушения (пуст для принятых)
	Reason string `json:"reason,omitempty"` // причина отклонения
	OK     bool   `json:"ok"`               // true = операция принята и слита
}

// PushResponse представляет ответ получателя на батч
type PushResponse struct {
	Clock     map[string]uint64   `json:"clock"`     // часы получателя после слияния
	Decisions map[string]Decision `json:"decisions"` // решения по ID операции
	Accepted  int                 `json:"accepted"`  // количество принятых операций
	Rejected  int                 `json:"rejected"`  // количество отклоненных операций
	Conflicts int                 `json:"conflicts"` // количество разрешенных конфликтов
}
