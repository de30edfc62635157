package models

import "time"

// CrdtOperation представляет одну доменную мутацию в CRDT логе.
// Операция создается один раз породившим ее узлом и после создания
// не изменяется. Причинный порядок определяется векторными часами,
// поле Timestamp — wall-clock метка, используется только как
// вспомогательная (разрешение LWW конфликтов и проверка свежести).
type CrdtOperation struct {
	Timestamp time.Time   `json:"timestamp"` // Timestamp wall-clock время создания (advisory)
	Clock     VectorClock `json:"clock"`     // Clock снимок векторных часов узла на момент создания
	ID        string      `json:"id"`        // ID уникальный идентификатор операции (UUID)
	NodeID    string      `json:"node_id"`   // NodeID идентификатор узла, создавшего операцию
	Type      string      `json:"type"`      // Type тип операции: "set_add", "register_set", "counter_add"
	Payload   []byte      `json:"payload"`   // Payload сериализованная доменная нагрузка (JSON)
}

// OpType константы для типов операций
const (
	OpTypeSetAdd      = "set_add"      // добавление элемента в именованное множество
	OpTypeRegisterSet = "register_set" // запись в LWW регистр
	OpTypeCounterAdd  = "counter_add"  // инкремент именованного счетчика
)

// Counter возвращает счетчик породившего узла на момент создания операции.
// Пара (NodeID, Counter) однозначно идентифицирует операцию в причинном
// порядке: узел увеличивает только свою координату и делает это на каждую
// локальную операцию.
func (op *CrdtOperation) Counter() uint64 {
	return op.Clock.Counter(op.NodeID)
}

// Clone создает глубокую копию операции
func (op *CrdtOperation) Clone() *CrdtOperation {
	payload := make([]byte, len(op.Payload))
	copy(payload, op.Payload)

	return &CrdtOperation{
		ID:        op.ID,
		NodeID:    op.NodeID,
		Type:      op.Type,
		Payload:   payload,
		Timestamp: op.Timestamp,
		Clock:     op.Clock.Clone(),
	}
}

// IsNewerThan сравнивает две операции по правилу LWW
// (Last-Write-Wins): сначала Timestamp, при равенстве — NodeID
// лексикографически. Используется merge-функцией регистров для
// детерминированного разрешения конкурентных записей.
func (op *CrdtOperation) IsNewerThan(other *CrdtOperation) bool {
	if op.Timestamp.After(other.Timestamp) {
		return true
	}
	if op.Timestamp.Before(other.Timestamp) {
		return false
	}
	// Timestamps равны - сравниваем NodeID для детерминизма
	return op.NodeID > other.NodeID
}
