package crdt

import (
	"encoding/json"
	"fmt"

	"github.com/imelnik/syncmesh/internal/models"
)

// apply диспетчеризует операцию в merge-функцию ее типа.
// Вызывается под мьютексом. Возвращает признак того, что применение
// разрешило конфликт конкурентных записей.
func (l *Log) apply(op *models.CrdtOperation) (bool, error) {
	switch op.Type {
	case models.OpTypeSetAdd:
		return false, l.applySetAdd(op)
	case models.OpTypeRegisterSet:
		return l.applyRegisterSet(op)
	case models.OpTypeCounterAdd:
		return false, l.applyCounterAdd(op)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownOperationType, op.Type)
	}
}

// applySetAdd добавляет элемент в grow-only множество.
// Объединение множеств коммутативно и идемпотентно по построению.
func (l *Log) applySetAdd(op *models.CrdtOperation) error {
	var p models.SetAddPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	members, ok := l.sets[p.Set]
	if !ok {
		members = make(map[string]struct{})
		l.sets[p.Set] = members
	}
	members[p.Member] = struct{}{}

	return nil
}

// applyRegisterSet применяет запись в LWW регистр: побеждает запись
// с большей физической меткой времени, при равных метках — с лексико-
// графически большим идентификатором узла. Правило тотально, поэтому
// обе реплики выбирают одного победителя независимо от порядка доставки.
func (l *Log) applyRegisterSet(op *models.CrdtOperation) (bool, error) {
	var p models.RegisterSetPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	current, exists := l.registers[p.Register]
	if !exists {
		l.registers[p.Register] = registerState{
			value:     p.Value,
			writtenAt: op.Timestamp,
			nodeID:    op.NodeID,
			clock:     op.Clock.Clone(),
		}

		return false, nil
	}

	// Конфликтом считаем только причинно конкурентные записи: запись,
	// которая видела текущую, просто перезаписывает ее
	conflict := op.Clock.Concurrent(current.clock)

	if !lwwWins(op, current) {
		return conflict, nil
	}

	l.registers[p.Register] = registerState{
		value:     p.Value,
		writtenAt: op.Timestamp,
		nodeID:    op.NodeID,
		clock:     op.Clock.Clone(),
	}

	return conflict, nil
}

// applyCounterAdd прибавляет дельту к счетчику. Сложение коммутативно,
// а дедупликация по паре (node, counter) защищает от повторного
// применения при редоставке.
func (l *Log) applyCounterAdd(op *models.CrdtOperation) error {
	var p models.CounterAddPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	l.counters[p.Counter] += p.Delta

	return nil
}

// lwwWins сообщает, должна ли запись op вытеснить текущее значение
// регистра.
func lwwWins(op *models.CrdtOperation, current registerState) bool {
	if op.Timestamp.After(current.writtenAt) {
		return true
	}

	if op.Timestamp.Equal(current.writtenAt) {
		return op.NodeID > current.nodeID
	}

	return false
}

// SetMembers возвращает элементы множества name в неопределенном порядке.
func (l *Log) SetMembers(name string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	members, ok := l.sets[name]
	if !ok {
		return nil
	}

	result := make([]string, 0, len(members))
	for m := range members {
		result = append(result, m)
	}

	return result
}

// SetContains проверяет принадлежность элемента множеству.
func (l *Log) SetContains(name, member string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	members, ok := l.sets[name]
	if !ok {
		return false
	}

	_, found := members[member]
	return found
}

// Register возвращает текущее значение LWW регистра.
func (l *Log) Register(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state, ok := l.registers[name]
	if !ok {
		return "", false
	}

	return state.value, true
}

// Counter возвращает текущее значение счетчика. Для неизвестного
// счетчика возвращается ноль.
func (l *Log) Counter(name string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.counters[name]
}
