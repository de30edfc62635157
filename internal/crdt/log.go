package crdt

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imelnik/syncmesh/internal/models"
)

// seenKey — причинная координата операции: узел и значение его
// счетчика на момент создания. Пара уникальна, потому что узел
// инкрементирует только свою координату и делает это на каждую операцию.
type seenKey struct {
	nodeID  string
	counter uint64
}

// ApplyResult описывает результат слияния удаленной операции.
type ApplyResult struct {
	Applied  bool // операция была причинно новой и применена к состоянию
	Conflict bool // применение разрешило конфликт конкурентных записей
}

// Log представляет журнал операций и merge-движок CRDT состояния узла.
//
// Локальные операции применяются немедленно (координация не нужна),
// удаленные сливаются детерминированным коммутативным правилом, поэтому
// реплики сходятся независимо от порядка доставки. Повторная доставка
// уже виденной операции — no-op (идемпотентность по паре node/counter).
//
// Часы, журнал и доменное состояние — один логический store под одним
// мьютексом; все мутации сериализуются.
type Log struct {
	clock     models.VectorClock
	seen      map[seenKey]struct{}
	ops       map[string]*models.CrdtOperation
	sets      map[string]map[string]struct{}
	registers map[string]registerState
	counters  map[string]int64
	nodeID    string
	mu        sync.RWMutex
}

// registerState хранит текущее значение LWW регистра вместе с метками
// победившей записи — они нужны для детерминированного сравнения
// со следующими записями.
type registerState struct {
	writtenAt time.Time
	clock     models.VectorClock
	value     string
	nodeID    string
}

// NewLog создает пустой журнал для узла nodeID.
func NewLog(nodeID string) *Log {
	return &Log{
		nodeID:    nodeID,
		clock:     models.NewVectorClock(),
		seen:      make(map[seenKey]struct{}),
		ops:       make(map[string]*models.CrdtOperation),
		sets:      make(map[string]map[string]struct{}),
		registers: make(map[string]registerState),
		counters:  make(map[string]int64),
	}
}

// NewLogFromState восстанавливает журнал из сохраненного состояния.
// Операции применяются заново; порядок не важен, так как merge-функции
// коммутативны.
func NewLogFromState(state *models.CrdtState) (*Log, error) {
	if state == nil {
		return nil, fmt.Errorf("state is nil")
	}

	l := NewLog(state.NodeID)

	for i := range state.Operations {
		op := state.Operations[i].Clone()
		if err := l.replay(op); err != nil {
			return nil, fmt.Errorf("failed to replay operation %s: %w", op.ID, err)
		}
	}

	// Часы восстанавливаем последними: сохраненные часы могли уйти вперед
	// журнала (операции других узлов видны через merge часов)
	l.mu.Lock()
	l.clock = l.clock.Merge(state.Clock)
	l.mu.Unlock()

	return l, nil
}

// NodeID возвращает идентификатор узла журнала.
func (l *Log) NodeID() string {
	return l.nodeID
}

// Clock возвращает копию текущих векторных часов узла.
func (l *Log) Clock() models.VectorClock {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.clock.Clone()
}

// Record создает новую локальную операцию: продвигает часы узла,
// применяет нагрузку к доменному состоянию и записывает операцию
// в журнал. Локальное применение всегда происходит раньше, чем
// операция становится доступной для отправки.
func (l *Log) Record(opType string, payload []byte, now time.Time) (*models.CrdtOperation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.clock.Increment(l.nodeID)

	op := &models.CrdtOperation{
		ID:        uuid.New().String(),
		NodeID:    l.nodeID,
		Type:      opType,
		Payload:   payload,
		Timestamp: now,
		Clock:     next,
	}

	if _, err := l.apply(op); err != nil {
		return nil, err
	}

	l.clock = next
	l.seen[seenKey{nodeID: op.NodeID, counter: op.Counter()}] = struct{}{}
	l.ops[op.ID] = op.Clone()

	return op, nil
}

// MergeRemote сливает операцию, полученную от другого узла.
// Часы сливаются всегда (идемпотентно); нагрузка применяется только
// если пара (node, counter) еще не была видена.
func (l *Log) MergeRemote(op *models.CrdtOperation) (ApplyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.clock = l.clock.Merge(op.Clock)

	key := seenKey{nodeID: op.NodeID, counter: op.Counter()}
	if _, dup := l.seen[key]; dup {
		return ApplyResult{Applied: false}, nil
	}

	conflict, err := l.apply(op)
	if err != nil {
		return ApplyResult{}, err
	}

	l.seen[key] = struct{}{}
	l.ops[op.ID] = op.Clone()

	return ApplyResult{Applied: true, Conflict: conflict}, nil
}

// Seen проверяет, была ли причинная координата (nodeID, counter)
// уже применена. Используется для дедупликации и проверки
// целостности при восстановлении.
func (l *Log) Seen(nodeID string, counter uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.seen[seenKey{nodeID: nodeID, counter: counter}]
	return ok
}

// Size возвращает количество операций в журнале.
func (l *Log) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.ops)
}

// Operations возвращает копии всех операций журнала в порядке создания.
func (l *Log) Operations() []*models.CrdtOperation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.CrdtOperation, 0, len(l.ops))
	for _, op := range l.ops {
		result = append(result, op.Clone())
	}

	slices.SortFunc(result, opOrder)

	return result
}

// Snapshot возвращает агрегатное состояние узла для персистентности.
// Операции упорядочены по времени создания, снапшот детерминирован.
func (l *Log) Snapshot(lastSyncAt time.Time) *models.CrdtState {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ops := make([]models.CrdtOperation, 0, len(l.ops))
	for _, op := range l.ops {
		ops = append(ops, *op.Clone())
	}

	slices.SortFunc(ops, func(a, b models.CrdtOperation) int {
		return opOrder(&a, &b)
	})

	return &models.CrdtState{
		NodeID:     l.nodeID,
		Clock:      l.clock.Clone(),
		Operations: ops,
		LastSyncAt: lastSyncAt,
	}
}

// opOrder упорядочивает операции по времени создания; связки рвутся
// по идентификатору узла и его счетчику.
func opOrder(a, b *models.CrdtOperation) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	if c := strings.Compare(a.NodeID, b.NodeID); c != 0 {
		return c
	}

	return cmp.Compare(a.Counter(), b.Counter())
}

// replay применяет операцию при восстановлении из снапшота:
// часы сливаются по операциям, сохраненные часы узла досливаются
// после всего журнала (они могли уйти вперед журнала).
func (l *Log) replay(op *models.CrdtOperation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := seenKey{nodeID: op.NodeID, counter: op.Counter()}
	if _, dup := l.seen[key]; dup {
		return nil
	}

	if _, err := l.apply(op); err != nil {
		return err
	}

	l.clock = l.clock.Merge(op.Clock)
	l.seen[key] = struct{}{}
	l.ops[op.ID] = op.Clone()

	return nil
}
