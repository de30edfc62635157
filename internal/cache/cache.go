package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/imelnik/syncmesh/internal/models"
)

// ErrCacheFull - кэш достиг емкости. Кэш никогда не вытесняет
// операции молча: освобождение места — явный вызов Remove или Cleanup.
var ErrCacheFull = errors.New("operation cache is full")

// DefaultCapacity - емкость кэша по умолчанию
const DefaultCapacity = 1000

// Cache - ограниченный кэш локально примененных операций, ожидающих
// доставки узлам, которые их еще не видели. Хранение arena-style:
// идентификатор операции → операция, плюс порядок вставки для
// обхода от старых к новым. Один мьютекс на все хранилище.
type Cache struct {
	ops      map[string]*models.CrdtOperation
	order    []string
	capacity int
	mu       sync.RWMutex
}

// New создает кэш с заданной емкостью. Неположительная емкость
// заменяется на DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Cache{
		capacity: capacity,
		ops:      make(map[string]*models.CrdtOperation),
	}
}

// Add кладет операцию в кэш. Повторное добавление операции
// с тем же идентификатором — no-op (операции иммутабельны).
// Возвращает ErrCacheFull, когда емкость исчерпана.
func (c *Cache) Add(op *models.CrdtOperation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ops[op.ID]; exists {
		return nil
	}

	if len(c.ops) >= c.capacity {
		return ErrCacheFull
	}

	c.ops[op.ID] = op.Clone()
	c.order = append(c.order, op.ID)

	return nil
}

// Get возвращает копию операции по идентификатору.
func (c *Cache) Get(id string) (*models.CrdtOperation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	op, ok := c.ops[id]
	if !ok {
		return nil, false
	}

	return op.Clone(), true
}

// Has проверяет наличие операции в кэше.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.ops[id]
	return ok
}

// Remove удаляет операцию из кэша. Вызывается после подтверждения
// доставки всеми узлами либо при явном вытеснении.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ops[id]; !ok {
		return
	}

	delete(c.ops, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len возвращает количество операций в кэше.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.ops)
}

// Full сообщает, исчерпана ли емкость кэша.
func (c *Cache) Full() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.ops) >= c.capacity
}

// All возвращает копии всех операций в порядке добавления.
func (c *Cache) All() []*models.CrdtOperation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*models.CrdtOperation, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.ops[id].Clone())
	}

	return result
}

// EligibleFor возвращает операции, которые узел с часами peerClock
// еще не видел: координата узла-источника операции в ее часах больше,
// чем у часов получателя. Порядок — от старых к новым, чтобы получатель
// мог применять батч последовательно.
func (c *Cache) EligibleFor(peerClock models.VectorClock) []*models.CrdtOperation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*models.CrdtOperation
	for _, id := range c.order {
		op := c.ops[id]
		if op.Counter() > peerClock.Counter(op.NodeID) {
			result = append(result, op.Clone())
		}
	}

	return result
}

// Cleanup удаляет операции старше maxAge относительно now и возвращает
// количество удаленных. Явный вызов обслуживания: вызывающая сторона
// сама решает, когда платить за обход.
func (c *Cache) Cleanup(maxAge time.Duration, now time.Time) int {
	if maxAge <= 0 {
		return 0
	}

	cutoff := now.Add(-maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	kept := c.order[:0]
	for _, id := range c.order {
		op := c.ops[id]
		if op.Timestamp.Before(cutoff) {
			delete(c.ops, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept

	return removed
}
