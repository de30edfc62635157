package models

import (
	"fmt"
	"sort"
	"strings"
)

// VectorClock представляет векторные часы: отображение node_id -> счетчик.
// Используется для определения причинно-следственного порядка операций
// между репликами без синхронизации физического времени.
//
// Инвариант: узел увеличивает только свой собственный счетчик;
// отсутствующая координата эквивалентна нулю.
// Все методы чистые: приемник никогда не мутируется.
type VectorClock map[string]uint64

// NewVectorClock создает пустые векторные часы.
func NewVectorClock() VectorClock {
	return make(VectorClock)
}

// Counter возвращает счетчик узла. Отсутствующая координата равна 0.
func (vc VectorClock) Counter(nodeID string) uint64 {
	return vc[nodeID]
}

// Increment возвращает новые часы с увеличенным на единицу счетчиком узла nodeID.
// Исходные часы не изменяются.
func (vc VectorClock) Increment(nodeID string) VectorClock {
	result := vc.Clone()
	result[nodeID]++
	return result
}

// Merge возвращает покоординатный максимум двух часов
// по объединению известных узлов. Операция коммутативна и идемпотентна.
func (vc VectorClock) Merge(other VectorClock) VectorClock {
	result := vc.Clone()
	for nodeID, counter := range other {
		if counter > result[nodeID] {
			result[nodeID] = counter
		}
	}
	return result
}

// HappensBefore проверяет строгое отношение happens-before:
// все координаты vc <= other и хотя бы одна строго меньше.
// Идентичные часы НЕ находятся в отношении happens-before.
func (vc VectorClock) HappensBefore(other VectorClock) bool {
	strictlyLess := false

	for nodeID, counter := range vc {
		otherCounter := other[nodeID]
		if counter > otherCounter {
			return false
		}
		if counter < otherCounter {
			strictlyLess = true
		}
	}

	// Координаты, известные только other, строго больше нуля
	for nodeID, counter := range other {
		if _, known := vc[nodeID]; !known && counter > 0 {
			strictlyLess = true
		}
	}

	return strictlyLess
}

// Dominates проверяет доминирование: все координаты vc >= other
// и хотя бы одна строго больше.
func (vc VectorClock) Dominates(other VectorClock) bool {
	return other.HappensBefore(vc)
}

// Concurrent проверяет, являются ли два вектора конкурентными:
// ни один не предшествует другому и они не равны.
func (vc VectorClock) Concurrent(other VectorClock) bool {
	return !vc.HappensBefore(other) && !other.HappensBefore(vc) && !vc.Equal(other)
}

// Equal проверяет покоординатное равенство (нулевые координаты игнорируются).
func (vc VectorClock) Equal(other VectorClock) bool {
	for nodeID, counter := range vc {
		if counter != other[nodeID] {
			return false
		}
	}
	for nodeID, counter := range other {
		if counter != vc[nodeID] {
			return false
		}
	}
	return true
}

// Clone создает независимую копию часов.
func (vc VectorClock) Clone() VectorClock {
	result := make(VectorClock, len(vc))
	for nodeID, counter := range vc {
		result[nodeID] = counter
	}
	return result
}

// String возвращает детерминированное строковое представление
// (координаты отсортированы по node_id). Используется в логах.
func (vc VectorClock) String() string {
	nodeIDs := make([]string, 0, len(vc))
	for nodeID := range vc {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Strings(nodeIDs)

	parts := make([]string, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		parts = append(parts, fmt.Sprintf("%s:%d", nodeID, vc[nodeID]))
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
