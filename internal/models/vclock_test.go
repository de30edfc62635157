package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorClock_Increment(t *testing.T) {
	clock := NewVectorClock()

	// Increment чистый: исходные часы не изменяются
	next := clock.Increment("nodeA")

	assert.Equal(t, uint64(0), clock.Counter("nodeA"), "Original clock must not change")
	assert.Equal(t, uint64(1), next.Counter("nodeA"), "Incremented copy should advance")

	// Продвигается только координата инкрементирующего узла
	next2 := next.Increment("nodeA")
	assert.Equal(t, uint64(2), next2.Counter("nodeA"))
	assert.Equal(t, uint64(0), next2.Counter("nodeB"), "Other coordinates stay at zero")
}

func TestVectorClock_Merge(t *testing.T) {
	tests := []struct {
		a        VectorClock
		b        VectorClock
		expected VectorClock
		name     string
	}{
		{
			name:     "disjoint nodes",
			a:        VectorClock{"A": 1},
			b:        VectorClock{"B": 2},
			expected: VectorClock{"A": 1, "B": 2},
		},
		{
			name:     "coordinate-wise maximum",
			a:        VectorClock{"A": 3, "B": 1},
			b:        VectorClock{"A": 1, "B": 5},
			expected: VectorClock{"A": 3, "B": 5},
		},
		{
			name:     "empty with non-empty",
			a:        VectorClock{},
			b:        VectorClock{"A": 7},
			expected: VectorClock{"A": 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := tt.a.Merge(tt.b)
			assert.True(t, merged.Equal(tt.expected), "merge result should be coordinate-wise max")

			// Коммутативность
			reversed := tt.b.Merge(tt.a)
			assert.True(t, merged.Equal(reversed), "merge must be commutative")

			// Идемпотентность
			again := merged.Merge(merged)
			assert.True(t, merged.Equal(again), "merge must be idempotent")
		})
	}
}

func TestVectorClock_HappensBefore(t *testing.T) {
	tests := []struct {
		a        VectorClock
		b        VectorClock
		name     string
		expected bool
	}{
		{
			name:     "strictly less on one coordinate",
			a:        VectorClock{"A": 1},
			b:        VectorClock{"A": 2},
			expected: true,
		},
		{
			name:     "less with extra coordinate in other",
			a:        VectorClock{"A": 1},
			b:        VectorClock{"A": 1, "B": 1},
			expected: true,
		},
		{
			name:     "identical clocks are not ordered",
			a:        VectorClock{"A": 1, "B": 2},
			b:        VectorClock{"A": 1, "B": 2},
			expected: false,
		},
		{
			name:     "concurrent clocks",
			a:        VectorClock{"A": 1},
			b:        VectorClock{"B": 1},
			expected: false,
		},
		{
			name:     "empty precedes non-empty",
			a:        VectorClock{},
			b:        VectorClock{"A": 1},
			expected: true,
		},
		{
			name:     "zero coordinate is equivalent to absent",
			a:        VectorClock{"A": 1, "B": 0},
			b:        VectorClock{"A": 1},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.HappensBefore(tt.b))
		})
	}
}

func TestVectorClock_Concurrent(t *testing.T) {
	a := VectorClock{"A": 2, "B": 1}
	b := VectorClock{"A": 1, "B": 2}

	assert.True(t, a.Concurrent(b), "Neither dominates: clocks are concurrent")
	assert.True(t, b.Concurrent(a), "Concurrency is symmetric")

	// Упорядоченные часы не конкурентны
	c := VectorClock{"A": 3, "B": 3}
	assert.False(t, a.Concurrent(c))
	assert.False(t, c.Concurrent(a))

	// Идентичные часы не конкурентны
	assert.False(t, a.Concurrent(VectorClock{"A": 2, "B": 1}))
}

func TestVectorClock_Dominates(t *testing.T) {
	a := VectorClock{"A": 2, "B": 2}
	b := VectorClock{"A": 1, "B": 2}

	assert.True(t, a.Dominates(b))
	assert.False(t, b.Dominates(a))

	// a.Dominates(b) и b.Dominates(a) одновременно невозможны для разных часов
	equal := VectorClock{"A": 2, "B": 2}
	assert.False(t, a.Dominates(equal), "Equal clocks do not strictly dominate each other")
	assert.False(t, equal.Dominates(a))
	assert.True(t, a.Equal(equal))
}

func TestVectorClock_TwoNodeScenario(t *testing.T) {
	// Узлы A и B создают по одной операции конкурентно,
	// после двустороннего обмена оба сходятся к {A:1, B:1}.
	clockA := NewVectorClock().Increment("A")
	clockB := NewVectorClock().Increment("B")

	require.True(t, clockA.Concurrent(clockB), "Independent increments are concurrent")

	mergedAtA := clockA.Merge(clockB)
	mergedAtB := clockB.Merge(clockA)

	expected := VectorClock{"A": 1, "B": 1}
	assert.True(t, mergedAtA.Equal(expected))
	assert.True(t, mergedAtB.Equal(expected))
	assert.True(t, mergedAtA.Equal(mergedAtB), "Both replicas converge to the same clock")
}

func TestVectorClock_Clone(t *testing.T) {
	original := VectorClock{"A": 1, "B": 2}
	clone := original.Clone()

	require.True(t, original.Equal(clone))

	// Модификация клона не должна влиять на оригинал
	clone["A"] = 99
	assert.Equal(t, uint64(1), original.Counter("A"))
}

func TestVectorClock_String(t *testing.T) {
	clock := VectorClock{"B": 2, "A": 1}

	// Детерминированный порядок координат независимо от порядка вставки
	assert.Equal(t, "{A:1, B:2}", clock.String())
	assert.Equal(t, "{}", NewVectorClock().String())
}
