package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCrdtOperation_Counter(t *testing.T) {
	op := &CrdtOperation{
		NodeID: "nodeA",
		Clock:  VectorClock{"nodeA": 3, "nodeB": 7},
	}

	// Counter возвращает координату породившего узла, не чужую
	assert.Equal(t, uint64(3), op.Counter())
}

func TestCrdtOperation_IsNewerThan(t *testing.T) {
	base := time.Unix(1700000000, 0)

	tests := []struct {
		self     *CrdtOperation
		other    *CrdtOperation
		name     string
		expected bool
	}{
		{
			name:     "self timestamp greater",
			self:     &CrdtOperation{Timestamp: base.Add(time.Second), NodeID: "nodeA"},
			other:    &CrdtOperation{Timestamp: base, NodeID: "nodeA"},
			expected: true,
		},
		{
			name:     "self timestamp smaller",
			self:     &CrdtOperation{Timestamp: base, NodeID: "nodeA"},
			other:    &CrdtOperation{Timestamp: base.Add(time.Second), NodeID: "nodeA"},
			expected: false,
		},
		{
			name:     "timestamps equal, self NodeID greater lex",
			self:     &CrdtOperation{Timestamp: base, NodeID: "nodeB"},
			other:    &CrdtOperation{Timestamp: base, NodeID: "nodeA"},
			expected: true,
		},
		{
			name:     "timestamps equal, self NodeID lower lex",
			self:     &CrdtOperation{Timestamp: base, NodeID: "nodeA"},
			other:    &CrdtOperation{Timestamp: base, NodeID: "nodeB"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.self.IsNewerThan(tt.other))
		})
	}
}

func TestCrdtOperation_Clone(t *testing.T) {
	original := &CrdtOperation{
		ID:        "op-1",
		NodeID:    "nodeA",
		Type:      OpTypeRegisterSet,
		Payload:   []byte{1, 2, 3},
		Timestamp: time.Now(),
		Clock:     VectorClock{"nodeA": 1},
	}

	clone := original.Clone()

	assert.Equal(t, original.ID, clone.ID)
	assert.Equal(t, original.Type, clone.Type)
	assert.True(t, original.Clock.Equal(clone.Clock))

	// Модификация оригинала не должна влиять на клон
	original.Payload[0] = 9
	original.Clock["nodeA"] = 42
	assert.Equal(t, byte(1), clone.Payload[0])
	assert.Equal(t, uint64(1), clone.Clock.Counter("nodeA"))
}

func TestSecurityPolicy_Allows(t *testing.T) {
	policy := DefaultSecurityPolicy()

	assert.True(t, policy.Allows(OpTypeSetAdd))
	assert.True(t, policy.Allows(OpTypeRegisterSet))
	assert.True(t, policy.Allows(OpTypeCounterAdd))
	assert.False(t, policy.Allows("unknown_type"))
}

func TestSecurityPolicy_Clone(t *testing.T) {
	policy := DefaultSecurityPolicy()
	clone := policy.Clone()

	// Модификация allow-list клона не затрагивает оригинал
	clone.AllowedOperations[0] = "other"
	assert.Equal(t, OpTypeSetAdd, policy.AllowedOperations[0])
}
