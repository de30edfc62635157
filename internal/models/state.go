package models

import "time"

// CrdtState представляет агрегатное состояние узла: идентификатор,
// текущие векторные часы, известные локально операции и момент
// последней синхронизации. Это единица персистентности (save/load)
// и единица сравнения между пирами.
type CrdtState struct {
	LastSyncAt time.Time       `json:"last_sync_at"` // LastSyncAt время последней успешной синхронизации
	Clock      VectorClock     `json:"clock"`        // Clock текущие векторные часы узла
	NodeID     string          `json:"node_id"`      // NodeID идентификатор узла
	Operations []CrdtOperation `json:"operations"`   // Operations известные локально операции
}

// Clone создает глубокую копию состояния
func (s *CrdtState) Clone() *CrdtState {
	ops := make([]CrdtOperation, 0, len(s.Operations))
	for i := range s.Operations {
		ops = append(ops, *s.Operations[i].Clone())
	}

	return &CrdtState{
		NodeID:     s.NodeID,
		Clock:      s.Clock.Clone(),
		Operations: ops,
		LastSyncAt: s.LastSyncAt,
	}
}
