package seal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imelnik/syncmesh/internal/crypto"
	"github.com/imelnik/syncmesh/internal/events"
	"github.com/imelnik/syncmesh/internal/identity"
	"github.com/imelnik/syncmesh/internal/models"
	"github.com/imelnik/syncmesh/internal/session"
)

// testPeers строит два узла с установленными сессиями в обе стороны
func testPeers(t *testing.T) (*identity.Identity, *identity.Identity, *session.Manager, *session.Manager) {
	t.Helper()

	a, err := identity.Generate("node-a")
	require.NoError(t, err)
	b, err := identity.Generate("node-b")
	require.NoError(t, err)

	sessionsA := session.NewManager(a, nil)
	sessionsB := session.NewManager(b, nil)

	require.NoError(t, sessionsA.Establish(b.Public()))
	require.NoError(t, sessionsB.Establish(a.Public()))

	return a, b, sessionsA, sessionsB
}

func testOp(nodeID string) *models.CrdtOperation {
	return &models.CrdtOperation{
		ID:        "op-1",
		NodeID:    nodeID,
		Type:      models.OpTypeSetAdd,
		Payload:   []byte(`{"set":"tags","member":"urgent"}`),
		Timestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Clock:     models.VectorClock{nodeID: 1},
	}
}

func TestSealer_Roundtrip(t *testing.T) {
	ctx := context.Background()
	a, _, sessionsA, sessionsB := testPeers(t)

	sealerA := NewSealer("node-a", sessionsA, a, nil, nil)
	sealerB := NewSealer("node-b", sessionsB, nil, nil, nil)

	op := testOp("node-a")

	env, err := sealerA.Seal(ctx, op, "node-b")
	require.NoError(t, err)

	// Открытые метаданные совпадают с операцией: политика получателя
	// работает без расшифровки
	assert.Equal(t, op.ID, env.ID)
	assert.Equal(t, "node-a", env.SourceID)
	assert.Equal(t, op.Type, env.Type)
	assert.True(t, op.Clock.Equal(env.Clock))
	assert.True(t, op.Timestamp.Equal(env.Timestamp))

	// Нагрузка зашифрована, поля конверта заполнены
	assert.NotContains(t, string(env.Ciphertext), "urgent")
	assert.Len(t, env.Nonce, crypto.NonceSize)
	assert.Len(t, env.AuthTag, crypto.TagSize)

	// Подпись поверх ciphertext проверяется ключом отправителя
	assert.True(t, identity.Verify(a.SigningPub, env.Ciphertext, env.Signature))

	// Получатель восстанавливает исходную операцию
	got, decision := sealerB.Unseal(ctx, env)
	require.True(t, decision.OK)
	assert.Equal(t, op.ID, got.ID)
	assert.Equal(t, op.NodeID, got.NodeID)
	assert.Equal(t, op.Payload, got.Payload)
	assert.True(t, op.Clock.Equal(got.Clock))
}

func TestSealer_Seal_NoSession(t *testing.T) {
	ctx := context.Background()
	a, err := identity.Generate("node-a")
	require.NoError(t, err)

	sink := &events.SinkMock{PublishFunc: func(event models.SecurityEvent) {}}
	sealer := NewSealer("node-a", session.NewManager(a, nil), a, sink, nil)

	// Запечатывание без сессии падает сразу
	_, err = sealer.Seal(ctx, testOp("node-a"), "node-b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSession)

	// Сбой опубликован как событие
	calls := sink.PublishCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.EventCryptoFailure, calls[0].Event.Type)
	assert.Equal(t, "node-b", calls[0].Event.DeviceID)
}

func TestSealer_Unseal_NoSession(t *testing.T) {
	ctx := context.Background()
	a, _, sessionsA, _ := testPeers(t)

	sealerA := NewSealer("node-a", sessionsA, a, nil, nil)

	env, err := sealerA.Seal(ctx, testOp("node-a"), "node-b")
	require.NoError(t, err)

	// Получатель без сессии с источником отклоняет конверт
	c, err := identity.Generate("node-c")
	require.NoError(t, err)

	sink := &events.SinkMock{PublishFunc: func(event models.SecurityEvent) {}}
	sealerC := NewSealer("node-c", session.NewManager(c, nil), c, sink, nil)

	got, decision := sealerC.Unseal(ctx, env)

	assert.Nil(t, got)
	require.True(t, decision.Rejected())
	assert.Equal(t, models.ViolationNoSession, decision.Code)

	require.Len(t, sink.PublishCalls(), 1)
	assert.Equal(t, models.SeverityCritical, sink.PublishCalls()[0].Event.Severity)
}

func TestSealer_Unseal_Tampered(t *testing.T) {
	ctx := context.Background()
	a, _, sessionsA, sessionsB := testPeers(t)

	sealerA := NewSealer("node-a", sessionsA, a, nil, nil)
	sealerB := NewSealer("node-b", sessionsB, nil, nil, nil)

	tests := []struct {
		name   string
		mutate func(env *models.SecureCrdtOperation)
	}{
		{
			name:   "flipped ciphertext bit",
			mutate: func(env *models.SecureCrdtOperation) { env.Ciphertext[0] ^= 0x01 },
		},
		{
			name:   "flipped auth tag bit",
			mutate: func(env *models.SecureCrdtOperation) { env.AuthTag[0] ^= 0x01 },
		},
		{
			name:   "flipped nonce bit",
			mutate: func(env *models.SecureCrdtOperation) { env.Nonce[0] ^= 0x01 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := sealerA.Seal(ctx, testOp("node-a"), "node-b")
			require.NoError(t, err)

			tt.mutate(env)

			got, decision := sealerB.Unseal(ctx, env)

			assert.Nil(t, got)
			require.True(t, decision.Rejected())
			assert.Equal(t, models.ViolationDecryptFailed, decision.Code)
		})
	}
}

func TestSealer_Unseal_WrongSessionKey(t *testing.T) {
	ctx := context.Background()
	a, _, sessionsA, _ := testPeers(t)

	sealerA := NewSealer("node-a", sessionsA, a, nil, nil)

	env, err := sealerA.Seal(ctx, testOp("node-a"), "node-b")
	require.NoError(t, err)

	// Узел C имеет сессию с A, но другой сессионный ключ:
	// конверт, запечатанный для B, не расшифровывается
	c, err := identity.Generate("node-c")
	require.NoError(t, err)
	sessionsC := session.NewManager(c, nil)
	require.NoError(t, sessionsC.Establish(a.Public()))

	sealerC := NewSealer("node-c", sessionsC, c, nil, nil)

	got, decision := sealerC.Unseal(ctx, env)

	assert.Nil(t, got)
	require.True(t, decision.Rejected())
	assert.Equal(t, models.ViolationDecryptFailed, decision.Code)
}

func TestSealer_Unseal_DecodeFailed(t *testing.T) {
	ctx := context.Background()

	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}

	keys := &KeySourceMock{
		SessionKeyFunc: func(deviceID string) ([]byte, error) {
			return key, nil
		},
	}

	// Конверт с валидным шифротекстом, но нагрузка — не операция
	ciphertext, nonce, tag, err := crypto.EncryptParts([]byte("definitely not an operation"), key)
	require.NoError(t, err)

	env := &models.SecureCrdtOperation{
		ID:         "op-1",
		SourceID:   "node-a",
		Type:       models.OpTypeSetAdd,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		AuthTag:    tag,
		Timestamp:  time.Now(),
		Clock:      models.VectorClock{"node-a": 1},
	}

	sealer := NewSealer("node-b", keys, nil, nil, nil)

	got, decision := sealer.Unseal(ctx, env)

	assert.Nil(t, got)
	require.True(t, decision.Rejected())
	assert.Equal(t, models.ViolationDecodeFailed, decision.Code)
}

func TestSealer_Relay_Roundtrip(t *testing.T) {
	ctx := context.Background()

	b, err := identity.Generate("node-b")
	require.NoError(t, err)
	c, err := identity.Generate("node-c")
	require.NoError(t, err)

	sessionsB := session.NewManager(b, nil)
	sessionsC := session.NewManager(c, nil)
	require.NoError(t, sessionsB.Establish(c.Public()))
	require.NoError(t, sessionsC.Establish(b.Public()))

	sealerB := NewSealer("node-b", sessionsB, b, nil, nil)
	sealerC := NewSealer("node-c", sessionsC, c, nil, nil)

	// B ретранслирует операцию, созданную узлом A: конверт несет
	// SourceID ретранслятора, автор остается внутри операции
	op := testOp("node-a")

	env, err := sealerB.Seal(ctx, op, "node-c")
	require.NoError(t, err)
	assert.Equal(t, "node-b", env.SourceID)
	assert.True(t, identity.Verify(b.SigningPub, env.Ciphertext, env.Signature))

	got, decision := sealerC.Unseal(ctx, env)
	require.True(t, decision.OK, "relayed envelope rejected: %s", decision.Reason)
	assert.Equal(t, "node-a", got.NodeID)
	assert.Equal(t, op.ID, got.ID)
	assert.Equal(t, op.Payload, got.Payload)
	assert.True(t, op.Clock.Equal(got.Clock))
}

func TestSealer_Unseal_OriginMissingFromClock(t *testing.T) {
	ctx := context.Background()
	a, _, sessionsA, sessionsB := testPeers(t)

	sealerA := NewSealer("node-a", sessionsA, a, nil, nil)
	sealerB := NewSealer("node-b", sessionsB, nil, nil, nil)

	// Автор операции отсутствует в ее часах: у операции нет причинной
	// позиции, конверт отклоняется
	op := testOp("node-a")
	op.NodeID = "node-x"

	env, err := sealerA.Seal(ctx, op, "node-b")
	require.NoError(t, err)

	got, decision := sealerB.Unseal(ctx, env)

	assert.Nil(t, got)
	require.True(t, decision.Rejected())
	assert.Equal(t, models.ViolationDecodeFailed, decision.Code)
	assert.Contains(t, decision.Reason, "origin is absent")
}
