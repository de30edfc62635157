package events

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imelnik/syncmesh/internal/models"
)

func TestNew(t *testing.T) {
	event := New(models.EventPolicyViolation, models.SeverityWarning, "node-b", "operation too old", map[string]string{
		"violation": "age_exceeded",
	})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, models.EventPolicyViolation, event.Type)
	assert.Equal(t, models.SeverityWarning, event.Severity)
	assert.Equal(t, "node-b", event.DeviceID)
	assert.Equal(t, "operation too old", event.Message)
	assert.Equal(t, "age_exceeded", event.Details["violation"])
	assert.False(t, event.CreatedAt.IsZero())

	// Идентификаторы уникальны
	other := New(models.EventPolicyViolation, models.SeverityWarning, "node-b", "msg", nil)
	assert.NotEqual(t, event.ID, other.ID)
}

func TestSlogSink_SeverityLevels(t *testing.T) {
	tests := []struct {
		name      string
		severity  string
		wantLevel string
	}{
		{name: "info severity", severity: models.SeverityInfo, wantLevel: "INFO"},
		{name: "warning severity", severity: models.SeverityWarning, wantLevel: "WARN"},
		{name: "critical severity", severity: models.SeverityCritical, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			sink := NewSlogSink(logger)

			sink.Publish(New(models.EventPolicyViolation, tt.severity, "node-b", "test message", map[string]string{
				"violation": "untrusted_device",
			}))

			out := buf.String()
			assert.Contains(t, out, "level="+tt.wantLevel)
			assert.Contains(t, out, "security event")
			assert.Contains(t, out, "device_id=node-b")
			assert.Contains(t, out, "detail_violation=untrusted_device")
		})
	}
}

func TestMultiSink(t *testing.T) {
	first := &SinkMock{PublishFunc: func(event models.SecurityEvent) {}}
	second := &SinkMock{PublishFunc: func(event models.SecurityEvent) {}}

	multi := NewMultiSink(first, second)

	event := New(models.EventSyncCompleted, models.SeverityInfo, "node-b", "sync done", nil)
	multi.Publish(event)

	// Событие дошло до обоих приемников
	require.Len(t, first.PublishCalls(), 1)
	require.Len(t, second.PublishCalls(), 1)
	assert.Equal(t, event.ID, first.PublishCalls()[0].Event.ID)
	assert.Equal(t, event.ID, second.PublishCalls()[0].Event.ID)
}

func TestNopSink(t *testing.T) {
	// Не паникует и ничего не делает
	NopSink{}.Publish(New(models.EventCryptoFailure, models.SeverityCritical, "", "msg", nil))
}
