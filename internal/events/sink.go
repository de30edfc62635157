package events

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/imelnik/syncmesh/internal/models"
)

//go:generate moq -out sink_mock.go . Sink

// Sink принимает события безопасности. Публикация не возвращает
// ошибку: аудит не должен блокировать или ронять путь синхронизации,
// сбои записи приемник обрабатывает сам.
type Sink interface {
	Publish(event models.SecurityEvent)
}

// New создает событие безопасности с заполненными идентификатором
// и временем.
func New(eventType, severity, deviceID, message string, details map[string]string) models.SecurityEvent {
	return models.SecurityEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Severity:  severity,
		DeviceID:  deviceID,
		Message:   message,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

// SlogSink пишет события безопасности в структурированный лог.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink создает приемник событий поверх slog.
// При nil используется логгер по умолчанию.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &SlogSink{logger: logger}
}

// Publish пишет событие одной записью лога; уровень выбирается
// по серьезности события.
func (s *SlogSink) Publish(event models.SecurityEvent) {
	attrs := []any{
		"event_id", event.ID,
		"event_type", event.Type,
		"device_id", event.DeviceID,
		"message", event.Message,
	}
	for k, v := range event.Details {
		attrs = append(attrs, "detail_"+k, v)
	}

	switch event.Severity {
	case models.SeverityCritical:
		s.logger.Error("security event", attrs...)
	case models.SeverityWarning:
		s.logger.Warn("security event", attrs...)
	default:
		s.logger.Info("security event", attrs...)
	}
}

// MultiSink размножает событие по нескольким приемникам.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink создает приемник-размножитель.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Publish(event models.SecurityEvent) {
	for _, s := range m.sinks {
		s.Publish(event)
	}
}

// NopSink отбрасывает события. Используется в тестах и когда аудит
// выключен конфигурацией.
type NopSink struct{}

func (NopSink) Publish(models.SecurityEvent) {}
