package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/imelnik/syncmesh/internal/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// queueSize - емкость буфера между Publish и писателем.
// При переполнении события отбрасываются с предупреждением в лог:
// аудит не имеет права тормозить путь синхронизации.
const queueSize = 256

// writeTimeout - таймаут одной вставки события
const writeTimeout = 5 * time.Second

// Store - журнал аудита безопасности на SQLite. Publish кладет
// событие в буфер, отдельная горутина пишет в базу.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	queue  chan models.SecurityEvent
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// New создает журнал аудита поверх SQLite файла dbPath.
// Use ":memory:" for in-memory database (useful for testing)
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite с WAL mode поддерживает несколько читателей, но только
	// одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		queue:  make(chan models.SecurityEvent, queueSize),
		done:   make(chan struct{}),
	}

	go s.writeLoop()

	return s, nil
}

// runMigrations выполняет миграции из embedded FS
func runMigrations(db *sql.DB) error {
	goose.SetDialect("sqlite3")
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// Publish кладет событие в очередь записи. Не блокируется:
// при переполненной очереди событие отбрасывается.
func (s *Store) Publish(event models.SecurityEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	select {
	case s.queue <- event:
	default:
		s.logger.Warn("audit queue full, dropping security event",
			"event_id", event.ID,
			"event_type", event.Type,
		)
	}
	s.mu.Unlock()
}

// writeLoop последовательно пишет события из очереди в базу.
// Завершается после закрытия очереди, дописав остаток.
func (s *Store) writeLoop() {
	defer close(s.done)

	for event := range s.queue {
		if err := s.insert(event); err != nil {
			s.logger.Error("failed to persist security event",
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}

func (s *Store) insert(event models.SecurityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	details := "{}"
	if len(event.Details) > 0 {
		data, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
		details = string(data)
	}

	query := `
		INSERT INTO security_events (
			id, type, severity, device_id, message, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Type,
		event.Severity,
		event.DeviceID,
		event.Message,
		details,
		event.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// Recent возвращает последние события аудита, новые первыми.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.SecurityEvent, error) {
	query := `
		SELECT id, type, severity, device_id, message, details, created_at
		FROM security_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RecentByDevice возвращает последние события конкретного устройства.
func (s *Store) RecentByDevice(ctx context.Context, deviceID string, limit int) ([]models.SecurityEvent, error) {
	query := `
		SELECT id, type, severity, device_id, message, details, created_at
		FROM security_events
		WHERE device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by device: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountBySeverity возвращает количество событий по уровням серьезности.
func (s *Store) CountBySeverity(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM security_events
		GROUP BY severity
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[severity] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return counts, nil
}

// Close останавливает писателя, дописывает очередь и закрывает базу.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done

	return s.db.Close()
}

// scanEvents - общий разбор строк выборки событий
func scanEvents(rows *sql.Rows) ([]models.SecurityEvent, error) {
	var events []models.SecurityEvent

	for rows.Next() {
		var event models.SecurityEvent
		var details string
		var createdAt int64

		err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.Severity,
			&event.DeviceID,
			&event.Message,
			&details,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &event.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		event.CreatedAt = time.Unix(createdAt, 0).UTC()

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}
