package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imelnik/syncmesh/internal/models"
)

// Config описывает конфигурацию узла синхронизации
type Config struct {
	Node   NodeConfig   `yaml:"node"`
	Policy PolicyConfig `yaml:"policy"`
	Sync   SyncConfig   `yaml:"sync"`
	Audit  AuditConfig  `yaml:"audit"`
	Log    LogConfig    `yaml:"log"`
}

// NodeConfig - идентичность и адреса узла
type NodeConfig struct {
	ID      string `yaml:"id"`       // идентификатор узла (стабилен между рестартами)
	Name    string `yaml:"name"`     // человекочитаемое имя устройства
	Listen  string `yaml:"listen"`   // адрес HTTP сервера узла
	DataDir string `yaml:"data_dir"` // директория файлов узла (хранилища, ключи)
}

// PolicyConfig - политика безопасности приема операций.
// Интервалы заданы в секундах: YAML не знает time.Duration.
type PolicyConfig struct {
	AllowedOperations     []string `yaml:"allowed_operations"`
	MaxOperationAgeSec    int      `yaml:"max_operation_age_sec"`
	MaxBatchSize          int      `yaml:"max_batch_size"`
	RequireTrusted        bool     `yaml:"require_trusted"`
	RequireEncryption     bool     `yaml:"require_encryption"`
	RequireAuthentication bool     `yaml:"require_authentication"`
}

// SyncConfig - расписание синхронизации и список пиров
type SyncConfig struct {
	Peers              []string `yaml:"peers"` // базовые URL узлов для знакомства
	IntervalSec        int      `yaml:"interval_sec"`
	CleanupIntervalSec int      `yaml:"cleanup_interval_sec"`
	CacheCapacity      int      `yaml:"cache_capacity"`
}

// AuditConfig - журнал событий безопасности
type AuditConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Load читает конфигурацию из YAML файла. Файл накладывается на
// значения по умолчанию: отсутствующий ключ не сбрасывает дефолт,
// а явное значение (включая false) его переопределяет.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.PopulateDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SecurityPolicy собирает политику безопасности движка из конфигурации
func (c *PolicyConfig) SecurityPolicy() models.SecurityPolicy {
	return models.SecurityPolicy{
		RequireTrustedDevices: c.RequireTrusted,
		RequireEncryption:     c.RequireEncryption,
		RequireAuthentication: c.RequireAuthentication,
		MaxOperationAge:       time.Duration(c.MaxOperationAgeSec) * time.Second,
		MaxBatchSize:          c.MaxBatchSize,
		AllowedOperations:     append([]string{}, c.AllowedOperations...),
	}
}

// Interval возвращает период раундов синхронизации
func (c *SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// CleanupInterval возвращает период очистки кэша операций
func (c *SyncConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSec) * time.Second
}

// SlogLevel возвращает уровень логирования для slog
func (c *LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
