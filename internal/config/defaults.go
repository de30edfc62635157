package config

import "github.com/imelnik/syncmesh/internal/models"

var defaultNode = NodeConfig{
	Listen:  "127.0.0.1:7600",
	DataDir: "data",
}

var defaultPolicy = PolicyConfig{
	RequireTrusted:        true,
	RequireEncryption:     true,
	RequireAuthentication: true,
	MaxOperationAgeSec:    300,
	MaxBatchSize:          100,
	AllowedOperations: []string{
		models.OpTypeSetAdd,
		models.OpTypeRegisterSet,
		models.OpTypeCounterAdd,
	},
}

var defaultSync = SyncConfig{
	IntervalSec:        30,
	CleanupIntervalSec: 300,
}

var defaultAudit = AuditConfig{
	Enabled: true,
	Path:    "audit.db",
}

var defaultLog = LogConfig{
	Level: "info",
}

// Default возвращает конфигурацию по умолчанию. Идентификатор узла
// по умолчанию отсутствует: он обязан быть стабильным между
// рестартами, случайная генерация на каждый запуск раздробила бы
// векторные часы сети.
func Default() *Config {
	return &Config{
		Node:   defaultNode,
		Policy: defaultPolicy,
		Sync:   defaultSync,
		Audit:  defaultAudit,
		Log:    defaultLog,
	}
}

func (c *NodeConfig) PopulateDefaults() {
	if c.Listen == "" {
		c.Listen = defaultNode.Listen
	}

	if c.DataDir == "" {
		c.DataDir = defaultNode.DataDir
	}

	if c.Name == "" {
		c.Name = c.ID
	}
}

func (c *PolicyConfig) PopulateDefaults() {
	if c.MaxOperationAgeSec == 0 {
		c.MaxOperationAgeSec = defaultPolicy.MaxOperationAgeSec
	}

	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = defaultPolicy.MaxBatchSize
	}

	if len(c.AllowedOperations) == 0 {
		c.AllowedOperations = append([]string{}, defaultPolicy.AllowedOperations...)
	}
}

func (c *SyncConfig) PopulateDefaults() {
	if c.IntervalSec == 0 {
		c.IntervalSec = defaultSync.IntervalSec
	}

	if c.CleanupIntervalSec == 0 {
		c.CleanupIntervalSec = defaultSync.CleanupIntervalSec
	}
}

func (c *AuditConfig) PopulateDefaults() {
	if c.Path == "" {
		c.Path = defaultAudit.Path
	}
}

func (c *LogConfig) PopulateDefaults() {
	if c.Level == "" {
		c.Level = defaultLog.Level
	}
}

func (c *Config) PopulateDefaults() {
	c.Node.PopulateDefaults()
	c.Policy.PopulateDefaults()
	c.Sync.PopulateDefaults()
	c.Audit.PopulateDefaults()
	c.Log.PopulateDefaults()
}
