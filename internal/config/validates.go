package config

import (
	"fmt"
	"net/url"

	"github.com/imelnik/syncmesh/internal/validation"
)

func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return err
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.Audit.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *NodeConfig) Validate() error {
	if c.ID == "" {
		return ErrMissingNodeID
	}

	if err := validation.ValidateNodeID(c.ID); err != nil {
		return fmt.Errorf("invalid node id: %w", err)
	}

	if c.Listen == "" {
		return ErrMissingListen
	}

	return nil
}

func (c *PolicyConfig) Validate() error {
	if c.MaxOperationAgeSec < 0 {
		return ErrInvalidOperationAge
	}

	if c.MaxBatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	for _, opType := range c.AllowedOperations {
		if err := validation.ValidateOperationType(opType); err != nil {
			return fmt.Errorf("invalid allowed operation %q: %w", opType, err)
		}
	}

	return nil
}

func (c *SyncConfig) Validate() error {
	if c.IntervalSec <= 0 {
		return ErrInvalidSyncInterval
	}

	if c.CleanupIntervalSec <= 0 {
		return ErrInvalidCleanupInterval
	}

	if c.CacheCapacity < 0 {
		return ErrInvalidCacheCapacity
	}

	for _, peer := range c.Peers {
		u, err := url.Parse(peer)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidPeerURL, peer)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s", ErrInvalidPeerURL, peer)
		}
	}

	return nil
}

func (c *AuditConfig) Validate() error {
	if c.Enabled && c.Path == "" {
		return ErrMissingAuditPath
	}

	return nil
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownLogLevel, c.Level)
	}
}
