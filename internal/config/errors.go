package config

import "errors"

var ErrMissingNodeID = errors.New("node id is required")
var ErrMissingListen = errors.New("listen address is required")
var ErrInvalidOperationAge = errors.New("max operation age must not be negative")
var ErrInvalidBatchSize = errors.New("max batch size must be positive")
var ErrInvalidSyncInterval = errors.New("sync interval must be positive")
var ErrInvalidCleanupInterval = errors.New("cleanup interval must be positive")
var ErrInvalidCacheCapacity = errors.New("cache capacity must not be negative")
var ErrInvalidPeerURL = errors.New("invalid peer url")
var ErrMissingAuditPath = errors.New("audit path is required when audit is enabled")
var ErrUnknownLogLevel = errors.New("unknown log level")
