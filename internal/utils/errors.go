package utils

import "errors"

// ----------------- storage ------------------
var (
	ErrStorageEmptyHostName       = errors.New("host name is empty")
	ErrStorageInvalidPortNumber   = errors.New("port number is empty")
	ErrStorageEmptyUsername       = errors.New("username is empty")
	ErrStorageEmptyPassword       = errors.New("password is empty")
	ErrStorageInvalidDatabaseName = errors.New("database name is empty")
	ErrStorageInvalidSslMode      = errors.New("SSL mode is invalid")
	ErrStorageInvalidPoolSize     = errors.New("pool size is invalid")
	ErrStorageInvalidTimeout      = errors.New("timeout is invalid")
)

// ----------------- cache ------------------
var (
	ErrCacheMiss = errors.New("cache miss")
)

// ----------------- pipeline service ------------------
var (
	ErrInvalidBatchID     = errors.New("invalid batch id")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrBatchNotRunning    = errors.New("batch is not running")
	ErrNothingToPublish   = errors.New("no listings to publish")
	ErrInvalidArtifact    = errors.New("unknown export artifact")
	ErrPublisherDisabled  = errors.New("marketplace publishing is not configured")
	ErrDailyLimitExceeded = errors.New("daily registration limit exhausted")
	ErrQuotaUnavailable   = errors.New("daily registration counter unavailable")
)
