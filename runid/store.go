// Package runid provides durable storage for the run identifier associated
// with a working directory.
//
// A training process that restarts from a checkpoint must re-attach to the
// tracked run it created before the restart. The record kept here is the only
// piece of state that makes that possible: one token per working directory,
// written after every successful bind and read back at the next process start.
//
// Supported backends:
// - Memory: For development and testing
// - File: The default; one plain-text file inside the working directory
// - Redis: For deployments where working directories live on shared storage
package runid

import (
	"context"

	"github.com/BaSui01/trackflow/types"
)

// RunIDFile is the well-known record filename inside a working directory.
const RunIDFile = "run_id.txt"

// Common errors
var (
	ErrStoreClosed = types.NewError(types.ErrStoreClosed, "run id store is closed")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	PoolSize  int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// StoreConfig configures store creation via NewStore.
type StoreConfig struct {
	Type  StoreType   `json:"type" yaml:"type"`
	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// Store maps a working directory to the last known run identifier.
//
// Read never fails the caller for a missing record: absence is the expected
// signal for "first run in this directory" and is reported through the found
// flag, not an error. Write is idempotent; repeating it with the same token
// must neither error nor change the stored content.
type Store interface {
	// Read returns the stored token for dir, trimmed of surrounding
	// whitespace. found is false when no record exists or the record is
	// empty after trimming.
	Read(ctx context.Context, dir string) (token string, found bool, err error)

	// Write creates or overwrites the record for dir with token.
	Write(ctx context.Context, dir string, token string) error

	// Delete removes the record for dir. Deleting an absent record is not
	// an error: the next bind starts a fresh run either way.
	Delete(ctx context.Context, dir string) error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error

	// Close releases store resources
	Close() error
}
