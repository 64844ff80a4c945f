// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docmodel

import (
	"errors"
	"log/slog"
	"runtime"
	"strings"

	"github.com/poiesic/docmodel/storage"
)

// Config holds configuration for a Database.
type Config struct {
	// Store is an already constructed store to use as is.
	// When set, Path, InMemory and Timestamps are ignored and the
	// Database never closes the store.
	Store storage.Store

	// Path is the directory of an on-disk store. Created if missing.
	Path string

	// InMemory opens a store that is never written to disk.
	InMemory bool

	// Timestamps makes the store maintain createdAt and updatedAt fields.
	Timestamps bool

	// PoolSize is the worker pool size of every bound adapter.
	// Default: runtime.NumCPU() / 2, minimum 1
	PoolSize int

	// Logger is used by the database, its store and its adapters.
	// Default: slog.Default()
	Logger *slog.Logger
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithStore uses an existing store.
func WithStore(store storage.Store) ConfigOption {
	return func(c *Config) {
		c.Store = store
	}
}

// WithPath sets the store directory.
func WithPath(path string) ConfigOption {
	return func(c *Config) {
		c.Path = path
	}
}

// WithInMemory selects an in-memory store.
func WithInMemory(inMemory bool) ConfigOption {
	return func(c *Config) {
		c.InMemory = inMemory
	}
}

// WithTimestamps enables createdAt/updatedAt maintenance.
func WithTimestamps(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Timestamps = enabled
	}
}

// WithPoolSize sets the adapter worker pool size.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.PoolSize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config for an in-memory store.
func DefaultConfig() *Config {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return &Config{
		InMemory: true,
		PoolSize: poolSize,
		Logger:   slog.Default(),
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithPath("/var/lib/app/users"),
//	    WithInMemory(false),
//	    WithTimestamps(true),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	c.Path = strings.TrimSpace(c.Path)
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.Store != nil {
		return nil
	}
	if !c.InMemory && c.Path == "" {
		return errors.New("docmodel config: Path is required for an on-disk store")
	}
	if c.InMemory && c.Path != "" {
		return errors.New("docmodel config: Path must be empty for an in-memory store")
	}
	if c.PoolSize < 0 {
		return errors.New("docmodel config: PoolSize must not be negative")
	}
	return nil
}
