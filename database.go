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
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/docmodel/model"
	"github.com/poiesic/docmodel/storage"
	"github.com/poiesic/docmodel/storage/badger"
)

// Database owns one store and the adapters bound to it.
type Database struct {
	store    storage.Store
	ownStore bool
	poolSize int
	logger   *slog.Logger

	mu       sync.Mutex
	adapters []*model.Adapter
}

// Open constructs or reuses the configured store and loads it.
func Open(ctx context.Context, cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := cfg.Store
	ownStore := false
	if store == nil {
		opened, err := badger.OpenStore(cfg.Path, cfg.InMemory,
			badger.WithTimestamps(cfg.Timestamps),
			badger.WithLogger(cfg.Logger),
		)
		if err != nil {
			return nil, err
		}
		store = opened
		ownStore = true
	}

	if err := store.Load(ctx); err != nil {
		if ownStore {
			store.Close()
		}
		return nil, err
	}

	return &Database{
		store:    store,
		ownStore: ownStore,
		poolSize: cfg.PoolSize,
		logger:   cfg.Logger,
	}, nil
}

// Store returns the raw store.
func (db *Database) Store() storage.Store {
	return db.store
}

// Bind returns an adapter persisting schema in the database store.
// Adapters are released when the database is closed.
func (db *Database) Bind(schema *model.Schema, opts ...model.Option) (*model.Adapter, error) {
	defaults := []model.Option{model.WithLogger(db.logger)}
	if db.poolSize > 0 {
		defaults = append(defaults, model.WithPoolSize(db.poolSize))
	}
	adapter, err := model.NewAdapter(db.store, schema, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}

	db.mu.Lock()
	db.adapters = append(db.adapters, adapter)
	db.mu.Unlock()
	return adapter, nil
}

// Close releases every bound adapter, then closes the store if the
// database opened it.
func (db *Database) Close() error {
	db.mu.Lock()
	adapters := db.adapters
	db.adapters = nil
	db.mu.Unlock()

	for _, adapter := range adapters {
		adapter.Release()
	}

	if !db.ownStore {
		return nil
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}
