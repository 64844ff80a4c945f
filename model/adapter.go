package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
	"golang.org/x/sync/errgroup"
)

// Adapter persists instances of one schema in a store.
type Adapter struct {
	store  storage.Store
	schema *Schema
	pool   *ants.Pool
	logger *slog.Logger

	callbacks *Callbacks
	async     *Async
}

// Option configures an Adapter.
type Option func(*Adapter) error

// WithPoolSize sets the worker pool size used by the callback and future
// conventions. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(a *Adapter) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if a.pool != nil {
			a.pool.Release()
		}
		a.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAdapter binds schema to store.
func NewAdapter(store storage.Store, schema *Schema, opts ...Option) (*Adapter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if schema == nil {
		return nil, ErrSchemaRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		store:  store,
		schema: schema,
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(a); optErr != nil {
			a.Release()
			return nil, optErr
		}
	}

	a.logger = a.logger.With("model", schema.Name)
	a.callbacks = &Callbacks{a: a}
	a.async = &Async{a: a}
	return a, nil
}

// Release releases the worker pool.
// The adapter should not be used after calling Release.
func (a *Adapter) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}

// DB returns the underlying store.
func (a *Adapter) DB() storage.Store {
	return a.store
}

// Schema returns the bound schema.
func (a *Adapter) Schema() *Schema {
	return a.schema
}

// Callbacks returns the completion-callback convention of the adapter.
func (a *Adapter) Callbacks() *Callbacks {
	return a.callbacks
}

// Async returns the future-returning convention of the adapter.
func (a *Adapter) Async() *Async {
	return a.async
}

// Index declares a store index.
func (a *Adapter) Index(ctx context.Context, opts storage.IndexOptions) error {
	return a.store.EnsureIndex(ctx, opts)
}

// RemoveAll removes documents matching filter and returns how many were removed.
func (a *Adapter) RemoveAll(ctx context.Context, filter core.Document, opts storage.RemoveOptions) (int, error) {
	return a.store.Remove(ctx, filter, opts)
}

// Count returns the number of documents matching filter.
func (a *Adapter) Count(ctx context.Context, filter core.Document) (int, error) {
	return a.store.Count(ctx, filter)
}

// Initialize declares the indexes implied by the schema attributes. A
// unique attribute gets a unique index; an indexed one gets a plain index.
// Declarations run concurrently. Every failure is logged and the first one
// is returned.
func (a *Adapter) Initialize(ctx context.Context) error {
	var g errgroup.Group
	for _, name := range a.schema.Attrs.Names() {
		attr := a.schema.Attrs[name]
		var idx storage.IndexOptions
		switch {
		case attr.Unique:
			idx = storage.IndexOptions{FieldName: name, Unique: true}
		case attr.Index:
			idx = storage.IndexOptions{FieldName: name}
		default:
			continue
		}

		g.Go(func() error {
			if err := a.store.EnsureIndex(ctx, idx); err != nil {
				a.logger.Error("error declaring index", "field", idx.FieldName, "unique", idx.Unique, "err", err)
				return fmt.Errorf("index %s: %w", idx.FieldName, err)
			}
			a.logger.Debug("index declared", "field", idx.FieldName, "unique", idx.Unique)
			return nil
		})
	}
	return g.Wait()
}

// Save inserts the instance and assigns the generated _id to it.
// Returns the stored document.
func (a *Adapter) Save(ctx context.Context, inst *Instance) (core.Document, error) {
	if inst == nil {
		return nil, ErrInstanceRequired
	}
	snapshot := inst.ToDocument()
	doc, err := a.store.Insert(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	inst.saved(doc.ID(), snapshot)
	return doc, nil
}

// Update writes the changed attributes of a saved instance and returns the
// attribute snapshot.
//
// The _id attribute is never written and is reset to Primary. Without
// changes nothing is written. Attributes set while the write is in flight
// stay changed for the next Update.
// When the instance has validation errors the update fails with the first
// of them.
func (a *Adapter) Update(ctx context.Context, inst *Instance) (core.Document, error) {
	if inst == nil {
		return nil, ErrInstanceRequired
	}

	changed := inst.Changed()
	delete(changed, core.IDField)
	if len(changed) == 0 {
		return inst.written(nil), nil
	}

	if errs := inst.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("%w", errs[0])
	}

	id := inst.Primary()
	if id == "" {
		return nil, ErrNotPersisted
	}

	update := core.Document{"$set": changed}
	if _, err := a.store.Update(ctx, core.Document{core.IDField: id}, update, storage.UpdateOptions{}); err != nil {
		return nil, err
	}
	return inst.written(changed), nil
}

// Remove deletes the stored document of the instance. Removing a document
// that no longer exists is not an error.
func (a *Adapter) Remove(ctx context.Context, inst *Instance) (int, error) {
	if inst == nil {
		return 0, ErrInstanceRequired
	}
	id := inst.Primary()
	if id == "" {
		return 0, ErrNotPersisted
	}
	return a.store.Remove(ctx, core.Document{core.IDField: id}, storage.RemoveOptions{})
}

// Query returns a lazy cursor over documents matching filter.
func (a *Adapter) Query(filter core.Document) *Cursor {
	return &Cursor{
		schema: a.schema,
		cursor: storage.NewCursor(a.store, filter),
	}
}

// All runs a query immediately and returns one instance per document.
func (a *Adapter) All(ctx context.Context, filter core.Document) ([]*Instance, error) {
	return a.Query(filter).Exec(ctx)
}

// Find returns the first instance matching query.
//
// query is nil, a string (shorthand for matching _id) or a document.
// A nil or empty-string query reports not found without touching the store.
func (a *Adapter) Find(ctx context.Context, query any) (*Instance, bool, error) {
	filter, ok, err := findFilter(query)
	if err != nil || !ok {
		return nil, false, err
	}

	doc, err := a.store.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return a.schema.New(doc), true, nil
}

// Get is an alias for Find.
func (a *Adapter) Get(ctx context.Context, query any) (*Instance, bool, error) {
	return a.Find(ctx, query)
}

func findFilter(query any) (core.Document, bool, error) {
	switch q := query.(type) {
	case nil:
		return nil, false, nil
	case string:
		if q == "" {
			return nil, false, nil
		}
		return core.Document{core.IDField: q}, true, nil
	case core.Document:
		if q == nil {
			return nil, false, nil
		}
		return q, true, nil
	case map[string]any:
		if q == nil {
			return nil, false, nil
		}
		return core.Document(q), true, nil
	default:
		return nil, false, fmt.Errorf("%w: unsupported find query %T", storage.ErrInvalidQuery, query)
	}
}
