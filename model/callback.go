package model

import (
	"context"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
)

// Callbacks exposes adapter operations in completion-callback style.
// Every method returns once the operation is queued, which blocks while all
// pool workers are busy. The callback runs once with the operation result,
// outside the pool, so it may call further Callbacks methods.
type Callbacks struct {
	a *Adapter
}

// Initialize declares schema indexes.
func (c *Callbacks) Initialize(ctx context.Context, cb func(err error)) {
	submit(c.a, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.a.Initialize(ctx)
	}, func(_ struct{}, err error) { cb(err) })
}

// Index declares a store index.
func (c *Callbacks) Index(ctx context.Context, opts storage.IndexOptions, cb func(err error)) {
	submit(c.a, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.a.Index(ctx, opts)
	}, func(_ struct{}, err error) { cb(err) })
}

// RemoveAll removes documents matching filter.
func (c *Callbacks) RemoveAll(ctx context.Context, filter core.Document, opts storage.RemoveOptions, cb func(n int, err error)) {
	submit(c.a, ctx, func(ctx context.Context) (int, error) {
		return c.a.RemoveAll(ctx, filter, opts)
	}, cb)
}

// Count counts documents matching filter.
func (c *Callbacks) Count(ctx context.Context, filter core.Document, cb func(n int, err error)) {
	submit(c.a, ctx, func(ctx context.Context) (int, error) {
		return c.a.Count(ctx, filter)
	}, cb)
}

// Save inserts inst.
func (c *Callbacks) Save(ctx context.Context, inst *Instance, cb func(doc core.Document, err error)) {
	submit(c.a, ctx, func(ctx context.Context) (core.Document, error) {
		return c.a.Save(ctx, inst)
	}, cb)
}

// Update writes the changed attributes of inst.
func (c *Callbacks) Update(ctx context.Context, inst *Instance, cb func(attrs core.Document, err error)) {
	submit(c.a, ctx, func(ctx context.Context) (core.Document, error) {
		return c.a.Update(ctx, inst)
	}, cb)
}

// Remove deletes the stored document of inst.
func (c *Callbacks) Remove(ctx context.Context, inst *Instance, cb func(n int, err error)) {
	submit(c.a, ctx, func(ctx context.Context) (int, error) {
		return c.a.Remove(ctx, inst)
	}, cb)
}

// All runs a query.
func (c *Callbacks) All(ctx context.Context, filter core.Document, cb func(insts []*Instance, err error)) {
	c.Exec(ctx, c.a.Query(filter), cb)
}

// Query is an alias for All.
func (c *Callbacks) Query(ctx context.Context, filter core.Document, cb func(insts []*Instance, err error)) {
	c.All(ctx, filter, cb)
}

// Exec runs a prepared cursor.
func (c *Callbacks) Exec(ctx context.Context, cur *Cursor, cb func(insts []*Instance, err error)) {
	submit(c.a, ctx, cur.Exec, cb)
}

// Find looks up the first instance matching query. found is false when
// nothing matched.
func (c *Callbacks) Find(ctx context.Context, query any, cb func(inst *Instance, found bool, err error)) {
	submit(c.a, ctx, func(ctx context.Context) (FindResult, error) {
		inst, found, err := c.a.Find(ctx, query)
		return FindResult{Instance: inst, Found: found}, err
	}, func(r FindResult, err error) { cb(r.Instance, r.Found, err) })
}

// Get is an alias for Find.
func (c *Callbacks) Get(ctx context.Context, query any, cb func(inst *Instance, found bool, err error)) {
	c.Find(ctx, query, cb)
}
