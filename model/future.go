package model

import (
	"context"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
)

// Future holds the eventual result of an operation submitted to the pool.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done.
// Giving up on ctx does not cancel the operation itself.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// FindResult is the outcome of a Find.
type FindResult struct {
	Instance *Instance
	Found    bool
}

// submit runs op on the adapter pool and hands its result to deliver.
// deliver runs exactly once, on its own goroutine after the worker has been
// returned to the pool, or synchronously if the pool rejects the task. A
// deliver that submits more work therefore never waits on its own worker.
func submit[T any](a *Adapter, ctx context.Context, op func(context.Context) (T, error), deliver func(T, error)) {
	err := a.pool.Submit(func() {
		value, err := op(ctx)
		go deliver(value, err)
	})
	if err != nil {
		a.logger.Error("error submitting operation", "err", err)
		var zero T
		deliver(zero, err)
	}
}

// async submits op and returns a future for its result.
func async[T any](a *Adapter, ctx context.Context, op func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	submit(a, ctx, op, f.resolve)
	return f
}

// Async exposes adapter operations as futures.
type Async struct {
	a *Adapter
}

// Initialize declares schema indexes.
func (s *Async) Initialize(ctx context.Context) *Future[struct{}] {
	return async(s.a, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.a.Initialize(ctx)
	})
}

// Index declares a store index.
func (s *Async) Index(ctx context.Context, opts storage.IndexOptions) *Future[struct{}] {
	return async(s.a, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.a.Index(ctx, opts)
	})
}

// RemoveAll removes documents matching filter.
func (s *Async) RemoveAll(ctx context.Context, filter core.Document, opts storage.RemoveOptions) *Future[int] {
	return async(s.a, ctx, func(ctx context.Context) (int, error) {
		return s.a.RemoveAll(ctx, filter, opts)
	})
}

// Count counts documents matching filter.
func (s *Async) Count(ctx context.Context, filter core.Document) *Future[int] {
	return async(s.a, ctx, func(ctx context.Context) (int, error) {
		return s.a.Count(ctx, filter)
	})
}

// Save inserts inst.
func (s *Async) Save(ctx context.Context, inst *Instance) *Future[core.Document] {
	return async(s.a, ctx, func(ctx context.Context) (core.Document, error) {
		return s.a.Save(ctx, inst)
	})
}

// Update writes the changed attributes of inst.
func (s *Async) Update(ctx context.Context, inst *Instance) *Future[core.Document] {
	return async(s.a, ctx, func(ctx context.Context) (core.Document, error) {
		return s.a.Update(ctx, inst)
	})
}

// Remove deletes the stored document of inst.
func (s *Async) Remove(ctx context.Context, inst *Instance) *Future[int] {
	return async(s.a, ctx, func(ctx context.Context) (int, error) {
		return s.a.Remove(ctx, inst)
	})
}

// All runs a query.
func (s *Async) All(ctx context.Context, filter core.Document) *Future[[]*Instance] {
	return s.Exec(ctx, s.a.Query(filter))
}

// Query is an alias for All.
func (s *Async) Query(ctx context.Context, filter core.Document) *Future[[]*Instance] {
	return s.All(ctx, filter)
}

// Exec runs a prepared cursor.
func (s *Async) Exec(ctx context.Context, cur *Cursor) *Future[[]*Instance] {
	return async(s.a, ctx, cur.Exec)
}

// Find looks up the first instance matching query.
func (s *Async) Find(ctx context.Context, query any) *Future[FindResult] {
	return async(s.a, ctx, func(ctx context.Context) (FindResult, error) {
		inst, found, err := s.a.Find(ctx, query)
		return FindResult{Instance: inst, Found: found}, err
	})
}

// Get is an alias for Find.
func (s *Async) Get(ctx context.Context, query any) *Future[FindResult] {
	return s.Find(ctx, query)
}
