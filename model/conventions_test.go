package model

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
	"github.com/poiesic/docmodel/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wait receives one value or fails the test.
func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not invoked")
		panic("unreachable")
	}
}

type docResult struct {
	doc core.Document
	err error
}

type findResult struct {
	inst  *Instance
	found bool
	err   error
}

func TestCallbacks(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, userSchema)
	cb := adapter.Callbacks()

	initDone := make(chan error, 1)
	cb.Initialize(ctx, func(err error) { initDone <- err })
	require.NoError(t, wait(t, initDone))

	inst := userSchema.New(core.Document{"name": "ada", "email": "ada@example.com"})
	saved := make(chan docResult, 1)
	cb.Save(ctx, inst, func(doc core.Document, err error) { saved <- docResult{doc, err} })
	res := wait(t, saved)
	require.NoError(t, res.err)
	assert.Equal(t, res.doc.ID(), inst.Primary())

	inst.Set("name", "ada l.")
	updated := make(chan docResult, 1)
	cb.Update(ctx, inst, func(attrs core.Document, err error) { updated <- docResult{attrs, err} })
	res = wait(t, updated)
	require.NoError(t, res.err)
	assert.Equal(t, "ada l.", res.doc["name"])

	found := make(chan findResult, 1)
	cb.Find(ctx, inst.Primary(), func(i *Instance, ok bool, err error) { found <- findResult{i, ok, err} })
	fr := wait(t, found)
	require.NoError(t, fr.err)
	require.True(t, fr.found)
	assert.Equal(t, "ada l.", must(fr.inst.Get("name")))

	cb.Get(ctx, nil, func(i *Instance, ok bool, err error) { found <- findResult{i, ok, err} })
	fr = wait(t, found)
	assert.NoError(t, fr.err)
	assert.False(t, fr.found)

	listed := make(chan []*Instance, 1)
	cb.Query(ctx, core.Document{}, func(insts []*Instance, err error) {
		assert.NoError(t, err)
		listed <- insts
	})
	assert.Len(t, wait(t, listed), 1)

	counted := make(chan int, 1)
	cb.Count(ctx, nil, func(n int, err error) {
		assert.NoError(t, err)
		counted <- n
	})
	assert.Equal(t, 1, wait(t, counted))

	removed := make(chan int, 1)
	cb.Remove(ctx, inst, func(n int, err error) {
		assert.NoError(t, err)
		removed <- n
	})
	assert.Equal(t, 1, wait(t, removed))

	cb.RemoveAll(ctx, nil, storage.RemoveOptions{Multi: true}, func(n int, err error) {
		assert.NoError(t, err)
		removed <- n
	})
	assert.Equal(t, 0, wait(t, removed))

	indexed := make(chan error, 1)
	cb.Index(ctx, storage.IndexOptions{}, func(err error) { indexed <- err })
	assert.ErrorIs(t, wait(t, indexed), storage.ErrNoFieldName)
}

func TestCallbacks_ReleasedPool(t *testing.T) {
	adapter, _ := newTestAdapter(t, userSchema)
	adapter.Release()

	calls := 0
	adapter.Callbacks().Count(context.Background(), nil, func(_ int, err error) {
		calls++
		assert.Error(t, err)
	})
	assert.Equal(t, 1, calls, "a rejected task reports synchronously")
}

func TestCallbacks_Nested(t *testing.T) {
	ctx := context.Background()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	adapter, err := NewAdapter(store, userSchema, WithPoolSize(1))
	require.NoError(t, err)
	t.Cleanup(adapter.Release)
	cb := adapter.Callbacks()

	inst := userSchema.New(core.Document{"name": "ada"})
	updated := make(chan docResult, 1)
	cb.Save(ctx, inst, func(_ core.Document, err error) {
		assert.NoError(t, err)
		inst.Set("name", "ada l.")
		cb.Update(ctx, inst, func(attrs core.Document, err error) {
			updated <- docResult{attrs, err}
		})
	})

	res := wait(t, updated)
	require.NoError(t, res.err)
	assert.Equal(t, "ada l.", res.doc["name"])

	found := make(chan findResult, 1)
	cb.Find(ctx, inst.Primary(), func(i *Instance, ok bool, err error) {
		cb.Count(ctx, nil, func(n int, countErr error) {
			assert.NoError(t, countErr)
			assert.Equal(t, 1, n)
			found <- findResult{i, ok, err}
		})
	})
	fr := wait(t, found)
	require.NoError(t, fr.err)
	require.True(t, fr.found)
	assert.Equal(t, "ada l.", must(fr.inst.Get("name")))
}

func TestAsync(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, userSchema)
	as := adapter.Async()

	_, err := as.Initialize(ctx).Await(ctx)
	require.NoError(t, err)

	inst := userSchema.New(core.Document{"name": "bob", "email": "bob@example.com"})
	doc, err := as.Save(ctx, inst).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.ID(), inst.Primary())

	_, err = as.Save(ctx, userSchema.New(core.Document{"email": "bob@example.com"})).Await(ctx)
	assert.ErrorIs(t, err, storage.ErrConstraintViolated)

	inst.Set("age", 40)
	attrs, err := as.Update(ctx, inst).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, attrs["age"])

	res, err := as.Find(ctx, inst.Primary()).Await(ctx)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, inst.Primary(), res.Instance.Primary())

	res, err = as.Get(ctx, core.Document{"name": "nobody"}).Await(ctx)
	require.NoError(t, err)
	assert.False(t, res.Found)

	insts, err := as.All(ctx, core.Document{"name": "bob"}).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, insts, 1)

	insts, err = as.Exec(ctx, adapter.Query(nil).Limit(1)).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, insts, 1)

	n, err := as.Count(ctx, nil).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = as.Remove(ctx, inst).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = as.RemoveAll(ctx, nil, storage.RemoveOptions{Multi: true}).Await(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = as.Index(ctx, storage.IndexOptions{FieldName: "age"}).Await(ctx)
	require.NoError(t, err)
}

func TestFuture_AwaitContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	f.resolve(7, nil)
	<-f.Done()
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestConventionsAgree(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, userSchema)
	for _, name := range []string{"x", "y", "z"} {
		_, err := adapter.Save(ctx, userSchema.New(core.Document{"name": name}))
		require.NoError(t, err)
	}
	filter := core.Document{"name": core.Document{"$in": []string{"x", "z"}}}

	direct, err := adapter.All(ctx, filter)
	require.NoError(t, err)

	viaFuture, err := adapter.Async().All(ctx, filter).Await(ctx)
	require.NoError(t, err)

	done := make(chan []*Instance, 1)
	adapter.Callbacks().All(ctx, filter, func(insts []*Instance, err error) {
		assert.NoError(t, err)
		done <- insts
	})
	viaCallback := wait(t, done)

	attrs := func(insts []*Instance) []core.Document {
		out := make([]core.Document, len(insts))
		for i, inst := range insts {
			out[i] = inst.Attrs()
		}
		return out
	}
	assert.Len(t, direct, 2)
	assert.Equal(t, attrs(direct), attrs(viaFuture))
	assert.Equal(t, attrs(direct), attrs(viaCallback))
}
