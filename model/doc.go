// Package model binds persistence operations to schema-described instances.
//
// A Schema names a model and declares its attributes. An Adapter ties a
// schema to a storage.Store and provides:
//   - Save, Update and Remove for single instances
//   - Query/All and Find/Get for reading documents back as instances
//   - Initialize, which declares the store indexes implied by the attributes
//   - Index, RemoveAll and Count, passed straight through to the store
//
// Adapter methods block and return (value, error). The same operations are
// available in two non-blocking conventions, both running on the adapter's
// worker pool: Callbacks invokes a completion function exactly once, and
// Async returns a Future that can be awaited.
package model
