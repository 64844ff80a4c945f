package model

import (
	"maps"
	"slices"
	"sync"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
)

// Instance is an in-memory model value with change tracking.
// It is safe for concurrent use.
type Instance struct {
	schema *Schema

	mu      sync.RWMutex
	attrs   core.Document
	primary string // _id assigned by the store
	changed map[string]struct{}
	errs    []error
}

// Schema returns the schema the instance was built from.
func (i *Instance) Schema() *Schema {
	return i.schema
}

// Primary returns the identifier assigned by the store, or "" before the
// first save. Setting the _id attribute does not change it.
func (i *Instance) Primary() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.primary
}

// IsNew reports whether the instance has not been saved yet.
func (i *Instance) IsNew() bool {
	return i.Primary() == ""
}

// Get returns the value of an attribute.
func (i *Instance) Get(key string) (any, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.attrs[key]
	return core.CloneValue(v), ok
}

// Set assigns an attribute and marks it changed.
func (i *Instance) Set(key string, value any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.attrs[key] = core.CloneValue(value)
	i.changed[key] = struct{}{}
}

// Attrs returns a snapshot of the attributes.
func (i *Instance) Attrs() core.Document {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.attrs.Clone()
}

// Changed returns the attributes modified since the instance was built or
// last written, with their current values.
func (i *Instance) Changed() core.Document {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(core.Document, len(i.changed))
	for _, key := range slices.Sorted(maps.Keys(i.changed)) {
		out[key] = core.CloneValue(i.attrs[key])
	}
	return out
}

// IsDirty reports whether any attribute changed.
func (i *Instance) IsDirty() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.changed) > 0
}

// Validate checks the attributes against the schema and replaces the
// instance errors with the result.
func (i *Instance) Validate() []error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errs = core.ValidateAttrs(i.schema.Attrs, i.attrs)
	return slices.Clone(i.errs)
}

// AddError records a validation error.
func (i *Instance) AddError(err error) {
	if err == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errs = append(i.errs, err)
}

// Errors returns the outstanding validation errors.
func (i *Instance) Errors() []error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.errs)
}

// IsValid reports whether there are no outstanding validation errors.
func (i *Instance) IsValid() bool {
	return len(i.Errors()) == 0
}

// ToDocument serializes the attributes to a plain document.
func (i *Instance) ToDocument() core.Document {
	return i.Attrs()
}

// saved records the store assigned identifier. Attributes still holding
// the value in doc, the document that was inserted, are marked clean.
func (i *Instance) saved(id string, doc core.Document) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.primary = id
	i.attrs[core.IDField] = id
	delete(i.changed, core.IDField)
	i.markClean(doc)
}

// written marks clean the attributes of doc that still hold the written
// value and resets the _id attribute to the stored identifier. Attributes set
// while the write was in flight stay changed. Returns the attributes.
func (i *Instance) written(doc core.Document) core.Document {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.primary != "" {
		i.attrs[core.IDField] = i.primary
		delete(i.changed, core.IDField)
	}
	i.markClean(doc)
	return i.attrs.Clone()
}

// markClean must be called with the lock held.
func (i *Instance) markClean(written core.Document) {
	for key, value := range written {
		current, ok := i.attrs[key]
		if ok && storage.Equal(current, value) {
			delete(i.changed, key)
		}
	}
}
