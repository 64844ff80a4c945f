package core

import (
	"maps"
	"slices"
)

// IDField is the document key holding the primary identifier.
const IDField = "_id"

// Document is a plain, JSON-compatible document as stored by a store.
// Nested values are Document/map[string]any, []any, string, float64, bool or nil.
type Document map[string]any

// ID returns the primary identifier, or "" when the document has not been
// persisted yet.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// Keys returns the document keys in sorted order.
func (d Document) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// CloneValue deep-copies maps and slices inside v. Scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return Document(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// AsDocument converts map-shaped values to a Document.
func AsDocument(v any) (Document, bool) {
	switch t := v.(type) {
	case Document:
		return t, true
	case map[string]any:
		return Document(t), true
	default:
		return nil, false
	}
}

// AttrOptions declares how a model attribute is persisted and validated.
type AttrOptions struct {
	// Unique requests a unique store index on the attribute.
	Unique bool
	// Index requests a plain (non-unique) store index on the attribute.
	Index bool
	// Required makes validation fail when the attribute is absent or nil.
	Required bool
	// Validate is an optional per-value check run during validation.
	Validate func(value any) error
}

// Attrs maps attribute names to their declarations.
type Attrs map[string]AttrOptions

// Names returns the declared attribute names in sorted order.
func (a Attrs) Names() []string {
	return slices.Sorted(maps.Keys(a))
}
