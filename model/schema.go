package model

import "github.com/poiesic/docmodel/core"

// Schema describes a model: its name and declared attributes.
type Schema struct {
	Name  string
	Attrs core.Attrs
}

// NewSchema creates a schema.
func NewSchema(name string, attrs core.Attrs) *Schema {
	if attrs == nil {
		attrs = core.Attrs{}
	}
	return &Schema{Name: name, Attrs: attrs}
}

// New builds an instance from doc. The instance starts with no pending
// changes; if doc carries an _id the instance is considered persisted.
func (s *Schema) New(doc core.Document) *Instance {
	attrs := doc.Clone()
	if attrs == nil {
		attrs = core.Document{}
	}
	return &Instance{
		schema:  s,
		attrs:   attrs,
		primary: attrs.ID(),
		changed: make(map[string]struct{}),
	}
}
