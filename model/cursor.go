package model

import (
	"context"

	"github.com/poiesic/docmodel/storage"
)

// Cursor is a lazy query whose results are returned as instances.
// Nothing touches the store until Exec.
type Cursor struct {
	schema *Schema
	cursor *storage.Cursor
}

// Sort appends sort fields.
func (c *Cursor) Sort(fields ...storage.SortField) *Cursor {
	c.cursor.Sort(fields...)
	return c
}

// Skip sets the number of leading results to drop.
func (c *Cursor) Skip(n int) *Cursor {
	c.cursor.Skip(n)
	return c
}

// Limit caps the number of results.
func (c *Cursor) Limit(n int) *Cursor {
	c.cursor.Limit(n)
	return c
}

// Project restricts the fields loaded into each instance. _id is always kept.
func (c *Cursor) Project(fields ...string) *Cursor {
	c.cursor.Project(fields...)
	return c
}

// Query returns the store query the cursor will run.
func (c *Cursor) Query() storage.Query {
	return c.cursor.Query()
}

// Exec runs the query and wraps every resulting document in an instance.
func (c *Cursor) Exec(ctx context.Context) ([]*Instance, error) {
	docs, err := c.cursor.Exec(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Instance, len(docs))
	for i, doc := range docs {
		out[i] = c.schema.New(doc)
	}
	return out, nil
}
