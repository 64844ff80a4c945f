package storage

import (
	"context"

	"github.com/poiesic/docmodel/core"
)

// Cursor is a lazily executed query. Builder methods mutate the cursor and
// return it so calls can be chained; nothing touches the store until Exec.
type Cursor struct {
	store Store
	query Query
}

// NewCursor creates a cursor over documents matching filter.
func NewCursor(store Store, filter core.Document) *Cursor {
	return &Cursor{
		store: store,
		query: Query{Filter: filter},
	}
}

// Sort appends sort fields. Earlier fields take precedence.
func (c *Cursor) Sort(fields ...SortField) *Cursor {
	c.query.Sort = append(c.query.Sort, fields...)
	return c
}

// Skip sets the number of leading results to drop.
func (c *Cursor) Skip(n int) *Cursor {
	c.query.Skip = n
	return c
}

// Limit caps the number of results. Zero means no limit.
func (c *Cursor) Limit(n int) *Cursor {
	c.query.Limit = n
	return c
}

// Project restricts result documents to the given fields plus _id.
func (c *Cursor) Project(fields ...string) *Cursor {
	c.query.Projection = append(c.query.Projection, fields...)
	return c
}

// Query returns the query the cursor will run.
func (c *Cursor) Query() Query {
	return c.query
}

// Exec runs the query against the store.
func (c *Cursor) Exec(ctx context.Context) ([]core.Document, error) {
	return c.store.Find(ctx, c.query)
}
