// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package migrate

import (
	"context"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
)

const (
	// DefaultBatchSize is the default number of documents to fetch in each batch
	DefaultBatchSize = 100
)

// DocumentIterator pages through documents matching a filter in _id order.
type DocumentIterator struct {
	store     storage.Store
	filter    core.Document
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents to fetch in each batch
func NewDocumentIterator(store storage.Store, filter core.Document, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DocumentIterator{
		store:     store,
		filter:    filter,
		batchSize: batchSize,
	}
}

// ForEach calls fn with successive batches until every matching document
// has been visited. Each batch is read after the previous one was handled,
// starting after the last _id seen, so fn may modify the documents it gets.
// Iteration stops on first error from fn.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]core.Document) error) error {
	lastID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		clauses := []any{core.Document{core.IDField: core.Document{"$gt": lastID}}}
		if len(it.filter) > 0 {
			clauses = append(clauses, it.filter)
		}
		batch, err := storage.NewCursor(it.store, core.Document{"$and": clauses}).
			Sort(storage.SortField{Field: core.IDField}).
			Limit(it.batchSize).
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < it.batchSize {
			return nil
		}
		lastID = batch[len(batch)-1].ID()
	}
}
