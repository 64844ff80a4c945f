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

package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
)

// EnsureIndex creates an index on opts.FieldName and builds it over the
// existing documents. Declaring an index that already exists is a no-op,
// as is declaring one on _id, which is always indexed.
func (s *DocumentStore) EnsureIndex(ctx context.Context, opts storage.IndexOptions) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if opts.FieldName == "" {
		return storage.ErrNoFieldName
	}
	if opts.FieldName == core.IDField {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, exists := s.indexSnapshot()[opts.FieldName]; exists {
		return nil
	}

	single := map[string]storage.IndexOptions{opts.FieldName: opts}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var docs []core.Document
		err := scanPrefix(tx, makeDocumentScanPrefix(), true, func(_, value []byte) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			var doc core.Document
			if err := decodeValue(value, &doc); err != nil {
				return false, err
			}
			docs = append(docs, doc)
			return true, nil
		})
		if err != nil {
			return err
		}

		seen := make(map[string]string)
		for _, doc := range docs {
			digests, err := indexDigests(doc, opts.FieldName)
			if err != nil {
				return err
			}
			for _, digest := range digests {
				if owner, taken := seen[digest]; taken && opts.Unique && owner != doc.ID() {
					return fmt.Errorf("%w: index %q has duplicate values", storage.ErrConstraintViolated, opts.FieldName)
				}
				seen[digest] = doc.ID()
			}
			if err := writeIndexEntries(tx, single, doc); err != nil {
				return err
			}
		}

		if err := saveIndexMeta(tx, opts); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.indexes[opts.FieldName] = opts
	s.mu.Unlock()

	s.logger.Debug("index created", "field", opts.FieldName, "unique", opts.Unique)
	return nil
}

// RemoveIndex drops the index on field. Unknown fields are ignored.
func (s *DocumentStore) RemoveIndex(ctx context.Context, field string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if field == "" {
		return storage.ErrNoFieldName
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	_, exists := s.indexes[field]
	delete(s.indexes, field)
	s.mu.Unlock()
	if !exists {
		return nil
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var keys [][]byte
		err := scanPrefix(tx, makeIndexFieldPrefix(field), false, func(key, _ []byte) (bool, error) {
			keys = append(keys, key)
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := deleteIndexMeta(tx, field); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	s.logger.Debug("index removed", "field", field)
	return nil
}

// Indexes returns the declared indexes ordered by field name.
// The implicit _id index is not included.
func (s *DocumentStore) Indexes(ctx context.Context) ([]storage.IndexOptions, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	indexes := s.indexSnapshot()
	out := make([]storage.IndexOptions, 0, len(indexes))
	for _, field := range slices.Sorted(maps.Keys(indexes)) {
		out = append(out, indexes[field])
	}
	return out, nil
}

func (s *DocumentStore) indexSnapshot() map[string]storage.IndexOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.indexes)
}

// indexDigests returns the distinct digests doc contributes to the index on
// field. Missing fields contribute nothing; arrays contribute each element.
func indexDigests(doc core.Document, field string) ([]string, error) {
	value, ok := storage.GetField(doc, field)
	if !ok {
		return nil, nil
	}
	values := []any{value}
	if list, isList := value.([]any); isList {
		values = list
	}

	var digests []string
	for _, v := range values {
		digest, err := valueDigest(v)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(digests, digest) {
			digests = append(digests, digest)
		}
	}
	return digests, nil
}

// indexDocument adds index entries for doc, failing with
// storage.ErrConstraintViolated if a unique index already holds one of its
// values for another document.
func indexDocument(tx *badger.Txn, indexes map[string]storage.IndexOptions, doc core.Document) error {
	for field, opts := range indexes {
		if !opts.Unique {
			continue
		}
		digests, err := indexDigests(doc, field)
		if err != nil {
			return err
		}
		for _, digest := range digests {
			taken, err := digestTaken(tx, field, digest, doc.ID())
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: field %q", storage.ErrConstraintViolated, field)
			}
		}
	}
	return writeIndexEntries(tx, indexes, doc)
}

func writeIndexEntries(tx *badger.Txn, indexes map[string]storage.IndexOptions, doc core.Document) error {
	id := doc.ID()
	for field := range indexes {
		digests, err := indexDigests(doc, field)
		if err != nil {
			return err
		}
		for _, digest := range digests {
			if err := tx.Set(makeIndexKey(field, digest, id), []byte(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// unindexDocument removes every index entry of doc.
func unindexDocument(tx *badger.Txn, indexes map[string]storage.IndexOptions, doc core.Document) error {
	id := doc.ID()
	for field := range indexes {
		digests, err := indexDigests(doc, field)
		if err != nil {
			return err
		}
		for _, digest := range digests {
			if err := tx.Delete(makeIndexKey(field, digest, id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// digestTaken reports whether a document other than id holds digest in the
// index on field.
func digestTaken(tx *badger.Txn, field, digest, id string) (bool, error) {
	taken := false
	err := scanPrefix(tx, makeIndexValuePrefix(field, digest), true, func(_, value []byte) (bool, error) {
		if string(value) != id {
			taken = true
			return false, nil
		}
		return true, nil
	})
	return taken, err
}

// indexCandidates picks a top-level equality or $in condition on _id or an
// indexed field and returns the ids it can match, sorted. indexed is false
// when no such condition exists and a full scan is needed.
func indexCandidates(tx *badger.Txn, indexes map[string]storage.IndexOptions, filter core.Document) (ids []string, indexed bool, err error) {
	for _, field := range filter.Keys() {
		if strings.HasPrefix(field, "$") {
			continue
		}
		_, hasIndex := indexes[field]
		if field != core.IDField && !hasIndex {
			continue
		}
		values, ok := lookupValues(filter[field])
		if !ok {
			continue
		}

		set := make(map[string]struct{})
		for _, v := range values {
			if field == core.IDField {
				if id, isString := v.(string); isString {
					set[id] = struct{}{}
				}
				continue
			}
			digest, err := valueDigest(v)
			if err != nil {
				return nil, false, err
			}
			err = scanPrefix(tx, makeIndexValuePrefix(field, digest), true, func(_, value []byte) (bool, error) {
				set[string(value)] = struct{}{}
				return true, nil
			})
			if err != nil {
				return nil, false, err
			}
		}
		return slices.Sorted(maps.Keys(set)), true, nil
	}
	return nil, false, nil
}

// lookupValues returns the scalar values a condition can equal: the literal
// itself, or every element of a lone $in operator.
func lookupValues(cond any) ([]any, bool) {
	if ops, isDoc := core.AsDocument(cond); isDoc {
		arg, hasIn := ops["$in"]
		if len(ops) != 1 || !hasIn {
			return nil, false
		}
		rv := reflect.ValueOf(arg)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, false
		}
		values := make([]any, 0, rv.Len())
		for i := range rv.Len() {
			v, ok := scalar(rv.Index(i).Interface())
			if !ok {
				return nil, false
			}
			values = append(values, v)
		}
		return values, true
	}
	v, ok := scalar(cond)
	if !ok {
		return nil, false
	}
	return []any{v}, true
}

// scalar normalizes a string, number or bool to its stored JSON form.
func scalar(v any) (any, bool) {
	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
	default:
		return nil, false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}
