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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docmodel/storage"
)

// saveIndexMeta persists an index definition inside tx.
func saveIndexMeta(tx *badger.Txn, opts storage.IndexOptions) error {
	meta := &storage.IndexMeta{
		FieldName: opts.FieldName,
		Unique:    opts.Unique,
		CreatedAt: time.Now().UTC(),
	}
	return tx.Set(makeIndexMetaKey(opts.FieldName), storage.MarshalIndexMeta(meta))
}

// deleteIndexMeta removes an index definition inside tx.
func deleteIndexMeta(tx *badger.Txn, field string) error {
	return tx.Delete(makeIndexMetaKey(field))
}

// loadIndexMetas reads every persisted index definition.
func loadIndexMetas(backend *Backend) ([]*storage.IndexMeta, error) {
	var metas []*storage.IndexMeta
	err := backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeIndexMetaScanPrefix(), true, func(_, value []byte) (bool, error) {
			meta, err := storage.UnmarshalIndexMeta(value)
			if err != nil {
				return false, err
			}
			metas = append(metas, meta)
			return true, nil
		})
	}, false)
	return metas, err
}
