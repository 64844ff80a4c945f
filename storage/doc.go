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

// Package storage defines the embedded document store used by docmodel.
//
// The Store interface decouples the model adapter from the storage engine.
// The adapter only ever speaks Store; storage/badger provides the
// BadgerDB-backed implementation.
//
// # Documents
//
// Documents are plain JSON-compatible maps (core.Document). Stores keep a
// normalized copy, so values read back are always string, float64, bool,
// nil, []any or nested documents, whatever Go kinds were inserted.
//
// # Queries
//
// Filters are documents too. Keys are dot-separated field paths mapped to a
// literal (equality) or to an operator document:
//
//	{"age": {"$gte": 18}, "tags": "go"}
//	{"$or": [{"name": "alice"}, {"name": "bob"}]}
//
// Supported operators: $lt, $lte, $gt, $gte, $ne, $in, $nin, $exists,
// $regex, and the logical $and, $or, $not. See Match.
//
// # Updates
//
// Update documents are either modifiers ($set, $unset, $inc) or a full
// replacement. The _id of a stored document never changes. See Modify.
//
// # Lazy queries
//
// Cursor builds a Query (sort, skip, limit, projection) without touching
// the store until Exec is called.
//
// # Thread Safety
//
// All Store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
