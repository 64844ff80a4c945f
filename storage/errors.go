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

package storage

import "errors"

var (
	// ErrNotFound indicates that the requested document was not found.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateKey indicates an insert reused an existing primary identifier.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConstraintViolated indicates a write was blocked by a unique index.
	ErrConstraintViolated = errors.New("unique constraint violated")

	// ErrCannotModifyID indicates an update tried to change a document _id.
	ErrCannotModifyID = errors.New("cannot modify _id")

	// ErrNoFieldName indicates an index was requested without a field name.
	ErrNoFieldName = errors.New("index field name is required")

	// ErrFieldName indicates a document key is not allowed.
	ErrFieldName = errors.New("invalid field name")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates a malformed query document.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidModifier indicates a malformed update document.
	ErrInvalidModifier = errors.New("invalid update modifier")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
