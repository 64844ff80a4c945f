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

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docmodel/core"
)

// Record is the stored envelope of a document.
type Record struct {
	ID        string
	UpdatedAt time.Time
	Body      []byte // JSON encoded document, including _id
}

// IndexMeta is the persisted definition of an index.
type IndexMeta struct {
	FieldName string
	Unique    bool
	CreatedAt time.Time
}

// NormalizeDocument deep-copies doc through its JSON form so stored and
// returned documents only hold JSON value kinds.
func NormalizeDocument(doc core.Document) (core.Document, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return decodeBody(body)
}

func decodeBody(body []byte) (core.Document, error) {
	var out core.Document
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return out, nil
}

// EncodeDocument builds the record for doc.
func EncodeDocument(doc core.Document, updatedAt time.Time) (*Record, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &Record{
		ID:        doc.ID(),
		UpdatedAt: updatedAt,
		Body:      body,
	}, nil
}

// DecodeDocument returns the document held by rec.
func DecodeDocument(rec *Record) (core.Document, error) {
	return decodeBody(rec.Body)
}

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(rec *Record) []byte {
	body := string(rec.Body)
	updatedAt := rec.UpdatedAt.UnixMicro()
	size := ord.String.Size(rec.ID) + varint.Int64.Size(updatedAt) + ord.String.Size(body)
	buf := make([]byte, size)
	n := ord.String.Marshal(rec.ID, buf)
	n += varint.Int64.Marshal(updatedAt, buf[n:])
	ord.String.Marshal(body, buf[n:])
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record id: %w", ErrSerializationFailed, err)
	}
	updatedAt, m, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: record timestamp: %w", ErrSerializationFailed, err)
	}
	n += m
	body, _, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: record body: %w", ErrSerializationFailed, err)
	}
	return &Record{
		ID:        id,
		UpdatedAt: time.UnixMicro(updatedAt).UTC(),
		Body:      []byte(body),
	}, nil
}

// MarshalIndexMeta serializes an IndexMeta to bytes.
func MarshalIndexMeta(meta *IndexMeta) []byte {
	createdAt := meta.CreatedAt.UnixMicro()
	size := ord.String.Size(meta.FieldName) + ord.Bool.Size(meta.Unique) + varint.Int64.Size(createdAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(meta.FieldName, buf)
	n += ord.Bool.Marshal(meta.Unique, buf[n:])
	varint.Int64.Marshal(createdAt, buf[n:])
	return buf
}

// UnmarshalIndexMeta deserializes an IndexMeta from bytes.
func UnmarshalIndexMeta(data []byte) (*IndexMeta, error) {
	field, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: index field: %w", ErrSerializationFailed, err)
	}
	unique, m, err := ord.Bool.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: index unique flag: %w", ErrSerializationFailed, err)
	}
	n += m
	createdAt, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: index timestamp: %w", ErrSerializationFailed, err)
	}
	return &IndexMeta{
		FieldName: field,
		Unique:    unique,
		CreatedAt: time.UnixMicro(createdAt).UTC(),
	}, nil
}
