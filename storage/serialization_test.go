package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docmodel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDocument(t *testing.T) {
	in := core.Document{
		"_id":    "a",
		"n":      3,
		"tags":   []string{"x", "y"},
		"nested": map[string]any{"ok": true},
	}
	out, err := NormalizeDocument(in)
	require.NoError(t, err)
	assert.Equal(t, core.Document{
		"_id":    "a",
		"n":      float64(3),
		"tags":   []any{"x", "y"},
		"nested": map[string]any{"ok": true},
	}, out)

	_, err = NormalizeDocument(core.Document{"bad": make(chan int)})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		doc  core.Document
	}{
		{"simple", core.Document{"_id": "a", "name": "ada"}},
		{"nested", core.Document{"_id": "b", "address": map[string]any{"city": "Oslo"}, "tags": []any{"x"}}},
		{"unicode", core.Document{"_id": "c", "text": "héllo wörld ✓"}},
		{"only id", core.Document{"_id": "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := EncodeDocument(tt.doc, now)
			require.NoError(t, err)
			assert.Equal(t, tt.doc.ID(), rec.ID)

			data := MarshalRecord(rec)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalRecord(data)
			require.NoError(t, err)
			assert.Equal(t, rec.ID, decoded.ID)
			assert.True(t, now.Equal(decoded.UpdatedAt))

			doc, err := DecodeDocument(decoded)
			require.NoError(t, err)
			assert.Equal(t, tt.doc, doc)
		})
	}
}

func TestUnmarshalRecord_Invalid(t *testing.T) {
	rec, err := EncodeDocument(core.Document{"_id": "a", "n": 1.0}, time.Now())
	require.NoError(t, err)
	data := MarshalRecord(rec)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", data[:len(data)-3]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRecord(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestDecodeDocument_BadBody(t *testing.T) {
	_, err := DecodeDocument(&Record{ID: "a", Body: []byte("{not json")})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalIndexMeta(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, meta := range []*IndexMeta{
		{FieldName: "email", Unique: true, CreatedAt: now},
		{FieldName: "address.city", Unique: false, CreatedAt: now},
	} {
		t.Run(meta.FieldName, func(t *testing.T) {
			decoded, err := UnmarshalIndexMeta(MarshalIndexMeta(meta))
			require.NoError(t, err)
			assert.Equal(t, meta.FieldName, decoded.FieldName)
			assert.Equal(t, meta.Unique, decoded.Unique)
			assert.True(t, meta.CreatedAt.Equal(decoded.CreatedAt))
		})
	}

	_, err := UnmarshalIndexMeta(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
