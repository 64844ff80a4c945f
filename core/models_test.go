package core

import (
	"testing"
)

func TestDocumentID(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"with id", Document{IDField: "abc123"}, "abc123"},
		{"without id", Document{"name": "x"}, ""},
		{"non-string id", Document{IDField: 42}, ""},
		{"nil document", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.ID(); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocumentClone(t *testing.T) {
	original := Document{
		"name": "alice",
		"tags": []any{"a", "b"},
		"address": map[string]any{
			"city": "Paris",
		},
	}

	clone := original.Clone()
	clone["name"] = "bob"
	clone["tags"].([]any)[0] = "z"
	clone["address"].(Document)["city"] = "Rome"

	if original["name"] != "alice" {
		t.Errorf("scalar mutation leaked into original")
	}
	if original["tags"].([]any)[0] != "a" {
		t.Errorf("slice mutation leaked into original")
	}
	if original["address"].(map[string]any)["city"] != "Paris" {
		t.Errorf("nested map mutation leaked into original")
	}
}

func TestDocumentCloneNil(t *testing.T) {
	var doc Document
	if doc.Clone() != nil {
		t.Error("expected nil clone of nil document")
	}
}

func TestDocumentKeysSorted(t *testing.T) {
	doc := Document{"b": 1, "a": 2, "c": 3}
	keys := doc.Keys()
	want := []string{"a", "b", "c"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
}

func TestAsDocument(t *testing.T) {
	if _, ok := AsDocument(map[string]any{"a": 1}); !ok {
		t.Error("map[string]any should convert")
	}
	if _, ok := AsDocument(Document{"a": 1}); !ok {
		t.Error("Document should convert")
	}
	if _, ok := AsDocument("abc"); ok {
		t.Error("string should not convert")
	}
}

func TestAttrsNames(t *testing.T) {
	attrs := Attrs{"email": {Unique: true}, "age": {Index: true}}
	names := attrs.Names()
	if len(names) != 2 || names[0] != "age" || names[1] != "email" {
		t.Errorf("Names() = %v", names)
	}
}
