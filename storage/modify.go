package storage

import (
	"fmt"
	"strings"

	"github.com/poiesic/docmodel/core"
)

// Modify returns a new document produced by applying update to doc.
//
// update is either a modifier document whose keys are all operators
// ($set, $unset, $inc) or a replacement document. A replacement keeps the
// original _id. Any change to _id fails with ErrCannotModifyID.
func Modify(doc, update core.Document) (core.Document, error) {
	ops, isOps, err := modifierDoc(update)
	if err != nil {
		return nil, err
	}

	if !isOps {
		if id, ok := update[core.IDField]; ok && !Equal(id, doc[core.IDField]) {
			return nil, ErrCannotModifyID
		}
		out := update.Clone()
		out[core.IDField] = doc[core.IDField]
		if err := CheckKeys(out); err != nil {
			return nil, err
		}
		return out, nil
	}

	out := doc.Clone()
	for _, op := range ops.Keys() {
		fields, ok := core.AsDocument(ops[op])
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a document", ErrInvalidModifier, op)
		}
		for _, path := range fields.Keys() {
			if path == core.IDField || strings.HasPrefix(path, core.IDField+".") {
				if op == "$set" && Equal(fields[path], doc[core.IDField]) {
					continue
				}
				return nil, ErrCannotModifyID
			}
			if err := applyModifier(out, op, path, fields[path]); err != nil {
				return nil, err
			}
		}
	}
	if err := CheckKeys(out); err != nil {
		return nil, err
	}
	return out, nil
}

func modifierDoc(update core.Document) (core.Document, bool, error) {
	dollar := 0
	for k := range update {
		if strings.HasPrefix(k, "$") {
			dollar++
		}
	}
	switch dollar {
	case 0:
		return nil, false, nil
	case len(update):
		return update, true, nil
	default:
		return nil, false, fmt.Errorf("%w: cannot mix modifiers and fields", ErrInvalidModifier)
	}
}

func applyModifier(doc core.Document, op, path string, arg any) error {
	switch op {
	case "$set":
		SetField(doc, path, core.CloneValue(arg))
	case "$unset":
		UnsetField(doc, path)
	case "$inc":
		delta, ok := toNumber(arg)
		if !ok {
			return fmt.Errorf("%w: $inc on %s expects a number", ErrInvalidModifier, path)
		}
		current, present := GetField(doc, path)
		if !present {
			SetField(doc, path, delta)
			return nil
		}
		n, ok := toNumber(current)
		if !ok {
			return fmt.Errorf("%w: $inc on non-numeric field %s", ErrInvalidModifier, path)
		}
		SetField(doc, path, n+delta)
	default:
		return fmt.Errorf("%w: unknown modifier %s", ErrInvalidModifier, op)
	}
	return nil
}

// CheckKeys rejects keys that start with '$' or contain '.', at any depth.
func CheckKeys(doc core.Document) error {
	for k, v := range doc {
		if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return fmt.Errorf("%w: %q", ErrFieldName, k)
		}
		if err := checkValueKeys(v); err != nil {
			return err
		}
	}
	return nil
}

func checkValueKeys(v any) error {
	if sub, ok := core.AsDocument(v); ok {
		return CheckKeys(sub)
	}
	if list, ok := v.([]any); ok {
		for _, e := range list {
			if err := checkValueKeys(e); err != nil {
				return err
			}
		}
	}
	return nil
}
