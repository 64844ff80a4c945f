package storage

import (
	"cmp"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/docmodel/core"
)

// GetField resolves a dot-separated path inside doc. Numeric path parts
// index into arrays; other parts applied to an array collect that field from
// every element.
func GetField(doc core.Document, path string) (any, bool) {
	return getPath(doc, strings.Split(path, "."))
}

func getPath(v any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return v, true
	}
	switch t := v.(type) {
	case core.Document:
		next, ok := t[parts[0]]
		if !ok {
			return nil, false
		}
		return getPath(next, parts[1:])
	case map[string]any:
		return getPath(core.Document(t), parts)
	case []any:
		if i, err := strconv.Atoi(parts[0]); err == nil {
			if i < 0 || i >= len(t) {
				return nil, false
			}
			return getPath(t[i], parts[1:])
		}
		var out []any
		for _, e := range t {
			if val, ok := getPath(e, parts); ok {
				out = append(out, val)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// SetField assigns value at a dot-separated path, creating intermediate
// documents as needed.
func SetField(doc core.Document, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := core.AsDocument(cur[p])
		if !ok {
			next = core.Document{}
		}
		cur[p] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// UnsetField removes the value at a dot-separated path.
func UnsetField(doc core.Document, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := core.AsDocument(cur[p])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// toNumber reports v as a float64 when it is any Go numeric kind.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toList reports v as []any when it is any slice or array other than []byte.
func toList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Equal compares two document values structurally. Numbers of different
// Go kinds compare by value.
func Equal(a, b any) bool {
	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		return ok && an == bn
	}
	switch at := a.(type) {
	case nil:
		return b == nil
	case string:
		bs, ok := b.(string)
		return ok && at == bs
	case bool:
		bb, ok := b.(bool)
		return ok && at == bb
	case time.Time:
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	if al, ok := toList(a); ok {
		bl, ok := toList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !Equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	if ad, ok := core.AsDocument(a); ok {
		bd, ok := core.AsDocument(b)
		if !ok || len(ad) != len(bd) {
			return false
		}
		for k, av := range ad {
			bv, ok := bd[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// compareOrdered compares two values of the same orderable type (numbers,
// strings, times). ok is false when the values cannot be ordered together.
func compareOrdered(a, b any) (result int, ok bool) {
	if an, isNum := toNumber(a); isNum {
		bn, isNum := toNumber(b)
		if !isNum {
			return 0, false
		}
		return cmp.Compare(an, bn), true
	}
	switch at := a.(type) {
	case string:
		bs, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		return strings.Compare(at, bs), true
	case time.Time:
		bt, isTime := b.(time.Time)
		if !isTime {
			return 0, false
		}
		return at.Compare(bt), true
	}
	return 0, false
}

// typeRank orders value kinds for sorting:
// missing < null < number < string < bool < time < array < document.
func typeRank(v any, present bool) int {
	if !present {
		return 0
	}
	if _, ok := toNumber(v); ok {
		return 2
	}
	switch v.(type) {
	case nil:
		return 1
	case string:
		return 3
	case bool:
		return 4
	case time.Time:
		return 5
	case []any:
		return 6
	default:
		return 7
	}
}

// CompareForSort totally orders document values of any kind.
func CompareForSort(a any, aPresent bool, b any, bPresent bool) int {
	ra, rb := typeRank(a, aPresent), typeRank(b, bPresent)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	if c, ok := compareOrdered(a, b); ok {
		return c
	}
	switch at := a.(type) {
	case bool:
		bb := b.(bool)
		switch {
		case at == bb:
			return 0
		case !at:
			return -1
		default:
			return 1
		}
	case []any:
		bl := b.([]any)
		for i := 0; i < len(at) && i < len(bl); i++ {
			if c := CompareForSort(at[i], true, bl[i], true); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(at), len(bl))
	}
	if ad, ok := core.AsDocument(a); ok {
		bd, _ := core.AsDocument(b)
		ak, bk := ad.Keys(), bd.Keys()
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := CompareForSort(ad[ak[i]], true, bd[bk[i]], true); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(ak), len(bk))
	}
	return 0
}
