package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/docmodel/core"
)

// Match reports whether doc satisfies query.
//
// Top-level keys are field paths or the logical operators $and, $or and $not.
// A field condition is either a literal (structural equality; an array field
// matches when any element equals the literal) or an operator document using
// $lt, $lte, $gt, $gte, $ne, $in, $nin, $exists and $regex.
// An empty or nil query matches every document.
func Match(doc, query core.Document) (bool, error) {
	for key, cond := range query {
		var (
			ok  bool
			err error
		)
		switch key {
		case "$and":
			ok, err = matchAll(doc, cond)
		case "$or":
			ok, err = matchAny(doc, cond)
		case "$not":
			sub, isDoc := core.AsDocument(cond)
			if !isDoc {
				return false, fmt.Errorf("%w: $not expects a document", ErrInvalidQuery)
			}
			ok, err = Match(doc, sub)
			ok = !ok
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("%w: unknown operator %s", ErrInvalidQuery, key)
			}
			value, present := GetField(doc, key)
			ok, err = matchField(value, present, cond)
		}
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func subQueries(cond any, op string) ([]core.Document, error) {
	list, ok := toList(cond)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects an array", ErrInvalidQuery, op)
	}
	out := make([]core.Document, 0, len(list))
	for _, e := range list {
		sub, isDoc := core.AsDocument(e)
		if !isDoc {
			return nil, fmt.Errorf("%w: %s expects an array of documents", ErrInvalidQuery, op)
		}
		out = append(out, sub)
	}
	return out, nil
}

func matchAll(doc core.Document, cond any) (bool, error) {
	subs, err := subQueries(cond, "$and")
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		ok, err := Match(doc, sub)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchAny(doc core.Document, cond any) (bool, error) {
	subs, err := subQueries(cond, "$or")
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		ok, err := Match(doc, sub)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// operatorDoc returns cond as an operator document when every key starts
// with '$'. Mixing operators and plain fields is an error.
func operatorDoc(cond any) (core.Document, bool, error) {
	ops, ok := core.AsDocument(cond)
	if !ok || len(ops) == 0 {
		return nil, false, nil
	}
	dollar := 0
	for k := range ops {
		if strings.HasPrefix(k, "$") {
			dollar++
		}
	}
	switch dollar {
	case 0:
		return nil, false, nil
	case len(ops):
		return ops, true, nil
	default:
		return nil, false, fmt.Errorf("%w: cannot mix operators and fields", ErrInvalidQuery)
	}
}

func matchField(value any, present bool, cond any) (bool, error) {
	ops, isOps, err := operatorDoc(cond)
	if err != nil {
		return false, err
	}

	// Arrays match element-wise unless the condition is itself an array.
	if list, isList := toList(value); isList && present {
		if _, condIsList := toList(cond); condIsList {
			return Equal(value, cond), nil
		}
		if isOps {
			if _, hasExists := ops["$exists"]; hasExists {
				return matchOperators(value, present, ops)
			}
		}
		for _, e := range list {
			ok, err := matchField(e, true, cond)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	if isOps {
		return matchOperators(value, present, ops)
	}
	if !present {
		return false, nil
	}
	return Equal(value, cond), nil
}

func matchOperators(value any, present bool, ops core.Document) (bool, error) {
	for op, arg := range ops {
		ok, err := matchOperator(value, present, op, arg)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(value any, present bool, op string, arg any) (bool, error) {
	switch op {
	case "$lt", "$lte", "$gt", "$gte":
		if !present {
			return false, nil
		}
		c, ok := compareOrdered(value, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "$lt":
			return c < 0, nil
		case "$lte":
			return c <= 0, nil
		case "$gt":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case "$ne":
		if !present {
			return true, nil
		}
		return !Equal(value, arg), nil
	case "$in", "$nin":
		list, ok := toList(arg)
		if !ok {
			return false, fmt.Errorf("%w: %s expects an array", ErrInvalidQuery, op)
		}
		found := false
		if present {
			for _, e := range list {
				if Equal(value, e) {
					found = true
					break
				}
			}
		}
		if op == "$in" {
			return found, nil
		}
		return !found, nil
	case "$exists":
		return present == truthy(arg), nil
	case "$regex":
		re, err := toRegexp(arg)
		if err != nil {
			return false, err
		}
		s, ok := value.(string)
		return present && ok && re.MatchString(s), nil
	default:
		return false, fmt.Errorf("%w: unknown operator %s", ErrInvalidQuery, op)
	}
}

func toRegexp(arg any) (*regexp.Regexp, error) {
	switch r := arg.(type) {
	case *regexp.Regexp:
		return r, nil
	case string:
		re, err := regexp.Compile(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return re, nil
	default:
		return nil, fmt.Errorf("%w: $regex expects a pattern", ErrInvalidQuery)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if n, ok := toNumber(v); ok {
		return n != 0
	}
	return true
}
