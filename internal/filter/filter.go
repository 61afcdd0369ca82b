// Package filter implements the Mongo-style filter documents used to query
// the resource database.
//
// Semantics:
//   - dotted keys address nested fields ("data.block.param")
//   - scalar values match by equality (numbers compare by value)
//   - a string value starting with "~" is a regular expression match
//   - boolean true means "field exists", false means "field absent"
//   - a map value applies comparison operators: $gt $ge $lt $le $ne $eq
//   - a list value matches when the field equals any element
//   - when the document field is a list, a scalar/regex filter matches if ANY
//     item matches; a key with the "!" suffix requires ALL items to match
package filter

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// RegexSentinel marks a string filter value as a regular expression.
const RegexSentinel = "~"

// AllSuffix on a filter key switches list matching from any-item to all-items.
const AllSuffix = "!"

// Filter is a query document.
type Filter map[string]interface{}

// Options adjusts matching behavior, the analogue of regex flags.
type Options struct {
	// IgnoreCase compiles regex values case-insensitively.
	IgnoreCase bool
}

// Matches reports whether doc satisfies every clause of f (clauses AND
// together). A nil or empty filter matches everything.
func Matches(doc map[string]interface{}, f Filter, opts Options) (bool, error) {
	for key, want := range f {
		all := strings.HasSuffix(key, AllSuffix)
		if all {
			key = strings.TrimSuffix(key, AllSuffix)
		}

		val, present := lookup(doc, key)

		// Presence tests consume booleans before value matching.
		if b, ok := want.(bool); ok {
			if b != present {
				return false, nil
			}
			continue
		}

		if !present {
			return false, nil
		}

		ok, err := matchValue(val, want, all, opts)
		if err != nil {
			return false, fmt.Errorf("filter key %q: %w", key, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// lookup resolves a dotted path against nested maps.
func lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// matchValue applies a single filter clause to a document value.
func matchValue(val, want interface{}, all bool, opts Options) (bool, error) {
	// Document field is a list: any-item vs all-items semantics.
	if items, ok := val.([]interface{}); ok {
		if _, isOps := want.(map[string]interface{}); !isOps {
			if all {
				for _, item := range items {
					ok, err := matchScalar(item, want, opts)
					if err != nil || !ok {
						return false, err
					}
				}
				return true, nil
			}
			for _, item := range items {
				ok, err := matchScalar(item, want, opts)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		}
	}
	return matchScalar(val, want, opts)
}

func matchScalar(val, want interface{}, opts Options) (bool, error) {
	switch w := want.(type) {
	case string:
		if strings.HasPrefix(w, RegexSentinel) {
			return matchRegex(val, strings.TrimPrefix(w, RegexSentinel), opts)
		}
		s, ok := val.(string)
		return ok && s == w, nil
	case []interface{}:
		// $in-style: field equals any listed value.
		for _, cand := range w {
			ok, err := matchScalar(val, cand, opts)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case map[string]interface{}:
		return matchOps(val, w)
	default:
		return equalValue(val, want), nil
	}
}

func matchRegex(val interface{}, expr string, opts Options) (bool, error) {
	s, ok := val.(string)
	if !ok {
		return false, nil
	}
	if opts.IgnoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false, fmt.Errorf("bad regex %q: %w", expr, err)
	}
	return re.MatchString(s), nil
}

// matchOps applies a {$op: operand} clause. Unknown operators are an error so
// typos don't silently match nothing.
func matchOps(val interface{}, ops map[string]interface{}) (bool, error) {
	for op, operand := range ops {
		switch op {
		case "$eq":
			if !equalValue(val, operand) {
				return false, nil
			}
		case "$ne":
			if equalValue(val, operand) {
				return false, nil
			}
		case "$gt", "$ge", "$lt", "$le":
			a, aok := asNumber(val)
			b, bok := asNumber(operand)
			if !aok || !bok {
				return false, nil
			}
			var ok bool
			switch op {
			case "$gt":
				ok = a > b
			case "$ge":
				ok = a >= b
			case "$lt":
				ok = a < b
			case "$le":
				ok = a <= b
			}
			if !ok {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unknown operator %q", op)
		}
	}
	return true, nil
}

// equalValue compares with numeric coercion, so 5 matches 5.0 regardless of
// which side came through JSON decoding. Composite values (lists, maps) go
// through DeepEqual; a plain == would panic on them.
func equalValue(a, b interface{}) bool {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
