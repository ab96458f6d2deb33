package diff

import (
	"encoding/json"
	"strings"
)

// metadataKey reports whether an attribute key is controller bookkeeping.
// Underscore-prefixed keys (revision counters, timestamps, ownership flags)
// never count toward configuration drift.
func metadataKey(key string) bool {
	return strings.HasPrefix(key, "_")
}

// attributesEqual compares two attribute maps ignoring metadata keys.
func attributesEqual(a, b map[string]interface{}) bool {
	for key, av := range a {
		if metadataKey(key) {
			continue
		}
		bv, ok := b[key]
		if !ok || !valueEqual(av, bv) {
			return false
		}
	}
	for key := range b {
		if metadataKey(key) {
			continue
		}
		if _, ok := a[key]; !ok {
			return false
		}
	}
	return true
}

// valueEqual is the deep comparison used for classification: maps recurse
// with metadata keys ignored, slices compare as unordered multisets, and
// numbers compare after float64 normalization so 5 and 5.0 are the same
// value regardless of the decoder that produced them.
func valueEqual(a, b interface{}) bool {
	if an, aok := asFloat64(a); aok {
		bn, bok := asFloat64(b)
		return bok && an == bn
	}

	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		return ok && attributesEqual(av, bv)
	case []interface{}:
		bv, ok := b.([]interface{})
		return ok && slicesEqualUnordered(av, bv)
	default:
		return a == b
	}
}

// slicesEqualUnordered treats the slices as multisets: every element of one
// must pair with a distinct equal element of the other.
func slicesEqualUnordered(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	matched := make([]bool, len(b))
	for _, av := range a {
		found := false
		for i, bv := range b {
			if matched[i] {
				continue
			}
			if valueEqual(av, bv) {
				matched[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func asFloat64(v interface{}) (float64, bool) {
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
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
