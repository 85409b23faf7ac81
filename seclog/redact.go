package seclog

import (
	"fmt"
	"reflect"
	"time"
)

/*
==========================================
REDACTION
==========================================
*/

// Redact returns a deep copy of v with every sensitive field and every
// token-shaped string replaced by [Redacted]. The input is never mutated.
// The walk is bounded by the policy depth and short-circuits references it
// has already visited, so cyclic structures are safe.
func (p *Policy) Redact(v any) any {
	w := &walker{policy: p, visited: make(map[visitKey]struct{})}
	return w.walk("", v, 0)
}

// visitKey identifies a reference by its pointer and dynamic type. The type
// matters because a struct pointer and its first field can share an address.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	policy  *Policy
	visited map[visitKey]struct{}
}

func (w *walker) walk(field string, v any, depth int) any {
	if v == nil {
		return nil
	}
	if depth > w.policy.depth() {
		return Redacted
	}

	// A sensitive field name redacts the entire value beneath it, nested
	// or not. This keeps {"credentials": {...}} from leaking structure.
	if w.policy.SensitiveField(field) {
		return Redacted
	}

	switch t := v.(type) {
	case string:
		if tokenShaped(t) {
			return Redacted
		}
		return t
	case []byte:
		s := string(t)
		if tokenShaped(s) {
			return Redacted
		}
		return s
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, complex64, complex128:
		return t
	case time.Time:
		return t
	case time.Duration:
		return t
	case error:
		s := t.Error()
		if tokenShaped(s) {
			return Redacted
		}
		return s
	case map[string]any:
		if !w.enter(reflect.ValueOf(t)) {
			return Redacted
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = w.walk(k, val, depth+1)
		}
		return out
	case []any:
		if len(t) > 0 && !w.enter(reflect.ValueOf(t)) {
			return Redacted
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = w.walk(field, val, depth+1)
		}
		return out
	}

	return w.walkReflect(field, reflect.ValueOf(v), depth)
}

func (w *walker) walkReflect(field string, rv reflect.Value, depth int) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Pointer && !w.enter(rv) {
			return Redacted
		}
		return w.walk(field, rv.Elem().Interface(), depth)

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if !w.enter(rv) {
			return Redacted
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			out[key] = w.walk(key, iter.Value().Interface(), depth+1)
		}
		return out

	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		// Empty slices all share the runtime zero base, so only slices
		// with elements participate in cycle detection.
		if rv.Len() > 0 && !w.enter(rv) {
			return Redacted
		}
		return w.walkSeq(field, rv, depth)

	case reflect.Array:
		return w.walkSeq(field, rv, depth)

	case reflect.Struct:
		rt := rv.Type()
		out := make(map[string]any, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if sf.PkgPath != "" {
				continue
			}
			out[sf.Name] = w.walk(sf.Name, rv.Field(i).Interface(), depth+1)
		}
		return out

	case reflect.String:
		s := rv.String()
		if tokenShaped(s) {
			return Redacted
		}
		return s

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Not representable in a log record.
		return fmt.Sprintf("<%s>", rv.Kind())

	default:
		return rv.Interface()
	}
}

func (w *walker) walkSeq(field string, rv reflect.Value, depth int) any {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = w.walk(field, rv.Index(i).Interface(), depth+1)
	}
	return out
}

// enter records a reference and reports whether it was new. Already-visited
// references are replaced by the marker instead of walked again.
func (w *walker) enter(rv reflect.Value) bool {
	k := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
	if _, ok := w.visited[k]; ok {
		return false
	}
	w.visited[k] = struct{}{}
	return true
}
