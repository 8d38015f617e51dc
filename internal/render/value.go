// ABOUTME: Tagged value tree consumed by the diagnostic renderer
// ABOUTME: Converts arbitrary Go values, query rows and JSON into Mapping, Sequence or Scalar

package render

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Value is one node of a renderable tree. It is always a Mapping, a
// Sequence or a Scalar.
type Value interface {
	isValue()
}

// Field is one key of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// Mapping is an ordered set of keyed values.
type Mapping []Field

// Sequence is an ordered list of values.
type Sequence []Value

// Scalar is a leaf. V holds nil, bool, int64, float64, string or any other
// value that is rendered with fmt.
type Scalar struct {
	V any
}

func (Mapping) isValue()  {}
func (Sequence) isValue() {}
func (Scalar) isValue()   {}

// FromRow builds a Mapping that keeps the column order of a query row.
func FromRow(columns []string, values []any) Mapping {
	m := make(Mapping, 0, len(columns))
	for i, col := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		m = append(m, Field{Key: col, Value: FromAny(v)})
	}
	return m
}

// FromAny converts v into a Value tree. Maps with string keys become
// Mappings sorted by key, slices and arrays become Sequences and everything
// else becomes a Scalar.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Scalar{}
	case Value:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Mapping, 0, len(t))
		for _, k := range keys {
			m = append(m, Field{Key: k, Value: FromAny(t[k])})
		}
		return m
	case []any:
		s := make(Sequence, 0, len(t))
		for _, item := range t {
			s = append(s, FromAny(item))
		}
		return s
	case []byte:
		return Scalar{V: string(t)}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Scalar{V: i}
		}
		if f, err := t.Float64(); err == nil {
			return Scalar{V: f}
		}
		return Scalar{V: t.String()}
	case string, bool, int64, float64:
		return Scalar{V: t}
	case int:
		return Scalar{V: int64(t)}
	case int32:
		return Scalar{V: int64(t)}
	case float32:
		return Scalar{V: float64(t)}
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Scalar{}
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Scalar{V: rv.Interface()}
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		m := make(Mapping, 0, len(keys))
		for _, k := range keys {
			m = append(m, Field{Key: k, Value: FromAny(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())})
		}
		return m
	case reflect.Slice, reflect.Array:
		s := make(Sequence, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s = append(s, FromAny(rv.Index(i).Interface()))
		}
		return s
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar{V: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Scalar{V: int64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return Scalar{V: rv.Float()}
	case reflect.Bool:
		return Scalar{V: rv.Bool()}
	case reflect.String:
		return Scalar{V: rv.String()}
	}
	return Scalar{V: rv.Interface()}
}

// parseNested decodes s when it holds a JSON object or array.
func parseNested(s string) (Value, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return FromAny(v), true
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
