// internal/sui/fields.go
package sui

import (
	"fmt"
	"math/big"
)

// Lookup walks a path through Move fields. Nested structs arrive as
// {"type": ..., "fields": {...}}; the "fields" level is descended
// implicitly, so positions.id.id and positions.fields.id.id are equal.
func (o *Object) Lookup(path ...string) (interface{}, bool) {
	if o == nil || o.Content == nil {
		return nil, false
	}
	var cur interface{} = o.Content.Fields
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if v, ok := m[key]; ok {
			cur = v
			continue
		}
		inner, ok := m["fields"].(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := inner[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// FieldString returns a string field.
func (o *Object) FieldString(path ...string) (string, error) {
	v, ok := o.Lookup(path...)
	if !ok {
		return "", fmt.Errorf("field %v not found", path)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %v is %T, not string", path, v)
	}
	return s, nil
}

// FieldUint returns an unsigned integer field. u64 values are encoded as
// strings, smaller integers as JSON numbers.
func (o *Object) FieldUint(path ...string) (*big.Int, error) {
	v, ok := o.Lookup(path...)
	if !ok {
		return nil, fmt.Errorf("field %v not found", path)
	}

	var n *big.Int
	switch t := v.(type) {
	case string:
		parsed, ok := new(big.Int).SetString(t, 10)
		if !ok {
			return nil, fmt.Errorf("field %v: invalid integer %q", path, t)
		}
		n = parsed
	case float64:
		if t != float64(int64(t)) {
			return nil, fmt.Errorf("field %v: non-integer %v", path, t)
		}
		n = big.NewInt(int64(t))
	default:
		return nil, fmt.Errorf("field %v is %T, not integer", path, v)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("field %v: negative value %s", path, n)
	}
	return n, nil
}

// FieldObjectID returns the UID stored at path (the id.id pair of a Move UID).
func (o *Object) FieldObjectID(path ...string) (string, error) {
	return o.FieldString(append(path, "id", "id")...)
}

// NestedFields returns the fields map of a nested struct.
func (o *Object) NestedFields(path ...string) (map[string]interface{}, error) {
	v, ok := o.Lookup(path...)
	if !ok {
		return nil, fmt.Errorf("field %v not found", path)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("field %v is %T, not struct", path, v)
	}
	if inner, ok := m["fields"].(map[string]interface{}); ok {
		return inner, nil
	}
	return m, nil
}
