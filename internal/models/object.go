package models

import (
	"bytes"
	"math"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// JSONValue is a generic type to represent any JSON value.
// Values produced from a field tree are string, float64 or *JSONObject.
type JSONValue interface{}

// JSONObject is an ordered JSON object.
//
// Keys enumerate the way JavaScript orders own properties: array-index keys
// first in ascending numeric order, then every other key in first-insertion
// order. Setting an existing key replaces its value in place.
type JSONObject struct {
	keys   []string
	values map[string]JSONValue
}

// NewJSONObject creates an empty object
func NewJSONObject() *JSONObject {
	return &JSONObject{values: make(map[string]JSONValue)}
}

// Set binds value at key. A later Set on the same key wins.
func (o *JSONObject) Set(key string, value JSONValue) {
	if o.values == nil {
		o.values = make(map[string]JSONValue)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value bound at key
func (o *JSONObject) Get(key string) (JSONValue, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Len returns the number of keys
func (o *JSONObject) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in enumeration order.
func (o *JSONObject) Keys() []string {
	if o == nil {
		return nil
	}
	var indices, names []string
	for _, k := range o.keys {
		if isArrayIndex(k) {
			indices = append(indices, k)
		} else {
			names = append(names, k)
		}
	}
	sort.Slice(indices, func(i, j int) bool {
		a, _ := strconv.ParseUint(indices[i], 10, 32)
		b, _ := strconv.ParseUint(indices[j], 10, 32)
		return a < b
	})
	return append(indices, names...)
}

// ToMap converts the object (recursively) into plain Go maps.
func (o *JSONObject) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, o.Len())
	if o == nil {
		return out
	}
	for k, v := range o.values {
		if child, ok := v.(*JSONObject); ok {
			out[k] = child.ToMap()
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the object.
func (o *JSONObject) Clone() *JSONObject {
	out := NewJSONObject()
	if o == nil {
		return out
	}
	for _, k := range o.keys {
		v := o.values[k]
		if child, ok := v.(*JSONObject); ok {
			v = child.Clone()
		}
		out.Set(k, v)
	}
	return out
}

// MarshalJSON writes the object in key enumeration order without HTML escaping.
func (o *JSONObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.MarshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if f, ok := o.values[k].(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			buf.Write(appendNumber(nil, f))
			continue
		}
		vb, err := json.MarshalNoEscape(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// isArrayIndex reports whether k is a canonical array index (0 to 2^32-2).
func isArrayIndex(k string) bool {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return false
	}
	for i := 0; i < len(k); i++ {
		if k[i] < '0' || k[i] > '9' {
			return false
		}
	}
	n, err := strconv.ParseUint(k, 10, 64)
	return err == nil && n < 1<<32-1
}
