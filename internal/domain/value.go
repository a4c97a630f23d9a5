package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the primitive type held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "null"
	}
}

// Value is a field value: null, a number or a boolean
type Value struct {
	kind Kind
	num  float64
	b    bool
}

// Null is the absent value
var Null = Value{}

// Number wraps a float64
func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

// Bool wraps a bool
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind returns the primitive type of the value
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload and whether the value is a number
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Flag returns the boolean payload and whether the value is a boolean
func (v Value) Flag() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Equal compares kind and payload
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return "null"
}

// MarshalJSON encodes the value as a JSON number, boolean or null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a JSON number, boolean or null
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Null
	case bytes.Equal(data, []byte("true")):
		*v = Bool(true)
	case bytes.Equal(data, []byte("false")):
		*v = Bool(false)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("field value must be number, boolean or null: %s", string(data))
		}
		*v = Number(f)
	}
	return nil
}
