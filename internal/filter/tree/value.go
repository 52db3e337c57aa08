package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
)

// ValueKind identifies which member of the Value union is set.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindDate
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// Value is the operand of a rule: absent, a boolean, a number, a string or
// a date string (YYYY-MM-DD or RFC 3339).
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
}

// None is the absent value.
var None = Value{}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a text value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Date returns a date value.
func Date(s string) Value { return Value{kind: KindDate, s: s} }

// Kind returns which member of the union is set.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether the value is absent.
func (v Value) IsNone() bool { return v.kind == KindNone }

// True reports whether v is the boolean true. Any other value is false.
func (v Value) True() bool {
	return v.kind == KindBool && v.b
}

// Interface returns the Go value used on the wire: nil, bool, float64 or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString, KindDate:
		return v.s
	default:
		return nil
	}
}

// Resolve coerces v to the shape expected by property type t. Values that
// cannot be coerced are returned unchanged.
func (v Value) Resolve(t catalog.PropertyType) Value {
	switch t {
	case catalog.Checkbox:
		if v.kind == KindString {
			if b, err := strconv.ParseBool(v.s); err == nil {
				return Bool(b)
			}
		}
	case catalog.Number:
		if v.kind == KindString {
			if n, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
				return Number(n)
			}
		}
	case catalog.Date, catalog.Timestamp:
		if v.kind == KindString {
			return Date(v.s)
		}
	}
	return v
}

// String renders the value for descriptions and logs.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindString, KindDate:
		return v.s
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = None
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case bool:
		*v = Bool(x)
	case float64:
		*v = Number(x)
	case string:
		*v = String(x)
	default:
		return fmt.Errorf("rule value must be a scalar, got %s", data)
	}
	return nil
}
