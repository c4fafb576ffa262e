package schema

import (
	"cmp"
	"fmt"
	"strconv"
)

// AttributeType is the declared type of an attribute.
type AttributeType int

const (
	AttributeTypeUnknown AttributeType = iota
	AttributeTypeBool
	AttributeTypeInt
	AttributeTypeFloat
	AttributeTypeString
	AttributeTypeLocation
)

// String returns the lower-case type name.
func (t AttributeType) String() string {
	switch t {
	case AttributeTypeBool:
		return "bool"
	case AttributeTypeInt:
		return "int"
	case AttributeTypeFloat:
		return "float"
	case AttributeTypeString:
		return "string"
	case AttributeTypeLocation:
		return "location"
	default:
		return "unknown"
	}
}

// IsValid reports whether t is one of the declared attribute types.
func (t AttributeType) IsValid() bool {
	return t >= AttributeTypeBool && t <= AttributeTypeLocation
}

// Ordered reports whether values of t have a natural order.
func (t AttributeType) Ordered() bool {
	switch t {
	case AttributeTypeBool, AttributeTypeInt, AttributeTypeFloat, AttributeTypeString:
		return true
	default:
		return false
	}
}

// Value is a typed attribute value. The zero Value has type
// AttributeTypeUnknown and is never valid in a Description.
//
// Values are comparable with ==; two values are equal only when both the
// type and the payload match.
type Value struct {
	typ AttributeType
	i   int64
	f   float64
	b   bool
	s   string
	loc Location
}

func IntValue(v int64) Value         { return Value{typ: AttributeTypeInt, i: v} }
func FloatValue(v float64) Value     { return Value{typ: AttributeTypeFloat, f: v} }
func BoolValue(v bool) Value         { return Value{typ: AttributeTypeBool, b: v} }
func StringValue(v string) Value     { return Value{typ: AttributeTypeString, s: v} }
func LocationValue(v Location) Value { return Value{typ: AttributeTypeLocation, loc: v} }

// Type returns the value's attribute type.
func (v Value) Type() AttributeType { return v.typ }

// IsValid reports whether v carries a payload.
func (v Value) IsValid() bool { return v.typ.IsValid() }

func (v Value) Int() int64         { return v.i }
func (v Value) Float() float64     { return v.f }
func (v Value) Bool() bool         { return v.b }
func (v Value) Text() string       { return v.s }
func (v Value) Location() Location { return v.loc }

// Compare orders v against o. ok is false when the two values have
// different types or the type has no natural order.
func (v Value) Compare(o Value) (c int, ok bool) {
	if v.typ != o.typ {
		return 0, false
	}
	switch v.typ {
	case AttributeTypeInt:
		return cmp.Compare(v.i, o.i), true
	case AttributeTypeFloat:
		return cmp.Compare(v.f, o.f), true
	case AttributeTypeString:
		return cmp.Compare(v.s, o.s), true
	case AttributeTypeBool:
		switch {
		case v.b == o.b:
			return 0, true
		case !v.b:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.typ {
	case AttributeTypeInt:
		return strconv.FormatInt(v.i, 10)
	case AttributeTypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case AttributeTypeBool:
		return strconv.FormatBool(v.b)
	case AttributeTypeString:
		return strconv.Quote(v.s)
	case AttributeTypeLocation:
		return v.loc.String()
	default:
		return "<invalid>"
	}
}

// GoString makes %#v output readable in test failures.
func (v Value) GoString() string {
	return fmt.Sprintf("%s(%s)", v.typ, v)
}
