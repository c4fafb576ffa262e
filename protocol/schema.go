package protocol

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BaSui01/oef-go/schema"
)

// Attribute type enumeration on the wire.
const (
	wireTypeBool     = 0
	wireTypeInt      = 1
	wireTypeDouble   = 2
	wireTypeString   = 3
	wireTypeLocation = 4
)

func attributeTypeToWire(t schema.AttributeType) uint64 {
	switch t {
	case schema.AttributeTypeInt:
		return wireTypeInt
	case schema.AttributeTypeFloat:
		return wireTypeDouble
	case schema.AttributeTypeString:
		return wireTypeString
	case schema.AttributeTypeLocation:
		return wireTypeLocation
	default:
		return wireTypeBool
	}
}

func attributeTypeFromWire(v uint64) (schema.AttributeType, error) {
	switch v {
	case wireTypeBool:
		return schema.AttributeTypeBool, nil
	case wireTypeInt:
		return schema.AttributeTypeInt, nil
	case wireTypeDouble:
		return schema.AttributeTypeFloat, nil
	case wireTypeString:
		return schema.AttributeTypeString, nil
	case wireTypeLocation:
		return schema.AttributeTypeLocation, nil
	default:
		return schema.AttributeTypeUnknown, fmt.Errorf("%w: attribute type %d", ErrMalformed, v)
	}
}

// Location{lat=1, lon=2}
func appendLocation(b []byte, l schema.Location) []byte {
	b = appendDoubleField(b, 1, l.Latitude)
	return appendDoubleField(b, 2, l.Longitude)
}

func decodeLocation(b []byte) (schema.Location, error) {
	var l schema.Location
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var (
			f   float64
			n   int
			err error
		)
		switch num {
		case 1:
			f, n, err = consumeDouble(num, typ, b)
			l.Latitude = f
		case 2:
			f, n, err = consumeDouble(num, typ, b)
			l.Longitude = f
		}
		return n, err
	})
	if err != nil {
		return schema.Location{}, err
	}
	return l, nil
}

// Value{s=1 | b=2 | i=3 | d=4 | l=5}
func appendValue(b []byte, v schema.Value) []byte {
	switch v.Type() {
	case schema.AttributeTypeString:
		return appendStringField(b, 1, v.Text())
	case schema.AttributeTypeBool:
		return appendBoolField(b, 2, v.Bool())
	case schema.AttributeTypeInt:
		return appendVarintField(b, 3, uint64(v.Int()))
	case schema.AttributeTypeFloat:
		return appendDoubleField(b, 4, v.Float())
	case schema.AttributeTypeLocation:
		return appendMessage(b, 5, func(b []byte) []byte { return appendLocation(b, v.Location()) })
	default:
		return b
	}
}

func decodeValue(b []byte) (schema.Value, error) {
	var v schema.Value
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(num, typ, b)
			v = schema.StringValue(s)
			return n, err
		case 2:
			u, n, err := consumeVarint(num, typ, b)
			v = schema.BoolValue(protowire.DecodeBool(u))
			return n, err
		case 3:
			u, n, err := consumeVarint(num, typ, b)
			v = schema.IntValue(int64(u))
			return n, err
		case 4:
			f, n, err := consumeDouble(num, typ, b)
			v = schema.FloatValue(f)
			return n, err
		case 5:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			l, err := decodeLocation(raw)
			v = schema.LocationValue(l)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return schema.Value{}, err
	}
	if !v.IsValid() {
		return schema.Value{}, fmt.Errorf("%w: value without payload", ErrMalformed)
	}
	return v, nil
}

// Attribute{name=1, type=2, required=3, description=4}
func appendAttribute(b []byte, a schema.AttributeSchema) []byte {
	b = appendStringField(b, 1, a.Name)
	b = appendVarintField(b, 2, attributeTypeToWire(a.Type))
	b = appendBoolField(b, 3, a.Required)
	if a.Description != "" {
		b = appendStringField(b, 4, a.Description)
	}
	return b
}

func decodeAttribute(b []byte) (schema.AttributeSchema, error) {
	var a schema.AttributeSchema
	a.Type = schema.AttributeTypeBool
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(num, typ, b)
			a.Name = s
			return n, err
		case 2:
			u, n, err := consumeVarint(num, typ, b)
			if err != nil {
				return 0, err
			}
			a.Type, err = attributeTypeFromWire(u)
			return n, err
		case 3:
			u, n, err := consumeVarint(num, typ, b)
			a.Required = protowire.DecodeBool(u)
			return n, err
		case 4:
			s, n, err := consumeString(num, typ, b)
			a.Description = s
			return n, err
		}
		return 0, nil
	})
	return a, err
}

// DataModel{name=1, attributes=2, description=3}
func appendDataModel(b []byte, m *schema.DataModel) []byte {
	b = appendStringField(b, 1, m.Name)
	for _, a := range m.Attributes {
		b = appendMessage(b, 2, func(b []byte) []byte { return appendAttribute(b, a) })
	}
	if m.Description != "" {
		b = appendStringField(b, 3, m.Description)
	}
	return b
}

func decodeDataModel(b []byte) (*schema.DataModel, error) {
	var (
		name, description string
		attrs             []schema.AttributeSchema
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(num, typ, b)
			name = s
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			a, err := decodeAttribute(raw)
			attrs = append(attrs, a)
			return n, err
		case 3:
			s, n, err := consumeString(num, typ, b)
			description = s
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	m, err := schema.NewDataModel(name, attrs, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return m, nil
}

// Instance{model=1, values=2 KeyValue{key=1, value=2}}
func appendDescription(b []byte, d *schema.Description) []byte {
	b = appendMessage(b, 1, func(b []byte) []byte { return appendDataModel(b, d.Model) })

	keys := make([]string, 0, len(d.Values))
	for k := range d.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := d.Values[k]
		b = appendMessage(b, 2, func(b []byte) []byte {
			b = appendStringField(b, 1, k)
			return appendMessage(b, 2, func(b []byte) []byte { return appendValue(b, v) })
		})
	}
	return b
}

func decodeKeyValue(b []byte) (string, schema.Value, error) {
	var (
		key string
		val schema.Value
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(num, typ, b)
			key = s
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			val, err = decodeValue(raw)
			return n, err
		}
		return 0, nil
	})
	return key, val, err
}

func decodeDescription(b []byte) (*schema.Description, error) {
	var model *schema.DataModel
	values := make(map[string]schema.Value)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			model, err = decodeDataModel(raw)
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			k, v, err := decodeKeyValue(raw)
			values[k] = v
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	d, err := schema.NewDescription(values, model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return d, nil
}

// MarshalDescription encodes a description as a standalone message.
func MarshalDescription(d *schema.Description) ([]byte, error) {
	if d == nil || d.Model == nil {
		return nil, ErrNilPayload
	}
	return appendDescription(nil, d), nil
}

// UnmarshalDescription decodes and validates a description.
func UnmarshalDescription(b []byte) (*schema.Description, error) {
	return decodeDescription(b)
}

// MarshalDataModel encodes a data model as a standalone message.
func MarshalDataModel(m *schema.DataModel) ([]byte, error) {
	if m == nil {
		return nil, ErrNilPayload
	}
	return appendDataModel(nil, m), nil
}

// UnmarshalDataModel decodes a data model.
func UnmarshalDataModel(b []byte) (*schema.DataModel, error) {
	return decodeDataModel(b)
}
