package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

// Relation{op=1, value=2}
func appendRelation(b []byte, r query.Relation) []byte {
	b = appendVarintField(b, 1, uint64(r.Op))
	return appendMessage(b, 2, func(b []byte) []byte { return appendValue(b, r.Value) })
}

func decodeRelation(b []byte) (query.Relation, error) {
	var r query.Relation
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			u, n, err := consumeVarint(num, typ, b)
			r.Op = query.RelationOp(u)
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			r.Value, err = decodeValue(raw)
			return n, err
		}
		return 0, nil
	})
	return r, err
}

// Range{s=1 | i=2 | d=3}, each a pair {first=1, second=2}.
func appendRange(b []byte, r query.Range) []byte {
	switch r.Low.Type() {
	case schema.AttributeTypeString:
		return appendMessage(b, 1, func(b []byte) []byte {
			b = appendStringField(b, 1, r.Low.Text())
			return appendStringField(b, 2, r.High.Text())
		})
	case schema.AttributeTypeInt:
		return appendMessage(b, 2, func(b []byte) []byte {
			b = appendVarintField(b, 1, uint64(r.Low.Int()))
			return appendVarintField(b, 2, uint64(r.High.Int()))
		})
	case schema.AttributeTypeFloat:
		return appendMessage(b, 3, func(b []byte) []byte {
			b = appendDoubleField(b, 1, r.Low.Float())
			return appendDoubleField(b, 2, r.High.Float())
		})
	default:
		return b
	}
}

func decodePair(b []byte, kind protowire.Number) (lo, hi schema.Value, err error) {
	err = walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 && num != 2 {
			return 0, nil
		}
		var (
			v   schema.Value
			n   int
			err error
		)
		switch kind {
		case 1:
			var s string
			s, n, err = consumeString(num, typ, b)
			v = schema.StringValue(s)
		case 2:
			var u uint64
			u, n, err = consumeVarint(num, typ, b)
			v = schema.IntValue(int64(u))
		case 3:
			var f float64
			f, n, err = consumeDouble(num, typ, b)
			v = schema.FloatValue(f)
		}
		if num == 1 {
			lo = v
		} else {
			hi = v
		}
		return n, err
	})
	if err == nil && (!lo.IsValid() || !hi.IsValid()) {
		err = fmt.Errorf("%w: incomplete range", ErrMalformed)
	}
	return lo, hi, err
}

func decodeRange(b []byte) (query.Range, error) {
	var (
		r     query.Range
		found bool
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < 1 || num > 3 {
			return 0, nil
		}
		raw, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, err
		}
		r.Low, r.High, err = decodePair(raw, num)
		found = true
		return n, err
	})
	if err == nil && !found {
		err = fmt.Errorf("%w: empty range", ErrMalformed)
	}
	return r, err
}

// Set{op=1, values=2}; values is {s=1 | d=2 | b=3 | i=4 | l=5}, each a
// list message with repeated field 1.
func appendSet(b []byte, s query.Set) []byte {
	b = appendVarintField(b, 1, uint64(s.Op))
	return appendMessage(b, 2, func(b []byte) []byte {
		if len(s.Values) == 0 {
			return b
		}
		var kind protowire.Number
		switch s.Values[0].Type() {
		case schema.AttributeTypeString:
			kind = 1
		case schema.AttributeTypeFloat:
			kind = 2
		case schema.AttributeTypeBool:
			kind = 3
		case schema.AttributeTypeInt:
			kind = 4
		case schema.AttributeTypeLocation:
			kind = 5
		default:
			return b
		}
		return appendMessage(b, kind, func(b []byte) []byte {
			for _, v := range s.Values {
				switch kind {
				case 1:
					b = appendStringField(b, 1, v.Text())
				case 2:
					b = appendDoubleField(b, 1, v.Float())
				case 3:
					b = appendBoolField(b, 1, v.Bool())
				case 4:
					b = appendVarintField(b, 1, uint64(v.Int()))
				case 5:
					b = appendMessage(b, 1, func(b []byte) []byte { return appendLocation(b, v.Location()) })
				}
			}
			return b
		})
	})
}

func decodeSetValues(b []byte, kind protowire.Number) ([]schema.Value, error) {
	var values []schema.Value
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		switch kind {
		case 1:
			s, n, err := consumeString(num, typ, b)
			values = append(values, schema.StringValue(s))
			return n, err
		case 2:
			f, n, err := consumeDouble(num, typ, b)
			values = append(values, schema.FloatValue(f))
			return n, err
		case 3:
			u, n, err := consumeVarint(num, typ, b)
			values = append(values, schema.BoolValue(protowire.DecodeBool(u)))
			return n, err
		case 4:
			u, n, err := consumeVarint(num, typ, b)
			values = append(values, schema.IntValue(int64(u)))
			return n, err
		default:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			l, err := decodeLocation(raw)
			values = append(values, schema.LocationValue(l))
			return n, err
		}
	})
	return values, err
}

func decodeSet(b []byte) (query.Set, error) {
	var s query.Set
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			u, n, err := consumeVarint(num, typ, b)
			s.Op = query.SetOp(u)
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			err = walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num < 1 || num > 5 {
					return 0, nil
				}
				list, n, err := consumeBytes(num, typ, b)
				if err != nil {
					return 0, err
				}
				s.Values, err = decodeSetValues(list, num)
				return n, err
			})
			return n, err
		}
		return 0, nil
	})
	return s, err
}

// Distance{center=1, distance=2}
func appendDistance(b []byte, d query.Distance) []byte {
	b = appendMessage(b, 1, func(b []byte) []byte { return appendLocation(b, d.Center) })
	return appendDoubleField(b, 2, d.MaxKm)
}

func decodeDistance(b []byte) (query.Distance, error) {
	var d query.Distance
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			d.Center, err = decodeLocation(raw)
			return n, err
		case 2:
			f, n, err := consumeDouble(num, typ, b)
			d.MaxKm = f
			return n, err
		}
		return 0, nil
	})
	return d, err
}

// ConstraintType{set=1 | range=2 | relation=3 | distance=4}
func appendConstraintType(b []byte, t query.ConstraintType) []byte {
	switch ct := t.(type) {
	case query.Set:
		return appendMessage(b, 1, func(b []byte) []byte { return appendSet(b, ct) })
	case query.Range:
		return appendMessage(b, 2, func(b []byte) []byte { return appendRange(b, ct) })
	case query.Relation:
		return appendMessage(b, 3, func(b []byte) []byte { return appendRelation(b, ct) })
	case query.Distance:
		return appendMessage(b, 4, func(b []byte) []byte { return appendDistance(b, ct) })
	default:
		return b
	}
}

func decodeConstraintType(b []byte) (query.ConstraintType, error) {
	var t query.ConstraintType
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < 1 || num > 4 {
			return 0, nil
		}
		raw, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			t, err = decodeSet(raw)
		case 2:
			t, err = decodeRange(raw)
		case 3:
			t, err = decodeRelation(raw)
		case 4:
			t, err = decodeDistance(raw)
		}
		return n, err
	})
	if err == nil && t == nil {
		err = fmt.Errorf("%w: constraint type", ErrUnknownPayload)
	}
	return t, err
}

// ConstraintExpr{or=1 | and=2 | not=3 | constraint=4}. And/Or hold
// repeated expr=1, Not holds expr=1, Constraint is
// {attribute_name=1, constraint=2}.
func appendConstraintExpr(b []byte, e query.ConstraintExpr) []byte {
	switch ce := e.(type) {
	case query.Or:
		return appendMessage(b, 1, func(b []byte) []byte { return appendExprList(b, ce.Exprs) })
	case query.And:
		return appendMessage(b, 2, func(b []byte) []byte { return appendExprList(b, ce.Exprs) })
	case query.Not:
		return appendMessage(b, 3, func(b []byte) []byte {
			return appendMessage(b, 1, func(b []byte) []byte { return appendConstraintExpr(b, ce.Expr) })
		})
	case query.Constraint:
		return appendMessage(b, 4, func(b []byte) []byte {
			b = appendStringField(b, 1, ce.Attribute)
			return appendMessage(b, 2, func(b []byte) []byte { return appendConstraintType(b, ce.Type) })
		})
	default:
		return b
	}
}

func appendExprList(b []byte, exprs []query.ConstraintExpr) []byte {
	for _, sub := range exprs {
		b = appendMessage(b, 1, func(b []byte) []byte { return appendConstraintExpr(b, sub) })
	}
	return b
}

func decodeExprList(b []byte) ([]query.ConstraintExpr, error) {
	var exprs []query.ConstraintExpr
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		raw, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, err
		}
		e, err := decodeConstraintExpr(raw)
		exprs = append(exprs, e)
		return n, err
	})
	return exprs, err
}

func decodeConstraint(b []byte) (query.Constraint, error) {
	var c query.Constraint
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeString(num, typ, b)
			c.Attribute = s
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			c.Type, err = decodeConstraintType(raw)
			return n, err
		}
		return 0, nil
	})
	return c, err
}

func decodeConstraintExpr(b []byte) (query.ConstraintExpr, error) {
	var e query.ConstraintExpr
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num < 1 || num > 4 {
			return 0, nil
		}
		raw, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			var exprs []query.ConstraintExpr
			exprs, err = decodeExprList(raw)
			e = query.Or{Exprs: exprs}
		case 2:
			var exprs []query.ConstraintExpr
			exprs, err = decodeExprList(raw)
			e = query.And{Exprs: exprs}
		case 3:
			var exprs []query.ConstraintExpr
			exprs, err = decodeExprList(raw)
			if err == nil && len(exprs) != 1 {
				err = fmt.Errorf("%w: not needs one operand", ErrMalformed)
			}
			if err == nil {
				e = query.Not{Expr: exprs[0]}
			}
		case 4:
			e, err = decodeConstraint(raw)
		}
		return n, err
	})
	if err == nil && e == nil {
		err = fmt.Errorf("%w: constraint expression", ErrUnknownPayload)
	}
	return e, err
}

// Query{constraints=1, model=2}
func appendQuery(b []byte, q *query.Query) []byte {
	for _, c := range q.Constraints {
		b = appendMessage(b, 1, func(b []byte) []byte { return appendConstraintExpr(b, c) })
	}
	if q.Model != nil {
		b = appendMessage(b, 2, func(b []byte) []byte { return appendDataModel(b, q.Model) })
	}
	return b
}

func decodeQuery(b []byte) (*query.Query, error) {
	var (
		constraints []query.ConstraintExpr
		model       *schema.DataModel
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			c, err := decodeConstraintExpr(raw)
			constraints = append(constraints, c)
			return n, err
		case 2:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			model, err = decodeDataModel(raw)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	q, err := query.NewQuery(constraints, model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return q, nil
}

// MarshalQuery encodes a query as a standalone message.
func MarshalQuery(q *query.Query) ([]byte, error) {
	if q == nil {
		return nil, ErrNilPayload
	}
	return appendQuery(nil, q), nil
}

// UnmarshalQuery decodes and validates a query.
func UnmarshalQuery(b []byte) (*query.Query, error) {
	return decodeQuery(b)
}

// MarshalConstraintExpr encodes a single constraint expression.
func MarshalConstraintExpr(e query.ConstraintExpr) ([]byte, error) {
	if e == nil {
		return nil, ErrNilPayload
	}
	return appendConstraintExpr(nil, e), nil
}

// UnmarshalConstraintExpr decodes a single constraint expression without
// validating it.
func UnmarshalConstraintExpr(b []byte) (query.ConstraintExpr, error) {
	return decodeConstraintExpr(b)
}
