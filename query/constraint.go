package query

import (
	"fmt"

	"github.com/BaSui01/oef-go/schema"
)

// RelationOp is a binary comparison operator. The numeric values are the
// wire enumeration.
type RelationOp int

const (
	OpEq RelationOp = iota
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpNotEq
)

func (op RelationOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	case OpNotEq:
		return "!="
	default:
		return fmt.Sprintf("RelationOp(%d)", int(op))
	}
}

// SetOp selects membership or non-membership.
type SetOp int

const (
	SetIn SetOp = iota
	SetNotIn
)

// ConstraintType is the test a Constraint applies to an attribute value.
// It is one of Relation, Range, Set or Distance.
type ConstraintType interface {
	// ValueType returns the attribute type the constraint expects. ok is
	// false when any type is accepted.
	ValueType() (t schema.AttributeType, ok bool)

	isConstraintType()
}

// Relation compares the attribute value with Value.
type Relation struct {
	Op    RelationOp
	Value schema.Value
}

func Eq(v schema.Value) Relation    { return Relation{Op: OpEq, Value: v} }
func NotEq(v schema.Value) Relation { return Relation{Op: OpNotEq, Value: v} }
func Lt(v schema.Value) Relation    { return Relation{Op: OpLt, Value: v} }
func LtEq(v schema.Value) Relation  { return Relation{Op: OpLtEq, Value: v} }
func Gt(v schema.Value) Relation    { return Relation{Op: OpGt, Value: v} }
func GtEq(v schema.Value) Relation  { return Relation{Op: OpGtEq, Value: v} }

func (r Relation) ValueType() (schema.AttributeType, bool) {
	if r.Op == OpEq || r.Op == OpNotEq {
		return schema.AttributeTypeUnknown, false
	}
	return r.Value.Type(), true
}

// Range matches values in the closed interval [Low, High].
type Range struct {
	Low  schema.Value
	High schema.Value
}

func NewRange(low, high schema.Value) Range { return Range{Low: low, High: high} }

func (r Range) ValueType() (schema.AttributeType, bool) { return r.Low.Type(), true }

// Set tests membership of the attribute value in Values.
type Set struct {
	Op     SetOp
	Values []schema.Value
}

func In(values ...schema.Value) Set    { return Set{Op: SetIn, Values: values} }
func NotIn(values ...schema.Value) Set { return Set{Op: SetNotIn, Values: values} }

func (s Set) ValueType() (schema.AttributeType, bool) {
	if len(s.Values) == 0 {
		return schema.AttributeTypeUnknown, false
	}
	return s.Values[0].Type(), true
}

// Distance matches locations within MaxKm of Center.
type Distance struct {
	Center schema.Location
	MaxKm  float64
}

func NewDistance(center schema.Location, maxKm float64) Distance {
	return Distance{Center: center, MaxKm: maxKm}
}

func (Distance) ValueType() (schema.AttributeType, bool) { return schema.AttributeTypeLocation, true }

func (Relation) isConstraintType() {}
func (Range) isConstraintType()    {}
func (Set) isConstraintType()      {}
func (Distance) isConstraintType() {}

// ConstraintExpr is a node of a constraint tree: Constraint, And, Or or Not.
type ConstraintExpr interface {
	isConstraintExpr()
}

// Constraint applies Type to the attribute named Attribute.
type Constraint struct {
	Attribute string
	Type      ConstraintType
}

func NewConstraint(attribute string, t ConstraintType) Constraint {
	return Constraint{Attribute: attribute, Type: t}
}

// And matches when every sub-expression matches.
type And struct {
	Exprs []ConstraintExpr
}

// NewAnd requires at least two sub-expressions.
func NewAnd(exprs ...ConstraintExpr) (And, error) {
	if len(exprs) < 2 {
		return And{}, fmt.Errorf("%w: and has %d", ErrTooFewOperands, len(exprs))
	}
	return And{Exprs: exprs}, nil
}

// Or matches when any sub-expression matches.
type Or struct {
	Exprs []ConstraintExpr
}

// NewOr requires at least two sub-expressions.
func NewOr(exprs ...ConstraintExpr) (Or, error) {
	if len(exprs) < 2 {
		return Or{}, fmt.Errorf("%w: or has %d", ErrTooFewOperands, len(exprs))
	}
	return Or{Exprs: exprs}, nil
}

// Not negates Expr.
type Not struct {
	Expr ConstraintExpr
}

func NewNot(expr ConstraintExpr) Not { return Not{Expr: expr} }

func (Constraint) isConstraintExpr() {}
func (And) isConstraintExpr()        {}
func (Or) isConstraintExpr()         {}
func (Not) isConstraintExpr()        {}
