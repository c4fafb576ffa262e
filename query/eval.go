package query

import (
	"slices"

	"github.com/BaSui01/oef-go/schema"
)

// Check evaluates expr against a description.
func Check(expr ConstraintExpr, d *schema.Description) bool {
	switch e := expr.(type) {
	case Constraint:
		return checkConstraint(e, d)
	case And:
		for _, sub := range e.Exprs {
			if !Check(sub, d) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range e.Exprs {
			if Check(sub, d) {
				return true
			}
		}
		return false
	case Not:
		return !Check(e.Expr, d)
	default:
		return false
	}
}

func checkConstraint(c Constraint, d *schema.Description) bool {
	if d == nil {
		return false
	}
	v, ok := d.Values[c.Attribute]
	if !ok {
		return false
	}
	if want, typed := c.Type.ValueType(); typed && v.Type() != want {
		return false
	}
	return CheckValue(c.Type, v)
}

// CheckValue applies a constraint type to a single value.
func CheckValue(t ConstraintType, v schema.Value) bool {
	switch ct := t.(type) {
	case Relation:
		return checkRelation(ct, v)
	case Range:
		return checkRange(ct, v)
	case Set:
		return checkSet(ct, v)
	case Distance:
		return checkDistance(ct, v)
	default:
		return false
	}
}

func checkRelation(r Relation, v schema.Value) bool {
	switch r.Op {
	case OpEq:
		return v == r.Value
	case OpNotEq:
		return v != r.Value
	}

	c, ok := v.Compare(r.Value)
	if !ok {
		return false
	}
	switch r.Op {
	case OpLt:
		return c < 0
	case OpLtEq:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGtEq:
		return c >= 0
	default:
		return false
	}
}

func checkRange(r Range, v schema.Value) bool {
	lo, ok := r.Low.Compare(v)
	if !ok || lo > 0 {
		return false
	}
	hi, ok := v.Compare(r.High)
	return ok && hi <= 0
}

func checkSet(s Set, v schema.Value) bool {
	found := slices.Contains(s.Values, v)
	if s.Op == SetNotIn {
		return !found
	}
	return found
}

func checkDistance(dist Distance, v schema.Value) bool {
	if v.Type() != schema.AttributeTypeLocation {
		return false
	}
	return dist.Center.Distance(v.Location()) <= dist.MaxKm
}

// IsValid reports whether expr only references attributes of model, with
// the types its constraints expect.
func IsValid(expr ConstraintExpr, model *schema.DataModel) bool {
	switch e := expr.(type) {
	case Constraint:
		attr, ok := model.Attribute(e.Attribute)
		if !ok {
			return false
		}
		want, typed := e.Type.ValueType()
		return !typed || want == attr.Type
	case And:
		return allValid(e.Exprs, model)
	case Or:
		return allValid(e.Exprs, model)
	case Not:
		return IsValid(e.Expr, model)
	default:
		return false
	}
}

func allValid(exprs []ConstraintExpr, model *schema.DataModel) bool {
	for _, sub := range exprs {
		if !IsValid(sub, model) {
			return false
		}
	}
	return true
}
