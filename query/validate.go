package query

import (
	"fmt"
	"math"

	"github.com/BaSui01/oef-go/schema"
)

// Validate checks the structure of expr independently of any model.
func Validate(expr ConstraintExpr) error {
	switch e := expr.(type) {
	case Constraint:
		if e.Attribute == "" {
			return fmt.Errorf("%w: empty attribute name", ErrInvalidConstraint)
		}
		if err := validateType(e.Type); err != nil {
			return fmt.Errorf("attribute %q: %w", e.Attribute, err)
		}
		return nil
	case And:
		return validateList("and", e.Exprs)
	case Or:
		return validateList("or", e.Exprs)
	case Not:
		if e.Expr == nil {
			return fmt.Errorf("%w: not without operand", ErrInvalidConstraint)
		}
		return Validate(e.Expr)
	case nil:
		return fmt.Errorf("%w: nil expression", ErrInvalidConstraint)
	default:
		return fmt.Errorf("%w: unsupported expression %T", ErrInvalidConstraint, expr)
	}
}

func validateList(kind string, exprs []ConstraintExpr) error {
	if len(exprs) < 2 {
		return fmt.Errorf("%w: %s has %d", ErrTooFewOperands, kind, len(exprs))
	}
	for _, sub := range exprs {
		if err := Validate(sub); err != nil {
			return err
		}
	}
	return nil
}

func validateType(t ConstraintType) error {
	switch ct := t.(type) {
	case Relation:
		if !ct.Value.IsValid() {
			return fmt.Errorf("%w: relation without value", ErrInvalidConstraint)
		}
		if ct.Op < OpEq || ct.Op > OpNotEq {
			return fmt.Errorf("%w: unknown operator %d", ErrInvalidConstraint, int(ct.Op))
		}
		if ct.Op != OpEq && ct.Op != OpNotEq && !ct.Value.Type().Ordered() {
			return fmt.Errorf("%w: %s is not ordered for %s", ErrInvalidConstraint, ct.Op, ct.Value.Type())
		}
	case Range:
		switch ct.Low.Type() {
		case schema.AttributeTypeInt, schema.AttributeTypeFloat, schema.AttributeTypeString:
		default:
			return fmt.Errorf("%w: range over %s", ErrInvalidConstraint, ct.Low.Type())
		}
		if ct.Low.Type() != ct.High.Type() {
			return fmt.Errorf("%w: range bounds %s and %s", ErrInvalidConstraint, ct.Low.Type(), ct.High.Type())
		}
	case Set:
		if ct.Op != SetIn && ct.Op != SetNotIn {
			return fmt.Errorf("%w: unknown set operator %d", ErrInvalidConstraint, int(ct.Op))
		}
		for _, v := range ct.Values {
			if !v.IsValid() || v.Type() != ct.Values[0].Type() {
				return fmt.Errorf("%w: set values must share one type", ErrInvalidConstraint)
			}
		}
	case Distance:
		if err := ct.Center.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConstraint, err)
		}
		if math.IsNaN(ct.MaxKm) || ct.MaxKm < 0 {
			return fmt.Errorf("%w: negative distance %v", ErrInvalidConstraint, ct.MaxKm)
		}
	case nil:
		return fmt.Errorf("%w: missing constraint type", ErrInvalidConstraint)
	default:
		return fmt.Errorf("%w: unsupported constraint type %T", ErrInvalidConstraint, t)
	}
	return nil
}
