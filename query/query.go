package query

import (
	"fmt"
	"slices"

	"github.com/BaSui01/oef-go/schema"
)

// Query is a conjunction of constraint expressions, optionally bound to the
// DataModel it was written against.
type Query struct {
	Constraints []ConstraintExpr
	Model       *schema.DataModel
}

// NewQuery validates constraints and, when model is not nil, their
// compatibility with it.
func NewQuery(constraints []ConstraintExpr, model *schema.DataModel) (*Query, error) {
	if len(constraints) == 0 {
		return nil, ErrEmptyQuery
	}
	for i, c := range constraints {
		if err := Validate(c); err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
	}

	q := &Query{Constraints: slices.Clone(constraints), Model: model}
	if model != nil && !q.IsValid(model) {
		return nil, fmt.Errorf("%w: model %q", ErrIncompatibleModel, model.Name)
	}
	return q, nil
}

// Check reports whether d satisfies every constraint.
func (q *Query) Check(d *schema.Description) bool {
	for _, c := range q.Constraints {
		if !Check(c, d) {
			return false
		}
	}
	return true
}

// IsValid reports whether every constraint is valid for model.
func (q *Query) IsValid(model *schema.DataModel) bool {
	return allValid(q.Constraints, model)
}
