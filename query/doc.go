// Package query implements the constraint-expression language used to
// search agent and service descriptions.
//
// A Query is a non-empty list of ConstraintExpr values combined with AND.
// Expressions are a closed sum type (Constraint, And, Or, Not) and each
// Constraint applies a ConstraintType (Relation, Range, Set, Distance) to
// one named attribute. Queries are validated when built: structural errors
// and incompatibilities with the attached DataModel are reported by
// NewQuery rather than at match time.
package query
