package query

import "errors"

var (
	ErrTooFewOperands    = errors.New("query: and/or needs at least 2 sub-expressions")
	ErrEmptyQuery        = errors.New("query: at least one constraint is required")
	ErrIncompatibleModel = errors.New("query: constraints are not valid for the data model")
	ErrInvalidConstraint = errors.New("query: invalid constraint")
)
