package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistentDescription is matched by every AttributeInconsistencyError.
	ErrInconsistentDescription = errors.New("schema: attribute inconsistency")

	ErrDuplicateAttribute = errors.New("schema: duplicate attribute name")
	ErrInvalidLocation    = errors.New("schema: invalid location")
	ErrInvalidType        = errors.New("schema: invalid attribute type")
)

// AttributeInconsistencyError reports a Description whose values do not
// agree with its DataModel.
type AttributeInconsistencyError struct {
	Attribute string
	Reason    string
}

func (e *AttributeInconsistencyError) Error() string {
	return fmt.Sprintf("schema: attribute %q: %s", e.Attribute, e.Reason)
}

func (e *AttributeInconsistencyError) Unwrap() error {
	return ErrInconsistentDescription
}
