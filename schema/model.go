package schema

import (
	"fmt"
	"slices"
	"sort"
)

// AttributeSchema declares one attribute of a DataModel.
type AttributeSchema struct {
	Name        string        `json:"name"`
	Type        AttributeType `json:"type"`
	Required    bool          `json:"required"`
	Description string        `json:"description,omitempty"`
}

// Equal compares name, type and requiredness. The free-text description
// does not take part in equality.
func (a AttributeSchema) Equal(o AttributeSchema) bool {
	return a.Name == o.Name && a.Type == o.Type && a.Required == o.Required
}

// DataModel is a named, ordered set of attribute schemas.
type DataModel struct {
	Name        string            `json:"name"`
	Attributes  []AttributeSchema `json:"attributes"`
	Description string            `json:"description,omitempty"`
}

// NewDataModel copies attributes and rejects duplicate names or unknown types.
func NewDataModel(name string, attributes []AttributeSchema, description string) (*DataModel, error) {
	seen := make(map[string]struct{}, len(attributes))
	for _, a := range attributes {
		if _, ok := seen[a.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAttribute, a.Name)
		}
		if !a.Type.IsValid() {
			return nil, fmt.Errorf("%w: attribute %q", ErrInvalidType, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	var attrs []AttributeSchema
	if len(attributes) > 0 {
		attrs = slices.Clone(attributes)
	}
	return &DataModel{Name: name, Attributes: attrs, Description: description}, nil
}

// Attribute looks up an attribute schema by name.
func (m *DataModel) Attribute(name string) (AttributeSchema, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeSchema{}, false
}

// Equal compares model names and attributes, in order.
func (m *DataModel) Equal(o *DataModel) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.Name == o.Name && slices.EqualFunc(m.Attributes, o.Attributes, AttributeSchema.Equal)
}

// GenerateModel synthesizes a model from a set of values. Every attribute
// is required and attributes are ordered by name.
func GenerateModel(name string, values map[string]Value) *DataModel {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	var attrs []AttributeSchema
	for _, k := range names {
		attrs = append(attrs, AttributeSchema{Name: k, Type: values[k].Type(), Required: true})
	}
	return &DataModel{Name: name, Attributes: attrs}
}
