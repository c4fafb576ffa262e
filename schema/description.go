package schema

import (
	"fmt"
	"maps"
)

// Description is a bag of typed values consistent with its DataModel.
type Description struct {
	Values map[string]Value `json:"values"`
	Model  *DataModel       `json:"model"`
}

// NewDescription copies values and checks them against model. When model
// is nil a model is generated from the values.
func NewDescription(values map[string]Value, model *DataModel) (*Description, error) {
	vals := maps.Clone(values)
	if vals == nil {
		vals = make(map[string]Value)
	}
	for name, v := range vals {
		if !v.IsValid() {
			return nil, &AttributeInconsistencyError{Attribute: name, Reason: "value has no type"}
		}
	}
	if model == nil {
		model = GenerateModel("", vals)
	}
	if err := checkConsistency(vals, model); err != nil {
		return nil, err
	}
	return &Description{Values: vals, Model: model}, nil
}

func checkConsistency(values map[string]Value, model *DataModel) error {
	for _, attr := range model.Attributes {
		v, ok := values[attr.Name]
		if !ok {
			if attr.Required {
				return &AttributeInconsistencyError{Attribute: attr.Name, Reason: "missing required attribute"}
			}
			continue
		}
		if v.Type() != attr.Type {
			return &AttributeInconsistencyError{
				Attribute: attr.Name,
				Reason:    fmt.Sprintf("incorrect type: have %s, want %s", v.Type(), attr.Type),
			}
		}
	}
	for name := range values {
		if _, ok := model.Attribute(name); !ok {
			return &AttributeInconsistencyError{Attribute: name, Reason: "attribute not in schema"}
		}
	}
	return nil
}

// Value returns the named value.
func (d *Description) Value(name string) (Value, bool) {
	v, ok := d.Values[name]
	return v, ok
}

// Equal compares values and models.
func (d *Description) Equal(o *Description) bool {
	if d == nil || o == nil {
		return d == o
	}
	return maps.Equal(d.Values, o.Values) && d.Model.Equal(o.Model)
}
