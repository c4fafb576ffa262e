package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/oef-go/schema"
)

func bookModel(t *testing.T) *schema.DataModel {
	t.Helper()
	m, err := schema.NewDataModel("book", []schema.AttributeSchema{
		{Name: "title", Type: schema.AttributeTypeString, Required: true},
		{Name: "author", Type: schema.AttributeTypeString, Required: true},
		{Name: "year", Type: schema.AttributeTypeInt, Required: true},
		{Name: "rating", Type: schema.AttributeTypeFloat, Required: false},
		{Name: "ebook", Type: schema.AttributeTypeBool, Required: false},
		{Name: "shop", Type: schema.AttributeTypeLocation, Required: false},
	}, "a book for sale")
	require.NoError(t, err)
	return m
}

func mustDescription(t *testing.T, values map[string]schema.Value, model *schema.DataModel) *schema.Description {
	t.Helper()
	d, err := schema.NewDescription(values, model)
	require.NoError(t, err)
	return d
}

func TestConstraint_Check(t *testing.T) {
	model := bookModel(t)
	cambridge := schema.Location{Latitude: 52.205, Longitude: 0.1218}
	london := schema.Location{Latitude: 51.5074, Longitude: -0.1278}

	book := mustDescription(t, map[string]schema.Value{
		"title":  schema.StringValue("It"),
		"author": schema.StringValue("Stephen King"),
		"year":   schema.IntValue(1986),
		"rating": schema.FloatValue(4.5),
		"ebook":  schema.BoolValue(true),
		"shop":   schema.LocationValue(cambridge),
	}, model)

	tests := []struct {
		name string
		expr ConstraintExpr
		want bool
	}{
		{"eq", NewConstraint("author", Eq(schema.StringValue("Stephen King"))), true},
		{"eq other", NewConstraint("author", Eq(schema.StringValue("Tolkien"))), false},
		{"eq other type", NewConstraint("year", Eq(schema.StringValue("1986"))), false},
		{"not eq", NewConstraint("year", NotEq(schema.IntValue(1990))), true},
		{"lt", NewConstraint("year", Lt(schema.IntValue(1990))), true},
		{"lt equal", NewConstraint("year", Lt(schema.IntValue(1986))), false},
		{"lteq", NewConstraint("year", LtEq(schema.IntValue(1986))), true},
		{"gt", NewConstraint("rating", Gt(schema.FloatValue(4.0))), true},
		{"gteq", NewConstraint("rating", GtEq(schema.FloatValue(4.6))), false},
		{"gt wrong type", NewConstraint("rating", Gt(schema.IntValue(4))), false},
		{"string order", NewConstraint("title", Lt(schema.StringValue("J"))), true},
		{"bool order", NewConstraint("ebook", Gt(schema.BoolValue(false))), true},
		{"range", NewConstraint("year", NewRange(schema.IntValue(1980), schema.IntValue(1986))), true},
		{"range outside", NewConstraint("year", NewRange(schema.IntValue(1987), schema.IntValue(2000))), false},
		{"in", NewConstraint("author", In(schema.StringValue("Stephen King"), schema.StringValue("Tolkien"))), true},
		{"not in", NewConstraint("author", NotIn(schema.StringValue("Stephen King"))), false},
		{"distance near", NewConstraint("shop", NewDistance(london, 100)), true},
		{"distance far", NewConstraint("shop", NewDistance(london, 10)), false},
		{"missing attribute", NewConstraint("publisher", Eq(schema.StringValue("x"))), false},
		{"and", And{Exprs: []ConstraintExpr{
			NewConstraint("year", Gt(schema.IntValue(1900))),
			NewConstraint("ebook", Eq(schema.BoolValue(true))),
		}}, true},
		{"or", Or{Exprs: []ConstraintExpr{
			NewConstraint("year", Gt(schema.IntValue(2000))),
			NewConstraint("ebook", Eq(schema.BoolValue(true))),
		}}, true},
		{"not", NewNot(NewConstraint("year", Gt(schema.IntValue(2000)))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.expr, book))
		})
	}
}

func TestNewAnd_TooFewOperands(t *testing.T) {
	single := NewConstraint("year", Gt(schema.IntValue(1)))

	_, err := NewAnd(single)
	assert.ErrorIs(t, err, ErrTooFewOperands)
	_, err = NewOr()
	assert.ErrorIs(t, err, ErrTooFewOperands)

	_, err = NewAnd(single, single)
	assert.NoError(t, err)
}

func TestNewQuery_Validation(t *testing.T) {
	model := bookModel(t)
	gt := NewConstraint("year", Gt(schema.IntValue(1)))

	t.Run("empty", func(t *testing.T) {
		_, err := NewQuery(nil, model)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{NewConstraint("publisher", Eq(schema.StringValue("x")))}, model)
		assert.ErrorIs(t, err, ErrIncompatibleModel)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{NewConstraint("year", Gt(schema.StringValue("x")))}, model)
		assert.ErrorIs(t, err, ErrIncompatibleModel)
	})

	t.Run("equality is type agnostic", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{NewConstraint("year", Eq(schema.StringValue("x")))}, model)
		assert.NoError(t, err)
	})

	t.Run("nested and with one child", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{Not{Expr: And{Exprs: []ConstraintExpr{gt}}}}, model)
		assert.ErrorIs(t, err, ErrTooFewOperands)
	})

	t.Run("ordering a location", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{NewConstraint("shop", Lt(schema.LocationValue(schema.Location{})))}, nil)
		assert.ErrorIs(t, err, ErrInvalidConstraint)
	})

	t.Run("mixed set", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{NewConstraint("year", In(schema.IntValue(1), schema.StringValue("1")))}, nil)
		assert.ErrorIs(t, err, ErrInvalidConstraint)
	})

	t.Run("mixed range", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{NewConstraint("year", NewRange(schema.IntValue(1), schema.FloatValue(2)))}, nil)
		assert.ErrorIs(t, err, ErrInvalidConstraint)
	})

	t.Run("negative distance", func(t *testing.T) {
		_, err := NewQuery([]ConstraintExpr{NewConstraint("shop", NewDistance(schema.Location{}, -1))}, model)
		assert.ErrorIs(t, err, ErrInvalidConstraint)
	})

	t.Run("no model", func(t *testing.T) {
		q, err := NewQuery([]ConstraintExpr{gt}, nil)
		require.NoError(t, err)
		assert.Nil(t, q.Model)
	})
}

func TestQuery_Check(t *testing.T) {
	model, err := schema.NewDataModel("foobar", []schema.AttributeSchema{
		{Name: "foo", Type: schema.AttributeTypeInt, Required: true},
		{Name: "bar", Type: schema.AttributeTypeString, Required: true},
	}, "")
	require.NoError(t, err)

	q, err := NewQuery([]ConstraintExpr{
		NewConstraint("foo", Gt(schema.IntValue(10))),
		NewConstraint("bar", Eq(schema.StringValue("BAR"))),
	}, model)
	require.NoError(t, err)

	match := mustDescription(t, map[string]schema.Value{"foo": schema.IntValue(15), "bar": schema.StringValue("BAR")}, model)
	miss := mustDescription(t, map[string]schema.Value{"foo": schema.IntValue(5), "bar": schema.StringValue("BAR")}, model)

	assert.True(t, q.Check(match))
	assert.False(t, q.Check(miss))
	assert.False(t, q.Check(nil))
}
