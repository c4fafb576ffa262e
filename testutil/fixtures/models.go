// Package fixtures 提供测试数据工厂：数据模型、描述与查询样例。
package fixtures

import (
	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

// =============================================================================
// 🌦️ 天气站
// =============================================================================

// WeatherModel 返回天气站数据模型，四个属性均为必填布尔值
func WeatherModel() *schema.DataModel {
	m, err := schema.NewDataModel("weather_data", []schema.AttributeSchema{
		{Name: "wind_speed", Type: schema.AttributeTypeBool, Required: true, Description: "Provides wind speed measurements."},
		{Name: "temperature", Type: schema.AttributeTypeBool, Required: true, Description: "Provides temperature measurements."},
		{Name: "air_pressure", Type: schema.AttributeTypeBool, Required: true, Description: "Provides air pressure measurements."},
		{Name: "humidity", Type: schema.AttributeTypeBool, Required: true, Description: "Provides humidity measurements."},
	}, "All possible weather data.")
	if err != nil {
		panic(err)
	}
	return m
}

// WeatherStation 返回提供全部测量值的天气站描述
func WeatherStation() *schema.Description {
	d, err := schema.NewDescription(map[string]schema.Value{
		"wind_speed":   schema.BoolValue(false),
		"temperature":  schema.BoolValue(true),
		"air_pressure": schema.BoolValue(true),
		"humidity":     schema.BoolValue(true),
	}, WeatherModel())
	if err != nil {
		panic(err)
	}
	return d
}

// TemperatureQuery 查询提供温度测量的天气站
func TemperatureQuery() *query.Query {
	q, err := query.NewQuery([]query.ConstraintExpr{
		query.NewConstraint("temperature", query.Eq(schema.BoolValue(true))),
	}, WeatherModel())
	if err != nil {
		panic(err)
	}
	return q
}

// =============================================================================
// 🧩 foo/bar
// =============================================================================

// FooBarModel 返回 foo(int) 必填、bar(string) 可选的数据模型
func FooBarModel() *schema.DataModel {
	m, err := schema.NewDataModel("foobar", []schema.AttributeSchema{
		{Name: "foo", Type: schema.AttributeTypeInt, Required: true},
		{Name: "bar", Type: schema.AttributeTypeString, Required: false},
	}, "A foo/bar data model.")
	if err != nil {
		panic(err)
	}
	return m
}

// FooBar 返回 foo=foo、bar=bar 的描述
func FooBar(foo int64, bar string) *schema.Description {
	d, err := schema.NewDescription(map[string]schema.Value{
		"foo": schema.IntValue(foo),
		"bar": schema.StringValue(bar),
	}, FooBarModel())
	if err != nil {
		panic(err)
	}
	return d
}

// FooGreaterThan 查询 foo > n 的描述
func FooGreaterThan(n int64) *query.Query {
	q, err := query.NewQuery([]query.ConstraintExpr{
		query.NewConstraint("foo", query.Gt(schema.IntValue(n))),
	}, FooBarModel())
	if err != nil {
		panic(err)
	}
	return q
}

// Priced 返回带 price 属性的报价描述，不绑定数据模型
func Priced(price int64) *schema.Description {
	d, err := schema.NewDescription(map[string]schema.Value{
		"price": schema.IntValue(price),
	}, nil)
	if err != nil {
		panic(err)
	}
	return d
}
