package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixtures(t *testing.T) {
	assert.True(t, TemperatureQuery().Check(WeatherStation()))
	assert.True(t, FooGreaterThan(1).Check(FooBar(2, "x")))
	assert.False(t, FooGreaterThan(2).Check(FooBar(2, "x")))

	v, ok := Priced(30).Value("price")
	assert.True(t, ok)
	assert.Equal(t, int64(30), v.Int())
}
