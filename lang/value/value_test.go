package value_test

import (
	"math"
	"testing"

	"github.com/arborvm/clox/lang/value"
	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	assert.True(t, value.Equal(value.Nil{}, value.Nil{}))
	assert.False(t, value.Equal(value.Nil{}, value.Bool(false)))

	assert.True(t, value.Equal(value.Bool(true), value.Bool(true)))
	assert.False(t, value.Equal(value.Bool(true), value.Bool(false)))

	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.True(t, value.Equal(value.Number(0.1+0.2), value.Number(0.3)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	assert.False(t, value.Equal(value.Number(math.NaN()), value.Number(math.NaN())))

	assert.True(t, value.Equal(value.StringObj(3), value.StringObj(3)))
	assert.False(t, value.Equal(value.StringObj(3), value.StringObj(4)))

	assert.False(t, value.Equal(value.Number(0), value.StringObj(0)))
	assert.False(t, value.Equal(value.Function(1), value.Identifier(1)))
}

func TestIsFalsey(t *testing.T) {
	assert.True(t, value.IsFalsey(value.Nil{}))
	assert.True(t, value.IsFalsey(value.Bool(false)))
	assert.False(t, value.IsFalsey(value.Bool(true)))
	assert.False(t, value.IsFalsey(value.Number(0)))
	assert.False(t, value.IsFalsey(value.Number(math.NaN())))
	assert.False(t, value.IsFalsey(value.StringObj(0)))
}

func TestNumberString(t *testing.T) {
	assert.Equal(t, "7", value.Number(7).String())
	assert.Equal(t, "1.5", value.Number(1.5).String())
}
