package intern_test

import (
	"testing"

	"github.com/arborvm/clox/lang/intern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternFunctoriality(t *testing.T) {
	tbl := intern.New(0)

	a := tbl.Intern("hello")
	b := tbl.Intern("hello")
	c := tbl.Intern("world")

	assert.Equal(t, a, b, "intern(a) == intern(b) when a's bytes equal b's bytes")
	assert.NotEqual(t, a, c)

	require.Equal(t, "hello", tbl.Lookup(a))
	require.Equal(t, "world", tbl.Lookup(c))
	assert.Equal(t, 2, tbl.Len())
}

func TestInternEmptyString(t *testing.T) {
	tbl := intern.New(0)
	h := tbl.Intern("")
	assert.Equal(t, "", tbl.Lookup(h))
	assert.Equal(t, h, tbl.Intern(""))
}
