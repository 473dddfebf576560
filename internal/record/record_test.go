package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_InvalidIsDistinctFromEveryValue(t *testing.T) {
	assert.False(t, Invalid().Equal(Int(-2147483648)))
	assert.False(t, Invalid().Equal(Str("")))
	assert.Equal(t, -1, Invalid().Compare(Int(-2147483648)))
	assert.Equal(t, "null", Invalid().Text())
	assert.Nil(t, Invalid().Value())
}

func TestField_Compare(t *testing.T) {
	assert.Equal(t, -1, Int(1).Compare(Int(2)))
	assert.Equal(t, 0, Str("b").Compare(Str("b")))
	assert.Equal(t, 1, Str("b").Compare(Str("a")))

	v, ok := Int(9).Int()
	require.True(t, ok)
	assert.Equal(t, int32(9), v)
	_, ok = Int(9).Str()
	assert.False(t, ok)
}

func TestSchema_NewSchemaRejectsDuplicates(t *testing.T) {
	_, err := NewSchema(Column{Name: "a", Type: TypeInt}, Column{Name: "a", Type: TypeStr20})
	require.Error(t, err)
}

func TestSchema_Resolve(t *testing.T) {
	base := Schema{Cols: []Column{{Name: "a", Type: TypeInt}, {Name: "b", Type: TypeInt}}}
	assert.Equal(t, 1, base.Resolve("b"))
	assert.Equal(t, 1, base.Resolve("t.b"), "qualifier stripped against a base schema")
	assert.Equal(t, -1, base.Resolve("c"))

	joined := base.Qualify("r").Concat(Schema{Cols: []Column{{Name: "s.a", Type: TypeInt}, {Name: "s.c", Type: TypeInt}}})
	assert.Equal(t, []string{"r.a", "r.b", "s.a", "s.c"}, joined.Names())
	assert.Equal(t, 2, joined.Resolve("s.a"))
	assert.Equal(t, 3, joined.Resolve("c"))
	assert.Equal(t, -1, joined.Resolve("a"), "ambiguous unqualified ref")
}

func TestTuple_CompareOnAndEqualOn(t *testing.T) {
	a := NewTuple(Int(1), Str("x"), Int(5))
	b := NewTuple(Int(1), Str("y"), Int(5))

	assert.True(t, a.EqualOn(b, []int{0, 2}))
	assert.False(t, a.EqualOn(b, []int{1}))
	assert.Equal(t, -1, a.CompareOn(b, []int{0, 1}))
	assert.Equal(t, []Field{Int(5), Int(1)}, a.Project([]int{2, 0}))

	c := a.Clone()
	c.Fields[0] = Int(100)
	assert.Equal(t, Int(1), a.Fields[0])
}
