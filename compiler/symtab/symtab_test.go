package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/tp"
)

func TestBuild(t *testing.T) {
	p, err := ast.Decode([]byte(`
imports: [java.io, {path: pkg.Shape, interface: true}]
class:
  name: Box
  extends: Shape
  fields:
    - {name: size, type: int}
    - {name: next, type: Box}
  methods:
    - name: sum
      public: true
      ret: int
      params:
        - {name: base, type: int}
        - {name: xs, type: int...}
      locals:
        - {name: ok, type: boolean}
        - {name: names, type: "String[]"}
`))
	require.NoError(t, err)

	tab, err := Build(p)
	require.NoError(t, err)

	assert.Equal(t, "Box", tab.Class)
	assert.Equal(t, "Shape", tab.Super)

	assert.True(t, tab.Imported("io"))
	assert.True(t, tab.Imported("Shape"))
	assert.False(t, tab.Imported("java"))

	imp, ok := tab.Import("Shape")
	require.True(t, ok)
	assert.True(t, imp.Interface)
	assert.Equal(t, "pkg/Shape", imp.Internal())

	f, ok := tab.Field("next")
	require.True(t, ok)
	assert.Equal(t, tp.Class{Name: "Box", Own: true}, f.Type)

	_, ok = tab.Field("missing")
	assert.False(t, ok)

	m := tab.Method("sum")
	require.NotNil(t, m)
	assert.True(t, m.Public)
	assert.True(t, m.Varargs)
	assert.Equal(t, tp.Int{}, m.Ret)

	xs, ok := m.Param("xs")
	require.True(t, ok)
	assert.Equal(t, tp.Array{Elem: tp.Int{}}, xs.Type)

	l, ok := m.Local("names")
	require.True(t, ok)
	assert.Equal(t, tp.Array{Elem: tp.String{}}, l.Type)

	l, ok = m.Local("ok")
	require.True(t, ok)
	assert.Equal(t, tp.Bool{}, l.Type)

	assert.Nil(t, tab.Method("missing"))
}

func TestBuildErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"redeclared", "class: {name: A, methods: [{name: f}, {name: f}]}"},
		{"varargs not last", "class: {name: A, methods: [{name: f, params: [{name: a, type: int...}, {name: b, type: int}]}]}"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ast.Decode([]byte(tc.text))
			require.NoError(t, err)

			_, err = Build(p)
			assert.Error(t, err)
		})
	}

	_, err := Build(nil)
	assert.Error(t, err)
}

func TestType(t *testing.T) {
	tab := &Table{Class: "A"}

	assert.Equal(t, tp.Int{}, tab.Type(ast.TypeName{Name: "int"}))
	assert.Equal(t, tp.Bool{}, tab.Type(ast.TypeName{Name: "boolean"}))
	assert.Equal(t, tp.Void{}, tab.Type(ast.TypeName{Name: "void"}))
	assert.Equal(t, tp.Class{Name: "A", Own: true}, tab.Type(ast.TypeName{Name: "A"}))
	assert.Equal(t, tp.Class{Name: "B"}, tab.Type(ast.TypeName{Name: "B"}))
	assert.Equal(t, tp.Array{Elem: tp.Class{Name: "B"}}, tab.Type(ast.TypeName{Name: "B", Array: true}))
}
