package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcProgram = `
imports:
  - io
  - path: java.util.List
    interface: true
class:
  name: Calc
  extends: Base
  fields:
    - {name: acc, type: int, public: true}
  methods:
    - name: add
      public: true
      ret: int
      params:
        - {name: a, type: int}
        - {name: xs, type: int...}
      locals:
        - {name: r, type: "boolean[]"}
      body:
        - assign:
            name: acc
            value: {binary: {op: "+", left: {ident: a}, right: {int: "1"}}}
        - if:
            cond: {unary: {op: "!", x: {bool: true}}}
            then:
              - expr: {call: {recv: {ident: io}, name: println, args: [{length: {ident: xs}}]}}
            else:
              return: {int: "0"}
        - while:
            cond: {binary: {op: "<", left: {ident: a}, right: {int: "10"}}}
            body: {index_assign: {name: xs, index: {int: "0"}, value: {index: {x: {ident: xs}, index: {int: "1"}}}}}
        - return: {call: {name: other, args: [{new: Calc}, {new_array: {size: {int: "3"}}}, {array: [{int: "1"}]}, {this: null}, {paren: {ident: a}}]}}
    - name: main
      static: true
      params:
        - {name: args, type: "String[]"}
      body:
        - return: null
`

func TestDecode(t *testing.T) {
	p, err := Decode([]byte(calcProgram))
	require.NoError(t, err)

	require.Len(t, p.Imports, 2)
	assert.Equal(t, []string{"io"}, p.Imports[0].Path)
	assert.Equal(t, []string{"java", "util", "List"}, p.Imports[1].Path)
	assert.Equal(t, "List", p.Imports[1].Name())
	assert.True(t, p.Imports[1].Interface)

	c := p.Class
	require.NotNil(t, c)
	assert.Equal(t, "Calc", c.Name)
	assert.Equal(t, "Base", c.Extends)

	require.Len(t, c.Fields, 1)
	assert.Equal(t, "acc", c.Fields[0].Name)
	assert.True(t, c.Fields[0].Public)

	require.Len(t, c.Methods, 2)

	add := c.Methods[0]
	assert.Equal(t, "add", add.Name)
	assert.True(t, add.Public)
	assert.Equal(t, TypeName{Name: "int"}, add.Ret)
	assert.Equal(t, TypeName{Name: "int", Array: true, Varargs: true}, add.Params[1].Type)
	assert.Equal(t, TypeName{Name: "boolean", Array: true}, add.Locals[0].Type)

	require.Len(t, add.Body, 4)

	as, ok := add.Body[0].(*Assign)
	require.True(t, ok)
	assert.Equal(t, "acc", as.Name)

	bin, ok := as.Value.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, &Ident{Base: bin.Left.Position(), Name: "a"}, bin.Left)

	is, ok := add.Body[1].(*If)
	require.True(t, ok)
	assert.IsType(t, &Unary{}, is.Cond)
	assert.IsType(t, &Block{}, is.Then)
	assert.IsType(t, &Return{}, is.Else)

	call := is.Then.(*Block).Stmts[0].(*ExprStmt).X.(*Call)
	assert.Equal(t, "println", call.Name)
	assert.IsType(t, &Ident{}, call.Recv)
	assert.IsType(t, &Length{}, call.Args[0])

	wh, ok := add.Body[2].(*While)
	require.True(t, ok)
	assert.IsType(t, &IndexAssign{}, wh.Body)

	ret := add.Body[3].(*Return)
	other := ret.Value.(*Call)
	assert.Nil(t, other.Recv)
	require.Len(t, other.Args, 5)
	assert.IsType(t, &New{}, other.Args[0])
	assert.Equal(t, TypeName{Name: "int"}, other.Args[1].(*NewArray).Elem)
	assert.IsType(t, &ArrayLit{}, other.Args[2])
	assert.IsType(t, &This{}, other.Args[3])
	assert.IsType(t, &Paren{}, other.Args[4])

	main := c.Methods[1]
	assert.True(t, main.Static)
	assert.Equal(t, TypeName{Name: "void"}, main.Ret)
	assert.Nil(t, main.Body[0].(*Return).Value)
}

func TestDecodeAll(t *testing.T) {
	ps, err := DecodeAll([]byte("class: {name: A}\n---\nclass: {name: B}\n"))
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, "A", ps[0].Class.Name)
	assert.Equal(t, "B", ps[1].Class.Name)
}

func TestDecodeErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"no class", "imports: [io]\n"},
		{"no class name", "class: {fields: []}\n"},
		{"bad statement", "class: {name: A, methods: [{name: f, body: [{loop: 1}]}]}\n"},
		{"bad expression", "class: {name: A, methods: [{name: f, body: [{expr: {lambda: 1}}]}]}\n"},
		{"missing operand", "class: {name: A, methods: [{name: f, body: [{expr: {binary: {op: '+', left: {int: '1'}}}}]}]}\n"},
		{"not tagged", "class: {name: A, methods: [{name: f, body: [{expr: {int: '1', bool: true}}]}]}\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.text))
			assert.Error(t, err)
		})
	}

	_, err := Decode(nil)
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeName{Name: "int"}, ParseType("int"))
	assert.Equal(t, TypeName{Name: "int", Array: true}, ParseType("int[]"))
	assert.Equal(t, TypeName{Name: "String", Array: true, Varargs: true}, ParseType("String ..."))
	assert.Equal(t, TypeName{Name: "void"}, ParseType(""))
	assert.Equal(t, "int...", ParseType("int...").String())
	assert.Equal(t, "Foo[]", ParseType("Foo[]").String())
}
