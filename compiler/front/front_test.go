package front

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/df"
	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/symtab"
	"github.com/slowlang/jmmc/compiler/tp"
)

func compile(t testing.TB, text string) (*ir.Class, error) {
	t.Helper()

	p, err := ast.Decode([]byte(text))
	require.NoError(t, err)

	tab, err := symtab.Build(p)
	require.NoError(t, err)

	return New(NewContext(), tab).Compile(context.Background(), p)
}

func mustCompile(t testing.TB, text string) *ir.Class {
	t.Helper()

	cls, err := compile(t, text)
	require.NoError(t, err)

	for _, m := range cls.Methods {
		require.NoError(t, m.Check(), "method %v", m.Name)
	}

	return cls
}

func method(t testing.TB, cls *ir.Class, name string) *ir.Method {
	t.Helper()

	m := cls.Method(name)
	require.NotNil(t, m, "method %v", name)

	return m
}

func TestAddParams(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: Calc
  methods:
    - name: add
      public: true
      ret: int
      params: [{name: a, type: int}, {name: b, type: int}]
      body:
        - return: {binary: {op: "+", left: {ident: a}, right: {ident: b}}}
`)

	m := method(t, cls, "add")
	require.Len(t, m.Code, 2)

	as, ok := m.Code[0].(*ir.Assign)
	require.True(t, ok)

	tmp, ok := as.Dest.(ir.Var)
	require.True(t, ok)
	assert.Equal(t, ir.KindTemp, m.Vars.Get(tmp.Name).Kind)

	assert.Equal(t, &ir.BinaryOp{
		Op: ir.Add,
		L:  ir.Var{Name: "a", T: tp.Int{}},
		R:  ir.Var{Name: "b", T: tp.Int{}},
		T:  tp.Int{},
	}, as.RHS)

	assert.Equal(t, &ir.Return{X: tmp, T: tp.Int{}}, m.Code[1])
}

func TestConstructor(t *testing.T) {
	cls := mustCompile(t, `class: {name: Empty, extends: Base}`)

	require.Len(t, cls.Methods, 1)

	m := cls.Methods[0]
	assert.Equal(t, "<init>", m.Name)
	assert.True(t, m.Construct)
	assert.True(t, m.Public)
	assert.Equal(t, []ir.Instr{
		&ir.Call{Kind: ir.Special, Caller: ir.Var{Name: ir.This, T: tp.Receiver{Class: "Empty"}}, Method: "<init>", Ret: tp.Void{}},
		&ir.Return{T: tp.Void{}},
	}, m.Code)
}

func TestWhileLayout(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: Loop
  methods:
    - name: count
      params: [{name: n, type: int}]
      locals: [{name: i, type: int}]
      body:
        - while:
            cond: {binary: {op: "<", left: {ident: i}, right: {ident: n}}}
            body:
              - assign: {name: i, value: {binary: {op: "+", left: {ident: i}, right: {int: "1"}}}}
`)

	m := method(t, cls, "count")
	require.Len(t, m.Code, 5)

	assert.Equal(t, map[string]int{"cond_0": 0, "body_0": 2, "end_0": 4}, m.Labels)

	assert.Equal(t, &ir.CondBranch{
		Cond:  &ir.BinaryOp{Op: ir.Lt, L: ir.Var{Name: "i", T: tp.Int{}}, R: ir.Var{Name: "n", T: tp.Int{}}, T: tp.Bool{}},
		Label: "body_0",
	}, m.Code[0])
	assert.Equal(t, &ir.Goto{Label: "end_0"}, m.Code[1])
	assert.IsType(t, &ir.Assign{}, m.Code[2])
	assert.Equal(t, &ir.Goto{Label: "cond_0"}, m.Code[3])
	assert.Equal(t, &ir.Return{T: tp.Void{}}, m.Code[4])
}

func TestIfLayout(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: Max
  methods:
    - name: max
      ret: int
      params: [{name: a, type: int}, {name: b, type: int}]
      locals: [{name: r, type: int}]
      body:
        - if:
            cond: {binary: {op: ">", left: {ident: a}, right: {ident: b}}}
            then: {assign: {name: r, value: {ident: a}}}
            else: {assign: {name: r, value: {ident: b}}}
        - return: {ident: r}
`)

	m := method(t, cls, "max")

	// branch, else, goto end, then, return
	require.Len(t, m.Code, 5)
	assert.Equal(t, map[string]int{"then_0": 3, "end_0": 4}, m.Labels)

	assert.Equal(t, "then_0", m.Code[0].(*ir.CondBranch).Label)
	assert.Equal(t, ir.Var{Name: "b", T: tp.Int{}}, m.Code[1].(*ir.Assign).RHS.(*ir.SingleOp).X)
	assert.Equal(t, &ir.Goto{Label: "end_0"}, m.Code[2])
	assert.Equal(t, ir.Var{Name: "a", T: tp.Int{}}, m.Code[3].(*ir.Assign).RHS.(*ir.SingleOp).X)
	assert.Equal(t, &ir.Return{X: ir.Var{Name: "r", T: tp.Int{}}, T: tp.Int{}}, m.Code[4])
}

// reachable walks from the entry without taking the conditional edge of instruction skip.
func reachable(l *df.Liveness, skip int, label int) []bool {
	seen := make([]bool, l.Len())

	var walk func(i int)
	walk = func(i int) {
		if seen[i] {
			return
		}

		seen[i] = true

		for _, j := range l.Succ(i) {
			if i == skip && j == label {
				continue
			}

			walk(j)
		}
	}

	if l.Len() != 0 {
		walk(0)
	}

	return seen
}

func TestShortCircuit(t *testing.T) {
	const prog = `
class:
  name: Logic
  methods:
    - name: g
      ret: boolean
      body:
        - return: {bool: true}
    - name: f
      ret: boolean
      params: [{name: a, type: boolean}]
      body:
        - return: {binary: {op: "%s", left: {ident: a}, right: {call: {name: g}}}}
`

	for _, op := range []string{"&&", "||"} {
		t.Run(op, func(t *testing.T) {
			cls := mustCompile(t, fmt.Sprintf(prog, op))
			m := method(t, cls, "f")

			call := -1
			for i, x := range m.Code {
				if a, ok := x.(*ir.Assign); ok {
					if c, ok := a.RHS.(*ir.Call); ok && c.Method == "g" {
						call = i
					}
				}
			}

			require.True(t, call >= 0, "no call")

			br, ok := m.Code[0].(*ir.CondBranch)
			require.True(t, ok)

			target, ok := m.Target(br.Label)
			require.True(t, ok)

			l, err := df.New(m)
			require.NoError(t, err)

			fall := reachable(l, 0, target)

			if op == "&&" {
				assert.False(t, fall[call], "right operand evaluated with false left")
				assert.True(t, call >= target)
			} else {
				assert.True(t, fall[call], "right operand skipped with false left")
				assert.True(t, call < target)
			}

			ret := m.Code[len(m.Code)-1].(*ir.Return)
			assert.Equal(t, tp.Bool{}, ret.T)
		})
	}
}

func TestCallKinds(t *testing.T) {
	cls := mustCompile(t, `
imports: [io, {path: util.Shape, interface: true}, util.Point]
class:
  name: App
  fields: [{name: p, type: Point}]
  methods:
    - name: helper
      static: true
      ret: int
      body: [{return: {int: "1"}}]
    - name: inst
      ret: int
      body: [{return: {int: "2"}}]
    - name: run
      params: [{name: s, type: Shape}]
      body:
        - expr: {call: {recv: {ident: io}, name: println, args: [{int: "3"}]}}
        - expr: {call: {name: helper}}
        - expr: {call: {name: inst}}
        - expr: {call: {recv: {ident: s}, name: area}}
        - expr: {call: {recv: {ident: p}, name: move}}
        - expr: {call: {recv: {ident: App}, name: helper}}
`)

	m := method(t, cls, "run")

	var calls []*ir.Call

	for _, x := range m.Code {
		if c, ok := x.(*ir.Call); ok {
			calls = append(calls, c)
		}
	}

	require.Len(t, calls, 6)

	assert.Equal(t, ir.Static, calls[0].Kind)
	assert.Equal(t, "io", calls[0].Class)
	assert.Equal(t, tp.Void{}, calls[0].Ret)

	assert.Equal(t, ir.Static, calls[1].Kind)
	assert.Equal(t, "App", calls[1].Class)
	assert.Equal(t, tp.Int{}, calls[1].Ret)

	assert.Equal(t, ir.Virtual, calls[2].Kind)
	assert.Equal(t, ir.Var{Name: ir.This, T: tp.Receiver{Class: "App"}}, calls[2].Caller)

	assert.Equal(t, ir.Interface, calls[3].Kind)
	assert.Equal(t, ir.Virtual, calls[4].Kind)
	assert.IsType(t, ir.Var{}, calls[4].Caller, "field receiver is loaded into a temporary")

	assert.Equal(t, ir.Static, calls[5].Kind)
	assert.Nil(t, calls[5].Caller)
}

func TestVarargs(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: V
  methods:
    - name: sum
      ret: int
      params: [{name: xs, type: int...}]
      body: [{return: {length: {ident: xs}}}]
    - name: many
      ret: int
      body:
        - return: {call: {name: sum, args: [{int: "1"}, {int: "2"}, {int: "3"}]}}
    - name: pass
      ret: int
      params: [{name: arr, type: "int[]"}]
      body:
        - return: {call: {name: sum, args: [{ident: arr}]}}
    - name: none
      ret: int
      body:
        - return: {call: {name: sum}}
`)

	assert.True(t, method(t, cls, "sum").Varargs)

	m := method(t, cls, "many")

	alloc := m.Code[0].(*ir.Assign)
	arr := alloc.Dest.(ir.Var)
	assert.Equal(t, tp.Array{Elem: tp.Int{}}, arr.T)
	assert.Equal(t, &ir.Call{Kind: ir.NewArray, Args: []ir.Operand{ir.Literal{Text: "3", T: tp.Int{}}}, Ret: arr.T}, alloc.RHS)

	for i := 1; i <= 3; i++ {
		st := m.Code[i].(*ir.Assign)
		assert.Equal(t, ir.Elem{Base: arr.Name, Index: ir.Literal{Text: strconv.Itoa(i - 1), T: tp.Int{}}, T: tp.Int{}}, st.Dest)
		assert.Equal(t, ir.Literal{Text: strconv.Itoa(i), T: tp.Int{}}, st.RHS.(*ir.SingleOp).X)
	}

	call := m.Code[4].(*ir.Assign).RHS.(*ir.Call)
	assert.Equal(t, []ir.Operand{arr}, call.Args)

	m = method(t, cls, "pass")
	call = m.Code[0].(*ir.Assign).RHS.(*ir.Call)
	assert.Equal(t, []ir.Operand{ir.Var{Name: "arr", T: tp.Array{Elem: tp.Int{}}}}, call.Args)

	m = method(t, cls, "none")
	alloc = m.Code[0].(*ir.Assign)
	assert.Equal(t, ir.Literal{Text: "0", T: tp.Int{}}, alloc.RHS.(*ir.Call).Args[0])
}

func TestNewAndFields(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: Counter
  fields: [{name: n, type: int, public: true}]
  methods:
    - name: inc
      locals: [{name: c, type: Counter}]
      body:
        - assign: {name: n, value: {binary: {op: "+", left: {ident: n}, right: {int: "1"}}}}
        - assign: {name: c, value: {new: Counter}}
`)

	require.Len(t, cls.Fields, 1)
	assert.Equal(t, ir.Field{Name: "n", T: tp.Int{}, Access: ir.Public}, cls.Fields[0])

	m := method(t, cls, "inc")

	this := ir.Var{Name: ir.This, T: tp.Receiver{Class: "Counter"}}
	n := ir.Var{Name: "n", T: tp.Int{}}

	get := m.Code[0].(*ir.Assign)
	assert.Equal(t, &ir.GetField{Object: this, Field: n, T: tp.Int{}}, get.RHS)

	sum := m.Code[1].(*ir.Assign)
	assert.Equal(t, get.Dest, sum.RHS.(*ir.BinaryOp).L)

	assert.Equal(t, &ir.PutField{Object: this, Field: n, Value: sum.Dest}, m.Code[2])

	c := ir.Var{Name: "c", T: tp.Class{Name: "Counter", Own: true}}

	assert.Equal(t, &ir.Assign{Dest: c, T: c.T, RHS: &ir.Call{Kind: ir.NewObject, Class: "Counter", Ret: c.T}}, m.Code[3])
	assert.Equal(t, &ir.Call{Kind: ir.Special, Caller: c, Method: "<init>", Ret: tp.Void{}}, m.Code[4])
	assert.Equal(t, &ir.Return{T: tp.Void{}}, m.Code[5])
}

func TestNestedPrecedence(t *testing.T) {
	// a + b * c
	cls := mustCompile(t, `
class:
  name: P
  methods:
    - name: f
      ret: int
      params: [{name: a, type: int}, {name: b, type: int}, {name: c, type: int}]
      body:
        - return:
            binary:
              op: "+"
              left: {ident: a}
              right: {paren: {binary: {op: "*", left: {ident: b}, right: {ident: c}}}}
`)

	m := method(t, cls, "f")
	require.Len(t, m.Code, 3)

	mul := m.Code[0].(*ir.Assign)
	assert.Equal(t, ir.Mul, mul.RHS.(*ir.BinaryOp).Op)

	add := m.Code[1].(*ir.Assign).RHS.(*ir.BinaryOp)
	assert.Equal(t, ir.Add, add.Op)
	assert.Equal(t, mul.Dest, add.R)
}

func TestArrays(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: Arr
  methods:
    - name: f
      ret: int
      locals: [{name: a, type: "int[]"}]
      body:
        - assign: {name: a, value: {new_array: {size: {int: "4"}}}}
        - index_assign: {name: a, index: {int: "0"}, value: {int: "7"}}
        - return: {index: {x: {ident: a}, index: {int: "0"}}}
`)

	m := method(t, cls, "f")

	a := ir.Var{Name: "a", T: tp.Array{Elem: tp.Int{}}}
	zero := ir.Literal{Text: "0", T: tp.Int{}}

	assert.Equal(t, &ir.Assign{Dest: a, T: a.T, RHS: &ir.Call{Kind: ir.NewArray, Args: []ir.Operand{ir.Literal{Text: "4", T: tp.Int{}}}, Ret: a.T}}, m.Code[0])
	assert.Equal(t, &ir.Assign{Dest: ir.Elem{Base: "a", Index: zero, T: tp.Int{}}, T: tp.Int{}, RHS: &ir.SingleOp{X: ir.Literal{Text: "7", T: tp.Int{}}}}, m.Code[1])
	assert.Equal(t, &ir.SingleOp{X: ir.Elem{Base: "a", Index: zero, T: tp.Int{}}}, m.Code[2].(*ir.Assign).RHS)
}

func TestUnsupported(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
	}{
		{"unresolved", `[{return: {ident: nope}}]`},
		{"this in static", `[{expr: {call: {recv: {this: null}, name: f}}}]`},
		{"field in static", `[{assign: {name: fld, value: {int: "1"}}}]`},
		{"unary op", `[{expr: {unary: {op: "~", x: {int: "1"}}}}]`},
		{"binary op", `[{expr: {binary: {op: "%", left: {int: "1"}, right: {int: "1"}}}}]`},
		{"arity", `[{expr: {call: {name: two, args: [{int: "1"}]}}}]`},
		{"void value", `[{expr: {binary: {op: "+", left: {call: {name: nothing}}, right: {int: "1"}}}}]`},
		{"instance statically", `[{expr: {call: {recv: {ident: U}, name: nothing}}}]`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compile(t, `
class:
  name: U
  fields: [{name: fld, type: int}]
  methods:
    - name: two
      static: true
      params: [{name: a, type: int}, {name: b, type: int}]
    - name: nothing
    - name: main
      static: true
      body: `+tc.body+`
`)

			var ue *ir.UnsupportedError
			assert.ErrorAs(t, err, &ue)
		})
	}
}

func TestImplicitReturn(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: R
  methods:
    - name: f
      params: [{name: a, type: boolean}]
      body:
        - if:
            cond: {ident: a}
            then: {return: null}
`)

	m := method(t, cls, "f")

	last := m.Code[len(m.Code)-1]
	assert.Equal(t, &ir.Return{T: tp.Void{}}, last)

	// a label at the end needs an instruction after it
	_, ok := m.Target("end_0")
	require.True(t, ok)
	assert.True(t, m.Labels["end_0"] < len(m.Code))
}

func TestContext(t *testing.T) {
	c := NewContext()

	assert.Equal(t, "tmp0", c.Temp())
	assert.Equal(t, "tmp1", c.Temp())
	assert.Equal(t, []string{"a_0", "b_0"}, c.Labels("a", "b"))
	assert.Equal(t, "c_1", c.Label("c"))

	c.Reset()

	assert.Equal(t, "tmp0", c.Temp())
	assert.Equal(t, "x_0", c.Label("x"))
}

func TestStaticFields(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: S
  fields: [{name: cnt, type: int, static: true}, {name: n, type: int}]
  methods:
    - name: get
      static: true
      ret: int
      body:
        - assign: {name: cnt, value: {int: "3"}}
        - return: {ident: cnt}
    - name: both
      ret: int
      body:
        - return: {binary: {op: "+", left: {ident: cnt}, right: {ident: n}}}
`)

	cnt := ir.Var{Name: "cnt", T: tp.Int{}}

	m := method(t, cls, "get")
	require.Len(t, m.Code, 3)

	assert.Equal(t, &ir.PutField{Field: cnt, Value: ir.Literal{Text: "3", T: tp.Int{}}}, m.Code[0])
	assert.Equal(t, &ir.GetField{Field: cnt, T: tp.Int{}}, m.Code[1].(*ir.Assign).RHS)

	m = method(t, cls, "both")

	assert.Equal(t, &ir.GetField{Field: cnt, T: tp.Int{}}, m.Code[0].(*ir.Assign).RHS)
	assert.Equal(t, &ir.GetField{
		Object: ir.Var{Name: ir.This, T: tp.Receiver{Class: "S"}},
		Field:  ir.Var{Name: "n", T: tp.Int{}},
		T:      tp.Int{},
	}, m.Code[1].(*ir.Assign).RHS)
}

func TestIfBothReturn(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: B
  methods:
    - name: f
      ret: int
      params: [{name: c, type: boolean}]
      body:
        - if:
            cond: {ident: c}
            then: {return: {int: "1"}}
            else: {return: {int: "2"}}
    - name: g
      ret: int
      params: [{name: c, type: boolean}]
      locals: [{name: r, type: int}]
      body:
        - if:
            cond: {ident: c}
            then: {return: {int: "1"}}
            else: {assign: {name: r, value: {int: "2"}}}
        - return: {ident: r}
`)

	m := method(t, cls, "f")

	require.Len(t, m.Code, 3)
	assert.Equal(t, map[string]int{"then_0": 2}, m.Labels)
	assert.Equal(t, &ir.Return{X: ir.Literal{Text: "2", T: tp.Int{}}, T: tp.Int{}}, m.Code[1])

	for l, i := range m.Labels {
		assert.True(t, i < len(m.Code), "label %v past the last instruction", l)
	}

	m = method(t, cls, "g")

	assert.Equal(t, &ir.Goto{Label: "end_1"}, m.Code[2])
	assert.Equal(t, map[string]int{"then_1": 3, "end_1": 4}, m.Labels)
}

func TestVarargsArrayLiteral(t *testing.T) {
	cls := mustCompile(t, `
class:
  name: V
  methods:
    - name: count
      ret: int
      params: [{name: bs, type: boolean...}]
      body: [{return: {length: {ident: bs}}}]
    - name: one
      ret: int
      body:
        - return: {call: {name: count, args: [{array: [{bool: true}, {bool: false}]}]}}
`)

	m := method(t, cls, "one")

	allocs := 0
	var call *ir.Call

	for _, x := range m.Code {
		a, ok := x.(*ir.Assign)
		if !ok {
			continue
		}

		c, ok := a.RHS.(*ir.Call)
		switch {
		case !ok:
		case c.Kind == ir.NewArray:
			allocs++
			assert.Equal(t, tp.Array{Elem: tp.Bool{}}, c.Ret)
		default:
			call = c
		}
	}

	assert.Equal(t, 1, allocs, "the literal is passed as the variadic array")
	require.NotNil(t, call)
	require.Len(t, call.Args, 1)
	assert.Equal(t, tp.Array{Elem: tp.Bool{}}, call.Args[0].Type())
}
