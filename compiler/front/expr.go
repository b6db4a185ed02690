package front

import (
	"strconv"

	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/tp"
)

// expr lowers e to an operand and the code computing it.
// want is the type the consumer expects, nil if it doesn't care.
func (c *Front) expr(f *funContext, e ast.Expr, want tp.Type) (op ir.Operand, s seq, err error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return ir.Literal{Text: e.Value, T: tp.Int{}}, s, nil
	case *ast.BoolLit:
		return boolLit(e.Value), s, nil
	case *ast.This:
		this, err := c.this(f, e)
		return this, s, err
	case *ast.Paren:
		return c.expr(f, e.X, want)
	case *ast.Ident:
		v, field, ok := c.lookup(f, e.Name)
		if !ok {
			return nil, s, ir.Unsupported(e.Position().String(), "unresolved identifier %v", e.Name)
		}

		if !field {
			return v, s, nil
		}
	case *ast.Binary:
		o, err := binaryOp(e)
		if err != nil {
			return nil, s, err
		}

		if o == ir.And || o == ir.Or {
			return c.logic(f, e, o)
		}
	case *ast.New:
		return c.newObject(f, e)
	case *ast.ArrayLit:
		return c.arrayLit(f, e, want)
	case *ast.Unary, *ast.Call, *ast.NewArray, *ast.Index, *ast.Length:
	default:
		return nil, s, ir.Unsupported(pos(e), "expression %T", e)
	}

	x, s, err := c.rvalue(f, e, want)
	if err != nil {
		return nil, s, err
	}

	t := ir.Type(x)

	tmp, err := c.temp(f, t)
	if err != nil {
		return nil, s, err
	}

	s.add(&ir.Assign{Dest: tmp, T: t, RHS: x})

	return tmp, s, nil
}

// rvalue lowers e for a consumer accepting a whole instruction,
// such as an assignment right hand side.
func (c *Front) rvalue(f *funContext, e ast.Expr, want tp.Type) (x ir.Instr, s seq, err error) {
	switch e := e.(type) {
	case *ast.Paren:
		return c.rvalue(f, e.X, want)
	case *ast.Ident:
		v, field, ok := c.lookup(f, e.Name)
		if !ok || !field {
			break
		}

		obj, err := c.fieldObject(f, e.Name, e)
		if err != nil {
			return nil, s, err
		}

		return &ir.GetField{Object: obj, Field: v, T: v.T}, s, nil
	case *ast.Binary:
		o, err := binaryOp(e)
		if err != nil {
			return nil, s, err
		}

		if o == ir.And || o == ir.Or {
			break
		}

		ot := operandType(o)

		l, ls, err := c.expr(f, e.Left, ot)
		if err != nil {
			return nil, s, err
		}

		r, rs, err := c.expr(f, e.Right, ot)
		if err != nil {
			return nil, s, err
		}

		s.join(ls)
		s.join(rs)

		return &ir.BinaryOp{Op: o, L: l, R: r, T: o.Result()}, s, nil
	case *ast.Unary:
		var o ir.Op

		switch e.Op {
		case "!":
			o = ir.Not
		case "-":
			o = ir.Neg
		default:
			return nil, s, ir.Unsupported(pos(e), "unary operator %q", e.Op)
		}

		op, s, err := c.expr(f, e.X, o.Result())
		if err != nil {
			return nil, s, err
		}

		return &ir.UnaryOp{Op: o, X: op, T: o.Result()}, s, nil
	case *ast.Call:
		if tp.IsVoid(want) {
			want = tp.Int{}
		}

		call, s, err := c.call(f, e, want)
		if err != nil {
			return nil, s, err
		}

		if tp.IsVoid(call.Ret) {
			return nil, s, ir.Unsupported(pos(e), "void method %v used as a value", e.Name)
		}

		return call, s, nil
	case *ast.NewArray:
		size, s, err := c.expr(f, e.Size, tp.Int{})
		if err != nil {
			return nil, s, err
		}

		t := tp.Array{Elem: c.tab.Type(ast.TypeName{Name: e.Elem.Name})}

		return &ir.Call{Kind: ir.NewArray, Args: []ir.Operand{size}, Ret: t}, s, nil
	case *ast.Length:
		arr, s, err := c.array(f, e.X)
		if err != nil {
			return nil, s, err
		}

		return &ir.Call{Kind: ir.ArrayLength, Caller: arr, Ret: tp.Int{}}, s, nil
	case *ast.Index:
		arr, s, err := c.array(f, e.X)
		if err != nil {
			return nil, s, err
		}

		idx, is, err := c.expr(f, e.Index, tp.Int{})
		if err != nil {
			return nil, s, err
		}

		s.join(is)

		el := tp.Elem(arr.T)

		return &ir.SingleOp{X: ir.Elem{Base: arr.Name, Index: idx, T: el}}, s, nil
	}

	op, s, err := c.expr(f, e, want)
	if err != nil {
		return nil, s, err
	}

	return &ir.SingleOp{X: op}, s, nil
}

// cond lowers a branch condition.
// Comparisons and negations stay inline in the branch.
func (c *Front) cond(f *funContext, e ast.Expr) (x ir.Instr, s seq, err error) {
	switch e := e.(type) {
	case *ast.Paren:
		return c.cond(f, e.X)
	case *ast.Binary:
		o, err := binaryOp(e)
		if err != nil {
			return nil, s, err
		}

		if o.IsCompare() {
			return c.rvalue(f, e, tp.Bool{})
		}
	case *ast.Unary:
		if e.Op == "!" {
			return c.rvalue(f, e, tp.Bool{})
		}
	}

	op, s, err := c.expr(f, e, tp.Bool{})
	if err != nil {
		return nil, s, err
	}

	return &ir.SingleOp{X: op}, s, nil
}

// logic lowers && and || so that the right operand is evaluated only when needed.
func (c *Front) logic(f *funContext, e *ast.Binary, o ir.Op) (_ ir.Operand, s seq, err error) {
	l, s, err := c.expr(f, e.Left, tp.Bool{})
	if err != nil {
		return nil, s, err
	}

	res, err := c.temp(f, tp.Bool{})
	if err != nil {
		return nil, s, err
	}

	ls := c.ctx.Labels("true", "end")
	ltrue, lend := ls[0], ls[1]

	s.add(&ir.CondBranch{Cond: &ir.SingleOp{X: l}, Label: ltrue})

	if o == ir.And {
		s.add(
			&ir.Assign{Dest: res, T: tp.Bool{}, RHS: &ir.SingleOp{X: boolLit(false)}},
			&ir.Goto{Label: lend},
		)
		s.label(ltrue)
	}

	r, rs, err := c.expr(f, e.Right, tp.Bool{})
	if err != nil {
		return nil, s, err
	}

	s.join(rs)
	s.add(&ir.Assign{Dest: res, T: tp.Bool{}, RHS: &ir.SingleOp{X: r}})

	if o == ir.Or {
		s.add(&ir.Goto{Label: lend})
		s.label(ltrue)
		s.add(&ir.Assign{Dest: res, T: tp.Bool{}, RHS: &ir.SingleOp{X: boolLit(true)}})
	}

	s.label(lend)

	return res, s, nil
}

func (c *Front) newObject(f *funContext, e *ast.New) (_ ir.Operand, s seq, err error) {
	t := c.tab.Type(ast.TypeName{Name: e.Class})

	tmp, err := c.temp(f, t)
	if err != nil {
		return nil, s, err
	}

	s.add(c.construct(tmp, e)...)

	return tmp, s, nil
}

// construct allocates an object into dst and runs its constructor.
func (c *Front) construct(dst ir.Var, e *ast.New) []ir.Instr {
	return []ir.Instr{
		&ir.Assign{Dest: dst, T: dst.T, RHS: &ir.Call{Kind: ir.NewObject, Class: e.Class, Ret: dst.T}},
		&ir.Call{Kind: ir.Special, Caller: dst, Method: "<init>", Ret: tp.Void{}},
	}
}

func (c *Front) arrayLit(f *funContext, e *ast.ArrayLit, want tp.Type) (_ ir.Operand, s seq, err error) {
	el := tp.Elem(want)
	if el == nil {
		el = tp.Int{}
	}

	ops := make([]ir.Operand, len(e.Elems))

	for i, x := range e.Elems {
		op, xs, err := c.expr(f, x, el)
		if err != nil {
			return nil, s, err
		}

		s.join(xs)
		ops[i] = op
	}

	arr, as, err := c.pack(f, tp.Array{Elem: el}, ops)
	if err != nil {
		return nil, s, err
	}

	s.join(as)

	return arr, s, nil
}

// pack allocates a fresh array and stores ops into it element by element.
func (c *Front) pack(f *funContext, t tp.Array, ops []ir.Operand) (_ ir.Var, s seq, err error) {
	arr, err := c.temp(f, t)
	if err != nil {
		return arr, s, err
	}

	s.add(&ir.Assign{Dest: arr, T: t, RHS: &ir.Call{Kind: ir.NewArray, Args: []ir.Operand{intLit(len(ops))}, Ret: t}})

	for i, op := range ops {
		s.add(&ir.Assign{
			Dest: ir.Elem{Base: arr.Name, Index: intLit(i), T: t.Elem},
			T:    t.Elem,
			RHS:  &ir.SingleOp{X: op},
		})
	}

	return arr, s, nil
}

// array lowers an array valued expression to a variable.
func (c *Front) array(f *funContext, e ast.Expr) (v ir.Var, s seq, err error) {
	op, s, err := c.expr(f, e, nil)
	if err != nil {
		return v, s, err
	}

	v, ok := op.(ir.Var)
	if !ok || tp.Elem(v.T) == nil {
		return v, s, ir.Unsupported(pos(e), "array operand of type %v", op.Type())
	}

	return v, s, nil
}

func binaryOp(e *ast.Binary) (ir.Op, error) {
	switch o := ir.Op(e.Op); o {
	case ir.Add, ir.Sub, ir.Mul, ir.Div,
		ir.Lt, ir.Le, ir.Gt, ir.Ge, ir.Eq, ir.Ne,
		ir.And, ir.Or:
		return o, nil
	}

	return "", ir.Unsupported(pos(e), "binary operator %q", e.Op)
}

// operandType is the operand type an operator expects.
// Equality accepts anything, ints are assumed for unknown values.
func operandType(o ir.Op) tp.Type {
	switch o {
	case ir.And, ir.Or, ir.Not:
		return tp.Bool{}
	}

	return tp.Int{}
}

func boolLit(v bool) ir.Literal {
	if v {
		return ir.Literal{Text: "1", T: tp.Bool{}}
	}

	return ir.Literal{Text: "0", T: tp.Bool{}}
}

func intLit(v int) ir.Literal {
	return ir.Literal{Text: strconv.Itoa(v), T: tp.Int{}}
}

func pos(n ast.Node) string {
	if n == nil {
		return ""
	}

	return n.Position().String()
}
