package front

import (
	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/tp"
)

func (c *Front) stmt(f *funContext, st ast.Stmt) (s seq, err error) {
	switch st := st.(type) {
	case nil:
		return s, nil
	case *ast.Block:
		for _, x := range st.Stmts {
			xs, err := c.stmt(f, x)
			if err != nil {
				return s, err
			}

			s.join(xs)
		}

		return s, nil
	case *ast.If:
		return c.ifStmt(f, st)
	case *ast.While:
		return c.whileStmt(f, st)
	case *ast.ExprStmt:
		return c.exprStmt(f, st)
	case *ast.Assign:
		return c.assign(f, st)
	case *ast.IndexAssign:
		return c.indexAssign(f, st)
	case *ast.Return:
		return c.ret(f, st)
	}

	return s, ir.Unsupported(pos(st), "statement %T", st)
}

// ifStmt places the else branch on the fallthrough path.
// Branches ending in return don't jump to the end label.
func (c *Front) ifStmt(f *funContext, st *ast.If) (s seq, err error) {
	cond, s, err := c.cond(f, st.Cond)
	if err != nil {
		return s, err
	}

	ls := c.ctx.Labels("then", "end")
	lthen, lend := ls[0], ls[1]

	s.add(&ir.CondBranch{Cond: cond, Label: lthen})

	es, err := c.stmt(f, st.Else)
	if err != nil {
		return s, err
	}

	s.join(es)

	reached := !endsWithReturn(es)
	if reached {
		s.add(&ir.Goto{Label: lend})
	}

	ts, err := c.stmt(f, st.Then)
	if err != nil {
		return s, err
	}

	s.label(lthen)
	s.join(ts)

	if reached || !endsWithReturn(ts) {
		s.label(lend)
	}

	return s, nil
}

func (c *Front) whileStmt(f *funContext, st *ast.While) (s seq, err error) {
	ls := c.ctx.Labels("cond", "body", "end")
	lcond, lbody, lend := ls[0], ls[1], ls[2]

	cond, cs, err := c.cond(f, st.Cond)
	if err != nil {
		return s, err
	}

	s.label(lcond)
	s.join(cs)
	s.add(
		&ir.CondBranch{Cond: cond, Label: lbody},
		&ir.Goto{Label: lend},
	)

	bs, err := c.stmt(f, st.Body)
	if err != nil {
		return s, err
	}

	s.label(lbody)
	s.join(bs)
	s.add(&ir.Goto{Label: lcond})
	s.label(lend)

	return s, nil
}

func (c *Front) exprStmt(f *funContext, st *ast.ExprStmt) (s seq, err error) {
	switch x := unparen(st.X).(type) {
	case *ast.Call:
		call, s, err := c.call(f, x, tp.Void{})
		if err != nil {
			return s, err
		}

		s.add(call)

		return s, nil
	}

	_, s, err = c.expr(f, st.X, nil)

	return s, err
}

func (c *Front) assign(f *funContext, st *ast.Assign) (s seq, err error) {
	v, field, ok := c.lookup(f, st.Name)
	if !ok {
		return s, ir.Unsupported(pos(st), "unresolved identifier %v", st.Name)
	}

	if field {
		obj, err := c.fieldObject(f, st.Name, st)
		if err != nil {
			return s, err
		}

		val, s, err := c.expr(f, st.Value, v.T)
		if err != nil {
			return s, err
		}

		s.add(&ir.PutField{Object: obj, Field: v, Value: val})

		return s, nil
	}

	if n, ok := unparen(st.Value).(*ast.New); ok {
		s.add(c.construct(v, n)...)

		return s, nil
	}

	rhs, s, err := c.rvalue(f, st.Value, v.T)
	if err != nil {
		return s, err
	}

	s.add(&ir.Assign{Dest: v, T: v.T, RHS: rhs})

	return s, nil
}

func (c *Front) indexAssign(f *funContext, st *ast.IndexAssign) (s seq, err error) {
	arr, s, err := c.array(f, &ast.Ident{Base: st.Base, Name: st.Name})
	if err != nil {
		return s, err
	}

	el := tp.Elem(arr.T)

	idx, is, err := c.expr(f, st.Index, tp.Int{})
	if err != nil {
		return s, err
	}

	s.join(is)

	rhs, rs, err := c.rvalue(f, st.Value, el)
	if err != nil {
		return s, err
	}

	s.join(rs)
	s.add(&ir.Assign{
		Dest: ir.Elem{Base: arr.Name, Index: idx, T: el},
		T:    el,
		RHS:  rhs,
	})

	return s, nil
}

func (c *Front) ret(f *funContext, st *ast.Return) (s seq, err error) {
	if st.Value == nil {
		if !tp.IsVoid(f.Ret) {
			return s, ir.Unsupported(pos(st), "return without value from %v method", f.Ret)
		}

		s.add(&ir.Return{T: tp.Void{}})

		return s, nil
	}

	if tp.IsVoid(f.Ret) {
		return s, ir.Unsupported(pos(st), "return with value from void method")
	}

	op, s, err := c.expr(f, st.Value, f.Ret)
	if err != nil {
		return s, err
	}

	s.add(&ir.Return{X: op, T: f.Ret})

	return s, nil
}
