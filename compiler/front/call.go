package front

import (
	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/symtab"
	"github.com/slowlang/jmmc/compiler/tp"
)

// call lowers a method invocation.
// want gives the return type of methods the symbol table doesn't know.
func (c *Front) call(f *funContext, e *ast.Call, want tp.Type) (x *ir.Call, s seq, err error) {
	x = &ir.Call{Method: e.Name}

	sig, s, err := c.target(f, e, x)
	if err != nil {
		return nil, s, err
	}

	switch {
	case sig != nil:
		x.Ret = sig.Ret
	case want != nil:
		x.Ret = want
	default:
		x.Ret = tp.Void{}
	}

	args, as, err := c.args(f, e, sig)
	if err != nil {
		return nil, s, err
	}

	s.join(as)
	x.Args = args

	return x, s, nil
}

// target fills the kind and the receiver of the call.
// It returns the signature if the method belongs to the class being compiled.
func (c *Front) target(f *funContext, e *ast.Call, x *ir.Call) (sig *symtab.Method, s seq, err error) {
	recv := unparen(e.Recv)

	if id, ok := recv.(*ast.Ident); ok {
		if _, _, isvar := c.lookup(f, id.Name); !isvar {
			if id.Name != c.tab.Class && !c.tab.Imported(id.Name) {
				return nil, s, ir.Unsupported(pos(id), "unresolved identifier %v", id.Name)
			}

			x.Kind = ir.Static
			x.Class = id.Name

			if id.Name == c.tab.Class {
				sig = c.tab.Method(e.Name)
			}

			if sig != nil && !sig.Static {
				return nil, s, ir.Unsupported(pos(e), "instance method %v called statically", e.Name)
			}

			return sig, s, nil
		}
	}

	if recv == nil {
		sig = c.tab.Method(e.Name)

		if sig != nil && sig.Static {
			x.Kind = ir.Static
			x.Class = c.tab.Class

			return sig, s, nil
		}

		recv = &ast.This{Base: e.Base}
	}

	op, s, err := c.expr(f, recv, nil)
	if err != nil {
		return nil, s, err
	}

	x.Kind = ir.Virtual
	x.Caller = op

	switch t := op.Type().(type) {
	case tp.Receiver:
		sig = c.tab.Method(e.Name)
	case tp.Class:
		if t.Own {
			sig = c.tab.Method(e.Name)
			break
		}

		if imp, ok := c.tab.Import(t.Name); ok && imp.Interface {
			x.Kind = ir.Interface
		}
	case tp.String:
	default:
		return nil, s, ir.Unsupported(pos(e), "method call on %v", op.Type())
	}

	if sig != nil && sig.Static {
		x.Kind = ir.Static
		x.Class = c.tab.Class
		x.Caller = nil
	}

	return sig, s, nil
}

// args lowers call arguments, packing trailing variadic ones into an array.
func (c *Front) args(f *funContext, e *ast.Call, sig *symtab.Method) (ops []ir.Operand, s seq, err error) {
	fixed := len(e.Args)

	if sig != nil {
		fixed = len(sig.Params)

		if sig.Varargs {
			fixed--
		}

		if len(e.Args) < fixed || !sig.Varargs && len(e.Args) != fixed {
			return nil, s, ir.Unsupported(pos(e), "%v: %d arguments for %d parameters", e.Name, len(e.Args), len(sig.Params))
		}
	}

	for i, a := range e.Args[:fixed] {
		var want tp.Type
		if sig != nil {
			want = sig.Params[i].Type
		}

		op, as, err := c.expr(f, a, want)
		if err != nil {
			return nil, s, err
		}

		s.join(as)
		ops = append(ops, op)
	}

	if sig == nil || !sig.Varargs {
		return ops, s, nil
	}

	vt, ok := sig.Params[len(sig.Params)-1].Type.(tp.Array)
	if !ok {
		return nil, s, ir.Invariant("%v: variadic parameter is not an array: %v", e.Name, sig.Params[len(sig.Params)-1].Type)
	}

	rest := e.Args[fixed:]
	var items []ir.Operand

	// a single argument may be the array itself
	var want tp.Type = vt.Elem
	if len(rest) == 1 {
		want = nil

		if _, ok := unparen(rest[0]).(*ast.ArrayLit); ok {
			want = vt
		}
	}

	for _, a := range rest {
		op, as, err := c.expr(f, a, want)
		if err != nil {
			return nil, s, err
		}

		s.join(as)

		if len(rest) == 1 && tp.Equal(op.Type(), vt) {
			return append(ops, op), s, nil
		}

		items = append(items, op)
	}

	arr, ps, err := c.pack(f, vt, items)
	if err != nil {
		return nil, s, err
	}

	s.join(ps)

	return append(ops, arr), s, nil
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.Paren)
		if !ok {
			return e
		}

		e = p.X
	}
}
