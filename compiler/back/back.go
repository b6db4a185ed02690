package back

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/tp"
)

type (
	// Compiler emits Jasmin assembly.
	Compiler struct{}
)

func New() *Compiler { return &Compiler{} }

// CompileClass appends the assembly of the class to b.
// Registers must be allocated. Nothing is appended on error.
func (c *Compiler) CompileClass(ctx context.Context, b []byte, cls *ir.Class) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile class", "class", cls.Name)
	defer tr.Finish("err", &err)

	st := len(b)

	b = fmt.Appendf(b, ".class public %s\n", cls.Name)
	b = fmt.Appendf(b, ".super %s\n", cls.SuperName())

	if len(cls.Fields) != 0 {
		b = append(b, '\n')
	}

	for _, f := range cls.Fields {
		d, err := Descriptor(cls, f.T)
		if err != nil {
			return b[:st], errors.Wrap(err, "field %v", f.Name)
		}

		b = append(b, ".field "...)

		if a := f.Access.String(); a != "" {
			b = append(b, a...)
			b = append(b, ' ')
		}

		if f.Static {
			b = append(b, "static "...)
		}

		if f.Final {
			b = append(b, "final "...)
		}

		b = fmt.Appendf(b, "%s %s\n", f.Name, d)
	}

	for _, m := range cls.Methods {
		b = append(b, '\n')

		b, err = c.compileMethod(ctx, b, cls, m)
		if err != nil {
			return b[:st], errors.Wrap(err, "method %v", m.Name)
		}
	}

	if tr.If("dump_jasmin") {
		tr.Printw("jasmin", "class", cls.Name, "code", string(b[st:]))
	}

	return b, nil
}

func (c *Compiler) compileMethod(ctx context.Context, b []byte, cls *ir.Class, m *ir.Method) (_ []byte, err error) {
	tr := tlog.SpanFromContext(ctx)

	e := newEmitter(cls, m)

	labels := m.LabelsAt()
	uses, defs := counts(m)

	for i, x := range m.Code {
		for _, l := range labels[i] {
			err = e.label(l)
			if err != nil {
				return b, errors.Wrap(err, "instr %d", i)
			}
		}

		kept := e.onStack

		if t, ok := stackTemp(m, i, labels, uses, defs); ok {
			e.keep = t
		}

		err = e.instr(x)
		if err != nil {
			return b, errors.Wrap(err, "instr %d", i)
		}

		if kept != "" && e.onStack == kept {
			return b, ir.Invariant("%v: instr %d: %v left on the stack", m.Name, i, kept)
		}

		want := 0
		if e.onStack != "" {
			want = 1
		}

		if e.depth != want && !e.unreachable {
			return b, ir.Invariant("%v: instr %d: operand stack not empty: %d", m.Name, i, e.depth)
		}
	}

	targets := branchTargets(m)

	for _, l := range labels[len(m.Code)] {
		if targets[l] {
			return b, ir.Invariant("%v: branch to %v past the last instruction", m.Name, l)
		}
	}

	params := make([]tp.Type, len(m.Params))

	for i, p := range m.Params {
		params[i] = p.T
	}

	desc, err := MethodDescriptor(cls, params, m.Ret)
	if err != nil {
		return b, errors.Wrap(err, "descriptor")
	}

	b = append(b, ".method "...)

	if m.Public {
		b = append(b, "public "...)
	}

	if m.Static {
		b = append(b, "static "...)
	}

	b = fmt.Appendf(b, "%s%s\n", m.Name, desc)
	b = fmt.Appendf(b, "\t.limit stack %d\n", e.max)
	b = fmt.Appendf(b, "\t.limit locals %d\n", e.locals())
	b = append(b, e.b...)
	b = append(b, ".end method\n"...)

	tr.V("back_limits").Printw("method limits", "method", m.Name, "stack", e.max, "locals", e.locals())

	return b, nil
}

func branchTargets(m *ir.Method) map[string]bool {
	r := make(map[string]bool)

	for _, x := range m.Code {
		switch x := x.(type) {
		case *ir.Goto:
			r[x.Label] = true
		case *ir.CondBranch:
			r[x.Label] = true
		}
	}

	return r
}
