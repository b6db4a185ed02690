package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/format"
	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/symtab"
	"github.com/slowlang/jmmc/compiler/tp"
)

type (
	// Front lowers one program into IR.
	Front struct {
		ctx *Context
		tab *symtab.Table
		cls *ir.Class
	}

	funContext struct {
		*ir.Method

		sig *symtab.Method
	}
)

func New(c *Context, tab *symtab.Table) *Front {
	if c == nil {
		c = NewContext()
	}

	return &Front{
		ctx: c,
		tab: tab,
	}
}

// Compile builds the IR class of the program.
func (c *Front) Compile(ctx context.Context, p *ast.Program) (_ *ir.Class, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: compile class", "name", c.tab.Class)
	defer tr.Finish("err", &err)

	if p == nil || p.Class == nil {
		return nil, errors.New("no class declaration")
	}

	c.cls = &ir.Class{
		Name:  c.tab.Class,
		Super: c.tab.Super,
	}

	for _, imp := range c.tab.Imports {
		c.cls.Imports = append(c.cls.Imports, ir.Import{
			Name:      imp.Name(),
			Path:      imp.Internal(),
			Interface: imp.Interface,
		})
	}

	for _, f := range c.tab.Fields {
		acc := ir.Default
		if f.Public {
			acc = ir.Public
		}

		c.cls.Fields = append(c.cls.Fields, ir.Field{
			Name:   f.Name,
			T:      f.Type,
			Access: acc,
			Static: f.Static,
			Final:  f.Final,
		})
	}

	c.cls.Methods = append(c.cls.Methods, c.constructor())

	for _, md := range p.Class.Methods {
		m, err := c.compileMethod(ctx, md)
		if err != nil {
			return nil, errors.Wrap(err, "method %v", md.Name)
		}

		c.cls.Methods = append(c.cls.Methods, m)
	}

	if tr.If("dump_ir") {
		tr.Printw("ir", "class", c.cls.Name, "ir", string(format.Class(nil, c.cls)))
	}

	return c.cls, nil
}

func (c *Front) constructor() *ir.Method {
	m := ir.NewMethod("<init>")
	m.Public = true
	m.Construct = true

	this := ir.Var{Name: ir.This, T: tp.Receiver{Class: c.cls.Name}}

	_, _ = m.Vars.Add(ir.Variable{Name: ir.This, T: this.T, Kind: ir.KindThis, Reg: ir.NoReg})

	m.Append(
		&ir.Call{Kind: ir.Special, Caller: this, Method: "<init>", Ret: tp.Void{}},
		&ir.Return{T: tp.Void{}},
	)

	return m
}

func (c *Front) compileMethod(ctx context.Context, md *ast.Method) (_ *ir.Method, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: compile method", "name", md.Name)
	defer tr.Finish("err", &err)

	sig := c.tab.Method(md.Name)
	if sig == nil {
		return nil, ir.Invariant("method not in symbol table: %v", md.Name)
	}

	m := ir.NewMethod(md.Name)
	m.Public = sig.Public
	m.Static = sig.Static
	m.Varargs = sig.Varargs
	m.Ret = sig.Ret

	f := &funContext{Method: m, sig: sig}

	if !m.Static {
		_, err = m.Vars.Add(ir.Variable{Name: ir.This, T: tp.Receiver{Class: c.cls.Name}, Kind: ir.KindThis, Reg: ir.NoReg})
		if err != nil {
			return nil, err
		}
	}

	for _, p := range sig.Params {
		m.Params = append(m.Params, ir.Param{Name: p.Name, T: p.Type})

		_, err = m.Vars.Add(ir.Variable{Name: p.Name, T: p.Type, Kind: ir.KindParam, Reg: ir.NoReg})
		if err != nil {
			return nil, errors.Wrap(err, "param")
		}
	}

	for _, l := range sig.Locals {
		if m.Vars.Get(l.Name) != nil {
			continue // shadows a parameter
		}

		_, err = m.Vars.Add(ir.Variable{Name: l.Name, T: l.Type, Kind: ir.KindLocal, Reg: ir.NoReg})
		if err != nil {
			return nil, errors.Wrap(err, "local")
		}
	}

	var body seq

	for _, st := range md.Body {
		s, err := c.stmt(f, st)
		if err != nil {
			return nil, err
		}

		body.join(s)
	}

	if tp.IsVoid(m.Ret) && !endsWithReturn(body) {
		body.add(&ir.Return{T: tp.Void{}})
	}

	m.Code = body.code

	for _, l := range body.labels {
		if _, ok := m.Labels[l.name]; ok {
			return nil, ir.Invariant("label redefined: %v", l.name)
		}

		m.Labels[l.name] = l.at
	}

	tr.V("front_vars").Printw("variables", "vars", m.Vars)

	return m, nil
}

func endsWithReturn(s seq) bool {
	if len(s.code) == 0 {
		return false
	}

	for _, l := range s.labels {
		if l.at == len(s.code) {
			return false
		}
	}

	_, ok := s.code[len(s.code)-1].(*ir.Return)

	return ok
}

// temp declares a fresh temporary.
func (c *Front) temp(f *funContext, t tp.Type) (ir.Var, error) {
	name := c.ctx.Temp()

	for f.Vars.Get(name) != nil {
		name = c.ctx.Temp()
	}

	_, err := f.Vars.Add(ir.Variable{Name: name, T: t, Kind: ir.KindTemp, Reg: ir.NoReg})
	if err != nil {
		return ir.Var{}, err
	}

	return ir.Var{Name: name, T: t}, nil
}

// lookup resolves a name to a field or a variable.
// Fields come first, static methods see only static fields.
func (c *Front) lookup(f *funContext, name string) (v ir.Var, field bool, ok bool) {
	if s, ok := c.tab.Field(name); ok && (s.Static || !f.Static) {
		return ir.Var{Name: name, T: s.Type}, true, true
	}

	if s, ok := f.sig.Param(name); ok {
		return ir.Var{Name: name, T: s.Type}, false, true
	}

	if s, ok := f.sig.Local(name); ok {
		return ir.Var{Name: name, T: s.Type}, false, true
	}

	return ir.Var{}, false, false
}

// fieldObject is the object a field is accessed through, nil for static fields.
func (c *Front) fieldObject(f *funContext, name string, at ast.Node) (ir.Operand, error) {
	if s, ok := c.tab.Field(name); ok && s.Static {
		return nil, nil
	}

	return c.this(f, at)
}

func (c *Front) this(f *funContext, at ast.Node) (ir.Var, error) {
	if f.Static {
		return ir.Var{}, ir.Unsupported(at.Position().String(), "this in static method %v", f.Name)
	}

	return ir.Var{Name: ir.This, T: tp.Receiver{Class: c.cls.Name}}, nil
}
