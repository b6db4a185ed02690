package symtab

import (
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/tp"
)

type (
	Symbol struct {
		Name string
		Type tp.Type

		Public bool
		Static bool
		Final  bool
	}

	Method struct {
		Name   string
		Public bool
		Static bool

		Ret     tp.Type
		Params  []Symbol
		Varargs bool // last parameter is variadic
		Locals  []Symbol
	}

	Import struct {
		Path      []string
		Interface bool
	}

	// Table is what the front end knows about one compilation unit.
	Table struct {
		Class   string
		Super   string
		Imports []Import

		Fields  []Symbol
		Methods []*Method
	}
)

// Build collects declarations of a program.
// The program is expected to be validated already.
func Build(p *ast.Program) (_ *Table, err error) {
	if p == nil || p.Class == nil {
		return nil, errors.New("no class declaration")
	}

	c := p.Class

	t := &Table{
		Class: c.Name,
		Super: c.Extends,
	}

	for _, imp := range p.Imports {
		t.Imports = append(t.Imports, Import{
			Path:      imp.Path,
			Interface: imp.Interface,
		})
	}

	for _, f := range c.Fields {
		s := t.symbol(f)

		t.Fields = append(t.Fields, s)
	}

	for _, md := range c.Methods {
		if t.Method(md.Name) != nil {
			return nil, errors.New("%v: method redeclared: %v", md.Base, md.Name)
		}

		m := &Method{
			Name:   md.Name,
			Public: md.Public,
			Static: md.Static,
			Ret:    t.Type(md.Ret),
		}

		for i, p := range md.Params {
			if p.Type.Varargs {
				if i != len(md.Params)-1 {
					return nil, errors.New("%v: %v: variadic parameter must be the last one", p.Base, md.Name)
				}

				m.Varargs = true
			}

			m.Params = append(m.Params, t.symbol(p))
		}

		for _, l := range md.Locals {
			m.Locals = append(m.Locals, t.symbol(l))
		}

		t.Methods = append(t.Methods, m)
	}

	return t, nil
}

func (t *Table) symbol(d *ast.VarDecl) Symbol {
	return Symbol{
		Name:   d.Name,
		Type:   t.Type(d.Type),
		Public: d.Public,
		Static: d.Static,
		Final:  d.Final,
	}
}

// Type converts a declared type name.
func (t *Table) Type(x ast.TypeName) tp.Type {
	var el tp.Type

	switch x.Name {
	case "int":
		el = tp.Int{}
	case "boolean", "bool":
		el = tp.Bool{}
	case "void", "":
		el = tp.Void{}
	case "String":
		el = tp.String{}
	default:
		el = tp.Class{Name: x.Name, Own: x.Name == t.Class}
	}

	if x.Array {
		return tp.Array{Elem: el}
	}

	return el
}

func (t *Table) Method(name string) *Method {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}

	return nil
}

func (t *Table) Field(name string) (Symbol, bool) {
	return find(t.Fields, name)
}

func (m *Method) Param(name string) (Symbol, bool) {
	return find(m.Params, name)
}

func (m *Method) Local(name string) (Symbol, bool) {
	return find(m.Locals, name)
}

// Import finds an import by the name the class is referred by.
func (t *Table) Import(name string) (Import, bool) {
	for _, imp := range t.Imports {
		if imp.Name() == name {
			return imp, true
		}
	}

	return Import{}, false
}

// Imported reports whether name refers to an imported class.
func (t *Table) Imported(name string) bool {
	_, ok := t.Import(name)
	return ok
}

func (imp Import) Name() string {
	if len(imp.Path) == 0 {
		return ""
	}

	return imp.Path[len(imp.Path)-1]
}

// Internal is the slash separated path of the import.
func (imp Import) Internal() string {
	return strings.Join(imp.Path, "/")
}

func find(ss []Symbol, name string) (Symbol, bool) {
	for _, s := range ss {
		if s.Name == name {
			return s, true
		}
	}

	return Symbol{}, false
}
