package format

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/tp"
)

// Class appends the textual form of the IR class.
func Class(b []byte, c *ir.Class) []byte {
	for _, imp := range c.Imports {
		b = app(b, 0, "import %s;\n", imp.Path)
	}

	if len(c.Imports) != 0 {
		b = append(b, '\n')
	}

	b = app(b, 0, "%s", c.Name)

	if c.Super != "" {
		b = app(b, 0, " extends %s", c.Super)
	}

	b = append(b, " {\n"...)

	for _, f := range c.Fields {
		b = app(b, 1, ".field ")

		if a := f.Access.String(); a != "" {
			b = app(b, 0, "%s ", a)
		}

		if f.Static {
			b = append(b, "static "...)
		}

		b = app(b, 0, "%s%s;\n", f.Name, Type(f.T))
	}

	for _, m := range c.Methods {
		b = append(b, '\n')
		b = Method(b, m, 1)
	}

	b = append(b, "}\n"...)

	return b
}

// Method appends the method with its code indented by d tabs.
func Method(b []byte, m *ir.Method, d int) []byte {
	kw := ".method"
	if m.Construct {
		kw = ".construct"
	}

	b = app(b, d, "%s ", kw)

	if m.Public {
		b = append(b, "public "...)
	}

	if m.Static {
		b = append(b, "static "...)
	}

	if m.Varargs {
		b = append(b, "varargs "...)
	}

	b = app(b, 0, "%s(", m.Name)

	for i, p := range m.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%s%s", p.Name, Type(p.T))
	}

	b = app(b, 0, ")%s {\n", Type(m.Ret))

	labels := m.LabelsAt()

	for i, x := range m.Code {
		for _, l := range labels[i] {
			b = app(b, d, "%s:\n", l)
		}

		b = app(b, d+1, "")
		b = Instr(b, x)
		b = append(b, ";\n"...)
	}

	for _, l := range labels[len(m.Code)] {
		b = app(b, d, "%s:\n", l)
	}

	b = app(b, d, "}\n")

	return b
}

func Instr(b []byte, x ir.Instr) []byte {
	switch x := x.(type) {
	case *ir.Assign:
		b = Operand(b, x.Dest)
		b = app(b, 0, " :=%s ", Type(x.T))
		b = Instr(b, x.RHS)
	case *ir.Call:
		b = call(b, x)
	case *ir.BinaryOp:
		b = Operand(b, x.L)
		b = app(b, 0, " %s%s ", x.Op, Type(x.T))
		b = Operand(b, x.R)
	case *ir.UnaryOp:
		b = app(b, 0, "%s%s ", x.Op, Type(x.T))
		b = Operand(b, x.X)
	case *ir.SingleOp:
		b = Operand(b, x.X)
	case *ir.Return:
		b = app(b, 0, "ret%s", Type(x.T))

		if x.X != nil {
			b = append(b, ' ')
			b = Operand(b, x.X)
		}
	case *ir.CondBranch:
		b = append(b, "if ("...)
		b = Instr(b, x.Cond)
		b = app(b, 0, ") goto %s", x.Label)
	case *ir.Goto:
		b = app(b, 0, "goto %s", x.Label)
	case *ir.PutField:
		if x.Object == nil {
			b = append(b, "putstatic("...)
		} else {
			b = append(b, "putfield("...)
			b = Operand(b, x.Object)
			b = append(b, ", "...)
		}

		b = app(b, 0, "%s%s, ", x.Field.Name, Type(x.Field.T))
		b = Operand(b, x.Value)
		b = append(b, ").V"...)
	case *ir.GetField:
		if x.Object == nil {
			b = append(b, "getstatic("...)
		} else {
			b = append(b, "getfield("...)
			b = Operand(b, x.Object)
			b = append(b, ", "...)
		}

		b = app(b, 0, "%s%s)%s", x.Field.Name, Type(x.Field.T), Type(x.T))
	default:
		b = app(b, 0, "<%T>", x)
	}

	return b
}

func call(b []byte, x *ir.Call) []byte {
	b = app(b, 0, "%v(", x.Kind)

	switch x.Kind {
	case ir.Static:
		b = app(b, 0, "%s, %q", x.Class, x.Method)
	case ir.NewObject:
		b = append(b, x.Class...)
	case ir.NewArray:
		b = append(b, "array"...)
	case ir.ArrayLength:
		b = Operand(b, x.Caller)
	default:
		b = Operand(b, x.Caller)
		b = app(b, 0, ", %q", x.Method)
	}

	for _, a := range x.Args {
		b = append(b, ", "...)
		b = Operand(b, a)
	}

	b = app(b, 0, ")%s", Type(x.Ret))

	return b
}

func Operand(b []byte, x ir.Operand) []byte {
	switch x := x.(type) {
	case ir.Literal:
		b = app(b, 0, "%s%s", x.Text, Type(x.T))
	case ir.Var:
		b = app(b, 0, "%s%s", x.Name, Type(x.T))
	case ir.Elem:
		b = app(b, 0, "%s[", x.Base)
		b = Operand(b, x.Index)
		b = app(b, 0, "]%s", Type(x.T))
	case nil:
		b = append(b, "<nil>"...)
	default:
		b = app(b, 0, "<%T>", x)
	}

	return b
}

// Type is the type suffix of a value.
func Type(t tp.Type) string {
	switch t := t.(type) {
	case tp.Int:
		return ".i32"
	case tp.Bool:
		return ".bool"
	case tp.Void, nil:
		return ".V"
	case tp.String:
		return ".String"
	case tp.Array:
		return ".array" + Type(t.Elem)
	case tp.Class:
		return "." + t.Name
	case tp.Receiver:
		return "." + t.Class
	}

	return ".?"
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
