package back

import "github.com/slowlang/jmmc/compiler/ir"

// stackTemp reports whether the temporary assigned by instruction i
// can stay on the operand stack instead of going through its slot.
// It must be defined and used once, and be the first thing
// the next instruction loads with no label in between.
func stackTemp(m *ir.Method, i int, labels map[int][]string, uses, defs map[string]int) (string, bool) {
	a, ok := m.Code[i].(*ir.Assign)
	if !ok || i+1 >= len(m.Code) || len(labels[i+1]) != 0 {
		return "", false
	}

	d, ok := a.Dest.(ir.Var)
	if !ok {
		return "", false
	}

	if v := m.Vars.Get(d.Name); v == nil || v.Kind != ir.KindTemp {
		return "", false
	}

	if uses[d.Name] != 1 || defs[d.Name] != 1 {
		return "", false
	}

	f, ok := first(m.Code[i+1]).(ir.Var)
	if !ok || f.Name != d.Name {
		return "", false
	}

	return d.Name, true
}

func counts(m *ir.Method) (uses, defs map[string]int) {
	uses = make(map[string]int)
	defs = make(map[string]int)

	for _, x := range m.Code {
		for _, n := range ir.Uses(x) {
			uses[n]++
		}

		if n, ok := ir.Def(x); ok {
			defs[n]++
		}
	}

	return uses, defs
}

// first is the operand loaded first when x is emitted, nil if it starts otherwise.
func first(x ir.Instr) ir.Operand {
	switch x := x.(type) {
	case *ir.Assign:
		if _, ok := x.Dest.(ir.Var); ok {
			return first(x.RHS)
		}
	case *ir.SingleOp:
		if _, ok := x.X.(ir.Elem); !ok {
			return x.X
		}
	case *ir.BinaryOp:
		if x.Op.IsCompare() && !isZero(x.R) && isZero(x.L) {
			return x.R
		}

		return x.L
	case *ir.UnaryOp:
		return x.X
	case *ir.Call:
		switch x.Kind {
		case ir.NewObject:
			return nil
		case ir.NewArray, ir.Static:
			if len(x.Args) != 0 {
				return x.Args[0]
			}

			return nil
		}

		return x.Caller
	case *ir.Return:
		return x.X
	case *ir.CondBranch:
		return first(x.Cond)
	case *ir.PutField:
		if x.Object == nil {
			return x.Value
		}

		return x.Object
	case *ir.GetField:
		return x.Object
	}

	return nil
}
