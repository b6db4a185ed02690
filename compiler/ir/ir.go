package ir

import "github.com/slowlang/jmmc/compiler/tp"

type (
	Operand interface {
		Type() tp.Type
		operand()
	}

	Literal struct {
		Text string
		T    tp.Type
	}

	Var struct {
		Name string
		T    tp.Type
	}

	// Elem is Base[Index]. T is the element type.
	Elem struct {
		Base  string
		Index Operand
		T     tp.Type
	}

	Instr interface {
		instr()
	}

	Assign struct {
		Dest Operand // Var or Elem
		T    tp.Type
		RHS  Instr
	}

	// Call is an invocation or an allocation.
	// Caller is nil for Static and NewObject, Class names the target then.
	Call struct {
		Kind   CallKind
		Caller Operand
		Class  string
		Method string
		Args   []Operand
		Ret    tp.Type
	}

	BinaryOp struct {
		Op Op
		L  Operand
		R  Operand
		T  tp.Type
	}

	UnaryOp struct {
		Op Op
		X  Operand
		T  tp.Type
	}

	SingleOp struct {
		X Operand
	}

	Return struct {
		X Operand // nil for void
		T tp.Type
	}

	CondBranch struct {
		Cond  Instr
		Label string
	}

	Goto struct {
		Label string
	}

	// PutField and GetField with nil Object access a static field of the class.
	PutField struct {
		Object Operand
		Field  Var
		Value  Operand
	}

	GetField struct {
		Object Operand
		Field  Var
		T      tp.Type
	}

	CallKind int

	Op string
)

const (
	Static CallKind = iota
	Special
	Virtual
	Interface
	NewObject
	NewArray
	ArrayLength
)

const (
	Add Op = "+"
	Sub Op = "-"
	Mul Op = "*"
	Div Op = "/"
	Lt  Op = "<"
	Le  Op = "<="
	Gt  Op = ">"
	Ge  Op = ">="
	Eq  Op = "=="
	Ne  Op = "!="
	And Op = "&&"
	Or  Op = "||"

	Not Op = "!"
	Neg Op = "neg"
)

// This is the receiver variable name.
const This = "this"

func (x Literal) Type() tp.Type { return x.T }
func (x Var) Type() tp.Type     { return x.T }
func (x Elem) Type() tp.Type    { return x.T }

func (Literal) operand() {}
func (Var) operand()     {}
func (Elem) operand()    {}

func (*Assign) instr()     {}
func (*Call) instr()       {}
func (*BinaryOp) instr()   {}
func (*UnaryOp) instr()    {}
func (*SingleOp) instr()   {}
func (*Return) instr()     {}
func (*CondBranch) instr() {}
func (*Goto) instr()       {}
func (*PutField) instr()   {}
func (*GetField) instr()   {}

var callKindNames = []string{
	Static:      "invokestatic",
	Special:     "invokespecial",
	Virtual:     "invokevirtual",
	Interface:   "invokeinterface",
	NewObject:   "new",
	NewArray:    "new",
	ArrayLength: "arraylength",
}

func (k CallKind) String() string {
	if k < 0 || int(k) >= len(callKindNames) {
		return "call?"
	}

	return callKindNames[k]
}

func (op Op) IsCompare() bool {
	switch op {
	case Lt, Le, Gt, Ge, Eq, Ne:
		return true
	}

	return false
}

func (op Op) IsLogic() bool {
	return op == And || op == Or || op == Not
}

// Result is the type an operator produces.
func (op Op) Result() tp.Type {
	switch op {
	case Add, Sub, Mul, Div, Neg:
		return tp.Int{}
	}

	return tp.Bool{}
}

// Swap returns the comparison with operands exchanged: a op b == b op.Swap() a.
func (op Op) Swap() Op {
	switch op {
	case Lt:
		return Gt
	case Gt:
		return Lt
	case Le:
		return Ge
	case Ge:
		return Le
	}

	return op
}

// Negate returns the complementary comparison.
func (op Op) Negate() Op {
	switch op {
	case Lt:
		return Ge
	case Ge:
		return Lt
	case Gt:
		return Le
	case Le:
		return Gt
	case Eq:
		return Ne
	case Ne:
		return Eq
	}

	return op
}

// Type is the type of the value an instruction produces.
func Type(x Instr) tp.Type {
	switch x := x.(type) {
	case *Assign:
		return x.T
	case *Call:
		return x.Ret
	case *BinaryOp:
		return x.T
	case *UnaryOp:
		return x.T
	case *SingleOp:
		return x.X.Type()
	case *GetField:
		return x.T
	}

	return tp.Void{}
}

// Uses returns the variable names an instruction reads.
func Uses(x Instr) (r []string) {
	add := func(o Operand) {
		switch o := o.(type) {
		case Var:
			r = append(r, o.Name)
		case Elem:
			r = append(r, o.Base)

			if v, ok := o.Index.(Var); ok {
				r = append(r, v.Name)
			}
		}
	}

	switch x := x.(type) {
	case *Assign:
		if e, ok := x.Dest.(Elem); ok {
			add(e)
		}

		r = append(r, Uses(x.RHS)...)
	case *Call:
		if x.Caller != nil {
			add(x.Caller)
		}

		for _, a := range x.Args {
			add(a)
		}
	case *BinaryOp:
		add(x.L)
		add(x.R)
	case *UnaryOp:
		add(x.X)
	case *SingleOp:
		add(x.X)
	case *Return:
		if x.X != nil {
			add(x.X)
		}
	case *CondBranch:
		r = append(r, Uses(x.Cond)...)
	case *PutField:
		add(x.Object)
		add(x.Value)
	case *GetField:
		add(x.Object)
	}

	return r
}

// Def returns the variable an instruction writes.
// Element stores write memory, not a variable.
func Def(x Instr) (string, bool) {
	a, ok := x.(*Assign)
	if !ok {
		return "", false
	}

	v, ok := a.Dest.(Var)
	if !ok {
		return "", false
	}

	return v.Name, true
}
