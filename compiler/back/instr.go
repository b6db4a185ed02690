package back

import (
	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/tp"
)

var cmpSuffix = map[ir.Op]string{
	ir.Eq: "eq",
	ir.Ne: "ne",
	ir.Lt: "lt",
	ir.Ge: "ge",
	ir.Gt: "gt",
	ir.Le: "le",
}

var arithOp = map[ir.Op]string{
	ir.Add: "iadd",
	ir.Sub: "isub",
	ir.Mul: "imul",
	ir.Div: "idiv",
	ir.And: "iand",
	ir.Or:  "ior",
}

// instr emits one statement level instruction.
// The operand stack is empty before and after it.
func (e *emitter) instr(x ir.Instr) (err error) {
	switch x := x.(type) {
	case *ir.Assign:
		return e.assign(x)
	case *ir.Call:
		err = e.call(x)
		if err != nil {
			return err
		}

		if !tp.IsVoid(x.Ret) {
			return e.op("pop")
		}

		return nil
	case *ir.Return:
		if x.X == nil {
			err = e.op("return")
		} else {
			err = e.load(x.X)
			if err != nil {
				return err
			}

			err = e.op(string(typeLetter(x.T)) + "return")
		}

		e.unreachable = true

		return err
	case *ir.Goto:
		return e.jump("goto", x.Label)
	case *ir.CondBranch:
		return e.branch(x.Cond, x.Label)
	case *ir.PutField:
		return e.putField(x)
	case *ir.GetField, *ir.BinaryOp, *ir.UnaryOp, *ir.SingleOp:
		err = e.value(x)
		if err != nil {
			return err
		}

		return e.op("pop")
	}

	return ir.Unsupported("", "instruction %T", x)
}

func (e *emitter) assign(x *ir.Assign) (err error) {
	switch d := x.Dest.(type) {
	case ir.Var:
		err = e.value(x.RHS)
		if err != nil {
			return err
		}

		if d.Name == e.keep {
			e.keep, e.onStack = "", d.Name
			return nil
		}

		return e.store(d)
	case ir.Elem:
		err = e.loadVar(d.Base)
		if err != nil {
			return err
		}

		err = e.load(d.Index)
		if err != nil {
			return err
		}

		err = e.value(x.RHS)
		if err != nil {
			return err
		}

		return e.op(arrayOp(d.T, "astore"))
	}

	return ir.Invariant("%v: assignment destination %T", e.m.Name, x.Dest)
}

// value emits an instruction pushing its result.
func (e *emitter) value(x ir.Instr) (err error) {
	switch x := x.(type) {
	case *ir.SingleOp:
		return e.load(x.X)
	case *ir.BinaryOp:
		if x.Op.IsCompare() {
			return e.compare(x)
		}

		op, ok := arithOp[x.Op]
		if !ok {
			return ir.Unsupported("", "binary operator %v", x.Op)
		}

		err = e.load(x.L)
		if err != nil {
			return err
		}

		err = e.load(x.R)
		if err != nil {
			return err
		}

		return e.op(op)
	case *ir.UnaryOp:
		err = e.load(x.X)
		if err != nil {
			return err
		}

		switch x.Op {
		case ir.Not:
			err = e.op("iconst_1")
			if err != nil {
				return err
			}

			return e.op("ixor")
		case ir.Neg:
			return e.op("ineg")
		}

		return ir.Unsupported("", "unary operator %v", x.Op)
	case *ir.Call:
		if tp.IsVoid(x.Ret) {
			return ir.Invariant("%v: void call %v used as a value", e.m.Name, x.Method)
		}

		return e.call(x)
	case *ir.GetField:
		return e.getField(x)
	}

	return ir.Unsupported("", "value instruction %T", x)
}

// compare turns a comparison into 0 or 1 on the stack.
func (e *emitter) compare(x *ir.BinaryOp) error {
	ltrue, lend := e.newLabels("cmp")

	err := e.branch(x, ltrue)
	if err != nil {
		return err
	}

	err = e.op("iconst_0")
	if err != nil {
		return err
	}

	err = e.jump("goto", lend)
	if err != nil {
		return err
	}

	err = e.label(ltrue)
	if err != nil {
		return err
	}

	err = e.op("iconst_1")
	if err != nil {
		return err
	}

	return e.label(lend)
}

// branch jumps to label if cond holds.
func (e *emitter) branch(cond ir.Instr, label string) (err error) {
	switch x := cond.(type) {
	case *ir.BinaryOp:
		if !x.Op.IsCompare() {
			break
		}

		sfx := cmpSuffix[x.Op]

		switch {
		case isZero(x.R):
			err = e.load(x.L)
		case isZero(x.L):
			err = e.load(x.R)
			sfx = cmpSuffix[x.Op.Swap()]
		default:
			err = e.load(x.L)
			if err != nil {
				return err
			}

			err = e.load(x.R)
			if err != nil {
				return err
			}

			return e.jump("if_icmp"+sfx, label)
		}

		if err != nil {
			return err
		}

		return e.jump("if"+sfx, label)
	case *ir.UnaryOp:
		if x.Op != ir.Not {
			break
		}

		err = e.load(x.X)
		if err != nil {
			return err
		}

		return e.jump("ifeq", label)
	}

	err = e.value(cond)
	if err != nil {
		return err
	}

	return e.jump("ifne", label)
}

func (e *emitter) call(x *ir.Call) (err error) {
	switch x.Kind {
	case ir.NewObject:
		return e.op("new", e.cls.Resolve(x.Class))
	case ir.NewArray:
		if len(x.Args) != 1 {
			return ir.Invariant("%v: array allocation with %d sizes", e.m.Name, len(x.Args))
		}

		err = e.load(x.Args[0])
		if err != nil {
			return err
		}

		switch el := tp.Elem(x.Ret).(type) {
		case tp.Int:
			return e.op("newarray", "int")
		case tp.Bool:
			return e.op("newarray", "boolean")
		case tp.String:
			return e.op("anewarray", "java/lang/String")
		case tp.Class:
			return e.op("anewarray", e.cls.Resolve(el.Name))
		default:
			return ir.Unsupported("", "array of %v", el)
		}
	case ir.ArrayLength:
		err = e.load(x.Caller)
		if err != nil {
			return err
		}

		return e.op("arraylength")
	}

	recv := x.Kind != ir.Static

	if recv {
		if x.Caller == nil {
			return ir.Invariant("%v: %v %v without receiver", e.m.Name, x.Kind, x.Method)
		}

		err = e.load(x.Caller)
		if err != nil {
			return err
		}
	}

	params := make([]tp.Type, len(x.Args))

	for i, a := range x.Args {
		err = e.load(a)
		if err != nil {
			return err
		}

		params[i] = a.Type()
	}

	class, err := e.callClass(x)
	if err != nil {
		return err
	}

	desc, err := MethodDescriptor(e.cls, params, x.Ret)
	if err != nil {
		return err
	}

	target := class + "/" + x.Method + desc
	ret := !tp.IsVoid(x.Ret)

	switch x.Kind {
	case ir.Static:
		return e.invoke("invokestatic", target, len(x.Args), false, ret)
	case ir.Special:
		return e.invoke("invokespecial", target, len(x.Args), true, ret)
	case ir.Virtual:
		return e.invoke("invokevirtual", target, len(x.Args), true, ret)
	case ir.Interface:
		return e.invoke("invokeinterface", target, len(x.Args), true, ret, len(x.Args)+1)
	}

	return ir.Unsupported("", "call kind %v", x.Kind)
}

// callClass is the class owning the invoked method.
func (e *emitter) callClass(x *ir.Call) (string, error) {
	if x.Kind == ir.Static {
		return e.cls.Resolve(x.Class), nil
	}

	t := x.Caller.Type()

	if _, ok := t.(tp.Receiver); ok && x.Kind == ir.Special && x.Method == "<init>" {
		return e.cls.SuperName(), nil
	}

	name, ok := tp.ClassName(t)
	if !ok {
		return "", ir.Unsupported("", "method %v on %v", x.Method, t)
	}

	return e.cls.Resolve(name), nil
}

func (e *emitter) getField(x *ir.GetField) error {
	d, err := Descriptor(e.cls, x.T)
	if err != nil {
		return err
	}

	if x.Object == nil {
		return e.op("getstatic", e.fieldRef(nil, x.Field.Name), d)
	}

	err = e.load(x.Object)
	if err != nil {
		return err
	}

	return e.op("getfield", e.fieldRef(x.Object, x.Field.Name), d)
}

func (e *emitter) putField(x *ir.PutField) error {
	d, err := Descriptor(e.cls, x.Field.T)
	if err != nil {
		return err
	}

	op := "putstatic"

	if x.Object != nil {
		op = "putfield"

		err = e.load(x.Object)
		if err != nil {
			return err
		}
	}

	err = e.load(x.Value)
	if err != nil {
		return err
	}

	return e.op(op, e.fieldRef(x.Object, x.Field.Name), d)
}

func (e *emitter) fieldRef(obj ir.Operand, field string) string {
	class := e.cls.Name

	if obj == nil {
		return class + "/" + field
	}

	if name, ok := tp.ClassName(obj.Type()); ok {
		class = e.cls.Resolve(name)
	}

	return class + "/" + field
}

// load pushes an operand.
func (e *emitter) load(op ir.Operand) error {
	switch op := op.(type) {
	case ir.Literal:
		switch op.T.(type) {
		case tp.Int, tp.Bool:
		default:
			return ir.Unsupported("", "literal of type %v", op.T)
		}

		v, err := parseInt(op.Text)
		if err != nil {
			return err
		}

		return e.op(PushInt(v))
	case ir.Var:
		if op.Name == e.onStack {
			e.onStack = ""
			return nil
		}

		return e.loadVar(op.Name)
	case ir.Elem:
		err := e.loadVar(op.Base)
		if err != nil {
			return err
		}

		err = e.load(op.Index)
		if err != nil {
			return err
		}

		return e.op(arrayOp(op.T, "aload"))
	case nil:
		return ir.Invariant("%v: nil operand", e.m.Name)
	}

	return ir.Unsupported("", "operand %T", op)
}

func (e *emitter) loadVar(name string) error {
	v, err := e.variable(name)
	if err != nil {
		return err
	}

	return e.op(slot(string(typeLetter(v.T))+"load", v.Reg))
}

func (e *emitter) store(d ir.Var) error {
	v, err := e.variable(d.Name)
	if err != nil {
		return err
	}

	return e.op(slot(string(typeLetter(v.T))+"store", v.Reg))
}

func (e *emitter) variable(name string) (*ir.Variable, error) {
	v := e.m.Vars.Get(name)
	if v == nil {
		return nil, ir.Invariant("%v: undeclared variable %v", e.m.Name, name)
	}

	if v.Reg < 0 {
		return nil, ir.Invariant("%v: no register for %v", e.m.Name, name)
	}

	e.regs.Set(v.Reg)

	return v, nil
}

// arrayOp is iaload or iastore like opcode for the element type.
func arrayOp(el tp.Type, op string) string {
	switch el.(type) {
	case tp.Bool:
		return "b" + op
	case tp.Int:
		return "i" + op
	}

	return "a" + op
}
