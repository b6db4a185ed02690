package back

import (
	"fmt"
	"strings"

	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/set"
)

type (
	// emitter builds the body of one method.
	emitter struct {
		cls *ir.Class
		m   *ir.Method

		b []byte

		depth int
		max   int

		// unreachable is set after goto and return
		// so the depth of the next label is taken from its branches.
		unreachable bool
		labelDepth  map[string]int

		regs set.Bitmap

		// keep is the temporary the current instruction leaves on the stack,
		// onStack is the one the next instruction finds there.
		keep    string
		onStack string

		nextLabel int
	}
)

// effects is the operand stack effect of every emitted opcode.
// Invocations are computed from their descriptors.
var effects = map[string]int{
	"iconst_m1": 1, "iconst_0": 1, "iconst_1": 1, "iconst_2": 1,
	"iconst_3": 1, "iconst_4": 1, "iconst_5": 1,
	"bipush": 1, "sipush": 1, "ldc": 1,

	"iload": 1, "aload": 1,
	"istore": -1, "astore": -1,

	"iaload": -1, "baload": -1, "aaload": -1,
	"iastore": -3, "bastore": -3, "aastore": -3,

	"iadd": -1, "isub": -1, "imul": -1, "idiv": -1,
	"iand": -1, "ior": -1, "ixor": -1,
	"ineg": 0,

	"ifeq": -1, "ifne": -1, "iflt": -1, "ifge": -1, "ifgt": -1, "ifle": -1,
	"if_icmpeq": -2, "if_icmpne": -2, "if_icmplt": -2,
	"if_icmpge": -2, "if_icmpgt": -2, "if_icmple": -2,
	"goto": 0,

	"new": 1, "newarray": 0, "anewarray": 0, "arraylength": 0,
	"getfield": 0, "putfield": -2,
	"getstatic": 1, "putstatic": -1,
	"dup": 1, "pop": -1,

	"ireturn": -1, "areturn": -1, "return": 0,
}

// Effect returns the stack effect of an opcode without operands.
// An opcode with a local slot suffix such as iload_1 counts as its base opcode.
func Effect(op string) (int, bool) {
	if d, ok := effects[op]; ok {
		return d, true
	}

	if i := strings.LastIndexByte(op, '_'); i > 0 {
		switch op[:i] {
		case "iload", "aload", "istore", "astore":
			return effects[op[:i]], true
		}
	}

	return 0, false
}

// InvokeEffect is the stack effect of an invocation.
func InvokeEffect(args int, recv bool, ret bool) int {
	d := -args

	if recv {
		d--
	}

	if ret {
		d++
	}

	return d
}

func newEmitter(cls *ir.Class, m *ir.Method) *emitter {
	return &emitter{
		cls:        cls,
		m:          m,
		labelDepth: make(map[string]int),
		regs:       set.MakeBitmap(m.Reserved()),
	}
}

// op emits an opcode with operands and tracks its stack effect.
func (e *emitter) op(op string, args ...any) error {
	base := op
	if i := strings.IndexByte(op, ' '); i >= 0 {
		base = op[:i]
	}

	d, ok := Effect(base)
	if !ok {
		return ir.Invariant("no stack effect for %v", base)
	}

	e.line(op, args...)

	return e.adjust(d)
}

func (e *emitter) invoke(op string, target string, args int, recv bool, ret bool, extra ...any) error {
	e.line(op+" "+target, extra...)

	return e.adjust(InvokeEffect(args, recv, ret))
}

func (e *emitter) line(op string, args ...any) {
	e.b = append(e.b, '\t')
	e.b = append(e.b, op...)

	for _, a := range args {
		e.b = fmt.Appendf(e.b, " %v", a)
	}

	e.b = append(e.b, '\n')
}

func (e *emitter) adjust(d int) error {
	e.depth += d

	if e.depth < 0 {
		return ir.Invariant("%v: operand stack underflow", e.m.Name)
	}

	if e.depth > e.max {
		e.max = e.depth
	}

	return nil
}

// jump emits a branch and remembers the stack depth at its target.
func (e *emitter) jump(op, label string) error {
	err := e.op(op, label)
	if err != nil {
		return err
	}

	if d, ok := e.labelDepth[label]; ok && d != e.depth {
		return ir.Invariant("%v: stack depth mismatch at %v: %d vs %d", e.m.Name, label, d, e.depth)
	}

	e.labelDepth[label] = e.depth

	if op == "goto" {
		e.unreachable = true
	}

	return nil
}

func (e *emitter) label(l string) error {
	d, ok := e.labelDepth[l]

	switch {
	case ok && e.unreachable:
		e.depth = d
	case ok && d != e.depth:
		return ir.Invariant("%v: stack depth mismatch at %v: %d vs %d", e.m.Name, l, d, e.depth)
	case !e.unreachable:
		e.labelDepth[l] = e.depth
	}

	e.unreachable = false

	e.b = fmt.Appendf(e.b, "%s:\n", l)

	return nil
}

func (e *emitter) newLabels(prefix string) (string, string) {
	n := e.nextLabel
	e.nextLabel++

	return fmt.Sprintf("%s_%d_true", prefix, n), fmt.Sprintf("%s_%d_end", prefix, n)
}

func (e *emitter) locals() int {
	n := e.regs.Last() + 1

	if r := e.m.Reserved(); n < r {
		n = r
	}

	return n
}
