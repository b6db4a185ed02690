package back

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/tp"
)

// Descriptor returns the field descriptor of the type.
func Descriptor(cls *ir.Class, t tp.Type) (string, error) {
	switch t := t.(type) {
	case tp.Int:
		return "I", nil
	case tp.Bool:
		return "Z", nil
	case tp.Void, nil:
		return "V", nil
	case tp.String:
		return "Ljava/lang/String;", nil
	case tp.Array:
		el, err := Descriptor(cls, t.Elem)
		if err != nil {
			return "", err
		}

		return "[" + el, nil
	case tp.Class:
		return "L" + cls.Resolve(t.Name) + ";", nil
	case tp.Receiver:
		return "L" + cls.Resolve(t.Class) + ";", nil
	}

	return "", ir.Unsupported("", "type %v", t)
}

// MethodDescriptor returns (params)ret descriptor.
func MethodDescriptor(cls *ir.Class, params []tp.Type, ret tp.Type) (string, error) {
	var b strings.Builder

	b.WriteByte('(')

	for _, p := range params {
		d, err := Descriptor(cls, p)
		if err != nil {
			return "", err
		}

		b.WriteString(d)
	}

	b.WriteByte(')')

	d, err := Descriptor(cls, ret)
	if err != nil {
		return "", err
	}

	b.WriteString(d)

	return b.String(), nil
}

// PushInt returns the shortest instruction pushing v.
func PushInt(v int32) string {
	switch {
	case v == -1:
		return "iconst_m1"
	case v >= 0 && v <= 5:
		return fmt.Sprintf("iconst_%d", v)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return fmt.Sprintf("bipush %d", v)
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return fmt.Sprintf("sipush %d", v)
	}

	return fmt.Sprintf("ldc %d", v)
}

// parseInt parses an int32 literal.
func parseInt(text string) (int32, error) {
	v, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, &ir.LiteralError{Text: text, Err: err}
	}

	return int32(v), nil
}

func isZero(op ir.Operand) bool {
	l, ok := op.(ir.Literal)
	if !ok {
		return false
	}

	v, err := parseInt(l.Text)

	return err == nil && v == 0
}

// typeLetter is the opcode prefix for values of the type.
func typeLetter(t tp.Type) byte {
	if tp.IsRef(t) {
		return 'a'
	}

	return 'i'
}

// slot formats a local variable instruction, using the short form when there is one.
func slot(op string, reg int) string {
	if reg <= 3 {
		return fmt.Sprintf("%s_%d", op, reg)
	}

	return fmt.Sprintf("%s %d", op, reg)
}
