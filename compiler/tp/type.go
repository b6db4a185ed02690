package tp

import "fmt"

type (
	Type interface {
		fmt.Stringer

		tp()
	}

	Int    struct{}
	Bool   struct{}
	Void   struct{}
	String struct{}

	Array struct {
		Elem Type
	}

	// Class is a reference to a class type.
	// Own marks the class being compiled, imported classes have it unset.
	Class struct {
		Name string
		Own  bool
	}

	// Receiver is the type of this.
	Receiver struct {
		Class string
	}
)

func (Int) tp()      {}
func (Bool) tp()     {}
func (Void) tp()     {}
func (String) tp()   {}
func (Array) tp()    {}
func (Class) tp()    {}
func (Receiver) tp() {}

func (Int) String() string    { return "int" }
func (Bool) String() string   { return "boolean" }
func (Void) String() string   { return "void" }
func (String) String() string { return "String" }

func (x Array) String() string {
	return fmt.Sprintf("%v[]", x.Elem)
}

func (x Class) String() string {
	return x.Name
}

func (x Receiver) String() string {
	return "this." + x.Class
}

func Equal(x, y Type) bool {
	return x == y
}

// IsRef reports whether values of the type are object references.
func IsRef(x Type) bool {
	switch x.(type) {
	case String, Array, Class, Receiver:
		return true
	}

	return false
}

// IsVoid reports whether x is nil or Void.
func IsVoid(x Type) bool {
	if x == nil {
		return true
	}

	_, ok := x.(Void)

	return ok
}

func Elem(x Type) Type {
	if a, ok := x.(Array); ok {
		return a.Elem
	}

	return nil
}

// ClassName returns the class named by a class or receiver type.
func ClassName(x Type) (string, bool) {
	switch x := x.(type) {
	case Class:
		return x.Name, true
	case Receiver:
		return x.Class, true
	case String:
		return "String", true
	}

	return "", false
}
