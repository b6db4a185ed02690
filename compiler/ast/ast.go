package ast

import "fmt"

type (
	Node interface {
		Position() Base
	}

	Expr interface {
		Node
		expr()
	}

	Stmt interface {
		Node
		stmt()
	}

	// Base is a source position.
	Base struct {
		Line int
		Col  int
	}

	Program struct {
		Base `tlog:",embed"`

		Imports []*Import
		Class   *Class
	}

	Import struct {
		Base `tlog:",embed"`

		Path      []string
		Interface bool
	}

	Class struct {
		Base `tlog:",embed"`

		Name    string
		Extends string

		Fields  []*VarDecl
		Methods []*Method
	}

	TypeName struct {
		Name    string
		Array   bool
		Varargs bool
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Name string
		Type TypeName

		Public bool
		Static bool
		Final  bool
	}

	Method struct {
		Base `tlog:",embed"`

		Name   string
		Public bool
		Static bool

		Params []*VarDecl
		Ret    TypeName
		Locals []*VarDecl

		Body []Stmt
	}

	Block struct {
		Base `tlog:",embed"`

		Stmts []Stmt
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then Stmt
		Else Stmt
	}

	While struct {
		Base `tlog:",embed"`

		Cond Expr
		Body Stmt
	}

	ExprStmt struct {
		Base `tlog:",embed"`

		X Expr
	}

	Assign struct {
		Base `tlog:",embed"`

		Name  string
		Value Expr
	}

	IndexAssign struct {
		Base `tlog:",embed"`

		Name  string
		Index Expr
		Value Expr
	}

	Return struct {
		Base `tlog:",embed"`

		Value Expr
	}

	IntLit struct {
		Base `tlog:",embed"`

		Value string
	}

	BoolLit struct {
		Base `tlog:",embed"`

		Value bool
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	This struct {
		Base `tlog:",embed"`
	}

	Paren struct {
		Base `tlog:",embed"`

		X Expr
	}

	Binary struct {
		Base `tlog:",embed"`

		Op    string
		Left  Expr
		Right Expr
	}

	Unary struct {
		Base `tlog:",embed"`

		Op string
		X  Expr
	}

	Call struct {
		Base `tlog:",embed"`

		Recv Expr
		Name string
		Args []Expr
	}

	New struct {
		Base `tlog:",embed"`

		Class string
	}

	NewArray struct {
		Base `tlog:",embed"`

		Elem TypeName
		Size Expr
	}

	ArrayLit struct {
		Base `tlog:",embed"`

		Elems []Expr
	}

	Index struct {
		Base `tlog:",embed"`

		X     Expr
		Index Expr
	}

	Length struct {
		Base `tlog:",embed"`

		X Expr
	}
)

func (b Base) Position() Base { return b }

func (b Base) String() string {
	return fmt.Sprintf("%d:%d", b.Line, b.Col)
}

func (x TypeName) String() string {
	switch {
	case x.Varargs:
		return x.Name + "..."
	case x.Array:
		return x.Name + "[]"
	}

	return x.Name
}

// Name returns the last path element, the name the class is referred by.
func (x *Import) Name() string {
	if len(x.Path) == 0 {
		return ""
	}

	return x.Path[len(x.Path)-1]
}

func (*Block) stmt()       {}
func (*If) stmt()          {}
func (*While) stmt()       {}
func (*ExprStmt) stmt()    {}
func (*Assign) stmt()      {}
func (*IndexAssign) stmt() {}
func (*Return) stmt()      {}

func (*IntLit) expr()   {}
func (*BoolLit) expr()  {}
func (*Ident) expr()    {}
func (*This) expr()     {}
func (*Paren) expr()    {}
func (*Binary) expr()   {}
func (*Unary) expr()    {}
func (*Call) expr()     {}
func (*New) expr()      {}
func (*NewArray) expr() {}
func (*ArrayLit) expr() {}
func (*Index) expr()    {}
func (*Length) expr()   {}
