package ir

import (
	"sort"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/jmmc/compiler/tp"
)

type (
	Class struct {
		Name    string
		Super   string // empty for the root object type
		Imports []Import

		Fields  []Field
		Methods []*Method
	}

	Import struct {
		Name      string // name the class is referred by
		Path      string // slash separated
		Interface bool
	}

	Field struct {
		Name   string
		T      tp.Type
		Access Access
		Static bool
		Final  bool
	}

	Access int

	Param struct {
		Name string
		T    tp.Type
	}

	Method struct {
		Name      string
		Public    bool
		Static    bool
		Construct bool

		Params  []Param
		Varargs bool
		Ret     tp.Type

		Code   []Instr
		Labels map[string]int // label -> index of the next instruction

		Vars *VarTable
	}

	VarTable struct {
		list []*Variable
		idx  map[string]int
	}

	Variable struct {
		Name string
		T    tp.Type
		Kind VarKind
		Reg  int // -1 until registers are allocated
	}

	VarKind int
)

const (
	Default Access = iota
	Public
	Private
	Protected
)

const (
	KindThis VarKind = iota
	KindParam
	KindLocal
	KindTemp
)

// ObjectClass is the root object type of the VM.
const ObjectClass = "java/lang/Object"

const NoReg = -1

func NewMethod(name string) *Method {
	return &Method{
		Name:   name,
		Ret:    tp.Void{},
		Labels: make(map[string]int),
		Vars:   NewVarTable(),
	}
}

func (m *Method) Append(xs ...Instr) {
	m.Code = append(m.Code, xs...)
}

// Label places a label before the next appended instruction.
func (m *Method) Label(name string) error {
	if _, ok := m.Labels[name]; ok {
		return Invariant("label redefined: %v", name)
	}

	m.Labels[name] = len(m.Code)

	return nil
}

func (m *Method) Target(label string) (int, bool) {
	i, ok := m.Labels[label]
	return i, ok
}

// LabelsAt returns labels placed before each instruction index, sorted by name.
func (m *Method) LabelsAt() map[int][]string {
	r := make(map[int][]string, len(m.Labels))

	for l, i := range m.Labels {
		r[i] = append(r[i], l)
	}

	for _, ls := range r {
		sort.Strings(ls)
	}

	return r
}

// Reserved is the number of local slots taken by the receiver and parameters.
func (m *Method) Reserved() int {
	n := len(m.Params)

	if !m.Static {
		n++
	}

	return n
}

// Clone copies the method with its own variable table.
// Code is shared and must be treated as read only.
func (m *Method) Clone() *Method {
	c := *m
	c.Vars = m.Vars.Clone()

	c.Labels = make(map[string]int, len(m.Labels))
	for l, i := range m.Labels {
		c.Labels[l] = i
	}

	return &c
}

// Check verifies every variable operand is declared and every label exists.
func (m *Method) Check() error {
	for i, x := range m.Code {
		for _, name := range Uses(x) {
			if m.Vars.Get(name) == nil {
				return Invariant("%v: instr %d: undeclared variable %v", m.Name, i, name)
			}
		}

		if name, ok := Def(x); ok && m.Vars.Get(name) == nil {
			return Invariant("%v: instr %d: undeclared variable %v", m.Name, i, name)
		}

		var l string

		switch x := x.(type) {
		case *Goto:
			l = x.Label
		case *CondBranch:
			l = x.Label
		default:
			continue
		}

		if j, ok := m.Labels[l]; !ok || j < 0 || j > len(m.Code) {
			return Invariant("%v: instr %d: undefined label %v", m.Name, i, l)
		}
	}

	return nil
}

func NewVarTable() *VarTable {
	return &VarTable{idx: make(map[string]int)}
}

func (t *VarTable) Add(v Variable) (*Variable, error) {
	if _, ok := t.idx[v.Name]; ok {
		return nil, Invariant("variable redeclared: %v", v.Name)
	}

	p := &v

	t.idx[v.Name] = len(t.list)
	t.list = append(t.list, p)

	return p, nil
}

func (t *VarTable) Get(name string) *Variable {
	i, ok := t.idx[name]
	if !ok {
		return nil
	}

	return t.list[i]
}

func (t *VarTable) Len() int { return len(t.list) }

// All returns variables in declaration order.
func (t *VarTable) All() []*Variable { return t.list }

func (t *VarTable) Clone() *VarTable {
	c := &VarTable{
		list: make([]*Variable, len(t.list)),
		idx:  make(map[string]int, len(t.idx)),
	}

	for i, v := range t.list {
		cp := *v

		c.list[i] = &cp
		c.idx[v.Name] = i
	}

	return c
}

func (t *VarTable) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, len(t.list))

	for _, v := range t.list {
		b = e.AppendKeyInt64(b, v.Name, int64(v.Reg))
	}

	return b
}

// SuperName is the superclass, defaulting to the root object type.
func (c *Class) SuperName() string {
	if c.Super == "" {
		return ObjectClass
	}

	return c.Resolve(c.Super)
}

// Resolve maps a class name as written in the source to its internal name.
func (c *Class) Resolve(name string) string {
	if name == c.Name {
		return name
	}

	for _, imp := range c.Imports {
		if imp.Name == name {
			return imp.Path
		}
	}

	switch name {
	case "String":
		return "java/lang/String"
	case "Object":
		return ObjectClass
	}

	return name
}

func (c *Class) Import(name string) (Import, bool) {
	for _, imp := range c.Imports {
		if imp.Name == name {
			return imp, true
		}
	}

	return Import{}, false
}

func (c *Class) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

func (c *Class) Method(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}

	return nil
}

// Clone copies the class and every method variable table.
func (c *Class) Clone() *Class {
	cp := *c
	cp.Methods = make([]*Method, len(c.Methods))

	for i, m := range c.Methods {
		cp.Methods[i] = m.Clone()
	}

	return &cp
}

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Private:
		return "private"
	case Protected:
		return "protected"
	}

	return ""
}

func (k VarKind) String() string {
	switch k {
	case KindThis:
		return "this"
	case KindParam:
		return "param"
	case KindLocal:
		return "local"
	case KindTemp:
		return "temp"
	}

	return "var?"
}
