package ast

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

type (
	varDeclDoc struct {
		Name   string `yaml:"name"`
		Type   string `yaml:"type"`
		Public bool   `yaml:"public"`
		Static bool   `yaml:"static"`
		Final  bool   `yaml:"final"`
	}

	importDoc struct {
		Path      string `yaml:"path"`
		Interface bool   `yaml:"interface"`
	}
)

// Decode decodes the first program of a YAML stream.
func Decode(data []byte) (*Program, error) {
	ps, err := DecodeAll(data)
	if err != nil {
		return nil, err
	}

	if len(ps) == 0 {
		return nil, errors.New("no program in document")
	}

	return ps[0], nil
}

// DecodeAll decodes every document of a YAML stream as an independent program.
func DecodeAll(data []byte) (ps []*Program, err error) {
	d := yaml.NewDecoder(bytes.NewReader(data))

	for {
		var doc yaml.Node

		err = d.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "yaml")
		}

		p, err := program(&doc)
		if err != nil {
			return nil, errors.Wrap(err, "document %d", len(ps))
		}

		ps = append(ps, p)
	}

	return ps, nil
}

// ParseType parses type names like int, int[], int... or a class name.
func ParseType(s string) TypeName {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasSuffix(s, "..."):
		return TypeName{Name: strings.TrimSpace(strings.TrimSuffix(s, "...")), Array: true, Varargs: true}
	case strings.HasSuffix(s, "[]"):
		return TypeName{Name: strings.TrimSpace(strings.TrimSuffix(s, "[]")), Array: true}
	case s == "":
		return TypeName{Name: "void"}
	}

	return TypeName{Name: s}
}

func program(doc *yaml.Node) (*Program, error) {
	n := doc

	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, errAt(n, "empty document")
		}

		n = n.Content[0]
	}

	m, err := mapping(n)
	if err != nil {
		return nil, err
	}

	p := &Program{Base: pos(n)}

	if imps := m["imports"]; imps != nil {
		if imps.Kind != yaml.SequenceNode {
			return nil, errAt(imps, "imports: sequence expected")
		}

		for _, in := range imps.Content {
			imp, err := importDecl(in)
			if err != nil {
				return nil, errors.Wrap(err, "import")
			}

			p.Imports = append(p.Imports, imp)
		}
	}

	c := m["class"]
	if c == nil {
		return nil, errAt(n, "class expected")
	}

	p.Class, err = classDecl(c)
	if err != nil {
		return nil, errors.Wrap(err, "class")
	}

	return p, nil
}

func importDecl(n *yaml.Node) (*Import, error) {
	var d importDoc

	switch n.Kind {
	case yaml.ScalarNode:
		d.Path = n.Value
	case yaml.MappingNode:
		if err := n.Decode(&d); err != nil {
			return nil, errors.Wrap(err, "decode")
		}
	default:
		return nil, errAt(n, "import path expected")
	}

	if d.Path == "" {
		return nil, errAt(n, "empty import path")
	}

	return &Import{
		Base:      pos(n),
		Path:      strings.Split(d.Path, "."),
		Interface: d.Interface,
	}, nil
}

func classDecl(n *yaml.Node) (c *Class, err error) {
	m, err := mapping(n)
	if err != nil {
		return nil, err
	}

	c = &Class{Base: pos(n)}

	if err = scalar(m, "name", &c.Name); err != nil {
		return nil, err
	}
	if err = scalar(m, "extends", &c.Extends); err != nil {
		return nil, err
	}

	if c.Name == "" {
		return nil, errAt(n, "class name expected")
	}

	c.Fields, err = varDecls(m["fields"])
	if err != nil {
		return nil, errors.Wrap(err, "fields")
	}

	if ms := m["methods"]; ms != nil {
		if ms.Kind != yaml.SequenceNode {
			return nil, errAt(ms, "methods: sequence expected")
		}

		for _, mn := range ms.Content {
			md, err := methodDecl(mn)
			if err != nil {
				return nil, errors.Wrap(err, "method")
			}

			c.Methods = append(c.Methods, md)
		}
	}

	return c, nil
}

func methodDecl(n *yaml.Node) (md *Method, err error) {
	m, err := mapping(n)
	if err != nil {
		return nil, err
	}

	md = &Method{Base: pos(n)}

	var ret string

	for _, f := range []struct {
		key string
		dst any
	}{
		{"name", &md.Name},
		{"public", &md.Public},
		{"static", &md.Static},
		{"ret", &ret},
	} {
		if err = scalar(m, f.key, f.dst); err != nil {
			return nil, err
		}
	}

	if md.Name == "" {
		return nil, errAt(n, "method name expected")
	}

	md.Ret = ParseType(ret)

	md.Params, err = varDecls(m["params"])
	if err != nil {
		return nil, errors.Wrap(err, "%v: params", md.Name)
	}

	md.Locals, err = varDecls(m["locals"])
	if err != nil {
		return nil, errors.Wrap(err, "%v: locals", md.Name)
	}

	if b := m["body"]; b != nil {
		md.Body, err = stmts(b)
		if err != nil {
			return nil, errors.Wrap(err, "%v: body", md.Name)
		}
	}

	return md, nil
}

func varDecls(n *yaml.Node) (ds []*VarDecl, err error) {
	if n == nil {
		return nil, nil
	}

	if n.Kind != yaml.SequenceNode {
		return nil, errAt(n, "sequence expected")
	}

	for _, vn := range n.Content {
		var d varDeclDoc

		if err = vn.Decode(&d); err != nil {
			return nil, errors.Wrap(err, "decode")
		}

		if d.Name == "" {
			return nil, errAt(vn, "variable name expected")
		}

		ds = append(ds, &VarDecl{
			Base:   pos(vn),
			Name:   d.Name,
			Type:   ParseType(d.Type),
			Public: d.Public,
			Static: d.Static,
			Final:  d.Final,
		})
	}

	return ds, nil
}

func stmts(n *yaml.Node) (ss []Stmt, err error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errAt(n, "statement list expected")
	}

	for _, sn := range n.Content {
		s, err := stmt(sn)
		if err != nil {
			return nil, err
		}

		ss = append(ss, s)
	}

	return ss, nil
}

// body accepts a single statement or a list standing for a block.
func body(n *yaml.Node) (Stmt, error) {
	if n == nil {
		return nil, nil
	}

	if n.Kind == yaml.SequenceNode {
		ss, err := stmts(n)
		if err != nil {
			return nil, err
		}

		return &Block{Base: pos(n), Stmts: ss}, nil
	}

	return stmt(n)
}

func stmt(n *yaml.Node) (Stmt, error) {
	key, v, err := single(n)
	if err != nil {
		return nil, err
	}

	b := pos(n)

	switch key {
	case "block":
		ss, err := stmts(v)
		if err != nil {
			return nil, err
		}

		return &Block{Base: b, Stmts: ss}, nil
	case "if":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		s := &If{Base: b}

		if s.Cond, err = need(m, v, "cond"); err != nil {
			return nil, errors.Wrap(err, "if")
		}
		if s.Then, err = body(m["then"]); err != nil {
			return nil, errors.Wrap(err, "then")
		}
		if s.Else, err = body(m["else"]); err != nil {
			return nil, errors.Wrap(err, "else")
		}

		return s, nil
	case "while":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		s := &While{Base: b}

		if s.Cond, err = need(m, v, "cond"); err != nil {
			return nil, errors.Wrap(err, "while")
		}
		if s.Body, err = body(m["body"]); err != nil {
			return nil, errors.Wrap(err, "while body")
		}

		return s, nil
	case "expr":
		x, err := expr(v)
		if err != nil {
			return nil, err
		}

		return &ExprStmt{Base: b, X: x}, nil
	case "assign":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		s := &Assign{Base: b}

		if err = scalar(m, "name", &s.Name); err != nil {
			return nil, err
		}
		if s.Value, err = need(m, v, "value"); err != nil {
			return nil, errors.Wrap(err, "assign %v", s.Name)
		}

		return s, nil
	case "index_assign":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		s := &IndexAssign{Base: b}

		if err = scalar(m, "name", &s.Name); err != nil {
			return nil, err
		}
		if s.Index, err = need(m, v, "index"); err != nil {
			return nil, errors.Wrap(err, "assign %v", s.Name)
		}
		if s.Value, err = need(m, v, "value"); err != nil {
			return nil, errors.Wrap(err, "assign %v", s.Name)
		}

		return s, nil
	case "return":
		s := &Return{Base: b}

		if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
			return s, nil
		}

		s.Value, err = expr(v)
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		return s, nil
	}

	return nil, errAt(n, "unknown statement: %v", key)
}

func expr(n *yaml.Node) (Expr, error) {
	key, v, err := single(n)
	if err != nil {
		return nil, err
	}

	b := pos(n)

	switch key {
	case "int":
		return &IntLit{Base: b, Value: v.Value}, nil
	case "bool":
		var x bool

		if err := v.Decode(&x); err != nil {
			return nil, errors.Wrap(err, "bool")
		}

		return &BoolLit{Base: b, Value: x}, nil
	case "ident":
		return &Ident{Base: b, Name: v.Value}, nil
	case "this":
		return &This{Base: b}, nil
	case "paren":
		x, err := expr(v)
		if err != nil {
			return nil, err
		}

		return &Paren{Base: b, X: x}, nil
	case "binary":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		x := &Binary{Base: b}

		if err = scalar(m, "op", &x.Op); err != nil {
			return nil, err
		}
		if x.Left, err = need(m, v, "left"); err != nil {
			return nil, errors.Wrap(err, "binary %v", x.Op)
		}
		if x.Right, err = need(m, v, "right"); err != nil {
			return nil, errors.Wrap(err, "binary %v", x.Op)
		}

		return x, nil
	case "unary":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		x := &Unary{Base: b}

		if err = scalar(m, "op", &x.Op); err != nil {
			return nil, err
		}
		if x.X, err = need(m, v, "x"); err != nil {
			return nil, errors.Wrap(err, "unary %v", x.Op)
		}

		return x, nil
	case "call":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		x := &Call{Base: b}

		if err = scalar(m, "name", &x.Name); err != nil {
			return nil, err
		}
		if r := m["recv"]; r != nil {
			if x.Recv, err = expr(r); err != nil {
				return nil, errors.Wrap(err, "call %v", x.Name)
			}
		}

		if as := m["args"]; as != nil {
			x.Args, err = exprs(as)
			if err != nil {
				return nil, errors.Wrap(err, "call %v: args", x.Name)
			}
		}

		return x, nil
	case "new":
		return &New{Base: b, Class: v.Value}, nil
	case "new_array":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		var elem string

		if err = scalar(m, "type", &elem); err != nil {
			return nil, err
		}
		if elem == "" {
			elem = "int"
		}

		x := &NewArray{Base: b, Elem: ParseType(elem)}

		if x.Size, err = need(m, v, "size"); err != nil {
			return nil, errors.Wrap(err, "new array")
		}

		return x, nil
	case "array":
		xs, err := exprs(v)
		if err != nil {
			return nil, errors.Wrap(err, "array literal")
		}

		return &ArrayLit{Base: b, Elems: xs}, nil
	case "index":
		m, err := mapping(v)
		if err != nil {
			return nil, err
		}

		x := &Index{Base: b}

		if x.X, err = need(m, v, "x"); err != nil {
			return nil, errors.Wrap(err, "index")
		}
		if x.Index, err = need(m, v, "index"); err != nil {
			return nil, errors.Wrap(err, "index")
		}

		return x, nil
	case "length":
		x, err := expr(v)
		if err != nil {
			return nil, err
		}

		return &Length{Base: b, X: x}, nil
	}

	return nil, errAt(n, "unknown expression: %v", key)
}

func exprs(n *yaml.Node) (xs []Expr, err error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errAt(n, "expression list expected")
	}

	for _, xn := range n.Content {
		x, err := expr(xn)
		if err != nil {
			return nil, err
		}

		xs = append(xs, x)
	}

	return xs, nil
}

func need(m map[string]*yaml.Node, parent *yaml.Node, key string) (Expr, error) {
	n := m[key]
	if n == nil {
		return nil, errAt(parent, "%v expected", key)
	}

	return expr(n)
}

func scalar(m map[string]*yaml.Node, key string, dst any) error {
	n := m[key]
	if n == nil {
		return nil
	}

	if n.Kind != yaml.ScalarNode {
		return errAt(n, "%v: scalar expected", key)
	}

	if err := n.Decode(dst); err != nil {
		return errors.Wrap(err, "%v", key)
	}

	return nil
}

func mapping(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errAt(n, "mapping expected")
	}

	m := make(map[string]*yaml.Node, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}

	return m, nil
}

// single unpacks a one-entry mapping used as a tagged node.
func single(n *yaml.Node) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, errAt(n, "single-key mapping expected")
	}

	return n.Content[0].Value, n.Content[1], nil
}

func pos(n *yaml.Node) Base {
	return Base{Line: n.Line, Col: n.Column}
}

func errAt(n *yaml.Node, format string, args ...any) error {
	return errors.New("%d:%d: %s", n.Line, n.Column, fmt.Sprintf(format, args...))
}
