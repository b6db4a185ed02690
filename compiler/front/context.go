package front

import (
	"fmt"

	"github.com/slowlang/jmmc/compiler/ir"
)

type (
	// Context holds the counters of one compilation unit.
	Context struct {
		temp  int
		label int
	}

	// seq is a relocatable instruction sequence with labels.
	seq struct {
		code   []ir.Instr
		labels []mark
	}

	mark struct {
		name string
		at   int
	}
)

func NewContext() *Context {
	return &Context{}
}

func (c *Context) Reset() {
	*c = Context{}
}

// Temp returns the next temporary name.
func (c *Context) Temp() string {
	n := c.temp
	c.temp++

	return fmt.Sprintf("tmp%d", n)
}

func (c *Context) Label(prefix string) string {
	return c.Labels(prefix)[0]
}

// Labels returns a family of labels sharing one number.
func (c *Context) Labels(prefix ...string) []string {
	n := c.label
	c.label++

	r := make([]string, len(prefix))

	for i, p := range prefix {
		r[i] = fmt.Sprintf("%s_%d", p, n)
	}

	return r
}

func (s *seq) add(xs ...ir.Instr) {
	s.code = append(s.code, xs...)
}

func (s *seq) label(name string) {
	s.labels = append(s.labels, mark{name: name, at: len(s.code)})
}

func (s *seq) join(o seq) {
	for _, l := range o.labels {
		s.labels = append(s.labels, mark{name: l.name, at: len(s.code) + l.at})
	}

	s.code = append(s.code, o.code...)
}
