package df

import (
	"context"

	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/set"
)

type (
	// Liveness is the backward dataflow state of one method.
	// Variables are numbered in the method variable table order.
	Liveness struct {
		m *ir.Method

		vars  []string
		index map[string]int

		use  []set.Bitmap
		def  []set.Bitmap
		succ [][]int

		in  []set.Bitmap
		out []set.Bitmap

		sweeps int
	}

	// Interval is a closed range of instruction indices.
	Interval struct {
		Start int
		End   int
	}
)

func New(m *ir.Method) (*Liveness, error) {
	n := len(m.Code)

	l := &Liveness{
		m:     m,
		index: make(map[string]int, m.Vars.Len()),
		use:   make([]set.Bitmap, n),
		def:   make([]set.Bitmap, n),
		succ:  make([][]int, n),
		in:    make([]set.Bitmap, n),
		out:   make([]set.Bitmap, n),
	}

	for i, v := range m.Vars.All() {
		l.vars = append(l.vars, v.Name)
		l.index[v.Name] = i
	}

	for i, x := range m.Code {
		l.use[i] = set.MakeBitmap(len(l.vars))
		l.def[i] = set.MakeBitmap(len(l.vars))
		l.in[i] = set.MakeBitmap(len(l.vars))
		l.out[i] = set.MakeBitmap(len(l.vars))

		for _, name := range ir.Uses(x) {
			j, ok := l.index[name]
			if !ok {
				return nil, ir.Invariant("%v: instr %d: undeclared variable %v", m.Name, i, name)
			}

			l.use[i].Set(j)
		}

		if name, ok := ir.Def(x); ok {
			j, ok := l.index[name]
			if !ok {
				return nil, ir.Invariant("%v: instr %d: undeclared variable %v", m.Name, i, name)
			}

			l.def[i].Set(j)
		}

		succ, err := l.successors(i, x)
		if err != nil {
			return nil, err
		}

		l.succ[i] = succ
	}

	return l, nil
}

func (l *Liveness) successors(i int, x ir.Instr) (r []int, err error) {
	n := len(l.m.Code)

	add := func(j int) {
		if j < n {
			r = append(r, j)
		}
	}

	target := func(label string) (int, error) {
		j, ok := l.m.Target(label)
		if !ok {
			return 0, ir.Invariant("%v: instr %d: undefined label %v", l.m.Name, i, label)
		}

		return j, nil
	}

	switch x := x.(type) {
	case *ir.Return:
	case *ir.Goto:
		j, err := target(x.Label)
		if err != nil {
			return nil, err
		}

		add(j)
	case *ir.CondBranch:
		j, err := target(x.Label)
		if err != nil {
			return nil, err
		}

		add(j)

		if j != i+1 {
			add(i + 1)
		}
	default:
		add(i + 1)
	}

	return r, nil
}

// Sweep runs one pass over instructions in reverse order
// and reports whether any set has grown.
func (l *Liveness) Sweep() (changed bool) {
	for i := len(l.m.Code) - 1; i >= 0; i-- {
		out := set.MakeBitmap(len(l.vars))

		for _, j := range l.succ[i] {
			out.Or(l.in[j])
		}

		in := out.AndNotCopy(l.def[i])
		in.Or(l.use[i])

		if l.out[i].Merge(out) {
			changed = true
		}

		if l.in[i].Merge(in) {
			changed = true
		}
	}

	l.sweeps++

	return changed
}

// Solve sweeps until the fixpoint.
// Methods of a single instruction or less need no sweeps.
func (l *Liveness) Solve(ctx context.Context) {
	if len(l.m.Code) <= 1 {
		for i := range l.m.Code {
			l.in[i].Or(l.use[i])
		}

		return
	}

	for l.Sweep() {
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("liveness") {
		for i := range l.m.Code {
			tr.Printw("live", "method", l.m.Name, "i", i, "in", names{l, l.in[i]}, "out", names{l, l.out[i]})
		}
	}
}

// Analyze computes liveness of the method.
func Analyze(ctx context.Context, m *ir.Method) (l *Liveness, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "df: liveness", "method", m.Name)
	defer tr.Finish("err", &err)

	l, err = New(m)
	if err != nil {
		return nil, err
	}

	l.Solve(ctx)

	tr.V("liveness").Printw("solved", "instrs", len(m.Code), "sweeps", l.sweeps)

	return l, nil
}

func (l *Liveness) Len() int { return len(l.m.Code) }

func (l *Liveness) Sweeps() int { return l.sweeps }

func (l *Liveness) Vars() []string { return l.vars }

func (l *Liveness) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

func (l *Liveness) Use(i int) set.Bitmap { return l.use[i].Copy() }

func (l *Liveness) Def(i int) set.Bitmap { return l.def[i].Copy() }

func (l *Liveness) In(i int) set.Bitmap { return l.in[i].Copy() }

func (l *Liveness) Out(i int) set.Bitmap { return l.out[i].Copy() }

func (l *Liveness) Succ(i int) []int { return l.succ[i] }

// LiveIn returns names of variables live before instruction i.
func (l *Liveness) LiveIn(i int) []string { return l.names(l.in[i]) }

// LiveOut returns names of variables live after instruction i.
func (l *Liveness) LiveOut(i int) []string { return l.names(l.out[i]) }

// Range is the smallest interval covering every instruction
// where the variable is defined, used or live.
func (l *Liveness) Range(name string) (r Interval, ok bool) {
	j, ok := l.index[name]
	if !ok {
		return r, false
	}

	r = Interval{Start: -1, End: -1}

	for i := range l.m.Code {
		if !l.use[i].IsSet(j) && !l.def[i].IsSet(j) && !l.in[i].IsSet(j) && !l.out[i].IsSet(j) {
			continue
		}

		if r.Start < 0 {
			r.Start = i
		}

		r.End = i
	}

	return r, r.Start >= 0
}

// Overlaps reports whether both intervals share an index.
func (r Interval) Overlaps(x Interval) bool {
	return r.End >= x.Start && r.Start <= x.End
}

func (l *Liveness) names(s set.Bitmap) []string {
	r := make([]string, 0, s.Size())

	s.Range(func(i int) bool {
		r = append(r, l.vars[i])
		return true
	})

	return r
}

type names struct {
	l *Liveness
	s set.Bitmap
}

func (x names) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	ns := x.l.names(x.s)

	b = e.AppendArray(b, len(ns))

	for _, n := range ns {
		b = e.AppendString(b, n)
	}

	return b
}
