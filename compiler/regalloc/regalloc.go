package regalloc

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/jmmc/compiler/df"
	"github.com/slowlang/jmmc/compiler/ir"
)

// Strategy selects how the interference graph is built.
type Strategy string

const (
	// Ranges connects variables with overlapping live ranges.
	Ranges Strategy = "ranges"

	// LiveSets connects variables live at the same instruction.
	LiveSets Strategy = "liveness"

	// Sequential gives every variable its own slot.
	Sequential Strategy = "none"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case Ranges, LiveSets, Sequential:
		return st, nil
	case "":
		return Ranges, nil
	}

	return "", errors.New("unknown register allocation strategy: %q", s)
}

// Allocate returns a copy of the class with every used variable assigned a local slot.
// The argument is not modified.
func Allocate(ctx context.Context, cls *ir.Class, st Strategy) (_ *ir.Class, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "regalloc: class", "class", cls.Name, "strategy", st)
	defer tr.Finish("err", &err)

	r := cls.Clone()

	for _, m := range r.Methods {
		err = AllocateMethod(ctx, m, st)
		if err != nil {
			return nil, errors.Wrap(err, "method %v", m.Name)
		}
	}

	return r, nil
}

// AllocateMethod assigns registers in place.
// The receiver takes slot 0 and parameters follow it,
// locals and temporaries are colored above them.
func AllocateMethod(ctx context.Context, m *ir.Method, st Strategy) (err error) {
	tr := tlog.SpanFromContext(ctx)

	base := 0

	if !m.Static {
		this := m.Vars.Get(ir.This)
		if this == nil {
			return ir.Invariant("%v: no receiver variable", m.Name)
		}

		this.Reg = 0
		base = 1
	}

	for i, p := range m.Params {
		v := m.Vars.Get(p.Name)
		if v == nil {
			return ir.Invariant("%v: no variable for parameter %v", m.Name, p.Name)
		}

		v.Reg = base + i
	}

	var alloc []*ir.Variable

	for _, v := range m.Vars.All() {
		if v.Kind == ir.KindLocal || v.Kind == ir.KindTemp {
			alloc = append(alloc, v)
		}
	}

	colors, err := color(ctx, m, alloc, st)
	if err != nil {
		return err
	}

	for _, v := range alloc {
		c, ok := colors[v.Name]
		if !ok {
			continue // never referenced
		}

		v.Reg = c + m.Reserved()
	}

	if tr.If("dump_regs") {
		tr.Printw("registers", "method", m.Name, "vars", m.Vars)
	}

	return nil
}

func color(ctx context.Context, m *ir.Method, alloc []*ir.Variable, st Strategy) (map[string]int, error) {
	if st == Sequential {
		r := make(map[string]int, len(alloc))

		for i, v := range alloc {
			r[v.Name] = i
		}

		return r, nil
	}

	l, err := df.Analyze(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "liveness")
	}

	var g *Graph

	switch st {
	case Ranges, "":
		var rs []Range

		for _, v := range alloc {
			r, ok := l.Range(v.Name)
			if !ok {
				continue
			}

			rs = append(rs, Range{Name: v.Name, Interval: r})
		}

		g = FromRanges(rs)
	case LiveSets:
		names := make([]string, len(alloc))

		for i, v := range alloc {
			names[i] = v.Name
		}

		g = FromLiveSets(l, names)
	default:
		return nil, errors.New("unknown register allocation strategy: %q", st)
	}

	tlog.SpanFromContext(ctx).V("interference").Printw("interference graph", "method", m.Name, "graph", g)

	return Color(g), nil
}
