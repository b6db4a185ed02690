package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/jmmc/compiler/ast"
	"github.com/slowlang/jmmc/compiler/back"
	"github.com/slowlang/jmmc/compiler/front"
	"github.com/slowlang/jmmc/compiler/ir"
	"github.com/slowlang/jmmc/compiler/regalloc"
	"github.com/slowlang/jmmc/compiler/symtab"
)

type (
	Config struct {
		RegAlloc regalloc.Strategy
	}

	// Unit is the result of compiling one class.
	Unit struct {
		Name string

		IR     *ir.Class // before register allocation
		Alloc  *ir.Class
		Jasmin []byte
	}
)

func CompileFile(ctx context.Context, name string, cfg Config) (_ []*Unit, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	progs, err := ast.DecodeAll(text)
	if err != nil {
		return nil, errors.Wrap(err, "decode ast")
	}

	return CompileAll(ctx, progs, cfg)
}

// CompileAll compiles independent classes one by one.
func CompileAll(ctx context.Context, progs []*ast.Program, cfg Config) (us []*Unit, err error) {
	for i, p := range progs {
		tab, err := symtab.Build(p)
		if err != nil {
			return nil, errors.Wrap(err, "unit %d: symbol table", i)
		}

		u, err := Compile(ctx, p, tab, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "unit %d: %v", i, tab.Class)
		}

		us = append(us, u)
	}

	return us, nil
}

// Compile runs the whole pipeline on one class with fresh counters.
func Compile(ctx context.Context, p *ast.Program, tab *symtab.Table, cfg Config) (u *Unit, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "class", tab.Class, "regalloc", cfg.RegAlloc)
	defer tr.Finish("err", &err)

	u = &Unit{Name: tab.Class}

	u.IR, err = front.New(front.NewContext(), tab).Compile(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "front")
	}

	for _, m := range u.IR.Methods {
		err = m.Check()
		if err != nil {
			return nil, errors.Wrap(err, "check ir")
		}
	}

	st := cfg.RegAlloc
	if st == "" {
		st = regalloc.Ranges
	}

	u.Alloc, err = regalloc.Allocate(ctx, u.IR, st)
	if err != nil {
		return nil, errors.Wrap(err, "regalloc")
	}

	u.Jasmin, err = back.New().CompileClass(ctx, nil, u.Alloc)
	if err != nil {
		return nil, errors.Wrap(err, "back")
	}

	return u, nil
}
