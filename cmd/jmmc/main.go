package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/jmmc/compiler"
	"github.com/slowlang/jmmc/compiler/format"
	"github.com/slowlang/jmmc/compiler/regalloc"
)

func main() {
	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print intermediate representation",
		Action:      irAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("regs", false, "print registers allocated"),
			cli.NewFlag("regalloc", env.Str("JMMC_REGALLOC", string(regalloc.Ranges)), "register allocation strategy: ranges, liveness, none"),
		},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile ast files to jasmin assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("regalloc,r", env.Str("JMMC_REGALLOC", string(regalloc.Ranges)), "register allocation strategy: ranges, liveness, none"),
			cli.NewFlag("out,o", env.Str("JMMC_OUT"), "output directory, stdout if empty"),
		},
	}

	app := &cli.Command{
		Name:        "jmmc",
		Description: "jmmc compiles java-- classes to jasmin assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", env.Str("JMMC_VERBOSITY"), "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			irCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func config(c *cli.Command) (cfg compiler.Config, err error) {
	cfg.RegAlloc, err = regalloc.ParseStrategy(c.String("regalloc"))
	if err != nil {
		return cfg, errors.Wrap(err, "regalloc flag")
	}

	return cfg, nil
}

func irAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg, err := config(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		us, err := compiler.CompileFile(ctx, a, cfg)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		for _, u := range us {
			cls := u.IR
			if c.Bool("regs") {
				cls = u.Alloc
			}

			os.Stdout.Write(format.Class(nil, cls))

			if !c.Bool("regs") {
				continue
			}

			for _, m := range cls.Methods {
				fmt.Printf("\n%s registers:\n", m.Name)

				for _, v := range m.Vars.All() {
					fmt.Printf("\t%-10s %-6v %d\n", v.Name, v.Kind, v.Reg)
				}
			}
		}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg, err := config(c)
	if err != nil {
		return err
	}

	out := c.String("out")

	for _, a := range c.Args {
		us, err := compiler.CompileFile(ctx, a, cfg)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		for _, u := range us {
			if out == "" {
				fmt.Printf("%s", u.Jasmin)
				continue
			}

			name := filepath.Join(out, u.Name+".j")

			err = os.WriteFile(name, u.Jasmin, 0o644)
			if err != nil {
				return errors.Wrap(err, "write %v", name)
			}

			tlog.Printw("written", "class", u.Name, "file", name, "size", len(u.Jasmin))
		}
	}

	return nil
}
