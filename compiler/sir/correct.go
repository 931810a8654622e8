package sir

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/tp"
)

// Lowering uses symbols across function boundaries: a function created
// for a loop body or a split continuation reads values bound in the
// enclosing context without declaring them. paramCorrection promotes
// every such symbol to a parameter and threads the requirement through
// every caller, so each function is self-sufficient given its declared
// parameters and locals.
func paramCorrection(p *Program) error {
	env := make(map[ast.Symbol]tp.Type)
	closure := make(map[ast.Symbol]struct{})

	err := correctFunc(p, 0, env, closure)
	if err != nil {
		return err
	}

	declared := make(map[ast.Symbol]struct{}, len(p.Params))
	for _, pr := range p.Params {
		declared[pr.Name] = struct{}{}
	}

	// whatever the entry function still needs must be covered by the
	// program's declared parameters. anything else is a symbol defined
	// in a function that does not dominate its readers, which lowering
	// must never produce.
	for sym := range closure {
		if _, ok := declared[sym]; !ok {
			return errors.New("unbound symbol: %s#%d", sym.Name, sym.ID)
		}
	}

	return nil
}

// correctFunc processes one function and recurses into every function
// its terminators reference, in structural order. env accumulates
// symbol types seen so far and is never removed from: symbols are
// unique program-wide, so nothing is ever shadowed. closure collects the
// symbols fn needs from its caller.
func correctFunc(p *Program, fn FuncID, env map[ast.Symbol]tp.Type, closure map[ast.Symbol]struct{}) error {
	f := p.Funcs[fn]

	for sym, ty := range f.Params {
		env[sym] = ty
	}

	for sym, ty := range f.Locals {
		env[sym] = ty
	}

	promote := func(syms []ast.Symbol, closure map[ast.Symbol]struct{}) error {
		for _, sym := range syms {
			if _, ok := f.Locals[sym]; ok {
				continue
			}

			ty, ok := env[sym]
			if !ok {
				// definitions are lowered before any function that
				// can reference them; a miss here means lowering
				// emitted a read of a symbol it never defined
				return errors.New("unknown type for symbol: %s#%d", sym.Name, sym.ID)
			}

			f.Params[sym] = ty
			closure[sym] = struct{}{}
		}

		return nil
	}

	for _, b := range f.Blocks {
		var vars []ast.Symbol

		for _, st := range b.Stmts {
			switch st := st.(type) {
			case BinOp:
				vars = append(vars, st.Left, st.Right)
			case Assign:
				vars = append(vars, st.Value)
			case Merge:
				vars = append(vars, st.Builder, st.Value)
			case GetResult:
				vars = append(vars, st.Builder)
			}
		}

		switch t := b.Term.(type) {
		case Branch:
			vars = append(vars, t.Cond)
		case Return:
			vars = append(vars, t.Value)
		case ParallelFor:
			vars = append(vars, t.Data, t.Builder)
		}

		err := promote(vars, closure)
		if err != nil {
			return err
		}

		inner := make(map[ast.Symbol]struct{})

		switch t := b.Term.(type) {
		case ParallelFor:
			err = correctFunc(p, t.Body, env, inner)
			if err != nil {
				return err
			}

			err = correctFunc(p, t.Cont, env, inner)
			if err != nil {
				return err
			}
		case JumpFunc:
			err = correctFunc(p, t.Func, env, inner)
			if err != nil {
				return err
			}
		}

		if len(inner) == 0 {
			continue
		}

		tlog.V("sir_closure").Printw("child closure", "func", fn, "block", b.ID, "syms", len(inner))

		syms := make([]ast.Symbol, 0, len(inner))
		for sym := range inner {
			syms = append(syms, sym)
		}

		err = promote(syms, closure)
		if err != nil {
			return err
		}
	}

	return nil
}
