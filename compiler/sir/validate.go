package sir

import (
	"tlog.app/go/errors"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/set"
)

// Validate checks the properties the backend relies on: every function
// is reachable from the entry, every block carries a real terminator,
// every symbol a function reads is among its parameters and locals, and
// the entry function's parameters are exactly the program's declared
// ones.
func (p *Program) Validate() error {
	seen := set.MakeBitmap(len(p.Funcs))

	err := p.validateFunc(0, &seen)
	if err != nil {
		return err
	}

	if seen.Size() != len(p.Funcs) {
		for _, f := range p.Funcs {
			if !seen.IsSet(int(f.ID)) {
				return errors.New("unreachable function F%d", f.ID)
			}
		}
	}

	f := p.Funcs[0]

	if len(f.Params) != len(p.Params) {
		return errors.New("entry function has %d params, %d declared", len(f.Params), len(p.Params))
	}

	for _, pr := range p.Params {
		ty, ok := f.Params[pr.Name]
		if !ok {
			return errors.New("declared param %v missing from entry function", pr.Name)
		}

		if ty != pr.Type {
			return errors.New("declared param %v has type %v, entry function has %v", pr.Name, pr.Type, ty)
		}
	}

	return nil
}

func (p *Program) validateFunc(fn FuncID, seen *set.Bitmap) error {
	if seen.IsSet(int(fn)) {
		return nil
	}

	seen.Set(int(fn))

	f := p.Funcs[fn]

	defined := func(sym ast.Symbol) error {
		if _, ok := f.Params[sym]; ok {
			return nil
		}

		if _, ok := f.Locals[sym]; ok {
			return nil
		}

		return errors.New("F%d reads %v, which it does not define", fn, sym)
	}

	for _, b := range f.Blocks {
		for _, st := range b.Stmts {
			var syms []ast.Symbol

			switch st := st.(type) {
			case BinOp:
				syms = []ast.Symbol{st.Left, st.Right}
			case Assign:
				syms = []ast.Symbol{st.Value}
			case Merge:
				syms = []ast.Symbol{st.Builder, st.Value}
			case GetResult:
				syms = []ast.Symbol{st.Builder}
			case AssignLit, NewBuilder:
			default:
				return errors.New("F%d B%d: unknown statement %T", fn, b.ID, st)
			}

			for _, sym := range syms {
				if err := defined(sym); err != nil {
					return errors.Wrap(err, "B%d", b.ID)
				}
			}
		}

		var next []FuncID

		switch t := b.Term.(type) {
		case Crash:
			return errors.New("F%d B%d: crash terminator left in place", fn, b.ID)
		case Branch:
			if err := defined(t.Cond); err != nil {
				return errors.Wrap(err, "B%d", b.ID)
			}

			if int(t.OnTrue) >= len(f.Blocks) || int(t.OnFalse) >= len(f.Blocks) {
				return errors.New("F%d B%d: branch target out of range", fn, b.ID)
			}
		case JumpBlock:
			if int(t.Block) >= len(f.Blocks) {
				return errors.New("F%d B%d: jump target out of range", fn, b.ID)
			}
		case JumpFunc:
			next = []FuncID{t.Func}
		case Return:
			if err := defined(t.Value); err != nil {
				return errors.Wrap(err, "B%d", b.ID)
			}
		case EndFunction:
		case ParallelFor:
			if err := defined(t.Data); err != nil {
				return errors.Wrap(err, "B%d", b.ID)
			}

			if err := defined(t.Builder); err != nil {
				return errors.Wrap(err, "B%d", b.ID)
			}

			next = []FuncID{t.Body, t.Cont}
		default:
			return errors.New("F%d B%d: unknown terminator %T", fn, b.ID, t)
		}

		for _, nf := range next {
			if int(nf) >= len(p.Funcs) {
				return errors.New("F%d B%d: function target out of range", fn, b.ID)
			}

			if err := p.validateFunc(nf, seen); err != nil {
				return err
			}
		}
	}

	return nil
}
