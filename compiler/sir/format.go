package sir

import (
	"fmt"
	"sort"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/format"
	"github.com/loomlang/loom/compiler/tp"
)

// Textual rendering of the program, one line per statement and
// terminator, blocks and functions labeled by index. Diagnostic only,
// not a stable format.

func (p *Program) String() string {
	var b []byte

	for _, f := range p.Funcs {
		b = appendFunc(b, f)
		b = append(b, '\n')
	}

	return string(b)
}

func (f *Func) String() string {
	return string(appendFunc(nil, f))
}

func (b *Block) String() string {
	return string(appendBlock(nil, b))
}

func appendFunc(b []byte, f *Func) []byte {
	b = fmt.Appendf(b, "F%d:\n", f.ID)

	b = append(b, "Params:\n"...)
	b = appendSymTypes(b, f.Params)

	b = append(b, "Locals:\n"...)
	b = appendSymTypes(b, f.Locals)

	for _, bb := range f.Blocks {
		b = appendBlock(b, bb)
	}

	return b
}

func appendSymTypes(b []byte, m map[ast.Symbol]tp.Type) []byte {
	syms := make([]ast.Symbol, 0, len(m))
	for sym := range m {
		syms = append(syms, sym)
	}

	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Name != syms[j].Name {
			return syms[i].Name < syms[j].Name
		}

		return syms[i].ID < syms[j].ID
	})

	for _, sym := range syms {
		b = fmt.Appendf(b, "  %v: %v\n", sym, m[sym])
	}

	return b
}

func appendBlock(b []byte, bb *Block) []byte {
	b = fmt.Appendf(b, "B%d:\n", bb.ID)

	for _, st := range bb.Stmts {
		b = append(b, "  "...)
		b = AppendStatement(b, st)
		b = append(b, '\n')
	}

	b = append(b, "  "...)
	b = AppendTerminator(b, bb.Term)
	b = append(b, '\n')

	return b
}

func AppendStatement(b []byte, st Statement) []byte {
	switch st := st.(type) {
	case BinOp:
		b = fmt.Appendf(b, "%v = %s %v %v %v", st.Out, st.Op, st.Type, st.Left, st.Right)
	case Assign:
		b = fmt.Appendf(b, "%v = %v", st.Out, st.Value)
	case AssignLit:
		b = fmt.Appendf(b, "%v = ", st.Out)
		b = format.Lit(b, st.Value)
	case Merge:
		b = fmt.Appendf(b, "merge %v %v", st.Builder, st.Value)
	case GetResult:
		b = fmt.Appendf(b, "%v = result %v", st.Out, st.Builder)
	case NewBuilder:
		b = fmt.Appendf(b, "%v = new %v", st.Out, st.Type)
	default:
		b = fmt.Appendf(b, "?(%T)", st)
	}

	return b
}

func AppendTerminator(b []byte, t Terminator) []byte {
	switch t := t.(type) {
	case Branch:
		b = fmt.Appendf(b, "branch %v B%d B%d", t.Cond, t.OnTrue, t.OnFalse)
	case JumpBlock:
		b = fmt.Appendf(b, "jump B%d", t.Block)
	case JumpFunc:
		b = fmt.Appendf(b, "jump F%d", t.Func)
	case Return:
		b = fmt.Appendf(b, "return %v", t.Value)
	case EndFunction:
		b = append(b, "end"...)
	case ParallelFor:
		b = fmt.Appendf(b, "for %v %v %v %v F%d F%d", t.Data, t.Builder, t.DataArg, t.BuilderArg, t.Body, t.Cont)
	case Crash:
		b = append(b, "crash"...)
	default:
		b = fmt.Appendf(b, "?(%T)", t)
	}

	return b
}
