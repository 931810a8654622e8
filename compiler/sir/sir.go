package sir

import (
	"fmt"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/tp"
)

type (
	// FuncID is a function's position in Program.Funcs. Stable: functions
	// are appended, never removed or reordered.
	FuncID int

	// BlockID is a block's position in Func.Blocks.
	BlockID int

	// Statement is one of the variant structs below. Each statement binds
	// at most one new symbol.
	Statement any

	BinOp struct {
		Out   ast.Symbol
		Op    string
		Type  tp.Type
		Left  ast.Symbol
		Right ast.Symbol
	}

	Assign struct {
		Out   ast.Symbol
		Value ast.Symbol
	}

	AssignLit struct {
		Out   ast.Symbol
		Value any
	}

	Merge struct {
		Builder ast.Symbol
		Value   ast.Symbol
	}

	GetResult struct {
		Out     ast.Symbol
		Builder ast.Symbol
	}

	NewBuilder struct {
		Out  ast.Symbol
		Type tp.Type
	}

	// Terminator is one of the variant structs below. Exactly one per
	// block; it determines all successors.
	Terminator any

	Branch struct {
		Cond    ast.Symbol
		OnTrue  BlockID
		OnFalse BlockID
	}

	JumpBlock struct {
		Block BlockID
	}

	JumpFunc struct {
		Func FuncID
	}

	Return struct {
		Value ast.Symbol
	}

	EndFunction struct{}

	ParallelFor struct {
		Data       ast.Symbol
		Builder    ast.Symbol
		DataArg    ast.Symbol
		BuilderArg ast.Symbol
		Body       FuncID
		Cont       FuncID
	}

	// Crash is the placeholder terminator of a fresh block. No block may
	// keep it once lowering is done.
	Crash struct{}

	Block struct {
		ID    BlockID
		Stmts []Statement
		Term  Terminator
	}

	Func struct {
		ID     FuncID
		Params map[ast.Symbol]tp.Type
		Locals map[ast.Symbol]tp.Type
		Blocks []*Block
	}

	// Program is a lowered program. Funcs[0] is the entry function.
	Program struct {
		Funcs  []*Func
		Ret    tp.Type
		Params []ast.Param

		syms *ast.SymGen
	}
)

func NewProgram(ret tp.Type, params []ast.Param, syms *ast.SymGen) *Program {
	p := &Program{
		Ret:    ret,
		Params: params,
		syms:   syms,
	}

	p.AddFunc() // entry

	return p
}

func (p *Program) AddFunc() FuncID {
	id := FuncID(len(p.Funcs))

	p.Funcs = append(p.Funcs, &Func{
		ID:     id,
		Params: make(map[ast.Symbol]tp.Type),
		Locals: make(map[ast.Symbol]tp.Type),
	})

	tlog.V("sir_alloc").Printw("new function", "func", id, "from", loc.Callers(1, 3))

	return id
}

// AddLocal mints a fresh symbol, registers it as a local of fn and
// returns it.
func (p *Program) AddLocal(ty tp.Type, fn FuncID) ast.Symbol {
	sym := p.syms.New(fmt.Sprintf("fn%d_tmp", fn))
	p.Funcs[fn].Locals[sym] = ty

	return sym
}

// AddLocalNamed registers a caller-supplied symbol as a local of fn.
func (p *Program) AddLocalNamed(ty tp.Type, sym ast.Symbol, fn FuncID) {
	p.Funcs[fn].Locals[sym] = ty
}

func (f *Func) AddBlock() BlockID {
	id := BlockID(len(f.Blocks))

	f.Blocks = append(f.Blocks, &Block{
		ID:   id,
		Term: Crash{},
	})

	return id
}

func (b *Block) AddStatement(st Statement) {
	b.Stmts = append(b.Stmts, st)
}
