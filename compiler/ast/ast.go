package ast

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"

	"github.com/loomlang/loom/compiler/tp"
)

type (
	// Expr is a typed expression tree node. Type is resolved for every
	// node before lowering.
	Expr struct {
		Type tp.Type
		Kind Kind
	}

	// Kind is one of the variant structs below.
	Kind any

	// Symbol is a (name, id) pair unique across the whole program.
	Symbol struct {
		Name string
		ID   int
	}

	Param struct {
		Name Symbol
		Type tp.Type
	}

	Ident struct {
		Sym Symbol
	}

	// Lit value is one of bool, int32, int64, float32, float64.
	Lit struct {
		Value any
	}

	Let struct {
		Name  Symbol
		Value *Expr
		Body  *Expr
	}

	BinOp struct {
		Op    string
		Left  *Expr
		Right *Expr
	}

	If struct {
		Cond *Expr
		Then *Expr
		Else *Expr
	}

	Merge struct {
		Builder *Expr
		Value   *Expr
	}

	Res struct {
		Builder *Expr
	}

	// NewBuilder's builder type is carried by the enclosing Expr.
	NewBuilder struct{}

	Iter struct {
		Data   *Expr
		Start  *Expr
		End    *Expr
		Stride *Expr
	}

	For struct {
		Iters   []Iter
		Builder *Expr
		Body    *Expr
	}

	Lambda struct {
		Params []Param
		Body   *Expr
	}
)

func (s Symbol) String() string {
	if s.ID == 0 {
		return s.Name
	}

	return fmt.Sprintf("%s#%d", s.Name, s.ID)
}

func (s Symbol) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, s.String())
}
