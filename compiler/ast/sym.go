package ast

type (
	// SymGen mints symbols that do not collide with any symbol it has
	// seen. Seed it with every tree the symbols must stay unique across.
	SymGen struct {
		next map[string]int
	}
)

func NewSymGen() *SymGen {
	return &SymGen{
		next: make(map[string]int),
	}
}

// SymGenFromExpr returns a generator seeded with all symbols used in x.
func SymGenFromExpr(x *Expr) *SymGen {
	g := NewSymGen()
	g.Seed(x)

	return g
}

func (g *SymGen) New(name string) Symbol {
	id := g.next[name]
	g.next[name] = id + 1

	return Symbol{Name: name, ID: id}
}

func (g *SymGen) saw(s Symbol) {
	if id := g.next[s.Name]; s.ID >= id {
		g.next[s.Name] = s.ID + 1
	}
}

// Seed walks x and records every symbol it binds or references.
func (g *SymGen) Seed(x *Expr) {
	if x == nil {
		return
	}

	switch k := x.Kind.(type) {
	case Ident:
		g.saw(k.Sym)
	case Lit:
	case Let:
		g.saw(k.Name)
		g.Seed(k.Value)
		g.Seed(k.Body)
	case BinOp:
		g.Seed(k.Left)
		g.Seed(k.Right)
	case If:
		g.Seed(k.Cond)
		g.Seed(k.Then)
		g.Seed(k.Else)
	case Merge:
		g.Seed(k.Builder)
		g.Seed(k.Value)
	case Res:
		g.Seed(k.Builder)
	case NewBuilder:
	case For:
		for _, it := range k.Iters {
			g.Seed(it.Data)
			g.Seed(it.Start)
			g.Seed(it.End)
			g.Seed(it.Stride)
		}

		g.Seed(k.Builder)
		g.Seed(k.Body)
	case Lambda:
		for _, p := range k.Params {
			g.saw(p.Name)
		}

		g.Seed(k.Body)
	}
}
