package sir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/parse"
	"github.com/loomlang/loom/compiler/tp"
)

func TestLowerIfSameFunction(t *testing.T) {
	p := lowerText(t, `|x: i32| let y = x + 1; if(y > 0, y, 0 - y)`)

	// no loop involved, so the if joins in a block of the only function
	require.Len(t, p.Funcs, 1)

	f := p.Funcs[0]
	require.Len(t, f.Blocks, 4)

	b0 := f.Blocks[0]
	require.Len(t, b0.Stmts, 5)

	br, ok := b0.Term.(Branch)
	require.True(t, ok, "B0 terminator: %T", b0.Term)
	assert.Equal(t, BlockID(1), br.OnTrue)
	assert.Equal(t, BlockID(2), br.OnFalse)

	tj, ok := f.Blocks[1].Term.(JumpBlock)
	require.True(t, ok, "B1 terminator: %T", f.Blocks[1].Term)

	fj, ok := f.Blocks[2].Term.(JumpBlock)
	require.True(t, ok, "B2 terminator: %T", f.Blocks[2].Term)

	assert.Equal(t, tj.Block, fj.Block, "arms join in one block")
	assert.Equal(t, BlockID(3), tj.Block)

	ret, ok := f.Blocks[3].Term.(Return)
	require.True(t, ok, "join terminator: %T", f.Blocks[3].Term)

	res := f.Blocks[1].Stmts[len(f.Blocks[1].Stmts)-1].(Assign).Out
	assert.Equal(t, res, f.Blocks[2].Stmts[len(f.Blocks[2].Stmts)-1].(Assign).Out)
	assert.Equal(t, res, ret.Value)

	exp := `F0:
Params:
  x: i32
Locals:
  fn0_tmp: i32
  fn0_tmp#1: i32
  fn0_tmp#2: i32
  fn0_tmp#3: bool
  fn0_tmp#4: i32
  fn0_tmp#5: i32
  fn0_tmp#6: i32
  y: i32
B0:
  fn0_tmp = 1
  fn0_tmp#1 = + i32 x fn0_tmp
  y = fn0_tmp#1
  fn0_tmp#2 = 0
  fn0_tmp#3 = > i32 y fn0_tmp#2
  branch fn0_tmp#3 B1 B2
B1:
  fn0_tmp#6 = y
  jump B3
B2:
  fn0_tmp#4 = 0
  fn0_tmp#5 = - i32 fn0_tmp#4 y
  fn0_tmp#6 = fn0_tmp#5
  jump B3
B3:
  return fn0_tmp#6

`
	assert.Equal(t, exp, p.String())
}

func TestLowerLoop(t *testing.T) {
	p := lowerText(t, `|v: vec[i32]| result(for(v, appender[i32], |b, e| merge(b, e)))`)

	// entry, body, continuation
	require.Len(t, p.Funcs, 3)

	f := p.Funcs[0]
	pf, ok := f.Blocks[0].Term.(ParallelFor)
	require.True(t, ok, "B0 terminator: %T", f.Blocks[0].Term)

	assert.Equal(t, "v", pf.Data.Name)
	assert.Equal(t, FuncID(1), pf.Body)
	assert.Equal(t, FuncID(2), pf.Cont)
	assert.Equal(t, "b", pf.BuilderArg.Name)
	assert.Equal(t, "e", pf.DataArg.Name)

	body := p.Funcs[pf.Body]
	require.Contains(t, body.Locals, pf.BuilderArg)
	require.Contains(t, body.Locals, pf.DataArg)
	assert.Len(t, body.Locals, 2)

	last := body.Blocks[len(body.Blocks)-1]
	_, ok = last.Term.(EndFunction)
	assert.True(t, ok, "body terminator: %T", last.Term)

	// loop data and builder come into the body as parameters
	require.Contains(t, body.Params, pf.Data)
	require.Contains(t, body.Params, pf.Builder)

	cont := p.Funcs[pf.Cont]
	_, ok = cont.Blocks[len(cont.Blocks)-1].Term.(Return)
	assert.True(t, ok)
}

func TestLowerIfSplitJoinsInContinuationFunction(t *testing.T) {
	p := lowerText(t, `|v: vec[i32], c: bool| result(if(c, for(v, appender[i32], |b, e| merge(b, e)), appender[i32]))`)

	// entry, loop body, loop continuation, if continuation
	require.Len(t, p.Funcs, 4)

	f := p.Funcs[0]
	br, ok := f.Blocks[0].Term.(Branch)
	require.True(t, ok)

	trueBl := f.Blocks[br.OnTrue]
	pf, ok := trueBl.Term.(ParallelFor)
	require.True(t, ok, "true arm terminator: %T", trueBl.Term)

	loopCont := p.Funcs[pf.Cont]
	tj, ok := loopCont.Blocks[0].Term.(JumpFunc)
	require.True(t, ok, "loop cont terminator: %T", loopCont.Blocks[0].Term)

	fj, ok := f.Blocks[br.OnFalse].Term.(JumpFunc)
	require.True(t, ok, "false arm terminator: %T", f.Blocks[br.OnFalse].Term)

	assert.Equal(t, tj.Func, fj.Func, "arms join in one continuation function")

	join := p.Funcs[tj.Func]
	_, ok = join.Blocks[len(join.Blocks)-1].Term.(Return)
	assert.True(t, ok)
}

func TestLowerOperandOrder(t *testing.T) {
	// both operands merge into the same builder; left must be emitted
	// strictly before right
	bld := ast.Symbol{Name: "b"}
	bty := tp.Appender{Elem: tp.I32}

	mergeLit := func(v int32) *ast.Expr {
		return &ast.Expr{
			Type: tp.I32,
			Kind: ast.Res{
				Builder: &ast.Expr{
					Type: bty,
					Kind: ast.Merge{
						Builder: &ast.Expr{Type: bty, Kind: ast.Ident{Sym: bld}},
						Value:   &ast.Expr{Type: tp.I32, Kind: ast.Lit{Value: v}},
					},
				},
			},
		}
	}

	x := &ast.Expr{
		Type: tp.Func{In: []tp.Type{tp.Type(bty)}, Out: tp.I32},
		Kind: ast.Lambda{
			Params: []ast.Param{{Name: bld, Type: bty}},
			Body: &ast.Expr{
				Type: tp.I32,
				Kind: ast.BinOp{Op: "+", Left: mergeLit(1), Right: mergeLit(2)},
			},
		},
	}

	p, err := Lower(context.Background(), x)
	require.NoError(t, err)

	var lits []int32
	for _, st := range p.Funcs[0].Blocks[0].Stmts {
		if st, ok := st.(AssignLit); ok {
			lits = append(lits, st.Value.(int32))
		}
	}

	assert.Equal(t, []int32{1, 2}, lits)
}

func TestLowerDeterminism(t *testing.T) {
	text := `|v: vec[i32], x: i32| let y = x + 1; result(for(v, appender[i32], |b, e| merge(b, e + y)))`

	a := lowerText(t, text)
	b := lowerText(t, text)

	assert.Equal(t, a.String(), b.String())
}

func TestLowerRejectsNonLambdaRoot(t *testing.T) {
	x := &ast.Expr{Type: tp.I32, Kind: ast.Lit{Value: int32(1)}}

	_, err := Lower(context.Background(), x)
	require.ErrorContains(t, err, "not a lambda")
}

func TestLowerRejectsUnsupportedExpression(t *testing.T) {
	type bogus struct{}

	x := &ast.Expr{
		Type: tp.Func{Out: tp.I32},
		Kind: ast.Lambda{
			Body: &ast.Expr{Type: tp.I32, Kind: bogus{}},
		},
	}

	_, err := Lower(context.Background(), x)
	require.ErrorContains(t, err, "unsupported expression")
}

func TestLowerRejectsNonTrivialIter(t *testing.T) {
	vsym := ast.Symbol{Name: "v"}
	vty := tp.Vec{Elem: tp.I32}
	bty := tp.Appender{Elem: tp.I32}

	bsym := ast.Symbol{Name: "b"}
	esym := ast.Symbol{Name: "e"}

	x := &ast.Expr{
		Type: tp.Func{In: []tp.Type{tp.Type(vty)}, Out: tp.Type(bty)},
		Kind: ast.Lambda{
			Params: []ast.Param{{Name: vsym, Type: vty}},
			Body: &ast.Expr{
				Type: bty,
				Kind: ast.For{
					Iters: []ast.Iter{{
						Data:  &ast.Expr{Type: vty, Kind: ast.Ident{Sym: vsym}},
						Start: &ast.Expr{Type: tp.I64, Kind: ast.Lit{Value: int64(0)}},
					}},
					Builder: &ast.Expr{Type: bty, Kind: ast.NewBuilder{}},
					Body: &ast.Expr{
						Type: tp.Func{In: []tp.Type{tp.Type(bty), tp.Type(tp.I32)}, Out: tp.Type(bty)},
						Kind: ast.Lambda{
							Params: []ast.Param{{Name: bsym, Type: bty}, {Name: esym, Type: tp.I32}},
							Body:   &ast.Expr{Type: bty, Kind: ast.Ident{Sym: bsym}},
						},
					},
				},
			},
		},
	}

	_, err := Lower(context.Background(), x)
	require.ErrorContains(t, err, "only single-array loops")
}

func lowerText(t *testing.T, text string) *Program {
	t.Helper()

	ctx := context.Background()

	x, err := parse.Parse(ctx, []byte(text))
	require.NoError(t, err)

	p, err := Lower(ctx, x)
	require.NoError(t, err)

	require.NoError(t, p.Validate())

	return p
}
