package sir

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/format"
	"github.com/loomlang/loom/compiler/tp"
)

// Lower converts a typed expression tree to a SIR program. The root must
// be a lambda and symbols must be unique across the whole tree.
func Lower(ctx context.Context, x *ast.Expr) (p *Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "sir: lower")
	defer tr.Finish("err", &err)

	lam, ok := x.Kind.(ast.Lambda)
	if !ok {
		return nil, errors.New("root expression is not a lambda: %s", format.String(x))
	}

	ret := x.Type
	if ft, ok := ret.(tp.Func); ok {
		ret = ft.Out
	}

	p = NewProgram(ret, lam.Params, ast.SymGenFromExpr(x))

	for _, pr := range lam.Params {
		p.Funcs[0].Params[pr.Name] = pr.Type
	}

	first := p.Funcs[0].AddBlock()

	fn, bl, sym, err := gen(ctx, lam.Body, p, 0, first)
	if err != nil {
		return nil, errors.Wrap(err, "lower body")
	}

	p.Funcs[fn].Blocks[bl].Term = Return{Value: sym}

	err = paramCorrection(p)
	if err != nil {
		return nil, errors.Wrap(err, "param correction")
	}

	tr.Printw("lowered", "funcs", len(p.Funcs))

	return p, nil
}

// gen emits the statements computing x at the tail of block bl of
// function fn, possibly creating further blocks and functions. It
// returns the function and block the value is ready in and its symbol.
func gen(ctx context.Context, x *ast.Expr, p *Program, fn FuncID, bl BlockID) (FuncID, BlockID, ast.Symbol, error) {
	switch k := x.Kind.(type) {
	case ast.Ident:
		return fn, bl, k.Sym, nil

	case ast.Lit:
		sym := p.AddLocal(x.Type, fn)
		p.Funcs[fn].Blocks[bl].AddStatement(AssignLit{Out: sym, Value: k.Value})

		return fn, bl, sym, nil

	case ast.Let:
		fn, bl, val, err := gen(ctx, k.Value, p, fn, bl)
		if err != nil {
			return 0, 0, ast.Symbol{}, errors.Wrap(err, "let %v", k.Name)
		}

		p.AddLocalNamed(k.Value.Type, k.Name, fn)
		p.Funcs[fn].Blocks[bl].AddStatement(Assign{Out: k.Name, Value: val})

		return gen(ctx, k.Body, p, fn, bl)

	case ast.BinOp:
		// left before right: evaluation order is observable through
		// builder merges
		fn, bl, left, err := gen(ctx, k.Left, p, fn, bl)
		if err != nil {
			return 0, 0, ast.Symbol{}, errors.Wrap(err, "left operand")
		}

		fn, bl, right, err := gen(ctx, k.Right, p, fn, bl)
		if err != nil {
			return 0, 0, ast.Symbol{}, errors.Wrap(err, "right operand")
		}

		sym := p.AddLocal(x.Type, fn)
		p.Funcs[fn].Blocks[bl].AddStatement(BinOp{
			Out:   sym,
			Op:    k.Op,
			Type:  k.Left.Type,
			Left:  left,
			Right: right,
		})

		return fn, bl, sym, nil

	case ast.If:
		return genIf(ctx, x, k, p, fn, bl)

	case ast.Merge:
		fn, bl, bld, err := gen(ctx, k.Builder, p, fn, bl)
		if err != nil {
			return 0, 0, ast.Symbol{}, errors.Wrap(err, "merge builder")
		}

		fn, bl, val, err := gen(ctx, k.Value, p, fn, bl)
		if err != nil {
			return 0, 0, ast.Symbol{}, errors.Wrap(err, "merge value")
		}

		p.Funcs[fn].Blocks[bl].AddStatement(Merge{Builder: bld, Value: val})

		// the mutated builder is the live value
		return fn, bl, bld, nil

	case ast.Res:
		fn, bl, bld, err := gen(ctx, k.Builder, p, fn, bl)
		if err != nil {
			return 0, 0, ast.Symbol{}, errors.Wrap(err, "result builder")
		}

		sym := p.AddLocal(x.Type, fn)
		p.Funcs[fn].Blocks[bl].AddStatement(GetResult{Out: sym, Builder: bld})

		return fn, bl, sym, nil

	case ast.NewBuilder:
		sym := p.AddLocal(x.Type, fn)
		p.Funcs[fn].Blocks[bl].AddStatement(NewBuilder{Out: sym, Type: x.Type})

		return fn, bl, sym, nil

	case ast.For:
		return genFor(ctx, x, k, p, fn, bl)

	default:
		return 0, 0, ast.Symbol{}, errors.New("unsupported expression: %s", format.String(x))
	}
}

func genIf(ctx context.Context, x *ast.Expr, k ast.If, p *Program, fn FuncID, bl BlockID) (FuncID, BlockID, ast.Symbol, error) {
	fn, bl, cond, err := gen(ctx, k.Cond, p, fn, bl)
	if err != nil {
		return 0, 0, ast.Symbol{}, errors.Wrap(err, "condition")
	}

	trueBl := p.Funcs[fn].AddBlock()
	falseBl := p.Funcs[fn].AddBlock()

	p.Funcs[fn].Blocks[bl].Term = Branch{Cond: cond, OnTrue: trueBl, OnFalse: falseBl}

	trueFn, trueBl, trueSym, err := gen(ctx, k.Then, p, fn, trueBl)
	if err != nil {
		return 0, 0, ast.Symbol{}, errors.Wrap(err, "true branch")
	}

	falseFn, falseBl, falseSym, err := gen(ctx, k.Else, p, fn, falseBl)
	if err != nil {
		return 0, 0, ast.Symbol{}, errors.Wrap(err, "false branch")
	}

	sym := p.AddLocal(x.Type, trueFn)
	p.Funcs[trueFn].Blocks[trueBl].AddStatement(Assign{Out: sym, Value: trueSym})
	p.Funcs[falseFn].Blocks[falseBl].AddStatement(Assign{Out: sym, Value: falseSym})

	if trueFn != fn || falseFn != fn {
		// an arm split off into another function (a loop inside it).
		// converge in a continuation function instead of duplicating
		// everything that follows the if into both arms.
		p.AddLocalNamed(x.Type, sym, falseFn)

		cont := p.AddFunc()
		contBl := p.Funcs[cont].AddBlock()

		p.Funcs[trueFn].Blocks[trueBl].Term = JumpFunc{Func: cont}
		p.Funcs[falseFn].Blocks[falseBl].Term = JumpFunc{Func: cont}

		return cont, contBl, sym, nil
	}

	contBl := p.Funcs[fn].AddBlock()

	p.Funcs[trueFn].Blocks[trueBl].Term = JumpBlock{Block: contBl}
	p.Funcs[falseFn].Blocks[falseBl].Term = JumpBlock{Block: contBl}

	return fn, contBl, sym, nil
}

func genFor(ctx context.Context, x *ast.Expr, k ast.For, p *Program, fn FuncID, bl BlockID) (FuncID, BlockID, ast.Symbol, error) {
	if len(k.Iters) != 1 || k.Iters[0].Start != nil || k.Iters[0].End != nil || k.Iters[0].Stride != nil {
		return 0, 0, ast.Symbol{}, errors.New("only single-array loops with default start/end/stride are supported: %s", format.String(x))
	}

	lam, ok := k.Body.Kind.(ast.Lambda)
	if !ok {
		return 0, 0, ast.Symbol{}, errors.New("loop body is not a lambda: %s", format.String(k.Body))
	}

	data := k.Iters[0].Data

	fn, bl, dataSym, err := gen(ctx, data, p, fn, bl)
	if err != nil {
		return 0, 0, ast.Symbol{}, errors.Wrap(err, "loop data")
	}

	fn, bl, bldSym, err := gen(ctx, k.Builder, p, fn, bl)
	if err != nil {
		return 0, 0, ast.Symbol{}, errors.Wrap(err, "loop builder")
	}

	body := p.AddFunc()
	bodyBl := p.Funcs[body].AddBlock()

	// the lambda is |builder, elem|. its names are locals of the body
	// function, bound per iteration; the loop's data and builder come in
	// as parameters of every invocation.
	p.AddLocalNamed(lam.Params[0].Type, lam.Params[0].Name, body)
	p.AddLocalNamed(lam.Params[1].Type, lam.Params[1].Name, body)
	p.Funcs[body].Params[dataSym] = data.Type
	p.Funcs[body].Params[bldSym] = k.Builder.Type

	bodyEndFn, bodyEndBl, _, err := gen(ctx, lam.Body, p, body, bodyBl)
	if err != nil {
		return 0, 0, ast.Symbol{}, errors.Wrap(err, "loop body")
	}

	p.Funcs[bodyEndFn].Blocks[bodyEndBl].Term = EndFunction{}

	cont := p.AddFunc()
	contBl := p.Funcs[cont].AddBlock()

	p.Funcs[fn].Blocks[bl].Term = ParallelFor{
		Data:       dataSym,
		Builder:    bldSym,
		DataArg:    lam.Params[1].Name,
		BuilderArg: lam.Params[0].Name,
		Body:       body,
		Cont:       cont,
	}

	// the post-loop builder value flows through the builder symbol
	return cont, contBl, bldSym, nil
}
