package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/format"
	"github.com/loomlang/loom/compiler/tp"
)

func TestParseExample(t *testing.T) {
	x := parseText(t, `|x: i32| let y = x + 1; if(y > 0, y, 0 - y)`)

	lam, ok := x.Kind.(ast.Lambda)
	require.True(t, ok)
	require.Len(t, lam.Params, 1)
	assert.Equal(t, "x", lam.Params[0].Name.Name)
	assert.Equal(t, tp.Type(tp.I32), lam.Params[0].Type)

	let, ok := lam.Body.Kind.(ast.Let)
	require.True(t, ok)
	assert.Equal(t, "y", let.Name.Name)
	assert.Equal(t, tp.Type(tp.I32), let.Value.Type)

	iff, ok := let.Body.Kind.(ast.If)
	require.True(t, ok)
	assert.Equal(t, tp.Type(tp.Bool), iff.Cond.Type)
	assert.Equal(t, tp.Type(tp.I32), let.Body.Type)

	t.Logf("parsed: %s", format.String(x))
}

func TestParseTypes(t *testing.T) {
	for _, tc := range []struct {
		text string
		typ  tp.Type
	}{
		{`|| 1`, tp.I32},
		{`|| 1L`, tp.I64},
		{`|| 1.5`, tp.F64},
		{`|| 1.5f`, tp.F32},
		{`|| true`, tp.Bool},
		{`|| 2 * 3 + 4`, tp.I32},
		{`|| appender[i32]`, tp.Appender{Elem: tp.I32}},
		{`|| merger[f64, +]`, tp.Merger{Elem: tp.F64, Op: "+"}},
		{`|| result(appender[i32])`, tp.Vec{Elem: tp.I32}},
		{`|| result(merger[f64, +])`, tp.F64},
		{`|| merge(appender[i32], 1)`, tp.Appender{Elem: tp.I32}},
		{`|v: vec[i64]| for(v, merger[i64, *], |b, e| merge(b, e))`, tp.Merger{Elem: tp.I64, Op: "*"}},
	} {
		x := parseText(t, tc.text)

		lam := x.Kind.(ast.Lambda)
		assert.Equal(t, tc.typ, lam.Body.Type, "%s", tc.text)
	}
}

func TestParseSymbolsUnique(t *testing.T) {
	// y is bound twice; the tree must not reuse the symbol
	x := parseText(t, `|x: i32| let y = x; let y = y + 1; y`)

	lam := x.Kind.(ast.Lambda)
	outer := lam.Body.Kind.(ast.Let)
	inner := outer.Body.Kind.(ast.Let)

	assert.NotEqual(t, outer.Name, inner.Name)

	// the trailing y refers to the innermost binding
	ref := inner.Body.Kind.(ast.Ident)
	assert.Equal(t, inner.Name, ref.Sym)

	// y + 1 refers to the outer one
	add := inner.Value.Kind.(ast.BinOp)
	assert.Equal(t, outer.Name, add.Left.Kind.(ast.Ident).Sym)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		text string
		err  string
	}{
		{`|x: i32| z`, "undefined name"},
		{`|x: i32| if(x, 1, 2)`, "not bool"},
		{`|x: i32| if(x > 0, 1, 1.5)`, "disagree"},
		{`|x: i32| x + 1.5`, "disagree"},
		{`|x: i32| merge(x, 1)`, "not a builder"},
		{`|x: i32| result(x)`, "not a builder"},
		{`|v: vec[i32]| for(v, appender[i32], |b, e| e)`, "loop body produces"},
		{`|x: foo| x`, "unknown type"},
		{`|x: i32| x x`, "trailing input"},
	} {
		_, err := Parse(context.Background(), []byte(tc.text))
		require.ErrorContains(t, err, tc.err, "%s", tc.text)
	}
}

func parseText(t *testing.T, text string) *ast.Expr {
	t.Helper()

	x, err := Parse(context.Background(), []byte(text))
	require.NoError(t, err)

	return x
}
