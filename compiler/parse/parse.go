package parse

import (
	"context"
	"os"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/loomlang/loom/compiler/ast"
	"github.com/loomlang/loom/compiler/tp"
)

type (
	parser struct {
		b []byte

		syms  *ast.SymGen
		scope map[string]binding
	}

	binding struct {
		sym ast.Symbol
		ty  tp.Type
	}
)

func ParseFile(ctx context.Context, name string) (*ast.Expr, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Parse(ctx, text)
}

// Parse reads one program: a lambda with typed parameters. Every name
// binds to a fresh symbol, so symbols are unique across the tree.
func Parse(ctx context.Context, text []byte) (x *ast.Expr, err error) {
	p := &parser{
		b:     text,
		syms:  ast.NewSymGen(),
		scope: make(map[string]binding),
	}

	x, i, err := p.lambda(0)
	if err != nil {
		return nil, err
	}

	i = p.skipSpaces(i)

	if i != len(p.b) {
		return nil, errors.New("trailing input at pos %d", i)
	}

	return x, nil
}

func (p *parser) lambda(st int) (x *ast.Expr, i int, err error) {
	i, err = p.expect(st, "|")
	if err != nil {
		return nil, i, err
	}

	var params []ast.Param
	var restore []func()

	defer func() {
		for _, r := range restore {
			r()
		}
	}()

	for {
		if j, e := p.expect(i, "|"); e == nil {
			i = j
			break
		}

		if len(params) != 0 {
			i, err = p.expect(i, ",")
			if err != nil {
				return nil, i, err
			}
		}

		name, j := p.ident(p.skipSpaces(i))
		if name == "" {
			return nil, i, errors.New("param name expected at pos %d", i)
		}

		i, err = p.expect(j, ":")
		if err != nil {
			return nil, i, err
		}

		ty, j, err := p.typ(i)
		if err != nil {
			return nil, j, errors.Wrap(err, "param %s", name)
		}

		i = j

		sym, r := p.bind(name, ty)
		restore = append(restore, r)

		params = append(params, ast.Param{Name: sym, Type: ty})
	}

	body, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "lambda body")
	}

	in := make([]tp.Type, len(params))
	for j, pr := range params {
		in[j] = pr.Type
	}

	x = &ast.Expr{
		Type: tp.Func{In: in, Out: body.Type},
		Kind: ast.Lambda{Params: params, Body: body},
	}

	return x, i, nil
}

func (p *parser) expr(st int) (x *ast.Expr, i int, err error) {
	st = p.skipSpaces(st)

	name, i := p.ident(st)

	switch name {
	case "let":
		return p.let(i)
	case "if":
		return p.cond(i)
	case "for":
		return p.loop(i)
	case "merge":
		return p.merge(i)
	case "result":
		return p.result(i)
	default:
		return p.cmp(st)
	}
}

func (p *parser) let(st int) (x *ast.Expr, i int, err error) {
	name, i := p.ident(p.skipSpaces(st))
	if name == "" {
		return nil, st, errors.New("let name expected at pos %d", st)
	}

	i, err = p.expect(i, "=")
	if err != nil {
		return nil, i, err
	}

	value, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "let %s value", name)
	}

	i, err = p.expect(i, ";")
	if err != nil {
		return nil, i, err
	}

	sym, restore := p.bind(name, value.Type)
	defer restore()

	body, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "let %s body", name)
	}

	x = &ast.Expr{
		Type: body.Type,
		Kind: ast.Let{Name: sym, Value: value, Body: body},
	}

	return x, i, nil
}

func (p *parser) cond(st int) (x *ast.Expr, i int, err error) {
	i, err = p.expect(st, "(")
	if err != nil {
		return nil, i, err
	}

	cnd, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "if condition")
	}

	if cnd.Type != tp.Type(tp.Bool) {
		return nil, i, errors.New("if condition is %v, not bool (at pos %d)", cnd.Type, st)
	}

	i, err = p.expect(i, ",")
	if err != nil {
		return nil, i, err
	}

	then, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "if true branch")
	}

	i, err = p.expect(i, ",")
	if err != nil {
		return nil, i, err
	}

	els, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "if false branch")
	}

	i, err = p.expect(i, ")")
	if err != nil {
		return nil, i, err
	}

	if then.Type != els.Type {
		return nil, i, errors.New("if branches disagree: %v and %v (at pos %d)", then.Type, els.Type, st)
	}

	x = &ast.Expr{
		Type: then.Type,
		Kind: ast.If{Cond: cnd, Then: then, Else: els},
	}

	return x, i, nil
}

func (p *parser) loop(st int) (x *ast.Expr, i int, err error) {
	i, err = p.expect(st, "(")
	if err != nil {
		return nil, i, err
	}

	data, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "loop data")
	}

	vec, ok := data.Type.(tp.Vec)
	if !ok {
		return nil, i, errors.New("loop data is %v, not a vec (at pos %d)", data.Type, st)
	}

	i, err = p.expect(i, ",")
	if err != nil {
		return nil, i, err
	}

	bld, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "loop builder")
	}

	if !tp.IsBuilder(bld.Type) {
		return nil, i, errors.New("loop builder is %v, not a builder (at pos %d)", bld.Type, st)
	}

	i, err = p.expect(i, ",")
	if err != nil {
		return nil, i, err
	}

	body, i, err := p.loopLambda(i, bld.Type, vec.Elem)
	if err != nil {
		return nil, i, errors.Wrap(err, "loop body")
	}

	i, err = p.expect(i, ")")
	if err != nil {
		return nil, i, err
	}

	x = &ast.Expr{
		Type: bld.Type,
		Kind: ast.For{
			Iters:   []ast.Iter{{Data: data}},
			Builder: bld,
			Body:    body,
		},
	}

	return x, i, nil
}

// loopLambda parses |b, e| expr. The builder and element types come
// from the enclosing loop, not from annotations.
func (p *parser) loopLambda(st int, bld, elem tp.Type) (x *ast.Expr, i int, err error) {
	i, err = p.expect(st, "|")
	if err != nil {
		return nil, i, err
	}

	bname, i := p.ident(p.skipSpaces(i))
	if bname == "" {
		return nil, i, errors.New("builder arg name expected at pos %d", i)
	}

	i, err = p.expect(i, ",")
	if err != nil {
		return nil, i, err
	}

	ename, i := p.ident(p.skipSpaces(i))
	if ename == "" {
		return nil, i, errors.New("element arg name expected at pos %d", i)
	}

	i, err = p.expect(i, "|")
	if err != nil {
		return nil, i, err
	}

	bsym, restore := p.bind(bname, bld)
	defer restore()

	esym, restore2 := p.bind(ename, elem)
	defer restore2()

	body, i, err := p.expr(i)
	if err != nil {
		return nil, i, err
	}

	if body.Type != bld {
		return nil, i, errors.New("loop body produces %v, loop builder is %v (at pos %d)", body.Type, bld, st)
	}

	x = &ast.Expr{
		Type: tp.Func{In: []tp.Type{bld, elem}, Out: bld},
		Kind: ast.Lambda{
			Params: []ast.Param{
				{Name: bsym, Type: bld},
				{Name: esym, Type: elem},
			},
			Body: body,
		},
	}

	return x, i, nil
}

func (p *parser) merge(st int) (x *ast.Expr, i int, err error) {
	i, err = p.expect(st, "(")
	if err != nil {
		return nil, i, err
	}

	bld, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "merge builder")
	}

	i, err = p.expect(i, ",")
	if err != nil {
		return nil, i, err
	}

	val, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "merge value")
	}

	i, err = p.expect(i, ")")
	if err != nil {
		return nil, i, err
	}

	var want tp.Type

	switch b := bld.Type.(type) {
	case tp.Appender:
		want = b.Elem
	case tp.Merger:
		want = b.Elem
	default:
		return nil, i, errors.New("merge into %v, not a builder (at pos %d)", bld.Type, st)
	}

	if val.Type != want {
		return nil, i, errors.New("merge of %v into %v (at pos %d)", val.Type, bld.Type, st)
	}

	x = &ast.Expr{
		Type: bld.Type,
		Kind: ast.Merge{Builder: bld, Value: val},
	}

	return x, i, nil
}

func (p *parser) result(st int) (x *ast.Expr, i int, err error) {
	i, err = p.expect(st, "(")
	if err != nil {
		return nil, i, err
	}

	bld, i, err := p.expr(i)
	if err != nil {
		return nil, i, errors.Wrap(err, "result builder")
	}

	i, err = p.expect(i, ")")
	if err != nil {
		return nil, i, err
	}

	ty, ok := tp.ResultOf(bld.Type)
	if !ok {
		return nil, i, errors.New("result of %v, not a builder (at pos %d)", bld.Type, st)
	}

	x = &ast.Expr{
		Type: ty,
		Kind: ast.Res{Builder: bld},
	}

	return x, i, nil
}

var cmpOps = []string{">=", "<=", "==", "!=", ">", "<"}

func (p *parser) cmp(st int) (x *ast.Expr, i int, err error) {
	x, i, err = p.add(st)
	if err != nil {
		return nil, i, err
	}

	i = p.skipSpaces(i)

	for _, op := range cmpOps {
		j, err := p.expect(i, op)
		if err != nil {
			continue
		}

		r, j, err := p.add(j)
		if err != nil {
			return nil, j, errors.Wrap(err, "%s right operand", op)
		}

		if x.Type != r.Type {
			return nil, j, errors.New("%s operands disagree: %v and %v (at pos %d)", op, x.Type, r.Type, st)
		}

		x = &ast.Expr{
			Type: tp.Bool,
			Kind: ast.BinOp{Op: op, Left: x, Right: r},
		}

		return x, j, nil
	}

	return x, i, nil
}

func (p *parser) add(st int) (x *ast.Expr, i int, err error) {
	return p.binary(st, []string{"+", "-"}, p.mul)
}

func (p *parser) mul(st int) (x *ast.Expr, i int, err error) {
	return p.binary(st, []string{"*", "/"}, p.unary)
}

func (p *parser) binary(st int, ops []string, next func(int) (*ast.Expr, int, error)) (x *ast.Expr, i int, err error) {
	x, i, err = next(st)
	if err != nil {
		return nil, i, err
	}

out:
	for {
		i = p.skipSpaces(i)

		for _, op := range ops {
			j, err := p.expect(i, op)
			if err != nil {
				continue
			}

			r, j, err := next(j)
			if err != nil {
				return nil, j, errors.Wrap(err, "%s right operand", op)
			}

			if x.Type != r.Type {
				return nil, j, errors.New("%s operands disagree: %v and %v (at pos %d)", op, x.Type, r.Type, st)
			}

			x = &ast.Expr{
				Type: x.Type,
				Kind: ast.BinOp{Op: op, Left: x, Right: r},
			}

			i = j

			continue out
		}

		return x, i, nil
	}
}

func (p *parser) unary(st int) (x *ast.Expr, i int, err error) {
	i = p.skipSpaces(st)

	if i == len(p.b) {
		return nil, i, errors.New("expression expected at pos %d", i)
	}

	if p.b[i] == '(' {
		x, i, err = p.expr(i + 1)
		if err != nil {
			return nil, i, err
		}

		i, err = p.expect(i, ")")

		return x, i, err
	}

	if c := p.b[i]; c >= '0' && c <= '9' {
		return p.number(i)
	}

	name, j := p.ident(i)
	if name == "" {
		return nil, i, errors.New("unexpected symbol %q at pos %d", p.b[i], i)
	}

	switch name {
	case "true", "false":
		x = &ast.Expr{
			Type: tp.Bool,
			Kind: ast.Lit{Value: name == "true"},
		}

		return x, j, nil
	case "appender", "merger":
		ty, j, err := p.builderType(i)
		if err != nil {
			return nil, j, err
		}

		x = &ast.Expr{
			Type: ty,
			Kind: ast.NewBuilder{},
		}

		return x, j, nil
	}

	bnd, ok := p.scope[name]
	if !ok {
		return nil, i, errors.New("undefined name %s at pos %d", name, i)
	}

	x = &ast.Expr{
		Type: bnd.ty,
		Kind: ast.Ident{Sym: bnd.sym},
	}

	return x, j, nil
}

func (p *parser) number(st int) (x *ast.Expr, i int, err error) {
	i = st

	for i < len(p.b) && p.b[i] >= '0' && p.b[i] <= '9' {
		i++
	}

	float := i < len(p.b) && p.b[i] == '.'

	if float {
		i++

		for i < len(p.b) && p.b[i] >= '0' && p.b[i] <= '9' {
			i++
		}
	}

	text := string(p.b[st:i])

	var suffix byte
	if i < len(p.b) && (p.b[i] == 'L' || p.b[i] == 'f') {
		suffix = p.b[i]
		i++
	}

	switch {
	case float && suffix == 'f':
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, i, errors.Wrap(err, "at pos %d", st)
		}

		x = &ast.Expr{Type: tp.F32, Kind: ast.Lit{Value: float32(v)}}
	case float:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, i, errors.Wrap(err, "at pos %d", st)
		}

		x = &ast.Expr{Type: tp.F64, Kind: ast.Lit{Value: v}}
	case suffix == 'L':
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, i, errors.Wrap(err, "at pos %d", st)
		}

		x = &ast.Expr{Type: tp.I64, Kind: ast.Lit{Value: v}}
	case suffix == 'f':
		return nil, i, errors.New("float suffix on integer literal at pos %d", st)
	default:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, i, errors.Wrap(err, "at pos %d", st)
		}

		x = &ast.Expr{Type: tp.I32, Kind: ast.Lit{Value: int32(v)}}
	}

	return x, i, nil
}

func (p *parser) typ(st int) (ty tp.Type, i int, err error) {
	st = p.skipSpaces(st)

	name, i := p.ident(st)

	switch name {
	case "bool":
		return tp.Bool, i, nil
	case "i32":
		return tp.I32, i, nil
	case "i64":
		return tp.I64, i, nil
	case "f32":
		return tp.F32, i, nil
	case "f64":
		return tp.F64, i, nil
	case "vec":
		i, err = p.expect(i, "[")
		if err != nil {
			return nil, i, err
		}

		elem, i, err := p.typ(i)
		if err != nil {
			return nil, i, err
		}

		i, err = p.expect(i, "]")

		return tp.Vec{Elem: elem}, i, err
	case "appender", "merger":
		return p.builderType(st)
	case "":
		return nil, i, errors.New("type expected at pos %d", st)
	default:
		return nil, i, errors.New("unknown type %s at pos %d", name, st)
	}
}

func (p *parser) builderType(st int) (ty tp.Type, i int, err error) {
	name, i := p.ident(p.skipSpaces(st))

	i, err = p.expect(i, "[")
	if err != nil {
		return nil, i, err
	}

	elem, i, err := p.typ(i)
	if err != nil {
		return nil, i, err
	}

	if name == "appender" {
		i, err = p.expect(i, "]")

		return tp.Appender{Elem: elem}, i, err
	}

	i, err = p.expect(i, ",")
	if err != nil {
		return nil, i, err
	}

	i = p.skipSpaces(i)

	if i == len(p.b) {
		return nil, i, errors.New("merger op expected at pos %d", i)
	}

	op := string(p.b[i])

	switch op {
	case "+", "-", "*", "/":
	default:
		return nil, i, errors.New("unknown merger op %s at pos %d", op, i)
	}

	i, err = p.expect(i+1, "]")

	return tp.Merger{Elem: elem, Op: op}, i, err
}

func (p *parser) bind(name string, ty tp.Type) (ast.Symbol, func()) {
	old, had := p.scope[name]

	sym := p.syms.New(name)
	p.scope[name] = binding{sym: sym, ty: ty}

	return sym, func() {
		if had {
			p.scope[name] = old
		} else {
			delete(p.scope, name)
		}
	}
}

func (p *parser) expect(st int, tok string) (i int, err error) {
	i = p.skipSpaces(st)

	if i+len(tok) > len(p.b) || string(p.b[i:i+len(tok)]) != tok {
		return st, errors.New("%q expected at pos %d", tok, i)
	}

	return i + len(tok), nil
}

func (p *parser) ident(st int) (name string, i int) {
	i = st

	for i < len(p.b) && (p.b[i] == '_' ||
		p.b[i] >= 'A' && p.b[i] <= 'Z' ||
		p.b[i] >= 'a' && p.b[i] <= 'z' ||
		i > st && p.b[i] >= '0' && p.b[i] <= '9') {
		i++
	}

	return string(p.b[st:i]), i
}

func (p *parser) skipSpaces(i int) int {
	for i < len(p.b) {
		switch p.b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}

		break
	}

	return i
}
