package format

import (
	"fmt"

	"github.com/loomlang/loom/compiler/ast"
)

// Expr renders x in surface syntax, appending to b. It is a diagnostic
// aid, not a stable format.
func Expr(b []byte, x *ast.Expr) []byte {
	if x == nil {
		return append(b, "<nil>"...)
	}

	switch k := x.Kind.(type) {
	case ast.Ident:
		b = append(b, k.Sym.String()...)
	case ast.Lit:
		b = Lit(b, k.Value)
	case ast.Let:
		b = fmt.Appendf(b, "let %v = ", k.Name)
		b = Expr(b, k.Value)
		b = append(b, "; "...)
		b = Expr(b, k.Body)
	case ast.BinOp:
		b = append(b, '(')
		b = Expr(b, k.Left)
		b = fmt.Appendf(b, " %s ", k.Op)
		b = Expr(b, k.Right)
		b = append(b, ')')
	case ast.If:
		b = append(b, "if("...)
		b = Expr(b, k.Cond)
		b = append(b, ", "...)
		b = Expr(b, k.Then)
		b = append(b, ", "...)
		b = Expr(b, k.Else)
		b = append(b, ')')
	case ast.Merge:
		b = append(b, "merge("...)
		b = Expr(b, k.Builder)
		b = append(b, ", "...)
		b = Expr(b, k.Value)
		b = append(b, ')')
	case ast.Res:
		b = append(b, "result("...)
		b = Expr(b, k.Builder)
		b = append(b, ')')
	case ast.NewBuilder:
		b = fmt.Appendf(b, "%v", x.Type)
	case ast.For:
		b = append(b, "for("...)

		for i, it := range k.Iters {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = Expr(b, it.Data)
		}

		b = append(b, ", "...)
		b = Expr(b, k.Builder)
		b = append(b, ", "...)
		b = Expr(b, k.Body)
		b = append(b, ')')
	case ast.Lambda:
		b = append(b, '|')

		for i, p := range k.Params {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = fmt.Appendf(b, "%v: %v", p.Name, p.Type)
		}

		b = append(b, "| "...)
		b = Expr(b, k.Body)
	default:
		b = fmt.Appendf(b, "?(%T)", k)
	}

	return b
}

// String is Expr into a fresh buffer.
func String(x *ast.Expr) string {
	return string(Expr(nil, x))
}

// Lit renders a literal value with its type suffix.
func Lit(b []byte, v any) []byte {
	switch v := v.(type) {
	case int64:
		b = fmt.Appendf(b, "%dL", v)
	case float32:
		b = fmt.Appendf(b, "%vf", v)
	default:
		b = fmt.Appendf(b, "%v", v)
	}

	return b
}
