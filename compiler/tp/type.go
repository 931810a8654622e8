package tp

import "fmt"

type (
	Type interface {
		String() string
	}

	Scalar int

	Vec struct {
		Elem Type
	}

	Appender struct {
		Elem Type
	}

	Merger struct {
		Elem Type
		Op   string
	}

	Func struct {
		In  []Type
		Out Type
	}
)

const (
	Bool Scalar = iota
	I32
	I64
	F32
	F64
)

func (x Scalar) String() string {
	switch x {
	case Bool:
		return "bool"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("scalar(%d)", int(x))
	}
}

func (x Vec) String() string {
	return fmt.Sprintf("vec[%v]", x.Elem)
}

func (x Appender) String() string {
	return fmt.Sprintf("appender[%v]", x.Elem)
}

func (x Merger) String() string {
	return fmt.Sprintf("merger[%v,%v]", x.Elem, x.Op)
}

func (x Func) String() string {
	return fmt.Sprintf("func%v -> %v", x.In, x.Out)
}

// IsBuilder reports whether x accumulates merged values.
func IsBuilder(x Type) bool {
	switch x.(type) {
	case Appender, Merger:
		return true
	default:
		return false
	}
}

// ResultOf is the type produced by extracting a builder's result.
func ResultOf(x Type) (Type, bool) {
	switch x := x.(type) {
	case Appender:
		return Vec{Elem: x.Elem}, true
	case Merger:
		return x.Elem, true
	default:
		return nil, false
	}
}
