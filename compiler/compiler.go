package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/loomlang/loom/compiler/parse"
	"github.com/loomlang/loom/compiler/sir"
)

// CompileFile lowers the program in the named file to SIR.
func CompileFile(ctx context.Context, name string) (*sir.Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text)
}

// Compile parses text and lowers it to SIR.
func Compile(ctx context.Context, name string, text []byte) (*sir.Program, error) {
	x, err := parse.Parse(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	p, err := sir.Lower(ctx, x)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	err = p.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "validate")
	}

	return p, nil
}
