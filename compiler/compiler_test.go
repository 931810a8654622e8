package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	text := `|v: vec[i32], x: i32|
	let y = x + 1;
	result(for(v, merger[i32, +], |b, e| merge(b, e * y)))`

	ctx := context.Background()

	p, err := Compile(ctx, "test.loom", []byte(text))
	require.NoError(t, err)

	// entry, loop body, loop continuation
	require.Len(t, p.Funcs, 3)

	out := p.String()
	assert.True(t, strings.Contains(out, "for"), "rendered program:\n%s", out)
	assert.True(t, strings.Contains(out, "return"), "rendered program:\n%s", out)

	t.Logf("program:\n%s", out)
}

func TestCompileParseError(t *testing.T) {
	_, err := Compile(context.Background(), "bad.loom", []byte(`|x: i32| q`))
	require.ErrorContains(t, err, "undefined name")
}

func TestCompileDeterminism(t *testing.T) {
	text := `|v: vec[i32], c: bool|
	result(if(c,
		for(v, appender[i32], |b, e| merge(b, e)),
		appender[i32]))`

	ctx := context.Background()

	a, err := Compile(ctx, "a.loom", []byte(text))
	require.NoError(t, err)

	b, err := Compile(ctx, "b.loom", []byte(text))
	require.NoError(t, err)

	assert.Equal(t, a.String(), b.String())
}
