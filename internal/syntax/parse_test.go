package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/astlens/internal/ast"
)

func TestParse_Go(t *testing.T) {
	t.Parallel()
	src := []byte("package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")

	res, err := Parse(context.Background(), src, "go")
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "source_file", res.Root.Kind)
	assert.Equal(t, 1, res.Root.Span.StartLine)

	decls := res.Root.List("children")
	require.Len(t, decls, 2)
	fn := decls[1]
	assert.Equal(t, "function_declaration", fn.Kind)
	assert.Equal(t, ast.Span{StartLine: 3, StartColumn: 0, EndLine: 5, EndColumn: 1}, *fn.Span)

	name := fn.Child("name")
	require.NotNil(t, name)
	assert.Equal(t, "identifier", name.Kind)
	assert.Equal(t, "Hello", name.Scalar("text"))
}

func TestParse_AliasAndCase(t *testing.T) {
	t.Parallel()
	res, err := Parse(context.Background(), []byte("def f():\n    pass\n"), " PY ")
	require.NoError(t, err)
	assert.Equal(t, "python", res.Language)
	assert.Equal(t, "module", res.Root.Kind)
}

func TestParse_SyntaxErrorsKeepTree(t *testing.T) {
	t.Parallel()
	res, err := Parse(context.Background(), []byte("package main\n\nfunc (\n"), "go")
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	require.NotEmpty(t, res.Errors)
	assert.Positive(t, res.Errors[0].Line)
	assert.NotNil(t, res.Root)
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	res, err := Parse(context.Background(), []byte("a\n\nb\n"), "cobol")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	require.NotNil(t, res)
	assert.True(t, res.Fallback)
	require.Len(t, res.Errors, 1)
	assert.Zero(t, res.Errors[0].Line)
	assert.Equal(t, "Program", res.Root.Kind)
}

func TestFallback(t *testing.T) {
	t.Parallel()
	root := Fallback("first\n\n  third  \r\n")

	require.NotNil(t, root.Span)
	assert.Equal(t, 4, root.Span.EndLine)
	body := root.List("body")
	require.Len(t, body, 2)

	assert.Equal(t, ast.Span{StartLine: 1, EndLine: 1, EndColumn: 5}, *body[0].Span)
	assert.Equal(t, 3, body[1].Span.StartLine)
	lit := body[1].Child("expression")
	require.NotNil(t, lit)
	assert.Nil(t, lit.Span)
	assert.Equal(t, "third", lit.Scalar("value"))
}

func TestSplitLines(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b", ""}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{""}, SplitLines(""))
}

func TestParseError_Error(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "3:4: syntax error", ParseError{Message: "syntax error", Line: 3, Column: 4}.Error())
	assert.Equal(t, "boom", ParseError{Message: "boom"}.Error())
}

func TestLanguages(t *testing.T) {
	t.Parallel()
	lang, ok := LanguageForFile("src/App.TSX")
	assert.True(t, ok)
	assert.Equal(t, "typescript", lang)
	_, ok = LanguageForFile("README")
	assert.False(t, ok)

	assert.Equal(t, "cpp", CanonicalLanguage("C++"))
	assert.Contains(t, Languages(), "go")
	_, ok = GrammarFor("golang")
	assert.True(t, ok)
}
