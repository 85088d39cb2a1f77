package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

func annotation(s string) *string {
	return &s
}

func TestSignatureExtractor_Params(t *testing.T) {
	source := []byte(`def f(a, /, b: int, c: str = "x", *args: int, d, e: bool = True, **kw) -> None:
    pass
`)

	sigs := NewSignatureExtractor(newParser(), 0).Extract(context.Background(), source)

	require.Len(t, sigs, 1)

	sig := sigs[0]
	assert.Equal(t, "f", sig.Name)
	assert.Equal(t, 1, sig.Line)
	assert.Equal(t, annotation("None"), sig.ReturnType)
	assert.False(t, sig.IsMethod)
	assert.False(t, sig.IsAsync)

	assert.Equal(t, []m.Param{
		{Name: "a", Kind: m.ParamPositionalOnly},
		{Name: "b", Annotation: annotation("int"), Kind: m.ParamPositional},
		{Name: "c", Annotation: annotation("str"), HasDefault: true, Kind: m.ParamPositional},
		{Name: "args", Annotation: annotation("int"), Kind: m.ParamVarPositional},
		{Name: "d", Kind: m.ParamKeywordOnly},
		{Name: "e", Annotation: annotation("bool"), HasDefault: true, Kind: m.ParamKeywordOnly},
		{Name: "kw", Kind: m.ParamVarKeyword},
	}, sig.Params)

	callable := sig.CallableParams()
	assert.Len(t, callable, 5)
}

func TestSignatureExtractor_Structure(t *testing.T) {
	source := []byte(`import functools


class Store:
    def get(self, key: str) -> int:
        return 1

    @classmethod
    def build(cls) -> "Store":
        return cls()


@functools.lru_cache(maxsize=1)
async def fetch(url: str):
    def inner(x: int) -> int:
        return x
    return inner


if True:
    def conditional(x: int) -> int:
        return x
`)

	sigs := NewSignatureExtractor(newParser(), 0).Extract(context.Background(), source)

	var names []string
	for _, sig := range sigs {
		names = append(names, QualifiedName(sig))
	}

	require.Equal(t, []string{"Store.get", "Store.build", "fetch", "conditional"}, names)

	get := sigs[0]
	assert.True(t, get.IsMethod)
	assert.Equal(t, 5, get.Line)
	assert.Equal(t, []m.Param{{Name: "key", Annotation: annotation("str"), Kind: m.ParamPositional}}, get.Params)

	build := sigs[1]
	assert.Equal(t, []string{"classmethod"}, build.Decorators)
	assert.True(t, build.HasDecorator("classmethod"))
	assert.Empty(t, build.Params)
	assert.Equal(t, 9, build.Line)

	fetch := sigs[2]
	assert.True(t, fetch.IsAsync)
	assert.Nil(t, fetch.ReturnType)
	assert.Equal(t, []string{"functools.lru_cache"}, fetch.Decorators)
	assert.Equal(t, 14, fetch.Line)

	assert.Equal(t, 21, sigs[3].Line)
}

func TestSignatureExtractor_InvalidSyntax(t *testing.T) {
	sigs := NewSignatureExtractor(newParser(), 0).Extract(context.Background(), exampleSource(t, "invalid_syntax.py"))
	assert.Empty(t, sigs)
}

func TestSignatureExtractor_CachesBySource(t *testing.T) {
	extractor := NewSignatureExtractor(newParser(), 1)
	source := []byte("def f(x: int) -> int:\n    return x\n")

	first := extractor.Extract(context.Background(), source)
	second := extractor.Extract(context.Background(), source)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)

	other := extractor.Extract(context.Background(), []byte("def g() -> None:\n    pass\n"))
	require.Len(t, other, 1)
	assert.Equal(t, "g", other[0].Name)
}
