package mutagens

import (
	"context"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

func parse(t *testing.T, source string) *sitter.Node {
	t.Helper()

	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	require.False(t, tree.RootNode().HasError(), "fixture must parse")

	return tree.RootNode()
}

func codes(mutants []m.Mutant) []string {
	out := make([]string, 0, len(mutants))
	for _, mut := range mutants {
		out = append(out, string(mut.Code))
	}

	return out
}

func TestGenerateLiteralMutants(t *testing.T) {
	source := `"""Module doc."""


def greet(name: str) -> str:
    """Say hello."""
    return "hello " + name + f"{name}" + b"raw".decode() + ""


print(greet('ada'))
`
	root := parse(t, source)

	mutants := GenerateLiteralMutants(root, []byte(source))
	require.Len(t, mutants, 2)

	assert.Equal(t, m.MutationLiteralValue, mutants[0].Category)
	assert.Equal(t, 6, mutants[0].Line)
	assert.Equal(t, "Changed 'hello ' to invalid value at line 6", mutants[0].Description)
	assert.Contains(t, string(mutants[0].Code), `return "__MUTANT_INVALID__" + name`)
	assert.Contains(t, string(mutants[0].Code), `"""Say hello."""`)

	assert.Equal(t, 9, mutants[1].Line)
	assert.Contains(t, string(mutants[1].Code), `print(greet("__MUTANT_INVALID__"))`)

	for _, mut := range mutants {
		assert.Len(t, mut.ID, 16)
		assert.Contains(t, mut.Diff, "+++ mutated")
	}
}

func TestGenerateDictKeyMutants(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "inline dict",
			source: "d = {\"a\": 1, \"b\": 2, 3: 4}\n",
			want: []string{
				"d = {\"b\": 2, 3: 4}\n",
				"d = {\"a\": 1, 3: 4}\n",
			},
		},
		{
			name:   "last entry takes the leading comma",
			source: "d = {1: 0, \"k\": 2}\n",
			want:   []string{"d = {1: 0}\n"},
		},
		{
			name:   "multiline with trailing comma",
			source: "d = {\n    \"a\": 1,\n    \"b\": 2,\n}\n",
			want: []string{
				"d = {\n    \"b\": 2,\n}\n",
				"d = {\n    \"a\": 1,\n    }\n",
			},
		},
		{
			name:   "single entry dicts are left alone",
			source: "d = {\"a\": 1}\n",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := parse(t, tt.source)

			mutants := GenerateDictKeyMutants(root, []byte(tt.source))
			assert.Equal(t, tt.want, codes(mutants))

			for _, mut := range mutants {
				assert.Equal(t, m.MutationDictKey, mut.Category)
				assert.True(t, strings.HasPrefix(mut.Description, "Removed key '"))
			}
		})
	}
}

func TestGenerateDictKeyMutants_Description(t *testing.T) {
	source := "x = 1\nuser = {\"name\": \"ada\", \"email\": \"a@b\"}\n"
	root := parse(t, source)

	mutants := GenerateDictKeyMutants(root, []byte(source))
	require.Len(t, mutants, 2)
	assert.Equal(t, "Removed key 'email' from dict at line 2", mutants[1].Description)
	assert.Equal(t, 2, mutants[1].Line)
}

func TestGenerateArgumentTypeMutants(t *testing.T) {
	source := "f(\"s\", 1, True, 2.5, None, x, k=3)\nprint(\"skip\", 1)\nlen(\"skip\")\nobj.method(*rest, 7)\n"
	root := parse(t, source)

	mutants := GenerateArgumentTypeMutants(root, []byte(source))

	got := codes(mutants)
	require.Len(t, got, 5)

	first := strings.SplitN(got[0], "\n", 2)[0]
	assert.Equal(t, `f(12345, 1, True, 2.5, None, x, k=3)`, first)
	assert.Equal(t, `f("s", "wrong_type", True, 2.5, None, x, k=3)`, strings.SplitN(got[1], "\n", 2)[0])
	assert.Equal(t, `f("s", 1, "wrong_type", 2.5, None, x, k=3)`, strings.SplitN(got[2], "\n", 2)[0])
	assert.Equal(t, `f("s", 1, True, None, None, x, k=3)`, strings.SplitN(got[3], "\n", 2)[0])
	assert.Contains(t, got[4], `obj.method(*rest, "wrong_type")`)

	assert.Equal(t, "Changed arg 0 type in call at line 1", mutants[0].Description)
	assert.Equal(t, "Changed arg 1 type in call at line 4", mutants[4].Description)
}

func TestGenerateAnnotationRemovalMutants(t *testing.T) {
	source := "def f(x: int) -> int:\n    return x\n\n\nasync def g() -> None:\n    pass\n\n\ndef h(y):\n    return y\n"
	root := parse(t, source)

	mutants := GenerateAnnotationRemovalMutants(root, []byte(source))
	require.Len(t, mutants, 2)

	assert.Equal(t, "Removed return type from f", mutants[0].Description)
	assert.True(t, strings.HasPrefix(string(mutants[0].Code), "def f(x: int):\n"))
	assert.Equal(t, 1, mutants[0].Line)

	assert.Equal(t, "Removed return type from g", mutants[1].Description)
	assert.Contains(t, string(mutants[1].Code), "async def g():\n")
}

func TestIsDocstring(t *testing.T) {
	source := "# header\n\"\"\"doc\"\"\"\nx = \"value\"\n\n\nclass A:\n    \"cls doc\"\n"
	root := parse(t, source)

	var docs, values []string

	Walk(root, func(n *sitter.Node) bool {
		if n.Type() == "string" {
			if IsDocstring(n) {
				docs = append(docs, Text(n, []byte(source)))
			} else {
				values = append(values, Text(n, []byte(source)))
			}

			return false
		}

		return true
	})

	assert.Equal(t, []string{`"""doc"""`, `"cls doc"`}, docs)
	assert.Equal(t, []string{`"value"`}, values)
}

func TestMutantIDIsStable(t *testing.T) {
	assert.Equal(t, mutantID(m.MutationDictKey, 3, 40), mutantID(m.MutationDictKey, 3, 40))
	assert.NotEqual(t, mutantID(m.MutationDictKey, 3, 40), mutantID(m.MutationLiteralValue, 3, 40))
}
