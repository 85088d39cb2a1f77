package mutagens

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// InvalidLiteral is the value every mutated string literal is replaced with.
const InvalidLiteral = `"__MUTANT_INVALID__"`

// GenerateLiteralMutants replaces each plain, non-empty string literal with
// an out-of-domain sentinel. Docstrings, f-strings and bytes are left alone.
func GenerateLiteralMutants(root *sitter.Node, content []byte) []m.Mutant {
	var mutants []m.Mutant

	Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "string" {
			return true
		}

		value, ok := PlainStringValue(n, content)
		if !ok || value == "" || IsDocstring(n) {
			return false
		}

		start, end := int(n.StartByte()), int(n.EndByte())
		mutated := replaceRange(content, start, end, InvalidLiteral)
		desc := fmt.Sprintf("Changed '%s' to invalid value at line %d", value, Line(n))

		mutants = append(mutants, newMutant(m.MutationLiteralValue, content, mutated, Line(n), start, desc))

		return false
	})

	return mutants
}

// StringPrefix returns the lowercase prefix letters of a string node, such as
// "f", "rb" or "".
func StringPrefix(n *sitter.Node, content []byte) string {
	text := Text(n, content)

	i := strings.IndexAny(text, `"'`)
	if i < 0 {
		return ""
	}

	return strings.ToLower(text[:i])
}

// PlainStringValue returns the raw body of a string node that is neither an
// f-string nor a bytes literal.
func PlainStringValue(n *sitter.Node, content []byte) (string, bool) {
	prefix := StringPrefix(n, content)
	if strings.ContainsAny(prefix, "fb") {
		return "", false
	}

	text := Text(n, content)[len(prefix):]

	quote := text[:1]
	if strings.HasPrefix(text, strings.Repeat(quote, 3)) && len(text) >= 6 {
		quote = strings.Repeat(quote, 3)
	}

	if len(text) < 2*len(quote) {
		return "", false
	}

	return text[len(quote) : len(text)-len(quote)], true
}
