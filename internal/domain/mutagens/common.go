// Package mutagens generates type-targeted mutants of Python source from a
// tree-sitter syntax tree. Every family edits byte ranges of the original
// content so the rest of the file is preserved verbatim.
package mutagens

import (
	"crypto/sha256"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	sitter "github.com/smacker/go-tree-sitter"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// Generator produces the mutants of one family for a parsed module.
type Generator func(root *sitter.Node, content []byte) []m.Mutant

// Walk visits n and its descendants in source order. Returning false from fn
// skips the children of the visited node.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		Walk(n.Child(i), fn)
	}
}

// Text returns the source text spanned by n.
func Text(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

// Line returns the 1-based line on which n starts.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// IsDocstring reports whether a string node is the first statement of a
// module, class or function body.
func IsDocstring(n *sitter.Node) bool {
	stmt := n.Parent()
	if stmt == nil || stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return false
	}

	body := stmt.Parent()
	if body == nil || (body.Type() != "block" && body.Type() != "module") {
		return false
	}

	first := body.NamedChild(0)
	for first != nil && first.Type() == "comment" {
		first = first.NextNamedSibling()
	}

	return first != nil && first.StartByte() == stmt.StartByte()
}

func replaceRange(content []byte, start, end int, replacement string) []byte {
	mutated := make([]byte, 0, len(content)-(end-start)+len(replacement))
	mutated = append(mutated, content[:start]...)
	mutated = append(mutated, replacement...)
	mutated = append(mutated, content[end:]...)

	return mutated
}

func diffCode(original, mutated []byte) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(mutated)),
		FromFile: "original",
		ToFile:   "mutated",
		Context:  1,
	})
	if err != nil {
		return ""
	}

	return diff
}

func mutantID(category m.MutantCategory, line, offset int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s-%d-%d", category, line, offset)))

	return fmt.Sprintf("%x", h)[:16]
}

func newMutant(category m.MutantCategory, content, mutated []byte, line, offset int, description string) m.Mutant {
	return m.Mutant{
		ID:          mutantID(category, line, offset),
		Description: description,
		Code:        mutated,
		Category:    category,
		Line:        line,
		Diff:        diffCode(content, mutated),
	}
}
