package mutagens

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// GenerateAnnotationRemovalMutants strips the return annotation of every
// function that declares one.
func GenerateAnnotationRemovalMutants(root *sitter.Node, content []byte) []m.Mutant {
	var mutants []m.Mutant

	Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "function_definition" {
			return true
		}

		params := n.ChildByFieldName("parameters")
		returns := n.ChildByFieldName("return_type")
		name := n.ChildByFieldName("name")

		if params == nil || returns == nil || name == nil {
			return true
		}

		start, end := int(params.EndByte()), int(returns.EndByte())
		mutated := replaceRange(content, start, end, "")
		desc := fmt.Sprintf("Removed return type from %s", Text(name, content))

		mutants = append(mutants, newMutant(m.MutationAnnotationRemoval, content, mutated, Line(n), start, desc))

		return true
	})

	return mutants
}
