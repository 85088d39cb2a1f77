package mutagens

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

var builtinCallees = map[string]bool{
	"print": true,
	"len":   true,
	"str":   true,
	"int":   true,
	"list":  true,
	"dict":  true,
	"type":  true,
}

// GenerateArgumentTypeMutants swaps the primitive kind of each literal
// positional argument of calls to non-builtin callees.
func GenerateArgumentTypeMutants(root *sitter.Node, content []byte) []m.Mutant {
	var mutants []m.Mutant

	Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "call" {
			return true
		}

		callee := n.ChildByFieldName("function")
		if callee != nil && callee.Type() == "identifier" && builtinCallees[Text(callee, content)] {
			return true
		}

		args := n.ChildByFieldName("arguments")
		if args == nil || args.Type() != "argument_list" {
			return true
		}

		position := 0

		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)

			switch arg.Type() {
			case "keyword_argument", "dictionary_splat", "comment":
				continue
			}

			replacement, ok := wrongTypeLiteral(arg, content)
			if ok {
				start, end := int(arg.StartByte()), int(arg.EndByte())
				mutated := replaceRange(content, start, end, replacement)
				desc := fmt.Sprintf("Changed arg %d type in call at line %d", position, Line(n))

				mutants = append(mutants, newMutant(m.MutationArgumentType, content, mutated, Line(n), start, desc))
			}

			position++
		}

		return true
	})

	return mutants
}

// wrongTypeLiteral returns the replacement for a literal argument: strings
// become an int, ints and bools become a string, other constants None.
func wrongTypeLiteral(arg *sitter.Node, content []byte) (string, bool) {
	switch arg.Type() {
	case "string":
		if strings.Contains(StringPrefix(arg, content), "f") {
			return "", false
		}

		if strings.Contains(StringPrefix(arg, content), "b") {
			return "None", true
		}

		return "12345", true
	case "concatenated_string":
		first := arg.NamedChild(0)
		if first == nil || strings.Contains(StringPrefix(first, content), "f") {
			return "", false
		}

		return "12345", true
	case "integer":
		if strings.ContainsAny(Text(arg, content), "jJ") {
			return "None", true
		}

		return `"wrong_type"`, true
	case "true", "false":
		return `"wrong_type"`, true
	case "float", "ellipsis":
		return "None", true
	}

	return "", false
}
