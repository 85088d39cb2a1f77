package mutagens

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// GenerateDictKeyMutants removes, one at a time, every string-keyed entry of
// dict displays that have more than one entry.
func GenerateDictKeyMutants(root *sitter.Node, content []byte) []m.Mutant {
	var mutants []m.Mutant

	Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "dictionary" || countEntries(n) < 2 {
			return true
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			pair := n.Child(i)
			if pair.Type() != "pair" {
				continue
			}

			key := pair.ChildByFieldName("key")
			if key == nil || key.Type() != "string" {
				continue
			}

			name, ok := PlainStringValue(key, content)
			if !ok {
				continue
			}

			start, end, ok := entryRange(n, i)
			if !ok {
				continue
			}

			mutated := replaceRange(content, start, end, "")
			desc := fmt.Sprintf("Removed key '%s' from dict at line %d", name, Line(n))

			mutants = append(mutants, newMutant(m.MutationDictKey, content, mutated, Line(n), int(pair.StartByte()), desc))
		}

		return true
	})

	return mutants
}

func countEntries(dict *sitter.Node) int {
	count := 0

	for i := 0; i < int(dict.NamedChildCount()); i++ {
		switch dict.NamedChild(i).Type() {
		case "pair", "dictionary_splat":
			count++
		}
	}

	return count
}

// entryRange returns the byte range covering the entry at child index i and
// one adjacent comma, so the remaining display stays well formed.
func entryRange(dict *sitter.Node, i int) (int, int, bool) {
	entry := dict.Child(i)
	count := int(dict.ChildCount())

	if i+1 < count && dict.Child(i+1).Type() == "," {
		if i+2 < count {
			return int(entry.StartByte()), int(dict.Child(i + 2).StartByte()), true
		}

		return int(entry.StartByte()), int(dict.Child(i + 1).EndByte()), true
	}

	for j := i - 1; j >= 0; j-- {
		if dict.Child(j).Type() == "," {
			return int(dict.Child(j).StartByte()), int(entry.EndByte()), true
		}
	}

	return 0, 0, false
}
