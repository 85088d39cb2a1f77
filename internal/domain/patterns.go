package domain

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/domain/mutagens"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const (
	notRequiredConfidence = 0.7
	handlerConfidence     = 0.6
)

var (
	notRequiredField = regexp.MustCompile(`(\w+)\s*:\s*NotRequired\[`)
	presenceCheck    = regexp.MustCompile(`\sin\s|\.get\(`)
)

// admittedKinds are the handler names that signal an anticipated type fault.
var admittedKinds = map[string]m.FaultKind{
	"TypeError":      m.KindTypeMismatch,
	"KeyError":       m.KindMissingKey,
	"AttributeError": m.KindMissingAttribute,
	"ValueError":     m.KindTypeMismatch,
}

// PatternAnalyzer flags syntactic red flags without running anything. Its
// faults are never proven.
type PatternAnalyzer interface {
	Analyze(ctx context.Context, source []byte) []m.TypeFault
}

type patternAnalyzer struct {
	parser adapter.PythonFileAdapter
}

// NewPatternAnalyzer constructs a PatternAnalyzer.
func NewPatternAnalyzer(parser adapter.PythonFileAdapter) PatternAnalyzer {
	return &patternAnalyzer{parser: parser}
}

func (a *patternAnalyzer) Analyze(ctx context.Context, source []byte) []m.TypeFault {
	tree, err := a.parser.Parse(ctx, source)
	if err != nil {
		slog.Debug("pattern analysis skipped", "error", err)
		return []m.TypeFault{}
	}
	defer tree.Close()

	root := tree.RootNode()

	faults := []m.TypeFault{}
	faults = append(faults, unguardedOptionalAccess(root, source)...)
	faults = append(faults, typeAdmittingHandlers(root, source)...)

	return faults
}

// optionalKeys collects NotRequired fields and the fields of total=False
// TypedDict classes.
func optionalKeys(root *sitter.Node, source []byte) map[string]bool {
	keys := map[string]bool{}

	for _, match := range notRequiredField.FindAllSubmatch(source, -1) {
		keys[string(match[1])] = true
	}

	mutagens.Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "class_definition" || !declaresTotalFalse(n, source) {
			return true
		}

		body := n.ChildByFieldName("body")
		if body == nil {
			return true
		}

		for i := 0; i < int(body.NamedChildCount()); i++ {
			stmt := body.NamedChild(i)
			if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
				continue
			}

			assign := stmt.NamedChild(0)
			if assign.Type() != "assignment" || assign.ChildByFieldName("type") == nil {
				continue
			}

			if left := assign.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				keys[mutagens.Text(left, source)] = true
			}
		}

		return true
	})

	return keys
}

func declaresTotalFalse(class *sitter.Node, source []byte) bool {
	supers := class.ChildByFieldName("superclasses")
	if supers == nil {
		return false
	}

	for i := 0; i < int(supers.NamedChildCount()); i++ {
		kw := supers.NamedChild(i)
		if kw.Type() != "keyword_argument" {
			continue
		}

		name := kw.ChildByFieldName("name")
		value := kw.ChildByFieldName("value")

		if name != nil && value != nil && mutagens.Text(name, source) == "total" && mutagens.Text(value, source) == "False" {
			return true
		}
	}

	return false
}

func unguardedOptionalAccess(root *sitter.Node, source []byte) []m.TypeFault {
	keys := optionalKeys(root, source)
	if len(keys) == 0 {
		return nil
	}

	var faults []m.TypeFault

	var visit func(n *sitter.Node, guarded bool)
	visit = func(n *sitter.Node, guarded bool) {
		switch n.Type() {
		case "type":
			return
		case "if_statement", "elif_clause":
			cond := n.ChildByFieldName("condition")
			if cond != nil && isPresenceCheck(cond, source) {
				for i := 0; i < int(n.NamedChildCount()); i++ {
					child := n.NamedChild(i)
					switch {
					case child.StartByte() == cond.StartByte():
					case child.Type() == "block":
						visit(child, true)
					default:
						visit(child, guarded)
					}
				}

				return
			}
		case "subscript":
			if key, ok := stringSubscript(n, source); ok && keys[key] && !guarded {
				faults = append(faults, m.TypeFault{
					Line:       mutagens.Line(n),
					Kind:       m.KindMissingKey,
					Message:    fmt.Sprintf("Unguarded access to NotRequired key '%s'", key),
					Source:     m.SourceStaticPattern,
					Confidence: notRequiredConfidence,
				})
			}
		}

		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i), guarded)
		}
	}

	visit(root, false)

	return faults
}

func isPresenceCheck(cond *sitter.Node, source []byte) bool {
	return presenceCheck.MatchString(mutagens.Text(cond, source))
}

func stringSubscript(n *sitter.Node, source []byte) (string, bool) {
	index := n.ChildByFieldName("subscript")
	if index == nil || index.Type() != "string" || index.NextNamedSibling() != nil {
		return "", false
	}

	return mutagens.PlainStringValue(index, source)
}

func typeAdmittingHandlers(root *sitter.Node, source []byte) []m.TypeFault {
	var faults []m.TypeFault

	mutagens.Walk(root, func(n *sitter.Node) bool {
		if n.Type() != "try_statement" {
			return true
		}

		body := n.ChildByFieldName("body")
		if body == nil {
			return true
		}

		first := body.NamedChild(0)
		for first != nil && first.Type() == "comment" {
			first = first.NextNamedSibling()
		}

		if first == nil {
			return true
		}

		for i := 0; i < int(n.NamedChildCount()); i++ {
			clause := n.NamedChild(i)
			if clause.Type() != "except_clause" {
				continue
			}

			for _, name := range caughtNames(clause, source) {
				kind, ok := admittedKinds[name]
				if name == "" {
					kind, ok, name = m.KindTypeMismatch, true, "any exception"
				}

				if !ok {
					continue
				}

				faults = append(faults, m.TypeFault{
					Line:       mutagens.Line(first),
					Kind:       kind,
					Message:    fmt.Sprintf("Code expects %s (try block at line %d)", name, mutagens.Line(n)),
					Source:     m.SourceStaticPattern,
					Confidence: handlerConfidence,
				})
			}
		}

		return true
	})

	return faults
}

// caughtNames lists the exception names an except clause catches. A bare
// except yields a single empty name.
func caughtNames(clause *sitter.Node, source []byte) []string {
	if clause.NamedChildCount() == 0 {
		return []string{""}
	}

	target := clause.NamedChild(0)
	if target.Type() == "block" {
		return []string{""}
	}

	if target.Type() == "as_pattern" && target.NamedChildCount() > 0 {
		target = target.NamedChild(0)
	}

	for target.Type() == "parenthesized_expression" && target.NamedChildCount() == 1 {
		target = target.NamedChild(0)
	}

	switch target.Type() {
	case "identifier":
		return []string{mutagens.Text(target, source)}
	case "tuple", "expression_list":
		var names []string

		for i := 0; i < int(target.NamedChildCount()); i++ {
			if elt := target.NamedChild(i); elt.Type() == "identifier" {
				names = append(names, mutagens.Text(elt, source))
			}
		}

		return names
	}

	return nil
}
