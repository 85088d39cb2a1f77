package adapter

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is returned when the source does not parse cleanly.
var ErrSyntax = errors.New("python syntax error")

// PythonFileAdapter encapsulates Python parsing so the domain layer can work on
// syntax trees while delegating the grammar to an infrastructure component.
type PythonFileAdapter interface {
	// Parse builds a syntax tree for src. The caller owns the tree and must
	// Close it. Sources with syntax errors yield ErrSyntax and no tree.
	Parse(ctx context.Context, src []byte) (*sitter.Tree, error)
}

// TreeSitterPythonAdapter parses Python with the tree-sitter grammar.
type TreeSitterPythonAdapter struct{}

// NewTreeSitterPythonAdapter constructs a TreeSitterPythonAdapter.
func NewTreeSitterPythonAdapter() *TreeSitterPythonAdapter {
	return &TreeSitterPythonAdapter{}
}

// Parse creates a fresh parser per call; tree-sitter parsers are not safe for
// concurrent use.
func (a *TreeSitterPythonAdapter) Parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}

	if tree.RootNode().HasError() {
		tree.Close()
		return nil, ErrSyntax
	}

	return tree, nil
}
