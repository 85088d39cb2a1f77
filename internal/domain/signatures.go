package domain

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/domain/mutagens"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const defaultSignatureCacheSize = 256

// SignatureExtractor derives the structural model of every function in a
// Python unit.
type SignatureExtractor interface {
	// Extract returns the signatures in source order. Unparseable source
	// yields an empty list.
	Extract(ctx context.Context, source []byte) []m.FunctionSignature
}

type signatureExtractor struct {
	parser adapter.PythonFileAdapter
	cache  *lru.Cache[[sha256.Size]byte, []m.FunctionSignature]
}

// NewSignatureExtractor builds an extractor whose results are memoized by
// source hash.
func NewSignatureExtractor(parser adapter.PythonFileAdapter, cacheSize int) SignatureExtractor {
	if cacheSize <= 0 {
		cacheSize = defaultSignatureCacheSize
	}

	cache, err := lru.New[[sha256.Size]byte, []m.FunctionSignature](cacheSize)
	if err != nil {
		slog.Warn("signature cache disabled", "error", err)
	}

	return &signatureExtractor{parser: parser, cache: cache}
}

func (e *signatureExtractor) Extract(ctx context.Context, source []byte) []m.FunctionSignature {
	key := sha256.Sum256(source)
	if e.cache != nil {
		if sigs, ok := e.cache.Get(key); ok {
			return sigs
		}
	}

	tree, err := e.parser.Parse(ctx, source)
	if err != nil {
		slog.Debug("signature extraction skipped", "error", err)
		return []m.FunctionSignature{}
	}
	defer tree.Close()

	sigs := []m.FunctionSignature{}
	collectSignatures(tree.RootNode(), source, "", &sigs)

	if e.cache != nil {
		e.cache.Add(key, sigs)
	}

	return sigs
}

// collectSignatures visits module and class bodies. Functions nested inside
// other functions are not reachable from module scope and are skipped.
func collectSignatures(body *sitter.Node, content []byte, class string, out *[]m.FunctionSignature) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		node := body.NamedChild(i)

		var decorators []string
		if node.Type() == "decorated_definition" {
			decorators = decoratorNames(node, content)
			node = node.ChildByFieldName("definition")

			if node == nil {
				continue
			}
		}

		switch node.Type() {
		case "function_definition":
			*out = append(*out, buildSignature(node, content, class, decorators))
		case "class_definition":
			name := node.ChildByFieldName("name")
			classBody := node.ChildByFieldName("body")

			if name != nil && classBody != nil {
				collectSignatures(classBody, content, mutagens.Text(name, content), out)
			}
		case "if_statement", "elif_clause", "else_clause", "try_statement", "except_clause", "finally_clause", "with_statement", "block":
			if class == "" {
				collectSignatures(node, content, class, out)
			}
		}
	}
}

func buildSignature(node *sitter.Node, content []byte, class string, decorators []string) m.FunctionSignature {
	sig := m.FunctionSignature{
		Class:      class,
		IsMethod:   class != "",
		Line:       mutagens.Line(node),
		Decorators: decorators,
		Params:     []m.Param{},
	}

	if name := node.ChildByFieldName("name"); name != nil {
		sig.Name = mutagens.Text(name, content)
	}

	if ret := node.ChildByFieldName("return_type"); ret != nil {
		text := mutagens.Text(ret, content)
		sig.ReturnType = &text
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "async" {
			sig.IsAsync = true
			break
		}
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		sig.Params = extractParams(params, content)
	}

	return sig
}

func extractParams(params *sitter.Node, content []byte) []m.Param {
	result := []m.Param{}
	kind := m.ParamPositional

	for i := 0; i < int(params.NamedChildCount()); i++ {
		node := params.NamedChild(i)

		param := m.Param{Kind: kind}

		switch node.Type() {
		case "identifier":
			param.Name = mutagens.Text(node, content)
		case "typed_parameter":
			inner := node.NamedChild(0)
			if inner == nil {
				continue
			}

			param.Name = mutagens.Text(inner, content)
			param.Annotation = fieldText(node, "type", content)

			switch inner.Type() {
			case "list_splat_pattern":
				param.Name = strings.TrimLeft(param.Name, "*")
				param.Kind = m.ParamVarPositional
				kind = m.ParamKeywordOnly
			case "dictionary_splat_pattern":
				param.Name = strings.TrimLeft(param.Name, "*")
				param.Kind = m.ParamVarKeyword
			}
		case "default_parameter":
			name := node.ChildByFieldName("name")
			if name == nil {
				continue
			}

			param.Name = mutagens.Text(name, content)
			param.HasDefault = true
		case "typed_default_parameter":
			name := node.ChildByFieldName("name")
			if name == nil {
				continue
			}

			param.Name = mutagens.Text(name, content)
			param.Annotation = fieldText(node, "type", content)
			param.HasDefault = true
		case "list_splat_pattern":
			param.Name = strings.TrimLeft(mutagens.Text(node, content), "*")
			param.Kind = m.ParamVarPositional
			kind = m.ParamKeywordOnly
		case "dictionary_splat_pattern":
			param.Name = strings.TrimLeft(mutagens.Text(node, content), "*")
			param.Kind = m.ParamVarKeyword
		case "keyword_separator":
			kind = m.ParamKeywordOnly
			continue
		case "positional_separator":
			for j := range result {
				if result[j].Kind == m.ParamPositional {
					result[j].Kind = m.ParamPositionalOnly
				}
			}

			continue
		default:
			continue
		}

		if param.Name == "self" || param.Name == "cls" {
			continue
		}

		result = append(result, param)
	}

	return result
}

func fieldText(node *sitter.Node, field string, content []byte) *string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return nil
	}

	text := mutagens.Text(child, content)

	return &text
}

func decoratorNames(node *sitter.Node, content []byte) []string {
	names := []string{}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		dec := node.NamedChild(i)
		if dec.Type() != "decorator" || dec.NamedChildCount() == 0 {
			continue
		}

		expr := dec.NamedChild(0)
		if expr.Type() == "call" {
			if fn := expr.ChildByFieldName("function"); fn != nil {
				expr = fn
			}
		}

		names = append(names, mutagens.Text(expr, content))
	}

	return names
}
