package domain

import (
	"bytes"
	"context"
	_ "embed"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/domain/mutagens"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

//go:embed enforce.py
var enforcePrelude string

const (
	// EnforceDecorator is the name the prelude binds the checking decorator to.
	EnforceDecorator = "__tc_enforce__"
	// PreludeFilename is the code filename of the enforcement prelude.
	PreludeFilename = "<tc-enforce>"

	enforcedConfidence  = 0.95
	enforcedHeuristic   = 0.8
	violationMessageMax = 300
)

// Instrumented is a source rewritten with enforcement decorators.
type Instrumented struct {
	Source []byte
	// LineMap holds the original line of each instrumented line, 0-indexed
	// by instrumented line minus one.
	LineMap []int
}

// Original translates an instrumented line number. Lines outside the
// rewritten source map to 0.
func (in Instrumented) Original(line int) int {
	if line < 1 || line > len(in.LineMap) {
		return 0
	}

	return in.LineMap[line-1]
}

// Units returns the prelude followed by the instrumented unit and any
// extra units, ready for a single interpreter run.
func (in Instrumented) Units(extra ...adapter.Unit) []adapter.Unit {
	units := []adapter.Unit{
		{Filename: PreludeFilename, Source: enforcePrelude},
		{Filename: ExampleFilename, Source: string(in.Source)},
	}

	return append(units, extra...)
}

// Line maps the raising frame of exc back to the original source. Frames
// outside the evaluated unit yield 0.
func (in Instrumented) Line(exc *m.RaisedException) int {
	if exc == nil || exc.Filename != ExampleFilename {
		return 0
	}

	return in.Original(exc.Line)
}

// Enforcer rewrites sources so that every function checks its annotations
// at call time.
type Enforcer interface {
	// Instrument reports false when source does not parse.
	Instrument(ctx context.Context, source []byte) (Instrumented, bool)

	// RunEnforced executes the instrumented program and classifies what
	// escapes it.
	RunEnforced(ctx context.Context, source []byte) []m.TypeFault
}

type enforcer struct {
	parser  adapter.PythonFileAdapter
	sandbox Sandbox
}

// NewEnforcer constructs an Enforcer.
func NewEnforcer(parser adapter.PythonFileAdapter, sandbox Sandbox) Enforcer {
	return &enforcer{parser: parser, sandbox: sandbox}
}

func (e *enforcer) Instrument(ctx context.Context, source []byte) (Instrumented, bool) {
	tree, err := e.parser.Parse(ctx, source)
	if err != nil {
		slog.Debug("enforcement skipped", "error", err)
		return Instrumented{}, false
	}
	defer tree.Close()

	var defs []*sitter.Node

	mutagens.Walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Type() == "function_definition" {
			defs = append(defs, n)
		}

		return true
	})

	return instrument(source, defs), true
}

func instrument(source []byte, defs []*sitter.Node) Instrumented {
	inserts := map[int]string{}

	for _, def := range defs {
		start := int(def.StartByte())
		lineStart := bytes.LastIndexByte(source[:start], '\n') + 1
		indent := string(source[lineStart:start])

		if strings.TrimLeft(indent, " \t") != "" {
			continue
		}

		inserts[lineStart] = indent + "@" + EnforceDecorator + "\n"
	}

	var (
		out     bytes.Buffer
		lineMap []int
	)

	line := 1

	for offset := 0; offset <= len(source); {
		if decorator, ok := inserts[offset]; ok {
			out.WriteString(decorator)
			lineMap = append(lineMap, line)
		}

		if offset == len(source) {
			break
		}

		end := bytes.IndexByte(source[offset:], '\n')
		if end < 0 {
			out.Write(source[offset:])
			lineMap = append(lineMap, line)

			break
		}

		out.Write(source[offset : offset+end+1])
		lineMap = append(lineMap, line)
		line++
		offset += end + 1
	}

	return Instrumented{Source: out.Bytes(), LineMap: lineMap}
}

func (e *enforcer) RunEnforced(ctx context.Context, source []byte) []m.TypeFault {
	in, ok := e.Instrument(ctx, source)
	if !ok {
		return []m.TypeFault{}
	}

	res, ok := e.sandbox.Run(ctx, in.Units()...)
	if !ok || !res.Crashed() {
		return []m.TypeFault{}
	}

	fault, found := ClassifyEnforced(res.Exception)
	if !found {
		return []m.TypeFault{}
	}

	fault.Line = in.Line(res.Exception)

	return []m.TypeFault{fault}
}

// IsEnforcementViolation reports whether exc was raised by the enforcement
// layer rather than by the code itself.
func IsEnforcementViolation(exc *m.RaisedException) bool {
	if exc == nil {
		return false
	}

	for _, name := range append([]string{exc.Name}, exc.MRO...) {
		if name == "EnforcementViolation" || strings.HasPrefix(name, "BeartypeCallHint") {
			return true
		}
	}

	return false
}

// ClassifyEnforced maps an exception from an instrumented run to a fault.
// The line is left for the caller to map.
func ClassifyEnforced(exc *m.RaisedException) (m.TypeFault, bool) {
	if exc == nil {
		return m.TypeFault{}, false
	}

	fault := m.TypeFault{
		Source:     m.SourceEnforcement,
		Confidence: enforcedConfidence,
		Exception:  exc.Name,
		Message:    truncate(exc.Message, messageLimit),
	}

	if kind, ok := kindOf(exc); ok {
		fault.Kind = kind
		if kind == m.KindEnforcementViolation {
			fault.Message = truncate(exc.Message, violationMessageMax)
		}

		return fault, true
	}

	if mentions(exc.Message, "type", "beartype") {
		fault.Kind = m.KindTypeMismatch
		fault.Confidence = enforcedHeuristic

		return fault, true
	}

	return m.TypeFault{}, false
}
