package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

func TestPatternAnalyzer_NotRequiredAccess(t *testing.T) {
	tests := []struct {
		name     string
		example  string
		wantLine int
	}{
		{name: "NotRequired field", example: "missing_key.py", wantLine: 12},
		{name: "total=False TypedDict", example: "missing_key_stdlib.py", wantLine: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faults := NewPatternAnalyzer(newParser()).Analyze(context.Background(), exampleSource(t, tt.example))

			require.Len(t, faults, 1)
			assert.Equal(t, m.TypeFault{
				Line:       tt.wantLine,
				Kind:       m.KindMissingKey,
				Message:    "Unguarded access to NotRequired key 'email'",
				Source:     m.SourceStaticPattern,
				Confidence: 0.7,
			}, faults[0])
			assert.False(t, faults[0].IsProven())
		})
	}
}

func TestPatternAnalyzer_GuardedAccess(t *testing.T) {
	faults := NewPatternAnalyzer(newParser()).Analyze(context.Background(), exampleSource(t, "guarded.py"))
	assert.Empty(t, faults)
}

func TestPatternAnalyzer_GuardForms(t *testing.T) {
	header := "from typing import TypedDict\nfrom typing_extensions import NotRequired\n\n" +
		"class C(TypedDict):\n    port: NotRequired[int]\n\n"

	tests := []struct {
		name      string
		body      string
		wantLines []int
	}{
		{
			name:      "get guard",
			body:      "def f(c: C) -> int:\n    if c.get(\"port\"):\n        return c[\"port\"]\n    return 0\n",
			wantLines: nil,
		},
		{
			name:      "else branch is unguarded",
			body:      "def f(c: C) -> int:\n    if \"port\" in c:\n        return 1\n    else:\n        return c[\"port\"]\n",
			wantLines: []int{11},
		},
		{
			name:      "non-presence condition",
			body:      "def f(c: C, x: int) -> int:\n    if x > 0:\n        return c[\"port\"]\n    return 0\n",
			wantLines: []int{9},
		},
		{
			name:      "other keys are ignored",
			body:      "def f(c: dict) -> int:\n    return c[\"host\"]\n",
			wantLines: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faults := NewPatternAnalyzer(newParser()).Analyze(context.Background(), []byte(header+tt.body))

			var lines []int
			for _, f := range faults {
				lines = append(lines, f.Line)
			}

			assert.Equal(t, tt.wantLines, lines)
		})
	}
}

func TestPatternAnalyzer_TypeAdmittingHandlers(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []m.TypeFault
	}{
		{
			name:   "tuple of handlers",
			source: "def f(x):\n    try:\n        return int(x)\n    except (TypeError, ValueError):\n        return 0\n",
			want: []m.TypeFault{
				{Line: 3, Kind: m.KindTypeMismatch, Message: "Code expects TypeError (try block at line 2)", Source: m.SourceStaticPattern, Confidence: 0.6},
				{Line: 3, Kind: m.KindTypeMismatch, Message: "Code expects ValueError (try block at line 2)", Source: m.SourceStaticPattern, Confidence: 0.6},
			},
		},
		{
			name:   "named handler",
			source: "try:\n    v = d[\"k\"]\nexcept KeyError as e:\n    v = None\n",
			want: []m.TypeFault{
				{Line: 2, Kind: m.KindMissingKey, Message: "Code expects KeyError (try block at line 1)", Source: m.SourceStaticPattern, Confidence: 0.6},
			},
		},
		{
			name:   "bare except",
			source: "try:\n    # first\n    obj.name\nexcept:\n    pass\n",
			want: []m.TypeFault{
				{Line: 3, Kind: m.KindTypeMismatch, Message: "Code expects any exception (try block at line 1)", Source: m.SourceStaticPattern, Confidence: 0.6},
			},
		},
		{
			name:   "unrelated handler",
			source: "try:\n    open(\"x\")\nexcept OSError:\n    pass\n",
			want:   []m.TypeFault{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faults := NewPatternAnalyzer(newParser()).Analyze(context.Background(), []byte(tt.source))
			assert.Equal(t, tt.want, faults)
		})
	}
}

func TestPatternAnalyzer_InvalidSyntax(t *testing.T) {
	faults := NewPatternAnalyzer(newParser()).Analyze(context.Background(), exampleSource(t, "invalid_syntax.py"))
	assert.Empty(t, faults)
}
