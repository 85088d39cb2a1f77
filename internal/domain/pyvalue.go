package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PyValue is a synthesized Python value held as its source literal.
type PyValue struct {
	literal  string
	hashable bool
}

// Literal returns the Python expression that evaluates to the value.
func (v PyValue) Literal() string {
	return v.literal
}

// String implements fmt.Stringer.
func (v PyValue) String() string {
	return v.literal
}

// PyNone is Python's None.
func PyNone() PyValue {
	return PyValue{literal: "None", hashable: true}
}

// PyInt is an int literal.
func PyInt(i int64) PyValue {
	return PyValue{literal: strconv.FormatInt(i, 10), hashable: true}
}

// PyBool is True or False.
func PyBool(b bool) PyValue {
	if b {
		return PyValue{literal: "True", hashable: true}
	}

	return PyValue{literal: "False", hashable: true}
}

// PyFloat is a float literal; infinities and NaN use float("...").
func PyFloat(f float64) PyValue {
	switch {
	case math.IsInf(f, 1):
		return PyValue{literal: `float("inf")`, hashable: true}
	case math.IsInf(f, -1):
		return PyValue{literal: `float("-inf")`, hashable: true}
	case math.IsNaN(f):
		return PyValue{literal: `float("nan")`, hashable: true}
	}

	lit := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(lit, ".eEn") {
		lit += ".0"
	}

	return PyValue{literal: lit, hashable: true}
}

// PyStr is a str literal. Go quoting escapes are a subset of Python's.
func PyStr(s string) PyValue {
	return PyValue{literal: strconv.Quote(s), hashable: true}
}

// PyBytes is a bytes literal.
func PyBytes(b []byte) PyValue {
	var sb strings.Builder

	sb.WriteString(`b"`)

	for _, c := range b {
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, `\x%02x`, c)
		}
	}

	sb.WriteByte('"')

	return PyValue{literal: sb.String(), hashable: true}
}

// PyList is a list display.
func PyList(items ...PyValue) PyValue {
	return PyValue{literal: "[" + joinLiterals(items) + "]"}
}

// PySet is a set display; unhashable members are dropped.
func PySet(items ...PyValue) PyValue {
	members := hashableOnly(items)
	if len(members) == 0 {
		return PyValue{literal: "set()"}
	}

	return PyValue{literal: "{" + joinLiterals(members) + "}"}
}

// PyFrozenSet is a frozenset call; unhashable members are dropped.
func PyFrozenSet(items ...PyValue) PyValue {
	members := hashableOnly(items)
	if len(members) == 0 {
		return PyValue{literal: "frozenset()", hashable: true}
	}

	return PyValue{literal: "frozenset({" + joinLiterals(members) + "})", hashable: true}
}

// PyTuple is a tuple display.
func PyTuple(items ...PyValue) PyValue {
	hashable := true

	for _, item := range items {
		hashable = hashable && item.hashable
	}

	switch len(items) {
	case 0:
		return PyValue{literal: "()", hashable: true}
	case 1:
		return PyValue{literal: "(" + items[0].literal + ",)", hashable: hashable}
	}

	return PyValue{literal: "(" + joinLiterals(items) + ")", hashable: hashable}
}

// PyDict is a dict display with the given key/value pairs.
func PyDict(pairs ...[2]PyValue) PyValue {
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts = append(parts, pair[0].literal+": "+pair[1].literal)
	}

	return PyValue{literal: "{" + strings.Join(parts, ", ") + "}"}
}

// PyExpr wraps an arbitrary expression, such as a lambda.
func PyExpr(expr string, hashable bool) PyValue {
	return PyValue{literal: expr, hashable: hashable}
}

func joinLiterals(items []PyValue) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.literal)
	}

	return strings.Join(parts, ", ")
}

func hashableOnly(items []PyValue) []PyValue {
	out := make([]PyValue, 0, len(items))

	for _, item := range items {
		if item.hashable {
			out = append(out, item)
		}
	}

	return dedupValues(out)
}

func dedupValues(values []PyValue) []PyValue {
	seen := make(map[string]bool, len(values))
	out := make([]PyValue, 0, len(values))

	for _, v := range values {
		if seen[v.literal] {
			continue
		}

		seen[v.literal] = true
		out = append(out, v)
	}

	return out
}
