package domain

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// InvalidLiteral is appended to every Literal[...] candidate list so the
// out-of-set case is always exercised.
const InvalidLiteral = "__INVALID_LITERAL__"

const (
	defaultMaxCases  = 10
	maxTupleProducts = 8
)

var typeVariables = map[string]bool{"T": true, "K": true, "V": true, "R": true, "Self": true}

// Synthesizer maps type annotations to small candidate value sets.
type Synthesizer struct{}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize always returns candidates, falling back to a generic sample for
// missing or unknown annotations.
func (s *Synthesizer) Synthesize(annotation *string) []PyValue {
	if annotation == nil {
		return genericSample()
	}

	values, _ := candidates(*annotation, false)

	return values
}

// Resolve is the strict form of Synthesize: it reports false when the
// annotation is missing or any part of it is unknown.
func (s *Synthesizer) Resolve(annotation *string) ([]PyValue, bool) {
	if annotation == nil {
		return nil, false
	}

	return candidates(*annotation, true)
}

func genericSample() []PyValue {
	return []PyValue{PyNone(), PyInt(0), PyStr(""), PyList(), PyDict()}
}

func candidates(annotation string, strict bool) ([]PyValue, bool) {
	ann := normalizeAnnotation(annotation)

	if parts := splitTopLevel(ann, '|'); len(parts) > 1 {
		return unionCandidates(parts, strict)
	}

	head, args, hasArgs := splitSubscript(ann)
	head = lastComponent(head)

	if !hasArgs {
		return bareCandidates(head, strict)
	}

	switch head {
	case "Optional":
		inner, ok := candidates(args, strict)
		return dedupValues(append([]PyValue{PyNone()}, inner...)), ok
	case "Union":
		return unionCandidates(splitTopLevel(args, ','), strict)
	case "list", "List", "Sequence", "MutableSequence", "Iterable", "Collection", "Iterator":
		inner, ok := candidates(args, strict)
		return sequenceCandidates(inner), ok
	case "set", "Set", "MutableSet", "AbstractSet":
		inner, ok := candidates(args, strict)
		return []PyValue{PySet(), PySet(firstN(inner, 2)...)}, ok
	case "frozenset", "FrozenSet":
		inner, ok := candidates(args, strict)
		return []PyValue{PyFrozenSet(), PyFrozenSet(firstN(inner, 2)...)}, ok
	case "tuple", "Tuple":
		return tupleCandidates(splitTopLevel(args, ','), strict)
	case "dict", "Dict", "Mapping", "MutableMapping", "DefaultDict", "OrderedDict":
		return mappingCandidates(), true
	case "Literal":
		return literalCandidates(splitTopLevel(args, ',')), true
	case "Callable":
		return callableCandidates(), true
	case "Annotated", "Final", "ClassVar", "Required", "NotRequired", "ReadOnly":
		return candidates(splitTopLevel(args, ',')[0], strict)
	case "type", "Type":
		return []PyValue{PyExpr("object", true), PyExpr("int", true)}, true
	}

	return genericSample(), !strict
}

func bareCandidates(name string, strict bool) ([]PyValue, bool) {
	switch name {
	case "int":
		return []PyValue{PyInt(0), PyInt(1), PyInt(-1), PyInt(math.MaxInt32 + 1), PyInt(math.MinInt32)}, true
	case "str":
		return []PyValue{PyStr(""), PyStr("test"), PyStr(strings.Repeat("a", 100)), PyStr("\n\t"), PyStr("123")}, true
	case "float":
		return []PyValue{PyFloat(0), PyFloat(1.5), PyFloat(-1.5), PyFloat(math.Inf(1)), PyFloat(math.Inf(-1))}, true
	case "bool":
		return []PyValue{PyBool(true), PyBool(false)}, true
	case "None", "NoneType":
		return []PyValue{PyNone()}, true
	case "bytes":
		return []PyValue{PyBytes(nil), PyBytes([]byte("test")), PyBytes([]byte{0x00, 0xff})}, true
	case "Any", "object":
		return genericSample(), true
	case "list", "List", "Sequence", "Iterable":
		return sequenceCandidates(genericSample()), true
	case "set", "Set":
		return []PyValue{PySet(), PySet(firstN(genericSample(), 2)...)}, true
	case "frozenset", "FrozenSet":
		return []PyValue{PyFrozenSet(), PyFrozenSet(firstN(genericSample(), 2)...)}, true
	case "tuple", "Tuple":
		return []PyValue{PyTuple(), PyTuple(firstN(genericSample(), 2)...)}, true
	case "dict", "Dict", "Mapping":
		return mappingCandidates(), true
	case "Callable":
		return callableCandidates(), true
	}

	if typeVariables[name] {
		return []PyValue{PyNone()}, true
	}

	return genericSample(), !strict
}

func unionCandidates(members []string, strict bool) ([]PyValue, bool) {
	var (
		values   []PyValue
		optional bool
		resolved = true
	)

	for _, member := range members {
		member = normalizeAnnotation(member)
		if member == "None" || member == "NoneType" {
			optional = true
			continue
		}

		inner, ok := candidates(member, strict)
		resolved = resolved && ok
		values = append(values, inner...)
	}

	if optional {
		values = append([]PyValue{PyNone()}, values...)
	}

	return dedupValues(values), resolved
}

func sequenceCandidates(inner []PyValue) []PyValue {
	head := firstN(inner, 2)

	repeated := make([]PyValue, 0, 3*len(head))
	for range 3 {
		repeated = append(repeated, head...)
	}

	return []PyValue{PyList(), PyList(head...), PyList(repeated...)}
}

func tupleCandidates(slots []string, strict bool) ([]PyValue, bool) {
	if len(slots) == 2 && strings.TrimSpace(slots[1]) == "..." {
		inner, ok := candidates(slots[0], strict)
		return []PyValue{PyTuple(), PyTuple(firstN(inner, 2)...)}, ok
	}

	if len(slots) == 1 && strings.TrimSpace(slots[0]) == "()" {
		return []PyValue{PyTuple()}, true
	}

	picks := make([][]PyValue, 0, len(slots))
	resolved := true

	for _, slot := range slots {
		inner, ok := candidates(slot, strict)
		resolved = resolved && ok
		picks = append(picks, firstN(inner, 2))
	}

	products := [][]PyValue{{}}

	for _, pick := range picks {
		next := make([][]PyValue, 0, len(products)*len(pick))

		for _, prefix := range products {
			for _, v := range pick {
				combo := append(append([]PyValue{}, prefix...), v)
				next = append(next, combo)
			}
		}

		products = next
	}

	values := make([]PyValue, 0, maxTupleProducts)
	for _, combo := range products {
		if len(values) == maxTupleProducts {
			break
		}

		values = append(values, PyTuple(combo...))
	}

	return values, resolved
}

func mappingCandidates() []PyValue {
	return []PyValue{PyDict(), PyDict([2]PyValue{PyStr("key"), PyStr("value")})}
}

func callableCandidates() []PyValue {
	return []PyValue{PyExpr("lambda *args, **kwargs: None", true)}
}

func literalCandidates(members []string) []PyValue {
	values := make([]PyValue, 0, len(members)+1)

	for _, member := range members {
		member = strings.TrimSpace(member)

		switch {
		case member == "True" || member == "False":
			values = append(values, PyBool(member == "True"))
		case member == "None":
			values = append(values, PyNone())
		case isQuoted(member):
			values = append(values, PyStr(member[1:len(member)-1]))
		default:
			if i, err := strconv.ParseInt(member, 10, 64); err == nil {
				values = append(values, PyInt(i))
			} else {
				values = append(values, PyStr(member))
			}
		}
	}

	return dedupValues(append(values, PyStr(InvalidLiteral)))
}

func firstN(values []PyValue, n int) []PyValue {
	if len(values) < n {
		return values
	}

	return values[:n]
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

// normalizeAnnotation trims whitespace and unwraps string forward references.
func normalizeAnnotation(ann string) string {
	ann = strings.TrimSpace(ann)
	for isQuoted(ann) && strings.IndexByte(ann[1:len(ann)-1], ann[0]) < 0 {
		ann = strings.TrimSpace(ann[1 : len(ann)-1])
	}

	return ann
}

// splitSubscript splits "Head[args]" into its parts.
func splitSubscript(ann string) (string, string, bool) {
	open := strings.IndexByte(ann, '[')
	if open < 0 || !strings.HasSuffix(ann, "]") {
		return ann, "", false
	}

	return strings.TrimSpace(ann[:open]), ann[open+1 : len(ann)-1], true
}

// lastComponent drops module qualifiers such as typing. or collections.abc.
func lastComponent(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}

	return name
}

// splitTopLevel splits s on sep outside brackets and quotes.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}

	return append(parts, strings.TrimSpace(s[start:]))
}

// Arg is one keyword argument of a synthesized call.
type Arg struct {
	Param m.Param
	Value PyValue
}

// Case is one synthesized call.
type Case []Arg

func (c Case) key() string {
	parts := make([]string, 0, len(c))
	for _, arg := range c {
		parts = append(parts, arg.Param.Name+"="+arg.Value.Literal())
	}

	return strings.Join(parts, ",")
}

// ParamCandidates pairs a parameter with its candidate values.
type ParamCandidates struct {
	Param  m.Param
	Values []PyValue
}

// Combinations builds up to maxCases cases: first-of-each, last-of-each, a
// sweep setting one parameter to its last value, then random picks that
// are not already present.
func Combinations(params []ParamCandidates, maxCases int, rng *rand.Rand) []Case {
	if len(params) == 0 {
		return nil
	}

	if maxCases <= 0 {
		maxCases = defaultMaxCases
	}

	for _, p := range params {
		if len(p.Values) == 0 {
			return nil
		}
	}

	pick := func(choose func(i int, p ParamCandidates) PyValue) Case {
		c := make(Case, 0, len(params))
		for i, p := range params {
			c = append(c, Arg{Param: p.Param, Value: choose(i, p)})
		}

		return c
	}

	first := func(_ int, p ParamCandidates) PyValue { return p.Values[0] }
	last := func(_ int, p ParamCandidates) PyValue { return p.Values[len(p.Values)-1] }

	cases := []Case{pick(first), pick(last)}

	for swept := range params {
		cases = append(cases, pick(func(i int, p ParamCandidates) PyValue {
			if i == swept {
				return last(i, p)
			}

			return first(i, p)
		}))
	}

	seen := make(map[string]bool, len(cases))
	for _, c := range cases {
		seen[c.key()] = true
	}

	for attempts := maxCases - len(cases); attempts > 0 && len(cases) < maxCases; attempts-- {
		c := pick(func(_ int, p ParamCandidates) PyValue { return p.Values[rng.IntN(len(p.Values))] })
		if seen[c.key()] {
			continue
		}

		seen[c.key()] = true
		cases = append(cases, c)
	}

	if len(cases) > maxCases {
		cases = cases[:maxCases]
	}

	return cases
}
