package model

// Path represents a file system path.
type Path string

// ParamKind distinguishes how a parameter can be passed.
type ParamKind string

const (
	// ParamPositionalOnly precedes a / separator.
	ParamPositionalOnly ParamKind = "positional-only"
	// ParamPositional can be passed positionally or by keyword.
	ParamPositional ParamKind = "positional"
	// ParamKeywordOnly follows a bare * or *args.
	ParamKeywordOnly ParamKind = "keyword-only"
	// ParamVarPositional is *args.
	ParamVarPositional ParamKind = "var-positional"
	// ParamVarKeyword is **kwargs.
	ParamVarKeyword ParamKind = "var-keyword"
)

// Param is a single declared parameter of a function.
type Param struct {
	Name       string
	Annotation *string
	HasDefault bool
	Kind       ParamKind
}

// IsVariadic reports whether the parameter collects extra arguments.
func (p Param) IsVariadic() bool {
	return p.Kind == ParamVarPositional || p.Kind == ParamVarKeyword
}

// FunctionSignature is the structural model of one function or method.
type FunctionSignature struct {
	Name       string
	Class      string
	Params     []Param
	ReturnType *string
	IsMethod   bool
	IsAsync    bool
	Line       int
	Decorators []string
}

// CallableParams returns the parameters a synthesized call can bind by keyword.
func (s FunctionSignature) CallableParams() []Param {
	params := make([]Param, 0, len(s.Params))

	for _, p := range s.Params {
		if p.IsVariadic() {
			continue
		}

		params = append(params, p)
	}

	return params
}

// IsPrivate reports whether the function name starts with an underscore.
func (s FunctionSignature) IsPrivate() bool {
	return len(s.Name) > 0 && s.Name[0] == '_'
}

// HasDecorator reports whether the definition carries the named decorator.
func (s FunctionSignature) HasDecorator(name string) bool {
	for _, d := range s.Decorators {
		if d == name {
			return true
		}
	}

	return false
}
