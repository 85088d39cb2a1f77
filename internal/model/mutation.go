package model

// MutantCategory represents the family a mutant belongs to.
type MutantCategory string

const (
	// MutationLiteralValue replaces a string literal with an invalid sentinel.
	MutationLiteralValue MutantCategory = "literal_value"
	// MutationDictKey removes one string key from a dict display.
	MutationDictKey MutantCategory = "dict_key"
	// MutationArgumentType swaps the primitive kind of a literal call argument.
	MutationArgumentType MutantCategory = "argument_type"
	// MutationAnnotationRemoval strips a return annotation.
	MutationAnnotationRemoval MutantCategory = "annotation_removal"
)

// Mutant is one perturbed copy of the evaluated source.
type Mutant struct {
	ID          string
	Description string
	Code        []byte
	Category    MutantCategory
	Line        int
	Diff        string
}

// CrashType is the classification of a mutant run.
type CrashType string

const (
	// CrashNone means the mutant ran to completion.
	CrashNone CrashType = "none"
	// CrashTypeError is a mutation kill.
	CrashTypeError CrashType = "type_error"
	// CrashImportError is a missing module, never evidence.
	CrashImportError CrashType = "import_error"
	// CrashSyntaxError is a malformed mutant, never evidence.
	CrashSyntaxError CrashType = "syntax_error"
	// CrashOther is any other exception.
	CrashOther CrashType = "other"
)

// IsKill reports whether the crash counts as a mutation kill.
func (c CrashType) IsKill() bool {
	return c == CrashTypeError
}
