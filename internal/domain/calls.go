package domain

import (
	"fmt"
	"strings"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// CallFilename is the code filename of an appended synthesized call.
const CallFilename = "<call>"

// callExpression renders sig invoked with c. Positional-only parameters are
// passed by position, the rest by keyword.
func callExpression(sig m.FunctionSignature, target string, c Case) string {
	args := make([]string, 0, len(c))

	for _, arg := range c {
		if arg.Param.Kind == m.ParamPositionalOnly {
			args = append(args, arg.Value.Literal())
			continue
		}

		args = append(args, arg.Param.Name+"="+arg.Value.Literal())
	}

	call := fmt.Sprintf("%s(%s)", target, strings.Join(args, ", "))
	if sig.IsAsync {
		call = fmt.Sprintf("__tc_asyncio.run(%s)", call)
	}

	return call
}

// CallProgram renders the statements that invoke sig once with c. Static and
// class methods are called through the class. Other methods are called on a
// default-constructed instance; a failing constructor turns the call into a
// no-op.
func CallProgram(sig m.FunctionSignature, c Case) string {
	var sb strings.Builder

	if sig.IsAsync {
		sb.WriteString("import asyncio as __tc_asyncio\n")
	}

	if !sig.IsMethod {
		sb.WriteString(callExpression(sig, sig.Name, c))
		sb.WriteString("\n")

		return sb.String()
	}

	if sig.HasDecorator("staticmethod") || sig.HasDecorator("classmethod") {
		sb.WriteString(callExpression(sig, QualifiedName(sig), c))
		sb.WriteString("\n")

		return sb.String()
	}

	fmt.Fprintf(&sb, "try:\n    __tc_obj = %s()\nexcept Exception:\n    __tc_obj = None\n", sig.Class)
	fmt.Fprintf(&sb, "if __tc_obj is not None:\n    %s\n", callExpression(sig, "__tc_obj."+sig.Name, c))

	return sb.String()
}

// CallUnit wraps CallProgram as an interpreter unit.
func CallUnit(sig m.FunctionSignature, c Case) adapter.Unit {
	return adapter.Unit{Filename: CallFilename, Source: CallProgram(sig, c)}
}

// QualifiedName is Class.name for methods and name otherwise.
func QualifiedName(sig m.FunctionSignature) string {
	if sig.Class == "" {
		return sig.Name
	}

	return sig.Class + "." + sig.Name
}

func describeInputs(c Case) string {
	parts := make([]string, 0, len(c))
	for _, arg := range c {
		parts = append(parts, arg.Param.Name+"="+arg.Value.Literal())
	}

	return strings.Join(parts, ", ")
}

// coverageDriver runs target.py and then every call, each guarded so that a
// crash cannot hide the coverage of the calls after it.
func coverageDriver(calls []string) string {
	var sb strings.Builder

	sb.WriteString("import os as __tc_os\n")
	sb.WriteString("__tc_path = __tc_os.path.abspath(\"target.py\")\n")
	sb.WriteString("try:\n")
	sb.WriteString("    with open(__tc_path, encoding=\"utf-8\") as __tc_file:\n")
	sb.WriteString("        exec(compile(__tc_file.read(), __tc_path, \"exec\"), globals())\n")
	sb.WriteString("except BaseException:\n    pass\n")

	for _, call := range calls {
		sb.WriteString("try:\n")

		for _, line := range strings.Split(strings.TrimRight(call, "\n"), "\n") {
			sb.WriteString("    " + line + "\n")
		}

		sb.WriteString("except BaseException:\n    pass\n")
	}

	return sb.String()
}
