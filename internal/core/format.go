package core

import (
	"fmt"
	"reflect"
	"strings"
)

// CallStatus is a snapshot of one expected call, taken when a diagnostic is
// built. Completed calls carry the arguments they were called with; the rest
// carry the arguments they expect.
type CallStatus struct {
	Name      string
	Completed bool
	CheckArgs bool
	Args      []any
}

// String renders the call as NAME(ARGS).
func (s CallStatus) String() string {
	if !s.Completed && !s.CheckArgs {
		return s.Name + "(" + wildcard{}.String() + ")"
	}

	return s.Name + "(" + FormatArgs(s.Args) + ")"
}

// FormatArgs renders an argument list the way call listings show it:
// strings single-quoted, slices and arrays bracketed, matchers by their
// own description.
func FormatArgs(args []any) string {
	parts := make([]string, 0, len(args))

	for _, arg := range args {
		parts = append(parts, formatArg(arg))
	}

	return strings.Join(parts, ", ")
}

// FormatCalls renders the completed/incomplete listing appended to every
// diagnostic. Empty sections are omitted.
func FormatCalls(calls []CallStatus) string {
	var completed, incomplete []string

	for _, call := range calls {
		if call.Completed {
			completed = append(completed, "\t"+call.String())
		} else {
			incomplete = append(incomplete, "\t"+call.String())
		}
	}

	var builder strings.Builder

	if len(completed) > 0 {
		builder.WriteString("\nCompleted calls:\n")
		builder.WriteString(strings.Join(completed, "\n"))
	}

	if len(incomplete) > 0 {
		builder.WriteString("\nIncomplete calls:\n")
		builder.WriteString(strings.Join(incomplete, "\n"))
	}

	return builder.String()
}

func formatArg(arg any) string {
	switch val := arg.(type) {
	case nil:
		return "nil"
	case ArgumentMatcher:
		return val.String()
	case Matcher:
		return matcherString(val)
	case string:
		return "'" + val + "'"
	}

	rv := reflect.ValueOf(arg)

	//nolint:exhaustive // everything else prints with %v
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return "nil"
		}

		fallthrough
	case reflect.Array:
		items := make([]any, rv.Len())
		for i := range rv.Len() {
			items[i] = rv.Index(i).Interface()
		}

		return "[" + FormatArgs(items) + "]"
	case reflect.Func:
		if rv.IsNil() {
			return "nil"
		}

		return fmt.Sprintf("<func %s>", rv.Type())
	default:
		return fmt.Sprintf("%v", arg)
	}
}
