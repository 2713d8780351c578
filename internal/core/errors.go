package core

import (
	"errors"
	"strings"

	"github.com/akedrou/textdiff"
)

// Sentinels every diagnostic unwraps to, for use with errors.Is.
var (
	ErrUnexpectedFunctionCall = errors.New("unexpected function call")
	ErrUnexpectedArguments    = errors.New("unexpected arguments")
	ErrOutOfOrderCall         = errors.New("out of order function call")
	ErrNotAllCallsOccurred    = errors.New("not all calls occurred")
	ErrTimeout                = errors.New("timed out waiting for asynchronous execution")
	ErrMockInUse              = errors.New("mock is already owned by an executing expectation")
	ErrThunkExited            = errors.New("asynchronous thunk exited its goroutine without settling")
)

// Configuration errors. Builder misuse panics with a *ConfigError wrapping one of these.
var (
	ErrNoExpectedCall      = errors.New("expectation has no expected call")
	ErrReturnAndCallback   = errors.New("expectation can not have return value and callback")
	ErrNoCallbackArguments = errors.New("expectation has no arguments to callback")
	ErrNoCallbackArgument  = errors.New("expectation has no callback argument")
	ErrInvalidTimes        = errors.New("expectation must be expected at least once")
	ErrAlreadyCombined     = errors.New("arguments can not be changed after the expectation was combined")
)

var (
	errCallbackArity = errors.New("wrong number of callback arguments")
	errTypeMismatch  = errors.New("type mismatch")
)

// ConfigError reports builder misuse at configuration time.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NotAllCallsOccurredError is returned when required calls never happened.
type NotAllCallsOccurredError struct {
	Calls []CallStatus
}

func (e *NotAllCallsOccurredError) Error() string {
	return "Not all calls occurred" + FormatCalls(e.Calls)
}

func (e *NotAllCallsOccurredError) Unwrap() error {
	return ErrNotAllCallsOccurred
}

// OutOfOrderCallError is raised when a call matches an expectation that is
// only allowed after an earlier required call.
type OutOfOrderCallError struct {
	Mock  string
	Args  []any
	Calls []CallStatus
}

func (e *OutOfOrderCallError) Error() string {
	return "Out of order function call " + e.Mock + "(" + FormatArgs(e.Args) + ")" + FormatCalls(e.Calls)
}

func (e *OutOfOrderCallError) Unwrap() error {
	return ErrOutOfOrderCall
}

// UnexpectedArgumentsError is raised when the expected mock was called with
// arguments that satisfy none of its remaining expectations.
type UnexpectedArgumentsError struct {
	Mock  string
	Args  []any
	Calls []CallStatus
	// Expected holds the argument list of the closest incomplete expectation
	// for the mock, if one expected specific arguments.
	Expected []any
}

// Diff renders a unified diff between the closest expected argument list and
// the actual arguments, one argument per line. It is empty when no candidate
// expectation checks arguments.
func (e *UnexpectedArgumentsError) Diff() string {
	if e.Expected == nil {
		return ""
	}

	return textdiff.Unified("expected", "actual", argLines(e.Expected), argLines(e.Args))
}

func (e *UnexpectedArgumentsError) Error() string {
	return "Unexpected arguments (" + FormatArgs(e.Args) + ") provided to function " + e.Mock + FormatCalls(e.Calls)
}

func (e *UnexpectedArgumentsError) Unwrap() error {
	return ErrUnexpectedArguments
}

// UnexpectedFunctionCallError is raised when a mock is called and no
// remaining expectation names it.
type UnexpectedFunctionCallError struct {
	Mock  string
	Args  []any
	Calls []CallStatus
}

func (e *UnexpectedFunctionCallError) Error() string {
	return "Unexpected function call " + e.Mock + "(" + FormatArgs(e.Args) + ")" + FormatCalls(e.Calls)
}

func (e *UnexpectedFunctionCallError) Unwrap() error {
	return ErrUnexpectedFunctionCall
}

func argLines(args []any) string {
	var builder strings.Builder

	for _, arg := range args {
		builder.WriteString(formatArg(arg))
		builder.WriteString("\n")
	}

	return builder.String()
}

func configPanic(op string, err error) {
	panic(&ConfigError{Op: op, Err: err})
}
