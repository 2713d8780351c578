// Package mach verifies that code under test calls its collaborators the way
// a test expects.
//
// Mocks stand in for real functions. Each mock builds expected calls, and
// expected calls combine into an expectation: And lets calls happen in any
// order, Then requires them in sequence, and MultipleTimes repeats one.
// Running the expectation routes every mock call through it and reports the
// first violation, or the required calls that never happened.
//
//	f := mach.MockFunction("f")
//	err := f.ShouldBeCalledWith(1, "2").AndWillReturn(3).When(func() {
//		f.Call(1, "2")
//	})
//
// This is the public API entry point. Implementation lives in internal/core.
package mach

import (
	"log/slog"
	"time"

	"github.com/toejough/mach/internal/core"
)

// AnonymousName is the display name of a mock created without a name.
const AnonymousName = core.AnonymousName

// DefaultTimeout bounds how long an asynchronous run waits to settle.
const DefaultTimeout = core.DefaultTimeout

// Sentinels for errors.Is.
var (
	ErrUnexpectedFunctionCall = core.ErrUnexpectedFunctionCall
	ErrUnexpectedArguments    = core.ErrUnexpectedArguments
	ErrOutOfOrderCall         = core.ErrOutOfOrderCall
	ErrNotAllCallsOccurred    = core.ErrNotAllCallsOccurred
	ErrTimeout                = core.ErrTimeout
	ErrMockInUse              = core.ErrMockInUse
	ErrThunkExited            = core.ErrThunkExited
)

// Configuration errors, wrapped in a *ConfigError panic.
var (
	ErrNoExpectedCall      = core.ErrNoExpectedCall
	ErrReturnAndCallback   = core.ErrReturnAndCallback
	ErrNoCallbackArguments = core.ErrNoCallbackArguments
	ErrNoCallbackArgument  = core.ErrNoCallbackArgument
	ErrInvalidTimes        = core.ErrInvalidTimes
	ErrAlreadyCombined     = core.ErrAlreadyCombined
)

// Types re-exported from internal/core.

// ArgumentMatcher is an expected argument that decides for itself whether an
// actual argument satisfies it.
type ArgumentMatcher = core.ArgumentMatcher

// CallStatus is a snapshot of one expected call in a diagnostic.
type CallStatus = core.CallStatus

// ConfigError reports builder misuse.
type ConfigError = core.ConfigError

// ExpectedCall is one anticipated invocation of a mock.
type ExpectedCall = core.ExpectedCall

// Expectation is the fluent builder over an expectation tree.
type Expectation = core.Expectation

// Matcher is the gomega-compatible matcher interface. Any expected argument
// implementing it is honored.
type Matcher = core.Matcher

// Mock is a callable stand-in for a real function.
type Mock = core.Mock

// Mocks maps the mocked field names of an object to their mocks.
type Mocks = core.Mocks

// NotAllCallsOccurredError reports required calls that never happened.
type NotAllCallsOccurredError = core.NotAllCallsOccurredError

// Option configures a Registry.
type Option = core.Option

// OutOfOrderCallError reports a call that was only allowed later.
type OutOfOrderCallError = core.OutOfOrderCallError

// Registry scopes a set of mocks and their configuration.
type Registry = core.Registry

// TestReporter is the minimal interface mach needs from test frameworks.
type TestReporter = core.TestReporter

// Timer abstracts time-based operations for testability.
type Timer = core.Timer

// Tree is the composed structure of expected calls.
type Tree = core.Tree

// UnexpectedArgumentsError reports an expected mock called with the wrong arguments.
type UnexpectedArgumentsError = core.UnexpectedArgumentsError

// UnexpectedFunctionCallError reports a call no remaining expectation names.
type UnexpectedFunctionCallError = core.UnexpectedFunctionCallError

// Functions re-exported from internal/core.

// Any returns a matcher that matches any single argument.
func Any() ArgumentMatcher {
	return core.Any()
}

// Callback returns a placeholder matching a function argument the mock will call back.
func Callback() ArgumentMatcher {
	return core.Callback()
}

// Default returns the registry used by package-level constructors.
func Default() *Registry {
	return core.Default()
}

// ForTest returns the registry for t, creating it with opts if needed.
func ForTest(t TestReporter, opts ...Option) *Registry {
	return core.ForTest(t, opts...)
}

// Func returns a function of type F that forwards every call to m.
func Func[F any](m *Mock) F {
	return core.Func[F](m)
}

// IgnoreMockedCallsWhen runs thunk with calls to default-registry mocks silently accepted.
// Mocks created in other registries are unaffected.
func IgnoreMockedCallsWhen(thunk func()) {
	core.Default().IgnoreMockedCallsWhen(thunk)
}

// Match is an alias for Same.
func Match(value any, eq ...func(actual, expected any) bool) ArgumentMatcher {
	return core.Same(value, eq...)
}

// MockFunc creates a mock along with a typed function that calls it.
func MockFunc[F any](nameOrFn any) (F, *Mock) {
	return core.MockFunc[F](nameOrFn)
}

// MockFunction creates a mock named by a string, or after an existing function.
func MockFunction(nameOrFn any) *Mock {
	return core.MockFunction(nameOrFn)
}

// MockObject creates a copy of obj whose exported function fields are mocks.
func MockObject[T any](obj T, name string) (T, Mocks) {
	return core.MockObject(obj, name)
}

// MockObjectIn is MockObject with mocks created in registry.
func MockObjectIn[T any](registry *Registry, obj T, name string) (T, Mocks) {
	return core.MockObjectIn(registry, obj, name)
}

// NewRegistry creates a Registry.
func NewRegistry(opts ...Option) *Registry {
	return core.NewRegistry(opts...)
}

// Same returns a matcher comparing an argument against value, structurally
// unless eq is given.
func Same(value any, eq ...func(actual, expected any) bool) ArgumentMatcher {
	return core.Same(value, eq...)
}

// Satisfies returns a matcher that uses a predicate function to check for a match.
func Satisfies[T any](predicate func(T) error) ArgumentMatcher {
	return core.Satisfies(predicate)
}

// WithLogger logs dispatch decisions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return core.WithLogger(logger)
}

// WithTimeout bounds asynchronous runs. A duration of 0 means no timeout.
func WithTimeout(d time.Duration) Option {
	return core.WithTimeout(d)
}

// WithTimer replaces the clock used for timeouts.
func WithTimer(timer Timer) Option {
	return core.WithTimer(timer)
}
