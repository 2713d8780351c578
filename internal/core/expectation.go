package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Expectation is the fluent builder over an expectation tree. Combining two
// expectations merges their trees, so every Expectation that took part
// observes the combined structure.
type Expectation struct {
	tree     *Tree
	call     *ExpectedCall
	combined bool
}

func newExpectation(call *ExpectedCall) *Expectation {
	return &Expectation{tree: NewTree(call), call: call}
}

// After is an alias for When.
func (e *Expectation) After(thunk func()) error {
	return e.When(thunk)
}

// And allows other's calls to happen in any order relative to this
// expectation's last calls.
func (e *Expectation) And(other *Expectation) *Expectation {
	e.mustHaveCall("And")
	other.mustHaveCall("And")

	e.tree.and(other.tree)
	e.combine(other)

	return e
}

// AndAlso is an alias for And.
func (e *Expectation) AndAlso(other *Expectation) *Expectation {
	return e.And(other)
}

// AndOtherCallsShouldBeIgnored accepts calls that match nothing instead of
// failing. Required calls are still checked. Only mocks from the registries of
// this expectation's own mocks are ignored; a mock from any other registry
// still fails the run.
func (e *Expectation) AndOtherCallsShouldBeIgnored() *Expectation {
	e.mustHaveCall("AndOtherCallsShouldBeIgnored")

	e.tree.resolve().ignoreOtherCalls = true

	return e
}

// AndThen requires other's calls to happen after everything already expected.
func (e *Expectation) AndThen(other *Expectation) *Expectation {
	return e.Then(other)
}

// AndWillCallback makes the current call invoke its callback argument with
// args. The call must expect a Callback() argument.
func (e *Expectation) AndWillCallback(args ...any) *Expectation {
	const op = "AndWillCallback"

	e.mustHaveCall(op)

	if e.call.hasReturnOrThrow() {
		configPanic(op, ErrReturnAndCallback)
	}

	if len(e.call.expectedArgs) == 0 {
		configPanic(op, ErrNoCallbackArguments)
	}

	index := -1

	for i, arg := range e.call.expectedArgs {
		if _, ok := arg.(callbackPlaceholder); ok {
			index = i

			break
		}
	}

	if index < 0 {
		configPanic(op, ErrNoCallbackArgument)
	}

	e.call.callbackIndex = index
	e.call.callbackArgs = args

	return e
}

// AndWillReturn sets the values the current call returns.
func (e *Expectation) AndWillReturn(values ...any) *Expectation {
	const op = "AndWillReturn"

	e.mustHaveCall(op)

	if e.call.hasCallback() {
		configPanic(op, ErrReturnAndCallback)
	}

	e.call.returnValues = values
	e.call.returns = true

	return e
}

// AndWillThrow makes the current call panic with value.
func (e *Expectation) AndWillThrow(value any) *Expectation {
	const op = "AndWillThrow"

	e.mustHaveCall(op)

	if e.call.hasCallback() {
		configPanic(op, ErrReturnAndCallback)
	}

	e.call.throwValue = value
	e.call.throws = true

	return e
}

// Check runs thunk like When and fails t if the run fails.
func (e *Expectation) Check(t TestReporter, thunk func()) {
	t.Helper()

	err := e.When(thunk)
	if err != nil {
		t.Fatalf("%v", err)
	}
}

// MultipleTimes expects the current call times times in total, in any order
// among the repetitions. Repetitions copy the behavior configured so far and
// the current call stays the first of them.
func (e *Expectation) MultipleTimes(times int) *Expectation {
	const op = "MultipleTimes"

	e.mustHaveCall(op)

	if times < 1 {
		configPanic(op, ErrInvalidTimes)
	}

	for range times - 1 {
		e.tree.and(NewTree(e.call.Clone()))
		e.combined = true
	}

	return e
}

// String renders the underlying tree.
func (e *Expectation) String() string {
	e.mustHaveCall("String")

	return e.tree.String()
}

// Then requires other's calls to happen after everything already expected.
func (e *Expectation) Then(other *Expectation) *Expectation {
	e.mustHaveCall("Then")
	other.mustHaveCall("Then")

	e.tree.then(other.tree)
	e.combine(other)

	return e
}

// Tree returns the tree the expectation builds.
func (e *Expectation) Tree() *Tree {
	e.mustHaveCall("Tree")

	return e.tree.resolve()
}

// When runs thunk synchronously against the expectation. It returns the first
// violation, an error thunk panicked with, or a missing-calls error.
func (e *Expectation) When(thunk func()) error {
	e.mustHaveCall("When")

	return execute(e.tree, thunk)
}

// WhenAsync runs thunk on its own goroutine. The run settles when thunk calls
// done; a non-nil error passed to done is returned without checking for
// missing calls.
func (e *Expectation) WhenAsync(thunk func(done func(error))) error {
	e.mustHaveCall("WhenAsync")

	return executeAsync(context.Background(), e.tree, thunk)
}

// WhenGroup runs thunk, which starts work on group, and settles once the
// group's goroutines have all returned.
func (e *Expectation) WhenGroup(ctx context.Context, thunk func(ctx context.Context, group *errgroup.Group)) error {
	e.mustHaveCall("WhenGroup")

	return executeGroup(ctx, e.tree, thunk)
}

// WithAnyArguments makes the current call accept any arguments.
func (e *Expectation) WithAnyArguments() *Expectation {
	e.mustBeUncombined("WithAnyArguments")

	e.call.expectedArgs = nil
	e.call.checkArgs = false

	return e
}

// WithOtherCallsIgnored is an alias for AndOtherCallsShouldBeIgnored.
func (e *Expectation) WithOtherCallsIgnored() *Expectation {
	return e.AndOtherCallsShouldBeIgnored()
}

// WithResult is an alias for AndWillReturn.
func (e *Expectation) WithResult(values ...any) *Expectation {
	return e.AndWillReturn(values...)
}

// WithTheseArguments sets the arguments the current call expects.
func (e *Expectation) WithTheseArguments(args ...any) *Expectation {
	e.mustBeUncombined("WithTheseArguments")

	e.call.expectedArgs = args
	e.call.checkArgs = true

	return e
}

// combine makes other's last call the current call of both expectations.
func (e *Expectation) combine(other *Expectation) {
	if other.call != nil {
		e.call = other.call
	}

	e.combined = true
	other.combined = true
}

func (e *Expectation) mustBeUncombined(op string) {
	e.mustHaveCall(op)

	if e.combined {
		configPanic(op, ErrAlreadyCombined)
	}
}

func (e *Expectation) mustHaveCall(op string) {
	if e == nil || e.tree == nil || e.call == nil {
		configPanic(op, ErrNoExpectedCall)
	}
}
