package core

import (
	"fmt"
	"reflect"
)

// ExpectedCall represents one anticipated invocation of a mock: the
// arguments it expects, whether it is required, the behavior it performs
// when matched, and whether it has completed.
type ExpectedCall struct {
	mock          *Mock
	expectedArgs  []any
	required      bool
	checkArgs     bool
	returnValues  []any
	returns       bool
	throwValue    any
	throws        bool
	callbackIndex int
	callbackArgs  []any
	completed     bool
	actualArgs    []any
}

// NewExpectedCall creates an incomplete expected call for mock.
func NewExpectedCall(mock *Mock, expectedArgs []any, required, checkArgs bool) *ExpectedCall {
	return &ExpectedCall{
		mock:          mock,
		expectedArgs:  expectedArgs,
		required:      required,
		checkArgs:     checkArgs,
		callbackIndex: -1,
	}
}

// ActualArgs returns the arguments the call completed with, or nil before completion.
func (c *ExpectedCall) ActualArgs() []any {
	return c.actualArgs
}

// CheckArgs reports whether arguments are checked at all.
func (c *ExpectedCall) CheckArgs() bool {
	return c.checkArgs
}

// Clone copies the call with all of its configured behavior, resetting completion.
func (c *ExpectedCall) Clone() *ExpectedCall {
	return &ExpectedCall{
		mock:          c.mock,
		expectedArgs:  c.expectedArgs,
		required:      c.required,
		checkArgs:     c.checkArgs,
		returnValues:  c.returnValues,
		returns:       c.returns,
		throwValue:    c.throwValue,
		throws:        c.throws,
		callbackIndex: c.callbackIndex,
		callbackArgs:  c.callbackArgs,
	}
}

// Completed reports whether the call has been matched and executed.
func (c *ExpectedCall) Completed() bool {
	return c.completed
}

// ExpectedArgs returns the expected argument list.
func (c *ExpectedCall) ExpectedArgs() []any {
	return c.expectedArgs
}

// Matches reports whether a call of mock with args satisfies this expectation.
func (c *ExpectedCall) Matches(mock *Mock, args []any) bool {
	return c.MatchesFunction(mock) && c.MatchesArguments(args)
}

// MatchesArguments reports whether args satisfy the expected arguments.
func (c *ExpectedCall) MatchesArguments(args []any) bool {
	if !c.checkArgs {
		return true
	}

	if len(args) != len(c.expectedArgs) {
		return false
	}

	for i, expected := range c.expectedArgs {
		if !MatchValue(args[i], expected) {
			return false
		}
	}

	return true
}

// MatchesFunction reports whether mock is this call's mock.
func (c *ExpectedCall) MatchesFunction(mock *Mock) bool {
	return c.mock == mock
}

// Mock returns the mock this call expects.
func (c *ExpectedCall) Mock() *Mock {
	return c.mock
}

// Name returns the name of the expected mock.
func (c *ExpectedCall) Name() string {
	return c.mock.Name()
}

// Required reports whether the call must occur.
func (c *ExpectedCall) Required() bool {
	return c.required
}

// ReturnValues returns the configured return values.
func (c *ExpectedCall) ReturnValues() []any {
	return c.returnValues
}

// execute completes the call. A configured callback is handed to post rather
// than invoked, so the mock call returns before the callback runs.
func (c *ExpectedCall) execute(args []any, post func(func() error)) outcome {
	c.completed = true
	c.actualArgs = args

	if c.callbackIndex >= 0 && c.callbackIndex < len(args) {
		callback := args[c.callbackIndex]
		callbackArgs := c.callbackArgs
		name := c.Name()

		post(func() error {
			err := invokeCallback(callback, callbackArgs)
			if err != nil {
				return fmt.Errorf("callback passed to %s: %w", name, err)
			}

			return nil
		})
	}

	if c.throws {
		return outcome{throws: true, throwValue: c.throwValue}
	}

	return outcome{values: c.returnValues}
}

func (c *ExpectedCall) hasCallback() bool {
	return c.callbackIndex >= 0
}

func (c *ExpectedCall) hasReturnOrThrow() bool {
	return c.returns || c.throws
}

// reset forgets a previous completion so the call can be executed again.
func (c *ExpectedCall) reset() {
	c.completed = false
	c.actualArgs = nil
}

// status snapshots the call for diagnostics.
func (c *ExpectedCall) status() CallStatus {
	args := c.expectedArgs
	if c.completed {
		args = c.actualArgs
	}

	return CallStatus{
		Name:      c.Name(),
		Completed: c.completed,
		CheckArgs: c.checkArgs,
		Args:      args,
	}
}

// outcome is what a matched call hands back to the invoking mock.
type outcome struct {
	values     []any
	throws     bool
	throwValue any
}

// invokeCallback calls fn with args, converting each argument to the
// parameter type it lands in. Nil arguments become zero values.
func invokeCallback(fn any, args []any) (err error) {
	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func || fnVal.IsNil() {
		return fmt.Errorf("%w: expected a function, got %T", errTypeMismatch, fn)
	}

	fnType := fnVal.Type()

	if !fnType.IsVariadic() && len(args) != fnType.NumIn() {
		return fmt.Errorf("%w: callback takes %d arguments, %d configured", errCallbackArity, fnType.NumIn(), len(args))
	}

	if fnType.IsVariadic() && len(args) < fnType.NumIn()-1 {
		return fmt.Errorf("%w: callback takes at least %d arguments, %d configured",
			errCallbackArity, fnType.NumIn()-1, len(args))
	}

	in := make([]reflect.Value, len(args))

	for i, arg := range args {
		paramType := callbackParamType(fnType, i)

		in[i], err = convertValue(arg, paramType)
		if err != nil {
			return fmt.Errorf("callback argument %d: %w", i, err)
		}
	}

	fnVal.Call(in)

	return nil
}

func callbackParamType(fnType reflect.Type, index int) reflect.Type {
	if fnType.IsVariadic() && index >= fnType.NumIn()-1 {
		return fnType.In(fnType.NumIn() - 1).Elem()
	}

	return fnType.In(index)
}

// convertValue turns value into a reflect.Value assignable to target.
func convertValue(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}

	val := reflect.ValueOf(value)

	if val.Type().AssignableTo(target) {
		return val, nil
	}

	if val.Type().ConvertibleTo(target) {
		return val.Convert(target), nil
	}

	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", errTypeMismatch, val.Type(), target)
}
