package core

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// AnonymousName is the display name of a mock created without a name.
const AnonymousName = "<anonymous>"

// Mock is a callable stand-in for a real function. Every invocation is routed
// to the execution that currently owns the mock, or to the default handler
// when no execution does.
type Mock struct {
	name     string
	registry *Registry

	mu    sync.Mutex
	owner *execution
}

// Call invokes the mock and returns the first configured return value, or nil.
func (m *Mock) Call(args ...any) any {
	values := m.Invoke(args...)
	if len(values) == 0 {
		return nil
	}

	return values[0]
}

// Invoke invokes the mock and returns every configured return value.
// Violations panic with the diagnostic error. A configured throw panics with
// the configured value.
func (m *Mock) Invoke(args ...any) []any {
	if args == nil {
		args = []any{}
	}

	m.mu.Lock()
	owner := m.owner
	m.mu.Unlock()

	if owner == nil {
		return m.registry.handleUnowned(m, args)
	}

	result, err := owner.dispatch(m, args)
	if err != nil {
		if owner.async {
			return nil
		}

		panic(err)
	}

	if result.throws {
		panic(result.throwValue)
	}

	return result.values
}

// MayBeCalled expects an optional call with no arguments.
func (m *Mock) MayBeCalled() *Expectation {
	return newExpectation(NewExpectedCall(m, nil, false, true))
}

// MayBeCalledWith expects an optional call with args.
func (m *Mock) MayBeCalledWith(args ...any) *Expectation {
	return newExpectation(NewExpectedCall(m, args, false, true))
}

// MayBeCalledWithAnyArguments expects an optional call with any arguments.
func (m *Mock) MayBeCalledWithAnyArguments() *Expectation {
	return newExpectation(NewExpectedCall(m, nil, false, false))
}

// Name returns the display name of the mock.
func (m *Mock) Name() string {
	return m.name
}

// Registry returns the registry the mock belongs to.
func (m *Mock) Registry() *Registry {
	return m.registry
}

// ShouldBeCalled expects a required call with no arguments.
func (m *Mock) ShouldBeCalled() *Expectation {
	return newExpectation(NewExpectedCall(m, nil, true, true))
}

// ShouldBeCalledWith expects a required call with args.
func (m *Mock) ShouldBeCalledWith(args ...any) *Expectation {
	return newExpectation(NewExpectedCall(m, args, true, true))
}

// ShouldBeCalledWithAnyArguments expects a required call with any arguments.
func (m *Mock) ShouldBeCalledWithAnyArguments() *Expectation {
	return newExpectation(NewExpectedCall(m, nil, true, false))
}

func (m *Mock) String() string {
	return m.name
}

// install hands the mock to exec. It fails if another execution owns it.
func (m *Mock) install(exec *execution) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner != nil {
		return false
	}

	m.owner = exec

	return true
}

// reset restores the default handler if exec still owns the mock.
func (m *Mock) reset(exec *execution) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner == exec {
		m.owner = nil
	}
}

// funcName returns the final element of a function's runtime symbol.
func funcName(fn reflect.Value) string {
	fullName := runtime.FuncForPC(fn.Pointer()).Name()
	// method values carry this suffix
	fullName = strings.TrimSuffix(fullName, "-fm")

	if slash := strings.LastIndex(fullName, "/"); slash >= 0 {
		fullName = fullName[slash+1:]
	}

	if dot := strings.LastIndex(fullName, "."); dot >= 0 {
		fullName = fullName[dot+1:]
	}

	return fullName
}

// mockName derives a display name from a string or an existing function.
func mockName(nameOrFn any) string {
	switch thing := nameOrFn.(type) {
	case nil:
		return AnonymousName
	case string:
		if thing == "" {
			return AnonymousName
		}

		return thing
	}

	fn := reflect.ValueOf(nameOrFn)
	if fn.Kind() != reflect.Func {
		configPanic("MockFunction", fmt.Errorf("%w: expected a name or a function, got %T", errTypeMismatch, nameOrFn))
	}

	if fn.IsNil() {
		return AnonymousName
	}

	return funcName(fn)
}
