package core

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds how long an asynchronous run waits to settle.
const DefaultTimeout = 5 * time.Second

// Option configures a Registry.
type Option func(*Registry)

// Registry scopes a set of mocks. It handles calls to mocks no execution
// owns, tracks the active execution for their diagnostics, and carries the
// configuration runs use.
type Registry struct {
	timeout time.Duration
	timer   Timer
	logger  *slog.Logger

	mu     sync.Mutex
	active []*execution
}

// Default returns the registry used by package-level constructors.
func Default() *Registry {
	return defaultRegistry
}

// ForTest returns the Registry for the given test, creating one if needed.
// Multiple calls with the same TestReporter return the same Registry, so
// helpers in one test share mocks and configuration. Options only apply when
// the Registry is created.
//
// If the TestReporter supports Cleanup (like *testing.T), the Registry is
// automatically removed when the test completes.
func ForTest(t TestReporter, opts ...Option) *Registry {
	testRegistriesMu.Lock()
	defer testRegistriesMu.Unlock()

	if registry, ok := testRegistries[t]; ok {
		return registry
	}

	registry := NewRegistry(opts...)
	testRegistries[t] = registry

	if cr, ok := t.(cleanupRegistrar); ok {
		cr.Cleanup(func() {
			testRegistriesMu.Lock()
			delete(testRegistries, t)
			testRegistriesMu.Unlock()
		})
	}

	return registry
}

// NewRegistry creates a Registry. Without options, runs time out after
// DefaultTimeout and nothing is logged.
func NewRegistry(opts ...Option) *Registry {
	registry := &Registry{
		timeout: DefaultTimeout,
		timer:   realTimer{},
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// WithLogger sends dispatch decisions to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout bounds asynchronous runs. A duration of 0 means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithTimer replaces the clock used for timeouts.
func WithTimer(timer Timer) Option {
	return func(r *Registry) {
		if timer != nil {
			r.timer = timer
		}
	}
}

// IgnoreMockedCallsWhen runs thunk with calls to this registry's mocks
// silently accepted. Mocks owned by a running expectation still follow it, and
// mocks of other registries are unaffected.
func (r *Registry) IgnoreMockedCallsWhen(thunk func()) {
	tree := newEmptyTree()
	tree.ignoreOtherCalls = true

	err := execute(tree, thunk, r)
	if err != nil {
		panic(err)
	}
}

// MockFunction creates a mock named by a string, or after an existing function.
func (r *Registry) MockFunction(nameOrFn any) *Mock {
	return &Mock{name: mockName(nameOrFn), registry: r}
}

// current returns the innermost active execution, if any.
func (r *Registry) current() *execution {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		return nil
	}

	return r.active[len(r.active)-1]
}

// handleUnowned is the default handler: the call fails as unexpected unless
// the active execution ignores other calls.
func (r *Registry) handleUnowned(mock *Mock, args []any) []any {
	active := r.current()
	if active == nil {
		r.logger.Debug("unexpected call outside of an execution", "mock", mock.Name())
		panic(&UnexpectedFunctionCallError{Mock: mock.Name(), Args: args})
	}

	err := active.handleUnowned(mock, args)
	if err == nil || active.async {
		return nil
	}

	panic(err)
}

func (r *Registry) pop(exec *execution) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.active) - 1; i >= 0; i-- {
		if r.active[i] == exec {
			r.active = append(r.active[:i], r.active[i+1:]...)

			return
		}
	}
}

func (r *Registry) push(exec *execution) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active = append(r.active, exec)
}

// unexported variables.
var (
	//nolint:gochecknoglobals // package-level constructors share one registry
	defaultRegistry = NewRegistry()
	//nolint:gochecknoglobals // one registry per test, keyed by its reporter
	testRegistries = make(map[TestReporter]*Registry)
	//nolint:gochecknoglobals // guards testRegistries
	testRegistriesMu sync.Mutex
)

// cleanupRegistrar is the interface needed for registering cleanup functions.
// This is satisfied by *testing.T and *testing.B.
type cleanupRegistrar interface {
	Cleanup(cleanupFunc func())
}
