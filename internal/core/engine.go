package core

import (
	"fmt"
	"log/slog"
	"sync"
)

// execution routes live calls through one run of a tree. It owns the tree's
// mocks from acquire until release.
type execution struct {
	tree       *Tree
	async      bool
	mocks      []*Mock
	registries []*Registry
	settings   *Registry

	mu      sync.Mutex // guards cursor, failure, and the completion state of the tree's calls
	cursor  nodeID
	failure error

	taskMu sync.Mutex
	tasks  []func() error
	wake   chan struct{}
}

// newExecution prepares a run of tree. Every call is reset so a tree can be
// run more than once. Extra registries are made active along with those of
// the tree's mocks.
func newExecution(tree *Tree, async bool, extra ...*Registry) *execution {
	tree = tree.resolve()

	exec := &execution{
		tree:   tree,
		async:  async,
		cursor: tree.nodes[tree.root].child,
		wake:   make(chan struct{}, 1),
	}

	seenMocks := make(map[*Mock]bool)
	seenRegistries := make(map[*Registry]bool)

	addRegistry := func(registry *Registry) {
		if registry != nil && !seenRegistries[registry] {
			seenRegistries[registry] = true
			exec.registries = append(exec.registries, registry)
		}
	}

	for _, call := range tree.Calls() {
		call.reset()

		if !seenMocks[call.mock] {
			seenMocks[call.mock] = true
			exec.mocks = append(exec.mocks, call.mock)
		}

		addRegistry(call.mock.registry)
	}

	for _, registry := range extra {
		addRegistry(registry)
	}

	exec.settings = Default()
	if len(exec.registries) > 0 {
		exec.settings = exec.registries[0]
	}

	return exec
}

// acquire installs the execution on each of its mocks and makes it the
// active execution of its registries.
func (e *execution) acquire() error {
	for i, mock := range e.mocks {
		if !mock.install(e) {
			for _, owned := range e.mocks[:i] {
				owned.reset(e)
			}

			return fmt.Errorf("%w: %s", ErrMockInUse, mock.Name())
		}
	}

	for _, registry := range e.registries {
		registry.push(e)
	}

	e.logger().Debug("execution started", "tree", e.tree, "async", e.async)

	return nil
}

// checkCalls verifies that every required call completed.
func (e *execution) checkCalls() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, call := range e.tree.Calls() {
		if call.required && !call.completed {
			err := &NotAllCallsOccurredError{Calls: e.statuses()}
			e.logger().Debug("required call missing", "mock", call.Name())

			return err
		}
	}

	return nil
}

// diagnose builds the violation for a call that matched nothing at the node
// the cursor stopped at. candidates are the incomplete calls of that node.
func (e *execution) diagnose(mock *Mock, args []any, candidates []*ExpectedCall, at nodeID) error {
	calls := e.statuses()

	for _, candidate := range candidates {
		if candidate.MatchesFunction(mock) {
			err := &UnexpectedArgumentsError{Mock: mock.Name(), Args: args, Calls: calls}
			if candidate.checkArgs {
				err.Expected = candidate.expectedArgs
			}

			return err
		}
	}

	for _, later := range e.tree.callsAfter(at) {
		if !later.completed && later.Matches(mock, args) {
			return &OutOfOrderCallError{Mock: mock.Name(), Args: args, Calls: calls}
		}
	}

	return &UnexpectedFunctionCallError{Mock: mock.Name(), Args: args, Calls: calls}
}

// dispatch routes one live call through the tree. On a violation the cursor
// is left where it was, the violation is recorded, and returned. Ignored
// calls return a zero outcome.
func (e *execution) dispatch(mock *Mock, args []any) (outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.cursor

	result, err := e.transition(mock, args)
	if err == nil {
		return result, nil
	}

	e.cursor = start

	if e.tree.ignoreOtherCalls {
		e.logger().Debug("call ignored", "mock", mock.Name(), "args", FormatArgs(args))

		return outcome{}, nil
	}

	e.recordLocked(err)

	return outcome{}, err
}

// drain runs posted callback tasks until the queue is empty. It returns the
// first non-error panic value a task raised, leaving later tasks queued.
func (e *execution) drain() any {
	for {
		task, ok := e.nextTask()
		if !ok {
			return nil
		}

		recovered := guard(func() {
			err := task()
			if err != nil {
				e.record(err)
			}
		})

		if err, ok := recovered.(error); ok {
			e.record(err)

			continue
		}

		if recovered != nil {
			return recovered
		}
	}
}

// handleUnowned handles a call to a mock the execution does not own.
// It returns nil when the call is ignored.
func (e *execution) handleUnowned(mock *Mock, args []any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tree.ignoreOtherCalls {
		e.logger().Debug("call ignored", "mock", mock.Name(), "args", FormatArgs(args))

		return nil
	}

	err := &UnexpectedFunctionCallError{Mock: mock.Name(), Args: args, Calls: e.statuses()}
	e.recordLocked(err)

	return err
}

func (e *execution) logger() *slog.Logger {
	return e.settings.logger
}

func (e *execution) nextTask() (func() error, bool) {
	e.taskMu.Lock()
	defer e.taskMu.Unlock()

	if len(e.tasks) == 0 {
		return nil, false
	}

	task := e.tasks[0]
	e.tasks = e.tasks[1:]

	return task, true
}

// post queues a callback task and wakes a waiting event loop.
func (e *execution) post(task func() error) {
	e.taskMu.Lock()
	e.tasks = append(e.tasks, task)
	e.taskMu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *execution) record(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recordLocked(err)
}

// recordLocked keeps the first failure of the run.
func (e *execution) recordLocked(err error) {
	if e.failure == nil {
		e.failure = err
		e.logger().Debug("violation", "error", err)
	}
}

func (e *execution) recorded() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.failure
}

// release restores the default handler of every owned mock and deactivates
// the execution in its registries.
func (e *execution) release() {
	for _, mock := range e.mocks {
		mock.reset(e)
	}

	for _, registry := range e.registries {
		registry.pop(e)
	}

	e.logger().Debug("execution finished", "tree", e.tree)
}

// settle turns the way a run ended into its result. A recorded violation
// wins, then a panic from the thunk, then a rejection. Only a clean run is
// checked for missing calls. Non-error panics are re-raised; callers release
// the execution in a defer, so teardown still happens.
func (e *execution) settle(recovered any, rejection error) error {
	failure := e.recorded()
	if failure != nil {
		return failure
	}

	if recovered != nil {
		err, ok := recovered.(error)
		if !ok {
			panic(recovered)
		}

		return err
	}

	if rejection != nil {
		return rejection
	}

	return e.checkCalls()
}

// statuses snapshots every call of the tree. Callers hold e.mu.
func (e *execution) statuses() []CallStatus {
	calls := e.tree.Calls()
	statuses := make([]CallStatus, len(calls))

	for i, call := range calls {
		statuses[i] = call.status()
	}

	return statuses
}

// transition advances the cursor for one call. Optional calls that do not
// match are skipped; completed members of a group are never matched again.
func (e *execution) transition(mock *Mock, args []any) (outcome, error) {
	nodes := e.tree.nodes

	for {
		current := nodes[e.cursor]

		switch current.kind {
		case sequenceNode:
			call := current.calls[0]

			if call.Matches(mock, args) {
				e.cursor = current.child

				return e.complete(call, args), nil
			}

			if !call.required {
				e.logger().Debug("optional call skipped", "mock", call.Name())
				e.cursor = current.child

				continue
			}

			return outcome{}, e.diagnose(mock, args, current.calls, e.cursor)
		case groupNode:
			incomplete := incompleteCalls(current.calls)

			for _, call := range incomplete {
				if call.Matches(mock, args) {
					result := e.complete(call, args)
					if len(incomplete) == 1 {
						e.cursor = current.child
					}

					return result, nil
				}
			}

			if !anyRequired(incomplete) {
				e.logger().Debug("optional group skipped", "calls", len(incomplete))
				e.cursor = current.child

				continue
			}

			return outcome{}, e.diagnose(mock, args, incomplete, e.cursor)
		case terminusNode:
			return outcome{}, e.diagnose(mock, args, nil, e.cursor)
		case rootNode:
			e.cursor = current.child
		}
	}
}

func (e *execution) complete(call *ExpectedCall, args []any) outcome {
	e.logger().Debug("call matched", "mock", call.Name(), "args", FormatArgs(args))

	return call.execute(args, e.post)
}

// execute runs thunk synchronously against tree.
func execute(tree *Tree, thunk func(), extra ...*Registry) error {
	exec := newExecution(tree, false, extra...)

	err := exec.acquire()
	if err != nil {
		return err
	}

	// runtime.Goexit in thunk skips settle but still tears down
	defer exec.release()

	recovered := guard(thunk)
	if recovered == nil {
		recovered = exec.drain()
	}

	return exec.settle(recovered, nil)
}

func anyRequired(calls []*ExpectedCall) bool {
	for _, call := range calls {
		if call.required {
			return true
		}
	}

	return false
}

// guard runs fn and returns whatever it panicked with.
func guard(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()

	fn()

	return nil
}

func incompleteCalls(calls []*ExpectedCall) []*ExpectedCall {
	incomplete := make([]*ExpectedCall, 0, len(calls))

	for _, call := range calls {
		if !call.completed {
			incomplete = append(incomplete, call)
		}
	}

	return incomplete
}
