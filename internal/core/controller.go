package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// TestReporter is the subset of testing.TB used to report failures.
type TestReporter interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Timer produces the timeout channel for asynchronous runs.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

// await is the event loop of an asynchronous run. It runs posted callbacks
// until the thunk settles, the context ends, or the timeout expires.
func (e *execution) await(ctx context.Context, settled <-chan settlement) settlement {
	timeout := e.settings.timeout

	var expired <-chan time.Time

	if timeout > 0 {
		expired = e.settings.timer.After(timeout)
	}

	for {
		select {
		case result := <-settled:
			return result
		case <-e.wake:
			recovered := e.drain()
			if recovered != nil {
				return settlement{recovered: recovered}
			}
		case <-expired:
			return settlement{err: fmt.Errorf("%w after %s", ErrTimeout, timeout), abandoned: true}
		case <-ctx.Done():
			return settlement{err: ctx.Err(), abandoned: true}
		}
	}
}

// executeAsync runs thunk on its own goroutine against tree. The run settles
// when thunk calls done, panics, or exits its goroutine without calling done.
func executeAsync(ctx context.Context, tree *Tree, thunk func(done func(error))) error {
	exec := newExecution(tree, true)

	err := exec.acquire()
	if err != nil {
		return err
	}

	defer exec.release()

	settled := make(chan settlement, 1)

	var once sync.Once

	finish := func(result settlement) {
		once.Do(func() { settled <- result })
	}

	go func() {
		returned := false

		defer func() {
			// only runtime.Goexit leaves returned unset
			if !returned {
				finish(settlement{err: ErrThunkExited})
			}
		}()

		recovered := guard(func() {
			thunk(func(err error) { finish(settlement{err: err}) })
		})
		if recovered != nil {
			finish(settlement{recovered: recovered})
		}

		returned = true
	}()

	result := exec.await(ctx, settled)
	if !result.abandoned && result.recovered == nil {
		result.recovered = exec.drain()
	}

	return exec.settle(result.recovered, result.err)
}

// executeGroup runs thunk against tree with an errgroup. The run settles when
// every goroutine started on the group has returned.
func executeGroup(ctx context.Context, tree *Tree, thunk func(ctx context.Context, group *errgroup.Group)) error {
	return executeAsync(ctx, tree, func(done func(error)) {
		group, groupCtx := errgroup.WithContext(ctx)
		thunk(groupCtx, group)
		done(group.Wait())
	})
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// settlement is how an execution's thunk finished.
type settlement struct {
	err       error
	recovered any
	// abandoned settlements skip pending callbacks.
	abandoned bool
}
