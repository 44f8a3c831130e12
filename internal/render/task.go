package render

import (
	"context"
	"sync/atomic"
)

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Task is a handle on an in-flight progressive pass.
//
// All methods are safe on a nil Task, which behaves like a pass that already
// finished without error.
type Task struct {
	cancel  context.CancelFunc
	done    chan struct{}
	painted atomic.Int64
	err     error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel stops the pass and blocks until its goroutine has exited, so that the
// caller may reuse the surface right away. Calling it more than once, or after
// the pass finished, is a no-op.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

// Done is closed once the pass has exited.
func (t *Task) Done() <-chan struct{} {
	if t == nil {
		return closedCh
	}
	return t.done
}

// Wait blocks until the pass exits and returns its error. The error of a
// cancelled pass matches context.Canceled.
func (t *Task) Wait() error {
	if t == nil {
		return nil
	}
	<-t.done
	return t.err
}

// Painted returns the number of rows painted so far.
func (t *Task) Painted() int {
	if t == nil {
		return 0
	}
	return int(t.painted.Load())
}
