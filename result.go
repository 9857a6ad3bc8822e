package seam

import (
	"context"
	"sync"
)

// Result is the completion continuation for one remote transition. The
// window manager holds its surfaces until Finish is called.
type Result struct {
	once sync.Once
	done chan struct{}

	mu       sync.Mutex
	onFinish []func()
}

// NewResult creates an unfinished result.
func NewResult() *Result {
	return &Result{done: make(chan struct{})}
}

// OnFinish registers fn to run when the result finishes. If it already has,
// fn runs immediately.
func (r *Result) OnFinish(fn func()) *Result {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		fn()
		return r
	default:
	}
	r.onFinish = append(r.onFinish, fn)
	r.mu.Unlock()
	return r
}

// Finish completes the result and reports whether this call did so. Later
// calls are no-ops.
func (r *Result) Finish() bool {
	first := false
	r.once.Do(func() {
		first = true
		r.mu.Lock()
		fns := r.onFinish
		r.onFinish = nil
		close(r.done)
		r.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	})
	return first
}

// Finished reports whether Finish has been called.
func (r *Result) Finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the result finishes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Wait blocks until the result finishes or ctx is done.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
