package seam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Looper is the engine's control thread: a FIFO of tasks executed one at a
// time. Post may be called from any goroutine. Tasks run either from Run on
// a dedicated goroutine or from RunPending inside a frame loop, never both.
type Looper struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	log   *slog.Logger
}

// NewLooper creates an empty looper.
func NewLooper(log *slog.Logger) *Looper {
	if log == nil {
		log = slog.Default()
	}
	return &Looper{wake: make(chan struct{}, 1), log: log}
}

// Post appends fn to the queue.
func (l *Looper) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// PostAtFront schedules fn ahead of every queued task.
func (l *Looper) PostAtFront(fn func()) {
	l.mu.Lock()
	l.queue = append([]func(){fn}, l.queue...)
	l.mu.Unlock()
	l.signal()
}

func (l *Looper) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives after tasks are posted.
func (l *Looper) Wake() <-chan struct{} { return l.wake }

// Len returns the number of queued tasks.
func (l *Looper) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunPending runs the tasks queued at the time of the call and returns how
// many ran. Tasks posted while running wait for the next call.
func (l *Looper) RunPending() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()
	for _, fn := range batch {
		l.runTask(fn)
	}
	return len(batch)
}

// Drain calls RunPending until the queue is empty or max rounds have run.
func (l *Looper) Drain(max int) int {
	total := 0
	for i := 0; i < max; i++ {
		n := l.RunPending()
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

// Run executes tasks until ctx is done.
func (l *Looper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.RunPending()
		}
	}
}

func (l *Looper) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("control task panic recovered", "error", fmt.Sprint(r))
		}
	}()
	fn()
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
