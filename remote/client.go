package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/phanxgames/seam"
)

// ErrClosed is returned by requests on a closed client.
var ErrClosed = errors.New("remote: connection closed")

// Client is the engine's connection to the window manager. It implements
// seam.RemoteService and delivers animation callbacks to the registered
// runners from its read goroutine.
type Client struct {
	wire *wire
	log  *slog.Logger
	seq  atomic.Uint64

	mu             sync.Mutex
	pending        map[uint64]chan Envelope
	runners        map[seam.TransitionKind]seam.Runner
	adapters       map[uint64]seam.Runner
	nextAdapter    uint64
	startingWindow seam.StartingWindowListener

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the window manager at socketPath.
func Dial(ctx context.Context, socketPath string, log *slog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to window manager at %s: %w", socketPath, err)
	}
	return NewClient(conn, log), nil
}

// NewClient wraps an established connection and starts reading from it.
func NewClient(conn net.Conn, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		wire:     newWire(conn),
		log:      log.With("component", "remote-client"),
		pending:  make(map[uint64]chan Envelope),
		runners:  make(map[seam.TransitionKind]seam.Runner),
		adapters: make(map[uint64]seam.Runner),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close closes the connection. Outstanding requests fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.wire.close()
	})
	return err
}

// Done returns a channel closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.closed }

// RegisterTransition implements seam.RemoteService.
func (c *Client) RegisterTransition(ctx context.Context, kind seam.TransitionKind, runner seam.Runner) error {
	if _, err := c.request(ctx, MsgRegister, RegisterPayload{Kind: kind}); err != nil {
		return err
	}
	c.mu.Lock()
	c.runners[kind] = runner
	c.mu.Unlock()
	return nil
}

// UnregisterTransition implements seam.RemoteService.
func (c *Client) UnregisterTransition(ctx context.Context, kind seam.TransitionKind) error {
	c.mu.Lock()
	delete(c.runners, kind)
	c.mu.Unlock()
	_, err := c.request(ctx, MsgUnregister, RegisterPayload{Kind: kind})
	return err
}

// StartActivity implements seam.RemoteService.
func (c *Client) StartActivity(ctx context.Context, req seam.ActivityRequest, adapter *seam.Adapter) error {
	payload := StartActivityPayload{Request: req}
	if adapter != nil {
		c.mu.Lock()
		c.nextAdapter++
		id := c.nextAdapter
		c.adapters[id] = adapter.Runner
		c.mu.Unlock()
		payload.AdapterID = id
		payload.AdapterKind = adapter.Kind
		payload.DurationMS = adapter.Duration.Milliseconds()
		payload.StatusBarDelayMS = adapter.StatusBarDelay.Milliseconds()
	}
	if _, err := c.request(ctx, MsgStartActivity, payload); err != nil {
		if payload.AdapterID != 0 {
			c.mu.Lock()
			delete(c.adapters, payload.AdapterID)
			c.mu.Unlock()
		}
		return err
	}
	return nil
}

// SetStartingWindowListener implements seam.RemoteService.
func (c *Client) SetStartingWindowListener(l seam.StartingWindowListener) {
	c.mu.Lock()
	c.startingWindow = l
	c.mu.Unlock()
}

func (c *Client) request(ctx context.Context, typ MessageType, payload interface{}) (Envelope, error) {
	seq := c.seq.Add(1)
	env, err := newEnvelope(typ, seq, payload)
	if err != nil {
		return Envelope{}, err
	}
	ch := make(chan Envelope, 1)
	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	if err := c.wire.send(env); err != nil {
		return Envelope{}, err
	}
	select {
	case resp := <-ch:
		if resp.Status != StatusOK {
			return resp, fmt.Errorf("window manager: %s: %s", typ, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	case <-c.closed:
		return Envelope{}, ErrClosed
	}
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		env, err := c.wire.read()
		if err != nil {
			var bad *malformedError
			if errors.As(err, &bad) {
				c.log.Warn("dropping malformed message", "error", err)
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Warn("read failed", "error", err)
			}
			return
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("callback panic recovered", "type", env.Type, "error", fmt.Sprint(r))
		}
	}()

	switch env.Type {
	case MsgResponse:
		c.mu.Lock()
		ch, ok := c.pending[env.Seq]
		c.mu.Unlock()
		if ok {
			ch <- *env
		}
	case MsgAnimationStart:
		var p AnimationStartPayload
		if err := env.Decode(&p); err != nil {
			c.log.Warn("bad animation start", "error", err)
			return
		}
		c.animationStart(p)
	case MsgAnimationCancelled:
		var p AnimationCancelledPayload
		if err := env.Decode(&p); err != nil {
			c.log.Warn("bad animation cancel", "error", err)
			return
		}
		if r := c.runnerFor(p.Kind, p.AdapterID); r != nil {
			r.OnAnimationCancelled()
		}
	case MsgTaskLaunching:
		var p TaskLaunchingPayload
		if err := env.Decode(&p); err != nil {
			c.log.Warn("bad task launching", "error", err)
			return
		}
		c.mu.Lock()
		l := c.startingWindow
		c.mu.Unlock()
		if l != nil {
			l(p.TaskID, p.Presentation)
		}
	default:
		c.log.Warn("unexpected message", "type", env.Type)
	}
}

// runnerFor looks up the runner addressed by kind or adapter.
func (c *Client) runnerFor(kind seam.TransitionKind, adapterID uint64) seam.Runner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if adapterID != 0 {
		return c.adapters[adapterID]
	}
	return c.runners[kind]
}

func (c *Client) animationStart(p AnimationStartPayload) {
	result := seam.NewResult()
	result.OnFinish(func() {
		if p.AdapterID != 0 {
			// Adapters are one-shot.
			c.mu.Lock()
			delete(c.adapters, p.AdapterID)
			c.mu.Unlock()
		}
		env, err := newEnvelope(MsgAnimationFinished, 0, AnimationFinishedPayload{Callback: p.Callback})
		if err == nil {
			err = c.wire.send(env)
		}
		if err != nil {
			c.log.Warn("failed to report animation finished", "callback", p.Callback, "error", err)
		}
	})

	runner := c.runnerFor(p.Kind, p.AdapterID)
	if runner == nil {
		c.log.Warn("no runner for animation start", "kind", p.Kind.String(), "adapter", p.AdapterID)
		result.Finish()
		return
	}
	runner.OnAnimationStart(seam.StartMessage{
		Kind:       p.Kind,
		Apps:       p.Apps,
		Wallpapers: p.Wallpapers,
		NonApps:    p.NonApps,
		Result:     result,
	})
}
