package remote

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/phanxgames/seam"
)

// ErrNotRegistered is returned when a transition kind has no runner.
var ErrNotRegistered = errors.New("remote: transition not registered")

// ActivityStart is an activity start received from a client.
type ActivityStart struct {
	StartActivityPayload
	conn *serverConn
}

// HasAdapter reports whether the start carries an animation adapter.
func (a ActivityStart) HasAdapter() bool { return a.AdapterID != 0 }

// ActivityHandler decides what the window manager does with an activity
// start. A non-nil error is returned to the client.
type ActivityHandler func(start ActivityStart) error

// serverConn is one connected engine.
type serverConn struct {
	wire *wire
}

// Server is the window-manager end of the protocol. It keeps transition
// registrations, delivers animation starts and waits for their
// completions.
type Server struct {
	socketPath string
	listener   net.Listener
	log        *slog.Logger

	mu            sync.Mutex
	conns         map[*serverConn]struct{}
	registrations map[seam.TransitionKind]*serverConn
	callbacks     map[uint64]*callback
	nextCallback  uint64
	onActivity    ActivityHandler
	shuttingDown  bool
	wg            sync.WaitGroup
}

// callback tracks one animation start awaiting its finish message.
type callback struct {
	conn *serverConn
	done chan struct{}
}

// NewServer creates a server for socketPath. An existing socket file is
// removed.
func NewServer(socketPath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	os.Remove(socketPath)
	return &Server{
		socketPath:    socketPath,
		log:           log.With("component", "remote-server"),
		conns:         make(map[*serverConn]struct{}),
		registrations: make(map[seam.TransitionKind]*serverConn),
		callbacks:     make(map[uint64]*callback),
	}
}

// OnActivityStart installs the activity start handler. Without one, starts
// are accepted and no animation runs.
func (s *Server) OnActivityStart(h ActivityHandler) {
	s.mu.Lock()
	s.onActivity = h
	s.mu.Unlock()
}

// Start begins listening for connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	s.listener = listener
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	s.log.Info("window manager listening", "socket", s.socketPath)
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Close stops accepting, closes every connection and releases pending
// callbacks.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.shuttingDown = true
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for _, c := range conns {
		c.wire.close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			down := s.shuttingDown
			s.mu.Unlock()
			if down || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		c := &serverConn{wire: newWire(conn)}
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handleConnection(c)
	}
}

func (s *Server) handleConnection(c *serverConn) {
	defer s.wg.Done()
	defer s.drop(c)
	for {
		env, err := c.wire.read()
		if err != nil {
			var bad *malformedError
			if errors.As(err, &bad) {
				s.log.Warn("dropping malformed message", "error", err)
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn("read failed", "error", err)
			}
			return
		}
		s.handle(c, env)
	}
}

// drop forgets a disconnected client. Its registrations go away and its
// outstanding callbacks count as finished so no transition stalls.
func (s *Server) drop(c *serverConn) {
	c.wire.close()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
	for kind, owner := range s.registrations {
		if owner == c {
			delete(s.registrations, kind)
		}
	}
	for id, cb := range s.callbacks {
		if cb.conn == c {
			close(cb.done)
			delete(s.callbacks, id)
		}
	}
}

func (s *Server) handle(c *serverConn, env *Envelope) {
	switch env.Type {
	case MsgRegister:
		var p RegisterPayload
		if err := env.Decode(&p); err != nil {
			s.reply(c, errorResponse(env.Seq, err.Error()))
			return
		}
		s.mu.Lock()
		s.registrations[p.Kind] = c
		s.mu.Unlock()
		s.log.Debug("transition registered", "kind", p.Kind.String())
		s.reply(c, okResponse(env.Seq))
	case MsgUnregister:
		var p RegisterPayload
		if err := env.Decode(&p); err != nil {
			s.reply(c, errorResponse(env.Seq, err.Error()))
			return
		}
		s.mu.Lock()
		if s.registrations[p.Kind] == c {
			delete(s.registrations, p.Kind)
		}
		s.mu.Unlock()
		s.reply(c, okResponse(env.Seq))
	case MsgStartActivity:
		var p StartActivityPayload
		if err := env.Decode(&p); err != nil {
			s.reply(c, errorResponse(env.Seq, err.Error()))
			return
		}
		s.mu.Lock()
		h := s.onActivity
		s.mu.Unlock()
		if h != nil {
			if err := h(ActivityStart{StartActivityPayload: p, conn: c}); err != nil {
				s.reply(c, errorResponse(env.Seq, err.Error()))
				return
			}
		}
		s.reply(c, okResponse(env.Seq))
	case MsgAnimationFinished:
		var p AnimationFinishedPayload
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad animation finished", "error", err)
			return
		}
		if err := s.finishCallback(p.Callback); err != nil {
			s.log.Warn("unexpected animation finished", "error", err)
		}
	default:
		s.reply(c, errorResponse(env.Seq, fmt.Sprintf("unknown message: %s", env.Type)))
	}
}

func (s *Server) reply(c *serverConn, env Envelope) {
	if err := c.wire.send(env); err != nil {
		s.log.Warn("failed to send response", "error", err)
	}
}

func (s *Server) finishCallback(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.callbacks[id]
	if !ok {
		return fmt.Errorf("callback %d: %w", id, seam.ErrAlreadyFinished)
	}
	close(cb.done)
	delete(s.callbacks, id)
	return nil
}

// Registered reports whether a client has registered kind.
func (s *Server) Registered(kind seam.TransitionKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registrations[kind]
	return ok
}

// Pending returns the number of animation starts awaiting completion.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callbacks)
}

// StartTransition sends an animation start for a registered kind. The
// returned channel closes when the engine reports the transition finished.
func (s *Server) StartTransition(kind seam.TransitionKind, apps, wallpapers, nonApps []seam.WindowTarget) (<-chan struct{}, error) {
	s.mu.Lock()
	c, ok := s.registrations[kind]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("start %s: %w", kind, ErrNotRegistered)
	}
	return s.sendStart(c, AnimationStartPayload{
		Kind:       kind,
		Apps:       apps,
		Wallpapers: wallpapers,
		NonApps:    nonApps,
	})
}

// StartAdapter sends an animation start to the adapter of an activity
// start.
func (s *Server) StartAdapter(start ActivityStart, apps, wallpapers, nonApps []seam.WindowTarget) (<-chan struct{}, error) {
	if !start.HasAdapter() {
		return nil, errors.New("remote: activity start has no adapter")
	}
	return s.sendStart(start.conn, AnimationStartPayload{
		Kind:       start.AdapterKind,
		AdapterID:  start.AdapterID,
		Apps:       apps,
		Wallpapers: wallpapers,
		NonApps:    nonApps,
	})
}

func (s *Server) sendStart(c *serverConn, p AnimationStartPayload) (<-chan struct{}, error) {
	s.mu.Lock()
	s.nextCallback++
	p.Callback = s.nextCallback
	cb := &callback{conn: c, done: make(chan struct{})}
	s.callbacks[p.Callback] = cb
	s.mu.Unlock()

	env, err := newEnvelope(MsgAnimationStart, 0, p)
	if err == nil {
		err = c.wire.send(env)
	}
	if err != nil {
		s.mu.Lock()
		delete(s.callbacks, p.Callback)
		s.mu.Unlock()
		return nil, fmt.Errorf("start %s: %w", p.Kind, err)
	}
	return cb.done, nil
}

// CancelTransition tells the runner of kind to cancel its animation.
func (s *Server) CancelTransition(kind seam.TransitionKind) error {
	s.mu.Lock()
	c, ok := s.registrations[kind]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel %s: %w", kind, ErrNotRegistered)
	}
	env, err := newEnvelope(MsgAnimationCancelled, 0, AnimationCancelledPayload{Kind: kind})
	if err != nil {
		return err
	}
	return c.wire.send(env)
}

// NotifyTaskLaunching tells every client how taskID will first present.
func (s *Server) NotifyTaskLaunching(taskID int, p seam.Presentation) error {
	env, err := newEnvelope(MsgTaskLaunching, 0, TaskLaunchingPayload{TaskID: taskID, Presentation: p})
	if err != nil {
		return err
	}
	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	var errs []error
	for _, c := range conns {
		if err := c.wire.send(env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
