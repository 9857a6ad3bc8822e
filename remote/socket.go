package remote

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// RuntimeDir returns the directory for the protocol socket. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/seam-runtime-<uid> (created)
func RuntimeDir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/seam-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// DefaultSocketPath returns the default protocol socket path.
func DefaultSocketPath() (string, error) {
	dir, err := RuntimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "seam.sock"), nil
}

// wire reads and writes envelopes on one connection. Writes are serialized;
// reads happen on a single goroutine.
type wire struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

func newWire(conn net.Conn) *wire {
	return &wire{conn: conn, reader: bufio.NewReader(conn)}
}

func (w *wire) send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	data = append(data, '\n')
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.conn.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", env.Type, err)
	}
	return nil
}

// read returns the next envelope. io.EOF means the peer closed cleanly.
func (w *wire) read() (*Envelope, error) {
	for {
		data, err := w.reader.ReadBytes('\n')
		if len(data) > 0 && (err == nil || err == io.EOF) {
			trimmed := data
			if trimmed[len(trimmed)-1] == '\n' {
				trimmed = trimmed[:len(trimmed)-1]
			}
			if len(trimmed) == 0 {
				if err == io.EOF {
					return nil, io.EOF
				}
				continue
			}
			env, perr := ParseEnvelope(trimmed)
			if perr != nil {
				return nil, &malformedError{err: perr}
			}
			return env, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (w *wire) close() error { return w.conn.Close() }

// malformedError is a line that could not be decoded. The connection
// stays usable.
type malformedError struct {
	err error
}

func (e *malformedError) Error() string { return e.err.Error() }

func (e *malformedError) Unwrap() error { return e.err }
