package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ClientState is the per-connection state machine from spec.md section
// 4.8.
type ClientState int

const (
	StateRecv ClientState = iota
	StateParse
	StateWaitLock
	StateWork
	StateSend
)

func (s ClientState) String() string {
	switch s {
	case StateRecv:
		return "recv"
	case StateParse:
		return "parse"
	case StateWaitLock:
		return "wait_lock"
	case StateWork:
		return "work"
	case StateSend:
		return "send"
	default:
		return "unknown"
	}
}

// Locker is the global vectors lock boundary a command handler requiring
// RequiresLock must acquire before running. A real Locker wraps
// corestate.State's RWMutex; Client.acquireWithDeadline applies the
// deadline derived from uxsock_timeout (spec.md section 4.8).
type Locker interface {
	Lock()
	Unlock()
}

// frameLimit bounds incoming command lines; multipathd's commands are
// short, so an overly large frame is almost certainly a misbehaving
// peer rather than a legitimate long command.
const frameLimit = 64 << 10

// Client services one accepted connection end to end: read a frame,
// tokenize and match it against table, apply the root/list-show ACL,
// acquire the global lock if the matched command requires it (with a
// deadline), run the handler, and reply.
type Client struct {
	conn       net.Conn
	isRoot     bool
	table      *Table
	lock       Locker
	lockDeadline time.Duration

	mu    sync.Mutex
	state ClientState
}

// NewClient wraps an accepted connection. isRoot is latched once from
// SO_PEERCRED at accept time and never re-checked.
func NewClient(conn net.Conn, isRoot bool, table *Table, lock Locker, lockDeadline time.Duration) *Client {
	return &Client{conn: conn, isRoot: isRoot, table: table, lock: lock, lockDeadline: lockDeadline}
}

func (c *Client) setState(s ClientState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the client's current state, for status/introspection.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

var errPermissionDenied = errors.New("permission deny: need to be root")
var errTimeout = errors.New("timeout")

// Serve runs the client's full command cycle exactly once: multipathd's
// control socket is one-shot per connection (a client connects, sends
// one command, reads one reply, disconnects), so Serve does not loop.
func (c *Client) Serve(ctx context.Context) {
	defer c.conn.Close()

	c.setState(StateRecv)
	frame, err := ReadFrame(c.conn, frameLimit)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			slog.Debug("control client read error", "err", err)
		}
		return
	}

	c.setState(StateParse)
	cmd, tokens, ok := c.table.Match(string(frame))
	if !ok {
		c.reply("fail\n")
		return
	}
	if cmd.RootOnly && !c.isRoot {
		c.reply(errPermissionDenied.Error() + "\n")
		return
	}

	if cmd.RequiresLock {
		c.setState(StateWaitLock)
		if !c.acquireWithDeadline(ctx) {
			c.reply(errTimeout.Error() + "\n")
			return
		}
		defer c.lock.Unlock()
	}

	c.setState(StateWork)
	body, err := cmd.Handler(ctx, tokens)
	if err != nil {
		slog.Warn("control command failed", "command", tokens, "err", err)
		c.reply("fail\n")
		return
	}

	c.setState(StateSend)
	c.reply(body)
}

// acquireWithDeadline takes c.lock, giving up and returning false if
// lockDeadline elapses or ctx is canceled first. The configured
// uxsock_timeout (spec.md section 4.8) is realtime, not
// monotonic-from-call, in the original; here a plain timer started at
// the call is the idiomatic equivalent.
func (c *Client) acquireWithDeadline(ctx context.Context) bool {
	if c.lockDeadline <= 0 {
		c.lock.Lock()
		return true
	}
	done := make(chan struct{})
	go func() {
		c.lock.Lock()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(c.lockDeadline):
		slog.Warn("control command timed out waiting for global lock")
	case <-ctx.Done():
	}
	// The goroutine above may still be blocked in Lock(); once it gets
	// the lock, release it at once so a timed-out command never leaves
	// the global lock held.
	go func() {
		<-done
		c.lock.Unlock()
	}()
	return false
}

// reply writes body to the connection, stripping ANSI color escapes
// first — the control socket is never a tty, so this always strips
// (spec.md section 6: "the byte 0x1b[ color sequences are stripped when
// stdout is not a tty").
func (c *Client) reply(body string) {
	if err := WriteFrame(c.conn, []byte(stripANSI(body))); err != nil {
		slog.Debug("control client write error", "err", err)
	}
}

func stripANSI(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			i += 2
			for i < len(s) && !isANSITerminator(s[i]) {
				i++
			}
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func isANSITerminator(b byte) bool {
	return b >= '@' && b <= '~'
}
