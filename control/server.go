package control

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/semaphore"
)

// maxClients is the original's poll-array ceiling of 16384-2 reserved
// slots (listening socket, inotify), preserved here as the accept-loop's
// concurrency cap (spec.md section 4.8).
const maxClients = 16384 - 2

// Server owns the control socket listener, the bounded client semaphore,
// the dispatch table, and the signal/config-reload channels.
type Server struct {
	Table        *Table
	Lock         Locker
	LockDeadline time.Duration

	sem *semaphore.Weighted

	// Signals delivers INT/TERM/HUP/USR1 as values rather than through
	// handlers mutating flags (spec.md section 9's explicit redesign
	// note).
	Signals chan os.Signal

	// ConfigChanged fires once per fsnotify event on the watched config
	// file or config_dir (spec.md section 4.8's inotify watch,
	// reimplemented with the idiomatic fsnotify wrapper instead of a
	// raw inotify fd multiplexed into the poll array).
	ConfigChanged chan struct{}

	watcher *fsnotify.Watcher
}

// NewServer wires a dispatch table and lock to a fresh Server. Call
// Listen to bind the socket and Serve to run the accept loop.
func NewServer(table *Table, lock Locker, lockDeadline time.Duration) *Server {
	s := &Server{
		Table:         table,
		Lock:          lock,
		LockDeadline:  lockDeadline,
		sem:           semaphore.NewWeighted(maxClients),
		Signals:       make(chan os.Signal, 4),
		ConfigChanged: make(chan struct{}, 1),
	}
	signal.Notify(s.Signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
	return s
}

// Listen binds a unix-domain stream socket at path. A path starting
// with '@' is bound in the abstract namespace (spec.md section 4.8);
// filesystem sockets get mode 0666, matching the original's relaxed
// accept-time permission (the SO_PEERCRED-derived ACL is the real gate).
func (s *Server) Listen(path string) (net.Listener, error) {
	addr := path
	network := "unix"
	if len(path) > 0 && path[0] == '@' {
		addr = "@" + path[1:]
	}
	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listening on control socket %q: %w", path, err)
	}
	if len(path) > 0 && path[0] != '@' {
		if err := os.Chmod(path, 0666); err != nil {
			l.Close()
			return nil, fmt.Errorf("chmod control socket %q: %w", path, err)
		}
	}
	return l, nil
}

// WatchConfig starts an fsnotify watch on the main config file
// (IN_CLOSE_WRITE equivalent: fsnotify.Write|fsnotify.Chmod bundled as
// Write on most platforms, narrowed to Write below) and configDir
// (create/remove/write), forwarding every event to ConfigChanged and
// attempting one re-watch of configFile on an IN_IGNORED-equivalent
// Remove event (spec.md section 4.8).
func (s *Server) WatchConfig(configFile, configDir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	if err := w.Add(configFile); err != nil {
		w.Close()
		return fmt.Errorf("watching config file %q: %w", configFile, err)
	}
	if configDir != "" {
		if err := w.Add(configDir); err != nil {
			w.Close()
			return fmt.Errorf("watching config dir %q: %w", configDir, err)
		}
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Write != 0 || ev.Op&fsnotify.Create != 0 || ev.Op&fsnotify.Remove != 0 {
					slog.Info("configuration updated; reload for changes to take effect", "file", ev.Name)
					select {
					case s.ConfigChanged <- struct{}{}:
					default:
					}
				}
				if ev.Op&fsnotify.Remove != 0 && ev.Name == configFile {
					if err := w.Add(configFile); err != nil {
						slog.Warn("failed to re-watch config file after removal", "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			}
		}
	}()
	return nil
}

// Close releases the config watcher, if any.
func (s *Server) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Serve accepts connections on l until ctx is canceled, running each to
// completion on its own goroutine bounded by the maxClients semaphore —
// at the ceiling, Accept keeps accepting (so the kernel backlog doesn't
// overflow) but the new connection is closed immediately without being
// serviced, mirroring the original's "listening slot temporarily
// disarmed" backpressure without needing to touch the listener itself.
func (s *Server) Serve(ctx context.Context, l net.Listener) {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("control socket accept error", "err", err)
			continue
		}

		if !s.sem.TryAcquire(1) {
			slog.Warn("control client ceiling reached, rejecting connection")
			conn.Close()
			continue
		}

		uconn, _ := conn.(*net.UnixConn)
		isRoot := false
		if uconn != nil {
			if root, err := PeerIsRoot(uconn); err == nil {
				isRoot = root
			}
		}

		go func() {
			defer s.sem.Release(1)
			client := NewClient(conn, isRoot, s.Table, s.Lock, s.LockDeadline)
			client.Serve(ctx)
		}()
	}
}
