package control

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

type fakeLocker struct {
	mu sync.Mutex
}

func (l *fakeLocker) Lock()   { l.mu.Lock() }
func (l *fakeLocker) Unlock() { l.mu.Unlock() }

func runClientRoundTrip(t *testing.T, client *Client, request string) string {
	t.Helper()
	server, conn := net.Pipe()
	// Swap the client's connection for our pipe end before serving.
	client.conn = conn

	done := make(chan struct{})
	go func() {
		client.Serve(context.Background())
		close(done)
	}()

	if err := WriteFrame(server, []byte(request)); err != nil {
		t.Fatal(err)
	}
	reply, err := ReadFrame(server, 0)
	if err != nil {
		t.Fatal(err)
	}
	<-done
	return string(reply)
}

func TestClientDeniesNonRootForRestrictedCommand(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"add", "path"}, Handler: noop})
	c := NewClient(nil, false, tbl, &fakeLocker{}, time.Second)

	got := runClientRoundTrip(t, c, "add path sda")
	if got != errPermissionDenied.Error()+"\n" {
		t.Fatalf("got %q", got)
	}
}

func TestClientAllowsListForNonRoot(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"list", "paths"}, Handler: func(ctx context.Context, args []string) (string, error) {
		return "sda\nsdb\n", nil
	}})
	c := NewClient(nil, false, tbl, &fakeLocker{}, time.Second)

	got := runClientRoundTrip(t, c, "list paths")
	if got != "sda\nsdb\n" {
		t.Fatalf("got %q", got)
	}
}

func TestClientRunsHandlerUnderLock(t *testing.T) {
	locker := &fakeLocker{}
	var sawLocked bool
	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"reconfigure"}, RequiresLock: true, Handler: func(ctx context.Context, args []string) (string, error) {
		// TryLock would fail if Serve hadn't already acquired the lock.
		sawLocked = !locker.mu.TryLock()
		return "ok\n", nil
	}})
	c := NewClient(nil, true, tbl, locker, time.Second)

	got := runClientRoundTrip(t, c, "reconfigure")
	if got != "ok\n" {
		t.Fatalf("got %q", got)
	}
	if !sawLocked {
		t.Fatal("handler should have observed the lock held")
	}
}

func TestClientTimesOutWaitingForLock(t *testing.T) {
	locker := &fakeLocker{}
	locker.Lock() // held for the whole test, never released

	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"reconfigure"}, RequiresLock: true, Handler: noop})
	c := NewClient(nil, true, tbl, locker, 10*time.Millisecond)

	got := runClientRoundTrip(t, c, "reconfigure")
	if got != errTimeout.Error()+"\n" {
		t.Fatalf("got %q", got)
	}
}

func TestClientStripsANSIFromReply(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"list", "paths"}, Handler: func(ctx context.Context, args []string) (string, error) {
		return "\x1b[31mred\x1b[0m\n", nil
	}})
	c := NewClient(nil, false, tbl, &fakeLocker{}, time.Second)

	got := runClientRoundTrip(t, c, "list paths")
	if got != "red\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTableUnknownCommandReturnsFail(t *testing.T) {
	tbl := NewTable()
	c := NewClient(nil, true, tbl, &fakeLocker{}, time.Second)

	got := runClientRoundTrip(t, c, "frobnicate")
	if got != "fail\n" {
		t.Fatalf("got %q", got)
	}
}
