package corestate

import (
	"context"
	"testing"
	"time"

	"github.com/sharedcode/multipathd"
)

type fakeKerneler struct {
	table  TableSnapshot
	status StatusSnapshot
	tableErr, statusErr error
	tableCalls int
}

func (f *fakeKerneler) FetchTable(ctx context.Context, wwid string) (TableSnapshot, error) {
	f.tableCalls++
	return f.table, f.tableErr
}

func (f *fakeKerneler) FetchStatus(ctx context.Context, wwid string) (StatusSnapshot, error) {
	return f.status, f.statusErr
}

func (f *fakeKerneler) SetQueueIfNoPath(ctx context.Context, wwid string, on bool) error {
	return nil
}

func TestSyncUpdatesPathsAndOrphansMissing(t *testing.T) {
	kept := multipath.NewPath("8:0", "sda", "W")
	removed := multipath.NewPath("8:16", "sdb", "W")

	s := New(&fakeKerneler{
		table: TableSnapshot{
			Policy: multipath.GroupByFailover,
			Paths:  []PathSpec{{DevNum: "8:0", Group: 0}},
		},
		status: StatusSnapshot{
			Paths: []PathStatus{{DevNum: "8:0", DMState: "active", Priority: 50}},
		},
	})
	s.Paths.Append(kept)
	s.Paths.Append(removed)

	m := multipath.NewMap("W", "mpatha")
	m.Paths.Append(kept)
	m.Paths.Append(removed)
	removed.SetOwningMap(m)
	kept.SetOwningMap(m)

	if err := s.Sync(context.Background(), m); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if m.Paths.Len() != 1 {
		t.Fatalf("map has %d paths after sync, want 1", m.Paths.Len())
	}
	if got, _ := m.Paths.GetSlot(0); got != kept {
		t.Fatal("surviving path should be the one still in the table")
	}
	if kept.DMState != "active" || kept.Priority != 50 {
		t.Fatalf("kept path not updated from status: %+v", kept)
	}
	if _, ok := removed.Map(); ok {
		t.Fatal("removed path should have been orphaned")
	}
}

func TestSyncPropagatesFetchTableError(t *testing.T) {
	s := New(&fakeKerneler{tableErr: context.DeadlineExceeded})
	m := multipath.NewMap("W", "mpatha")

	err := s.Sync(context.Background(), m)
	if err == nil {
		t.Fatal("expected error from Sync when FetchTable fails")
	}
}

// blockingKerneler holds FetchTable open until release is closed, so
// Sync calls that reach singleflight.Do before the release join the
// first call instead of issuing their own fetch.
type blockingKerneler struct {
	fakeKerneler
	started chan struct{}
	release chan struct{}
}

func (f *blockingKerneler) FetchTable(ctx context.Context, wwid string) (TableSnapshot, error) {
	f.tableCalls++
	close(f.started)
	<-f.release
	return f.table, f.tableErr
}

func TestSyncDedupesConcurrentCallsForSameWWID(t *testing.T) {
	fk := &blockingKerneler{started: make(chan struct{}), release: make(chan struct{})}
	s := New(fk)
	m := multipath.NewMap("W", "mpatha")

	const n = 8
	done := make(chan error, n)
	go func() { done <- s.Sync(context.Background(), m) }()
	<-fk.started // first call is inside FetchTable, blocked on release

	for i := 1; i < n; i++ {
		go func() { done <- s.Sync(context.Background(), m) }()
	}
	// Give the other callers time to enter singleflight.Do before the
	// first call is released.
	time.Sleep(50 * time.Millisecond)
	close(fk.release)

	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Sync returned error: %v", err)
		}
	}
	if fk.tableCalls != 1 {
		t.Fatalf("FetchTable called %d times, want exactly 1 under singleflight dedup", fk.tableCalls)
	}
}
