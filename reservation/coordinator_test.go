package reservation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sharedcode/multipathd"
)

type fakeResolver struct {
	m   *multipath.Map
	err error
}

func (f *fakeResolver) ResolveByDMUUID(ctx context.Context, dmUUID string) (*multipath.Map, error) {
	return f.m, f.err
}

func mapWithPaths(wwid string, states ...multipath.PathState) *multipath.Map {
	m := multipath.NewMap(wwid, wwid)
	paths := multipath.NewVector[*multipath.Path](len(states))
	for i, st := range states {
		p := multipath.NewPath("8:0", "sd"+string(rune('a'+i)), wwid)
		p.State = st
		paths.Append(p)
	}
	m.Paths = paths
	return m
}

func TestExecuteNoActivePathsFails(t *testing.T) {
	m := mapWithPaths("wwid1", multipath.PathDown)
	c := NewCoordinator(&fakeResolver{m: m}, nil)

	_, err := c.Execute(context.Background(), "uuid1", Request{Action: ActionIn})
	if err == nil {
		t.Fatal("expected error when no UP/GHOST paths exist")
	}
	var merr *multipath.Error
	if !errors.As(err, &merr) || merr.Code != multipath.ErrDeviceGone {
		t.Fatalf("expected ErrDeviceGone, got %v", err)
	}
}

func TestExecuteResolveFailure(t *testing.T) {
	c := NewCoordinator(&fakeResolver{err: errors.New("no such device")}, nil)

	_, err := c.Execute(context.Background(), "uuid1", Request{Action: ActionIn})
	if err == nil {
		t.Fatal("expected resolve error to propagate")
	}
}

func TestExecuteInFailsWithoutOpenFd(t *testing.T) {
	m := mapWithPaths("wwid1", multipath.PathUp)
	c := NewCoordinator(&fakeResolver{m: m}, nil)

	_, err := c.Execute(context.Background(), "uuid1", Request{Action: ActionIn})
	if err == nil {
		t.Fatal("expected error for path with no open fd")
	}
}

func TestExecuteOutSingleTargetWithoutAllTgPt(t *testing.T) {
	m := mapWithPaths("wwid1", multipath.PathUp, multipath.PathGhost)
	c := NewCoordinator(&fakeResolver{m: m}, nil)

	result, err := c.Execute(context.Background(), "uuid1", Request{
		Action:        ActionOut,
		ServiceAction: Reserve,
		AllTgPt:       false,
	})
	if err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}
	if len(result.PerPath) != 1 {
		t.Fatalf("expected fan-out to exactly one path without all_tg_pt, got %d", len(result.PerPath))
	}
}

func TestExecuteOutFansToAllActivePathsWithAllTgPt(t *testing.T) {
	m := mapWithPaths("wwid1", multipath.PathUp, multipath.PathGhost, multipath.PathDown)
	c := NewCoordinator(&fakeResolver{m: m}, nil)

	result, err := c.Execute(context.Background(), "uuid1", Request{
		Action:        ActionOut,
		ServiceAction: Reserve,
		AllTgPt:       true,
	})
	if err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}
	if len(result.PerPath) != 2 {
		t.Fatalf("expected fan-out to the 2 UP/GHOST paths only, got %d", len(result.PerPath))
	}
}

func TestExecuteOutRegisterPersistsKeyOnlyWhenAPathSucceeded(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "prkeys"))
	m := mapWithPaths("wwid1", multipath.PathUp)
	c := NewCoordinator(&fakeResolver{m: m}, store)

	// No open fd on any path, so every issueOut call fails; Put must not run.
	if _, err := c.Execute(context.Background(), "uuid1", Request{
		Action:        ActionOut,
		ServiceAction: Register,
		Key:           0xdead,
	}); err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}
	if _, _, ok := store.Lookup("wwid1"); ok {
		t.Fatal("prkeys entry should not be written when every path failed")
	}
}

func TestPrkeysStorePutLookupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "prkeys"))

	if err := store.Put("wwid-a", 0x1234, true); err != nil {
		t.Fatalf("Put: %v", err)
	}
	key, aptpl, ok := store.Lookup("wwid-a")
	if !ok || key != 0x1234 || !aptpl {
		t.Fatalf("Lookup = (%x, %v, %v), want (0x1234, true, true)", key, aptpl, ok)
	}

	// Overwrite.
	if err := store.Put("wwid-a", 0x5678, false); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	key, aptpl, ok = store.Lookup("wwid-a")
	if !ok || key != 0x5678 || aptpl {
		t.Fatalf("Lookup after overwrite = (%x, %v, %v), want (0x5678, false, true)", key, aptpl, ok)
	}

	if err := store.Remove("wwid-a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, ok := store.Lookup("wwid-a"); ok {
		t.Fatal("expected entry gone after Remove")
	}
}

func TestPrkeysStoreEnsureExistsCreatesFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "prkeys")
	store := New(p)
	if err := store.Put("wwid-b", 1, false); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected prkeys file to be created: %v", err)
	}
}
