package checker

import (
	"context"
	"testing"

	"github.com/sharedcode/multipathd"
)

type fakeClass struct {
	BaseClass
	name  string
	state multipath.PathState
}

func (f fakeClass) Name() string { return f.name }
func (f fakeClass) Close(*Context) error { return nil }
func (f fakeClass) Check(context.Context, *Context) multipath.PathState {
	return f.state
}

func TestGetPutRefCounting(t *testing.T) {
	Register(fakeClass{name: "fake-refcount", state: multipath.PathUp})

	if got := RefCount("fake-refcount"); got != 0 {
		t.Fatalf("initial refcount = %d, want 0", got)
	}

	inst, err := Get(context.Background(), "fake-refcount")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := RefCount("fake-refcount"); got != 1 {
		t.Fatalf("refcount after Get = %d, want 1", got)
	}

	inst2, err := Get(context.Background(), "fake-refcount")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if got := RefCount("fake-refcount"); got != 2 {
		t.Fatalf("refcount after second Get = %d, want 2", got)
	}

	inst.Close()
	if got := RefCount("fake-refcount"); got != 1 {
		t.Fatalf("refcount after first Close = %d, want 1", got)
	}
	inst2.Close()
	if got := RefCount("fake-refcount"); got != 0 {
		t.Fatalf("refcount after second Close = %d, want 0", got)
	}
}

func TestGetUnknownClass(t *testing.T) {
	if _, err := Get(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected error for unknown checker class")
	}
}

func TestInstanceCheckDisabled(t *testing.T) {
	Register(fakeClass{name: "fake-disabled", state: multipath.PathUp})
	inst, err := Get(context.Background(), "fake-disabled")
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close()

	inst.Disable = true
	if got := inst.Check(context.Background()); got != multipath.PathDown {
		t.Fatalf("disabled checker state = %v, want PathDown", got)
	}
	if inst.Message() != "disabled" {
		t.Fatalf("disabled message = %q, want \"disabled\"", inst.Message())
	}
}

func TestMessageFallsBackToGeneric(t *testing.T) {
	Register(fakeClass{name: "fake-msg", state: multipath.PathUp})
	inst, err := Get(context.Background(), "fake-msg")
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close()

	inst.MsgID = MsgIsUp
	if got := inst.Message(); got != "is up" {
		t.Fatalf("message = %q, want \"is up\"", got)
	}
}

func TestTurRegisteredAndRefCounts(t *testing.T) {
	inst, err := Get(context.Background(), "tur")
	if err != nil {
		t.Fatalf("tur should be registered via init(): %v", err)
	}
	defer inst.Close()
	if got := RefCount("tur"); got != 1 {
		t.Fatalf("tur refcount = %d, want 1", got)
	}
}
