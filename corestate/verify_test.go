package corestate

import (
	"testing"

	"github.com/sharedcode/multipathd"
)

func TestVerifyPathsDropsDisappeared(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	present := multipath.NewPath("8:0", "sda", "W")
	goneDown := multipath.NewPath("8:16", "sdb", "W")
	goneDown.State = multipath.PathDown
	goneUp := multipath.NewPath("8:32", "sdc", "W")
	goneUp.State = multipath.PathUp

	m.Paths.Append(present)
	m.Paths.Append(goneDown)
	m.Paths.Append(goneUp)
	present.SetOwningMap(m)
	goneDown.SetOwningMap(m)
	goneUp.SetOwningMap(m)

	VerifyPaths(m, func(p *multipath.Path) bool {
		return p == present
	})

	if m.Paths.Len() != 1 {
		t.Fatalf("map has %d paths after verify, want 1", m.Paths.Len())
	}
	if got, _ := m.Paths.GetSlot(0); got != present {
		t.Fatal("surviving path should be the one still present in sysfs")
	}
	if _, ok := goneDown.Map(); ok {
		t.Fatal("goneDown should have been orphaned")
	}
	if _, ok := goneUp.Map(); ok {
		t.Fatal("goneUp should have been orphaned")
	}
}

func TestVerifyPathsNoOpWhenAllPresent(t *testing.T) {
	m := multipath.NewMap("W", "mpatha")
	p := multipath.NewPath("8:0", "sda", "W")
	m.Paths.Append(p)

	VerifyPaths(m, func(*multipath.Path) bool { return true })

	if m.Paths.Len() != 1 {
		t.Fatalf("map has %d paths, want 1 (no-op expected)", m.Paths.Len())
	}
}
