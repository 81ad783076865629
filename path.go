package multipath

import (
	"os"
	"weak"
)

// PathState is the closed set of health states a path can report, per
// spec.md section 4.2. Checkers only ever return a value from this set.
type PathState int

const (
	PathWild PathState = iota
	PathUnchecked
	PathDown
	PathUp
	PathShaky
	PathGhost
	PathPending
	PathTimeout
	PathRemoved
	PathDelayed
)

func (s PathState) String() string {
	switch s {
	case PathWild:
		return "wild"
	case PathUnchecked:
		return "unchecked"
	case PathDown:
		return "down"
	case PathUp:
		return "up"
	case PathShaky:
		return "shaky"
	case PathGhost:
		return "ghost"
	case PathPending:
		return "pending"
	case PathTimeout:
		return "timeout"
	case PathRemoved:
		return "removed"
	case PathDelayed:
		return "delayed"
	default:
		return "unknown"
	}
}

// Active reports whether a path in this state counts toward a map's
// active-path total for the purposes of the C7 recovery state machine
// (spec.md section 4.7: "active = paths in state UP or GHOST within
// enabled groups").
func (s PathState) Active() bool {
	return s == PathUp || s == PathGhost
}

// CheckerHandle is the seam a checker-package instance satisfies so the
// core data model can hold one without importing the checker package
// (which itself needs Path). Grounded on spec.md section 4.2's checker
// entry points, narrowed to what the data model needs to call directly;
// the full init/free/reset/thread lifecycle lives behind the checker
// registry instead.
type CheckerHandle interface {
	Check() PathState
	NeedWait() bool
	Close() error
}

// PrioHandle is the analogous seam for a priority-provider instance
// (spec.md section 4.3).
type PrioHandle interface {
	Priority() (int, error)
	Close() error
}

// Path is a discovered block device belonging to one storage volume
// (spec.md section 3). It is mutated only while the caller holds the
// global vectors lock (see Vectors), except for checker-private fields
// updated by the checker's own goroutine before a result is published.
type Path struct {
	DevNum string // major:minor
	Name   string // canonical kernel name, e.g. "sda"
	WWID   string

	Vendor   string
	Product  string
	Revision string

	TargetNodeName string
	Serial         string
	Transport      string

	State    PathState
	DMState  string // device-mapper state as last seen from dm status
	Priority int
	Marginal bool

	Checker CheckerHandle
	Prio    PrioHandle

	fd *os.File

	// mapRef is the weak back-reference to the owning map described by
	// spec.md section 9 ("the path↔map weak back-pointer is the single
	// cyclical edge"). A map holds strong *Path pointers in its groups
	// and flattened list; the path holds only this weak.Pointer so that
	// dropping a map from the global map vector does not require a
	// separate sweep of every path's back-reference.
	mapRef weak.Pointer[Map]
}

// NewPath constructs an unchecked, unowned path.
func NewPath(devNum, name, wwid string) *Path {
	return &Path{
		DevNum: devNum,
		Name:   name,
		WWID:   wwid,
		State:  PathUnchecked,
	}
}

// Map returns the owning map and true, or (nil, false) if the path is
// currently an orphan or its map has been dropped from the global vector.
func (p *Path) Map() (*Map, bool) {
	m := p.mapRef.Value()
	return m, m != nil
}

// setMap records m as the path's owning map via a weak reference.
func (p *Path) setMap(m *Map) {
	p.mapRef = weak.Make(m)
}

// SetOwningMap records m as p's owning map. Exported for the adoption
// procedure (corestate), which attaches a discovered path to a map
// outside of a Map.SetGroups rebuild; SetGroups uses the unexported
// setMap directly since it already walks every member path.
func (p *Path) SetOwningMap(m *Map) {
	p.setMap(m)
}

// Fd returns the path's open file descriptor, or nil if none is held.
func (p *Path) Fd() *os.File {
	return p.fd
}

// SetFd installs the path's open file descriptor, closing any previous one.
func (p *Path) SetFd(f *os.File) {
	if p.fd != nil && p.fd != f {
		p.fd.Close()
	}
	p.fd = f
}

// Orphan clears the path's owning-map reference and releases its
// checker/priority handles and file descriptor, per spec.md section 4.5
// ("Orphaning a path clears the weak reference and releases checker/
// priority handles and the file descriptor").
func (p *Path) Orphan() {
	p.mapRef = weak.Pointer[Map]{}
	if p.Checker != nil {
		p.Checker.Close()
		p.Checker = nil
	}
	if p.Prio != nil {
		p.Prio.Close()
		p.Prio = nil
	}
	if p.fd != nil {
		p.fd.Close()
		p.fd = nil
	}
}
