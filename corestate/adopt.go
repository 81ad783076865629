package corestate

import (
	"errors"
	"log/slog"

	"github.com/sharedcode/multipathd"
)

// AliasSource resolves the alias for a newly adopted map: static
// configuration takes precedence over a bindings-file lookup, which
// takes precedence over auto-generation (spec.md section 4.7:
// "select an alias (static > bindings-file lookup > auto-generated)").
// Each method returns ("", false) to defer to the next source.
type AliasSource interface {
	StaticAlias(wwid string) (string, bool)
	BindingsAlias(wwid string) (string, bool)
	AutoAlias(wwid string) (string, bool)
}

// HardwareProfile is what a path contributes to a newly allocated map:
// its size and feature/hardware-handler strings, picked from the first
// path discovered for a WWID (spec.md section 4.7: "pick its hardware
// profile from the path").
type HardwareProfile struct {
	SizeSectors     uint64
	Features        string
	HardwareHandler string
}

// ProfileFn derives a HardwareProfile from a newly discovered path; the
// device-mapper/sysfs probing that fills it in is an external
// collaborator out of this module's scope.
type ProfileFn func(p *multipath.Path) (HardwareProfile, error)

// Adopt attaches path to an existing map sharing its WWID, or allocates
// a new one via add_vec if none matches (spec.md section 4.7's
// adoption/add_map_with_path procedure). Callers must hold s.Lock().
func (s *State) Adopt(path *multipath.Path, alias AliasSource, profile ProfileFn, addVec bool) (*multipath.Map, error) {
	if m := s.FindMapByWWID(path.WWID); m != nil {
		return m, s.adoptOnto(m, path)
	}
	return s.addMapWithPath(path, alias, profile, addVec)
}

// adoptOnto attaches path to an already-existing map m. A path whose
// checker or prio instance is not set is skipped with an
// ErrPolicyViolation error; otherwise m takes ownership of it. Path
// carries no size, so no size comparison against m is made.
func (s *State) adoptOnto(m *multipath.Map, path *multipath.Path) error {
	if path.Checker == nil || path.Prio == nil {
		slog.Warn("skipping path adoption: checker/prio not initialized", "path", path.Name, "wwid", path.WWID)
		return multipath.NewError(multipath.ErrPolicyViolation, path.Name,
			errors.New("checker/prio not initialized for adoption"))
	}

	found := false
	m.Paths.ForEach(func(_ int, existing *multipath.Path) bool {
		if existing == path {
			found = true
			return false
		}
		return true
	})
	if !found {
		m.Paths.Append(path)
	}
	path.SetOwningMap(m)
	return nil
}

// addMapWithPath allocates a new map for path's WWID: pick the hardware
// profile from path, select an alias, copy size/WWID, and — if addVec
// is set — register the map in the global list.
func (s *State) addMapWithPath(path *multipath.Path, alias AliasSource, profile ProfileFn, addVec bool) (*multipath.Map, error) {
	prof, err := profile(path)
	if err != nil {
		return nil, multipath.NewError(multipath.ErrDeviceGone, path.Name, err)
	}

	name, _ := resolveAlias(alias, path.WWID)

	m := multipath.NewMap(path.WWID, name)
	m.SizeSectors = prof.SizeSectors
	m.Features = prof.Features
	m.HardwareHandler = prof.HardwareHandler
	m.Paths.Append(path)
	path.SetOwningMap(m)

	if addVec {
		s.Maps.Append(m)
	}
	return m, nil
}

// resolveAlias tries the three alias sources in precedence order.
func resolveAlias(src AliasSource, wwid string) (string, bool) {
	if src == nil {
		return "", false
	}
	if a, ok := src.StaticAlias(wwid); ok {
		return a, true
	}
	if a, ok := src.BindingsAlias(wwid); ok {
		return a, true
	}
	if a, ok := src.AutoAlias(wwid); ok {
		return a, true
	}
	return "", false
}
