package corestate

import (
	"log/slog"

	"github.com/sharedcode/multipathd"
)

// SysfsPresence reports whether a path's device node still exists in
// sysfs. The udev/sysfs probing behind it is an external collaborator
// out of this module's scope.
type SysfsPresence func(p *multipath.Path) bool

// VerifyPaths drops any member of m whose device node has disappeared
// from sysfs, orphaning it and removing it from m.Paths and from its
// group, whose priority and enabled-path count are then recomputed.
// A path already in PathDown disappearing is
// the ordinary removal path and is not logged; any other state
// disappearing is unexpected and logs a warning (spec.md section 4.7:
// "a path already in DOWN state disappearing is normal, any other state
// triggers a warning").
func VerifyPaths(m *multipath.Map, present SysfsPresence) {
	var gone []*multipath.Path
	m.Paths.ForEach(func(_ int, p *multipath.Path) bool {
		if !present(p) {
			gone = append(gone, p)
		}
		return true
	})

	for _, p := range gone {
		if p.State != multipath.PathDown {
			slog.Warn("path disappeared from sysfs while not down", "path", p.Name, "state", p.State, "alias", m.Alias)
		}
		p.Orphan()
	}
	if len(gone) == 0 {
		return
	}
	isGone := func(p *multipath.Path) bool {
		for _, g := range gone {
			if p == g {
				return true
			}
		}
		return false
	}
	m.Paths.DeleteWhere(isGone)
	m.Groups.ForEach(func(_ int, g *multipath.PathGroup) bool {
		g.Paths.DeleteWhere(isGone)
		g.Recompute()
		return true
	})
}
