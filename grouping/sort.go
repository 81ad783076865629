package grouping

import "github.com/sharedcode/multipathd"

// less orders groups non-marginal before marginal, then by priority
// descending, then by enabled-path count descending. Grounded on
// original_source/libmultipath/pgpolicies.c's sort_pathgroups, which
// compares exactly these three fields in this order (spec.md section
// 4.6). The stable insertion sort that applies it lives on Vector
// itself (vector.go's insertionSortStable), mirroring sort_pathgroups'
// own move_up-based technique.
func less(a, b *multipath.PathGroup) bool {
	if a.Marginal != b.Marginal {
		return !a.Marginal // non-marginal sorts first
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.EnabledPaths > b.EnabledPaths
}

// GroupPaths computes a fresh grouping for m's current flattened path
// list under policy, applies the optional marginal split, sorts the
// result, and installs it via m.SetGroups. This is the C6 entry point
// the daemon's reconfigure and path-state-change paths call.
func GroupPaths(m *multipath.Map, marginalPathgroups bool) {
	paths := make([]*multipath.Path, 0, m.Paths.Len())
	m.Paths.ForEach(func(_ int, p *multipath.Path) bool {
		paths = append(paths, p)
		return true
	})

	groups := Group(paths, m.Policy, marginalPathgroups)

	vec := multipath.NewVector[*multipath.PathGroup](len(groups))
	for _, g := range groups {
		vec.Append(g)
	}
	vec.Sort(less)
	m.SetGroups(vec)
}
