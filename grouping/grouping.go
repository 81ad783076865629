// Package grouping implements the path-grouping engine from spec.md
// section 4.6: partitioning a map's flat path list into path groups
// under one of five policies, with an optional marginal/non-marginal
// split, followed by a stable ordering pass.
//
// Grounded on original_source/libmultipath/pgpolicies.c: group_paths,
// split_marginal_paths, group_by_match (the shared bitfield
// partition-by-comparator algorithm), and sort_pathgroups.
package grouping

import "github.com/sharedcode/multipathd"

// matchFn reports whether two paths belong in the same group under a
// particular "group-by-X" policy.
type matchFn func(a, b *multipath.Path) bool

func nodeNamesMatch(a, b *multipath.Path) bool { return a.TargetNodeName == b.TargetNodeName }
func serialsMatch(a, b *multipath.Path) bool   { return a.Serial == b.Serial }
func priosMatch(a, b *multipath.Path) bool     { return a.Priority == b.Priority }

// Group partitions paths into path groups under policy, honoring the
// marginal split when marginalPathgroups is true and the input mixes
// marginal and non-marginal paths. Input order is preserved within and
// across groups; when split, normal groups precede marginal ones.
func Group(paths []*multipath.Path, policy multipath.GroupingPolicy, marginalPathgroups bool) []*multipath.PathGroup {
	if len(paths) == 0 {
		return nil
	}

	if marginalPathgroups {
		normal, marginal, ok := splitMarginal(paths)
		if ok {
			groups := groupByPolicy(normal, policy)
			marginalGroups := groupByPolicy(marginal, policy)
			for _, g := range marginalGroups {
				g.Marginal = true
			}
			return append(groups, marginalGroups...)
		}
	}
	return groupByPolicy(paths, policy)
}

// splitMarginal partitions paths into non-marginal and marginal
// sub-sequences, preserving relative order within each. ok is false if
// the input is entirely marginal or entirely non-marginal, in which case
// the caller falls back to the unsplit policy (spec.md section 4.6).
func splitMarginal(paths []*multipath.Path) (normal, marginal []*multipath.Path, ok bool) {
	hasNormal, hasMarginal := false, false
	for _, p := range paths {
		if p.Marginal {
			hasMarginal = true
		} else {
			hasNormal = true
		}
	}
	if !hasNormal || !hasMarginal {
		return nil, nil, false
	}
	for _, p := range paths {
		if p.Marginal {
			marginal = append(marginal, p)
		} else {
			normal = append(normal, p)
		}
	}
	return normal, marginal, true
}

func groupByPolicy(paths []*multipath.Path, policy multipath.GroupingPolicy) []*multipath.PathGroup {
	switch policy {
	case multipath.GroupByMultibus:
		return onePathGroup(paths)
	case multipath.GroupByFailover:
		return onePathPerGroup(paths)
	case multipath.GroupBySerial:
		return groupByMatch(paths, serialsMatch)
	case multipath.GroupByNodeName:
		return groupByMatch(paths, nodeNamesMatch)
	case multipath.GroupByPrio:
		return groupByMatch(paths, priosMatch)
	default:
		return onePathGroup(paths)
	}
}

func onePathGroup(paths []*multipath.Path) []*multipath.PathGroup {
	if len(paths) == 0 {
		return nil
	}
	g := multipath.NewPathGroup()
	for _, p := range paths {
		g.AddPath(p)
	}
	g.Recompute()
	return []*multipath.PathGroup{g}
}

func onePathPerGroup(paths []*multipath.Path) []*multipath.PathGroup {
	groups := make([]*multipath.PathGroup, 0, len(paths))
	for _, p := range paths {
		g := multipath.NewPathGroup()
		g.AddPath(p)
		g.Recompute()
		groups = append(groups, g)
	}
	return groups
}

// groupByMatch is the shared bitfield-partition algorithm behind the
// three group_by_X policies: for each untaken index i, open a new group,
// take i, then scan j>i and take every j whose key matches i's key.
func groupByMatch(paths []*multipath.Path, match matchFn) []*multipath.PathGroup {
	taken := make([]bool, len(paths))
	var groups []*multipath.PathGroup

	for i := range paths {
		if taken[i] {
			continue
		}
		g := multipath.NewPathGroup()
		g.AddPath(paths[i])
		taken[i] = true

		for j := i + 1; j < len(paths); j++ {
			if taken[j] {
				continue
			}
			if match(paths[i], paths[j]) {
				g.AddPath(paths[j])
				taken[j] = true
			}
		}
		g.Recompute()
		groups = append(groups, g)
	}
	return groups
}
