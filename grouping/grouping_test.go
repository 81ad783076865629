package grouping

import (
	"testing"

	"github.com/sharedcode/multipathd"
)

func mkPath(name, node, serial string, prio int, state multipath.PathState) *multipath.Path {
	p := multipath.NewPath("8:0", name, "WWID-"+name)
	p.TargetNodeName = node
	p.Serial = serial
	p.Priority = prio
	p.State = state
	return p
}

func TestGroupMultibusSingleGroup(t *testing.T) {
	paths := []*multipath.Path{
		mkPath("sda", "n1", "s1", 10, multipath.PathUp),
		mkPath("sdb", "n2", "s2", 20, multipath.PathUp),
	}
	groups := Group(paths, multipath.GroupByMultibus, false)
	if len(groups) != 1 {
		t.Fatalf("multibus produced %d groups, want 1", len(groups))
	}
	if groups[0].Paths.Len() != 2 {
		t.Fatalf("multibus group has %d paths, want 2", groups[0].Paths.Len())
	}
}

func TestGroupFailoverOnePathPerGroup(t *testing.T) {
	paths := []*multipath.Path{
		mkPath("sda", "n1", "s1", 10, multipath.PathUp),
		mkPath("sdb", "n2", "s2", 20, multipath.PathUp),
		mkPath("sdc", "n3", "s3", 30, multipath.PathUp),
	}
	groups := Group(paths, multipath.GroupByFailover, false)
	if len(groups) != 3 {
		t.Fatalf("failover produced %d groups, want 3", len(groups))
	}
	for _, g := range groups {
		if g.Paths.Len() != 1 {
			t.Fatalf("failover group has %d paths, want 1", g.Paths.Len())
		}
	}
}

func TestGroupByNodeName(t *testing.T) {
	paths := []*multipath.Path{
		mkPath("sda", "nodeA", "s1", 10, multipath.PathUp),
		mkPath("sdb", "nodeB", "s2", 20, multipath.PathUp),
		mkPath("sdc", "nodeA", "s3", 30, multipath.PathUp),
	}
	groups := Group(paths, multipath.GroupByNodeName, false)
	if len(groups) != 2 {
		t.Fatalf("group_by_node_name produced %d groups, want 2", len(groups))
	}
	sizes := map[int]bool{}
	for _, g := range groups {
		sizes[g.Paths.Len()] = true
	}
	if !sizes[2] || !sizes[1] {
		t.Fatalf("expected one group of 2 and one of 1, got sizes %v", sizes)
	}
}

func TestGroupBySerial(t *testing.T) {
	paths := []*multipath.Path{
		mkPath("sda", "n1", "SAME", 10, multipath.PathUp),
		mkPath("sdb", "n2", "SAME", 20, multipath.PathUp),
		mkPath("sdc", "n3", "OTHER", 30, multipath.PathUp),
	}
	groups := Group(paths, multipath.GroupBySerial, false)
	if len(groups) != 2 {
		t.Fatalf("group_by_serial produced %d groups, want 2", len(groups))
	}
}

func TestGroupByPrio(t *testing.T) {
	paths := []*multipath.Path{
		mkPath("sda", "n1", "s1", 10, multipath.PathUp),
		mkPath("sdb", "n2", "s2", 10, multipath.PathUp),
		mkPath("sdc", "n3", "s3", 20, multipath.PathUp),
	}
	groups := Group(paths, multipath.GroupByPrio, false)
	if len(groups) != 2 {
		t.Fatalf("group_by_prio produced %d groups, want 2", len(groups))
	}
}

func TestGroupMarginalSplit(t *testing.T) {
	p1 := mkPath("sda", "n1", "s1", 10, multipath.PathUp)
	p2 := mkPath("sdb", "n2", "s2", 20, multipath.PathUp)
	p2.Marginal = true

	groups := Group([]*multipath.Path{p1, p2}, multipath.GroupByMultibus, true)
	if len(groups) != 2 {
		t.Fatalf("marginal split produced %d groups, want 2", len(groups))
	}
	if groups[0].Marginal {
		t.Fatal("expected normal group first")
	}
	if !groups[1].Marginal {
		t.Fatal("expected marginal group second")
	}
}

func TestGroupMarginalSplitSkippedWhenUniform(t *testing.T) {
	// All-marginal input: split_marginal_paths would find has_normal ==
	// false and the caller falls back to an unsplit grouping.
	p1 := mkPath("sda", "n1", "s1", 10, multipath.PathUp)
	p1.Marginal = true
	p2 := mkPath("sdb", "n2", "s2", 20, multipath.PathUp)
	p2.Marginal = true

	groups := Group([]*multipath.Path{p1, p2}, multipath.GroupByMultibus, true)
	if len(groups) != 1 {
		t.Fatalf("expected fallback to single unsplit group, got %d", len(groups))
	}
	if groups[0].Marginal {
		t.Fatal("fallback group should not be force-flagged marginal")
	}
}

func TestSortOrdersByPriorityThenEnabledPaths(t *testing.T) {
	low := multipath.NewPathGroup()
	low.AddPath(mkPath("sda", "n1", "s1", 5, multipath.PathUp))
	low.Recompute()

	high := multipath.NewPathGroup()
	high.AddPath(mkPath("sdb", "n2", "s2", 50, multipath.PathUp))
	high.Recompute()

	marginalHigh := multipath.NewPathGroup()
	marginalHigh.AddPath(mkPath("sdc", "n3", "s3", 100, multipath.PathUp))
	marginalHigh.Marginal = true
	marginalHigh.Recompute()

	vec := multipath.NewVector[*multipath.PathGroup](3)
	vec.Append(low)
	vec.Append(marginalHigh)
	vec.Append(high)
	vec.Sort(less)

	items := vec.Items()
	if items[0] != high || items[1] != low || items[2] != marginalHigh {
		t.Fatalf("unexpected sort order: priorities %d,%d,%d marginal %v,%v,%v",
			items[0].Priority, items[1].Priority, items[2].Priority,
			items[0].Marginal, items[1].Marginal, items[2].Marginal)
	}
}

// TestRecomputeAveragesPriorityAcrossEnabledMembers reproduces spec.md
// section 8 scenario 1: prios [7,1,3,3,5,2,8,2] under group_by_prio must
// order groups [p6](8), [p0](7), [p4](5), [p2,p3](3), [p5,p7](2), [p1](1).
// A sum-based aggregate would instead rank [p2,p3] (sum 6) above [p4]
// (prio 5), which is wrong: the aggregate must be the per-path average so
// a uniform-priority group's Priority equals its members' shared priority.
func TestRecomputeAveragesPriorityAcrossEnabledMembers(t *testing.T) {
	paths := []*multipath.Path{
		mkPath("p0", "n0", "s0", 7, multipath.PathUp),
		mkPath("p1", "n1", "s1", 1, multipath.PathUp),
		mkPath("p2", "n2", "s2", 3, multipath.PathUp),
		mkPath("p3", "n3", "s3", 3, multipath.PathUp),
		mkPath("p4", "n4", "s4", 5, multipath.PathUp),
		mkPath("p5", "n5", "s5", 2, multipath.PathUp),
		mkPath("p6", "n6", "s6", 8, multipath.PathUp),
		mkPath("p7", "n7", "s7", 2, multipath.PathUp),
	}
	groups := Group(paths, multipath.GroupByPrio, false)

	vec := multipath.NewVector[*multipath.PathGroup](len(groups))
	for _, g := range groups {
		vec.Append(g)
	}
	vec.Sort(less)

	want := []int{8, 7, 5, 3, 2, 1}
	items := vec.Items()
	if len(items) != len(want) {
		t.Fatalf("got %d groups, want %d", len(items), len(want))
	}
	for i, g := range items {
		if g.Priority != want[i] {
			t.Fatalf("group %d: priority %d, want %d (order %v)", i, g.Priority, want[i], priosOf(items))
		}
	}
	// [p2,p3] and [p5,p7] are the multi-member groups here; each one's
	// averaged priority must equal its members' shared priority ((3+3)/2
	// = 3 and (2+2)/2 = 2), not the sum (6 and 4).
	for _, g := range items {
		if g.Paths.Len() == 2 {
			first, _ := g.Paths.GetSlot(0)
			if g.Priority != first.Priority {
				t.Fatalf("multi-member group priority = %d, want averaged %d", g.Priority, first.Priority)
			}
		}
	}
}

func priosOf(groups []*multipath.PathGroup) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Priority
	}
	return out
}

func TestGroupPathsInstallsOnMap(t *testing.T) {
	m := multipath.NewMap("WWID-X", "mpatha")
	m.Policy = multipath.GroupByFailover

	p1 := mkPath("sda", "n1", "s1", 10, multipath.PathUp)
	p2 := mkPath("sdb", "n2", "s2", 20, multipath.PathUp)
	flat := multipath.NewVector[*multipath.Path](2)
	flat.Append(p1)
	flat.Append(p2)
	m.Paths = flat

	GroupPaths(m, false)

	if m.Groups.Len() != 2 {
		t.Fatalf("got %d groups after GroupPaths, want 2", m.Groups.Len())
	}
	if m.Paths.Len() != 2 {
		t.Fatalf("got %d flattened paths after GroupPaths, want 2", m.Paths.Len())
	}
	if mp, ok := p1.Map(); !ok || mp != m {
		t.Fatal("path's owning map was not updated by GroupPaths")
	}
	if err := m.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants failed after GroupPaths: %v", err)
	}
}
