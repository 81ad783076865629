package multipath

// PathGroup is an ordered set of paths sharing a policy-defined property
// (spec.md section 3). A path group exclusively owns its member list but
// does not own the paths it lists: Paths holds strong references into the
// same *Path values the owning map's flattened list holds, per the
// ownership rule in spec.md section 4.5.
type PathGroup struct {
	Paths *Vector[*Path]

	// Priority is the aggregate priority of the group: the average
	// (integer-divided) priority of its enabled (UP/GHOST) member paths.
	// Disabled members contribute neither to Priority nor to
	// EnabledPaths, which is the "enabled-count weighting" spec.md
	// section 3 calls for.
	Priority int

	EnabledPaths int
	Marginal     bool
}

// NewPathGroup returns an empty path group.
func NewPathGroup() *PathGroup {
	return &PathGroup{Paths: NewVector[*Path](4)}
}

// AddPath appends p to the group's member list. Callers must call
// Recompute afterward (or rely on the owning map's regroup pass to do so)
// to keep Priority/EnabledPaths current.
func (g *PathGroup) AddPath(p *Path) {
	g.Paths.Append(p)
}

// Recompute derives Priority and EnabledPaths from the current member
// list's path states and priorities. Called after grouping and after any
// checker tick that changes a member's state or priority.
func (g *PathGroup) Recompute() {
	sum := 0
	enabled := 0
	g.Paths.ForEach(func(_ int, p *Path) bool {
		if p.State.Active() {
			enabled++
			sum += p.Priority
		}
		return true
	})
	if enabled == 0 {
		g.Priority = 0
	} else {
		g.Priority = sum / enabled
	}
	g.EnabledPaths = enabled
}
