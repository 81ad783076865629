package multipath

import "fmt"

// GroupingPolicy names one of the five path-grouping policies from
// spec.md section 4.6. The policy algorithms themselves live in the
// grouping package; this type is part of the Map's persistent
// configuration so it belongs to the data model.
type GroupingPolicy int

const (
	GroupByMultibus GroupingPolicy = iota
	GroupByFailover
	GroupBySerial
	GroupByNodeName
	GroupByPrio
)

func (p GroupingPolicy) String() string {
	switch p {
	case GroupByMultibus:
		return "multibus"
	case GroupByFailover:
		return "failover"
	case GroupBySerial:
		return "group_by_serial"
	case GroupByNodeName:
		return "group_by_node_name"
	case GroupByPrio:
		return "group_by_prio"
	default:
		return "unknown"
	}
}

// FailbackKind is the small enumeration for the failback tunable
// (spec.md section 4.4).
type FailbackKind int

const (
	FailbackManual FailbackKind = iota
	FailbackImmediate
	FailbackFollowover
	FailbackSeconds
)

// Failback holds the failback tunable's value; Seconds is only
// meaningful when Kind == FailbackSeconds.
type Failback struct {
	Kind    FailbackKind
	Seconds int
}

// NoPathRetryKind is the discriminant of the no_path_retry tunable,
// which spec.md section 4.4 types as "{fail, queue, n in N}".
type NoPathRetryKind int

const (
	NoPathRetryUndef NoPathRetryKind = iota
	NoPathRetryFail
	NoPathRetryQueue
	NoPathRetryNumeric
)

// NoPathRetry is the resolved value of the no_path_retry tunable.
type NoPathRetry struct {
	Kind NoPathRetryKind
	N    int // meaningful only when Kind == NoPathRetryNumeric; N > 0
}

func (r NoPathRetry) String() string {
	switch r.Kind {
	case NoPathRetryFail:
		return "fail"
	case NoPathRetryQueue:
		return "queue"
	case NoPathRetryNumeric:
		return fmt.Sprintf("%d", r.N)
	default:
		return "undef"
	}
}

// MapStats tracks the counters spec.md section 3 lists for a map.
type MapStats struct {
	QueueingTimeouts int
	MapFailures      int
}

// Map is a logical volume presented by device-mapper (spec.md section 3).
// It is mutated only while the caller holds the global vectors lock.
type Map struct {
	WWID            string
	Alias           string
	SizeSectors     uint64
	Features        string
	HardwareHandler string

	Policy   GroupingPolicy
	Failback Failback

	NoPathRetry    NoPathRetry
	InRecovery     bool
	RetryTick      int
	GhostDelayTick int

	// Groups is exclusively owned by the map: dropping a group from
	// this vector is the only way a PathGroup value becomes collectible.
	Groups *Vector[*PathGroup]

	// Paths is the flattened membership list. It holds the same *Path
	// values reachable through Groups (invariant i, spec.md section 3)
	// but does not own them: the daemon's global path vector is the sole
	// owner, and Path.mapRef back to this Map is a weak reference.
	Paths *Vector[*Path]

	Stats MapStats
}

// NewMap returns an empty map with no groups and no paths.
func NewMap(wwid, alias string) *Map {
	return &Map{
		WWID:  wwid,
		Alias: alias,
		Groups: NewVector[*PathGroup](2),
		Paths:  NewVector[*Path](4),
	}
}

// SetGroups replaces the map's groups, rebuilding the flattened path list
// and each member path's owning-map back-reference to match. This is the
// operation the grouping engine (C6) drives after computing a fresh
// partition for the map: spec.md section 4.6 describes the engine's
// output as "an ordered list of groups, with the map's path list
// cleared" — this method performs both halves atomically so invariant i
// is never observably broken to a caller holding the lock.
func (m *Map) SetGroups(groups *Vector[*PathGroup]) {
	m.Groups = groups
	flat := NewVector[*Path](groups.Len() * 2)
	groups.ForEach(func(_ int, g *PathGroup) bool {
		g.Paths.ForEach(func(_ int, p *Path) bool {
			flat.Append(p)
			p.setMap(m)
			return true
		})
		return true
	})
	m.Paths = flat
}

// ActivePathCount returns the number of member paths in state UP or
// GHOST across all groups, the "active" quantity the C7 recovery state
// machine transitions on (spec.md section 4.7).
func (m *Map) ActivePathCount() int {
	active := 0
	m.Groups.ForEach(func(_ int, g *PathGroup) bool {
		g.Recompute()
		active += g.EnabledPaths
		return true
	})
	return active
}

// CheckInvariants validates the locally-checkable invariants from
// spec.md section 3: (i) every path reachable through the map's groups
// appears in the map's path list; (ii) in_recovery implies a positive
// numeric no_path_retry; (iii) retry_tick > 0 implies in_recovery.
// Invariants (iv) alias uniqueness and (v) binding agreement span the
// whole daemon and the bindings store respectively, so they are checked
// by the core-state and bindings packages instead.
func (m *Map) CheckInvariants() error {
	inPathList := make(map[*Path]bool, m.Paths.Len())
	m.Paths.ForEach(func(_ int, p *Path) bool {
		inPathList[p] = true
		return true
	})
	var missing *Path
	m.Groups.ForEach(func(_ int, g *PathGroup) bool {
		g.Paths.ForEach(func(_ int, p *Path) bool {
			if !inPathList[p] {
				missing = p
				return false
			}
			return true
		})
		return missing == nil
	})
	if missing != nil {
		return NewError(ErrPolicyViolation, m.Alias,
			fmt.Errorf("path %s reachable via a group but absent from map path list", missing.Name))
	}

	if m.InRecovery && !(m.NoPathRetry.Kind == NoPathRetryNumeric && m.NoPathRetry.N > 0) {
		return NewError(ErrPolicyViolation, m.Alias,
			fmt.Errorf("in_recovery set without a positive numeric no_path_retry"))
	}
	if m.RetryTick > 0 && !m.InRecovery {
		return NewError(ErrPolicyViolation, m.Alias,
			fmt.Errorf("retry_tick %d > 0 while not in_recovery", m.RetryTick))
	}
	return nil
}
