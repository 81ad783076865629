package corestate

import (
	"context"
	"fmt"

	"github.com/sharedcode/multipathd"
)

// Sync brings m's in-memory state into agreement with the kernel's view
// of its device-mapper table in three stages (spec.md section 4.7):
//
//  1. fetch table parameters and rebuild m's path list from them;
//  2. diff against m.Paths and orphan any path no longer represented;
//  3. fetch status and update per-path dm-state and priority, then drop
//     orphaned paths from m.Groups and recompute each group's sums.
//
// The table's per-path group numbers (PathSpec.Group) are not used:
// m.Groups keeps its existing groups, minus the paths the table no
// longer names.
//
// Mirrors teacher two_phase_commit_transaction.go's staged shape (here:
// fetch → diff/orphan → status) rather than its exact Begin/Phase1/
// Phase2/Rollback names, since Sync has no rollback: both fetches run
// before any mutation, so a failed fetch leaves m unchanged.
//
// Concurrent Sync calls for the same WWID are collapsed into one kernel
// round trip via s.sf, so two checker-tick goroutines racing to
// resync the same map after a state change only issue one fetch pair.
func (s *State) Sync(ctx context.Context, m *multipath.Map) error {
	_, err, _ := s.sf.Do(m.WWID, func() (any, error) {
		return nil, s.syncLocked(ctx, m)
	})
	return err
}

func (s *State) syncLocked(ctx context.Context, m *multipath.Map) error {
	// Stage i: fetch table parameters. Status is fetched here as well so
	// that neither fetch can fail after m has been changed.
	table, err := s.Kernel.FetchTable(ctx, m.WWID)
	if err != nil {
		return multipath.NewError(multipath.ErrTransientIO, m.Alias, fmt.Errorf("fetch table: %w", err))
	}
	status, err := s.Kernel.FetchStatus(ctx, m.WWID)
	if err != nil {
		return multipath.NewError(multipath.ErrTransientIO, m.Alias, fmt.Errorf("fetch status: %w", err))
	}

	byDevNum := make(map[string]*multipath.Path, s.Paths.Len())
	s.Paths.ForEach(func(_ int, p *multipath.Path) bool {
		byDevNum[p.DevNum] = p
		return true
	})

	m.Policy = table.Policy
	flat := multipath.NewVector[*multipath.Path](len(table.Paths))
	for _, spec := range table.Paths {
		p, ok := byDevNum[spec.DevNum]
		if !ok {
			continue // disassembled table names a device we haven't discovered yet
		}
		flat.Append(p)
	}

	// Stage ii: diff against m.Paths and orphan anything no longer
	// represented in the fresh table.
	stillPresent := make(map[*multipath.Path]bool, flat.Len())
	flat.ForEach(func(_ int, p *multipath.Path) bool {
		stillPresent[p] = true
		return true
	})
	m.Paths.ForEach(func(_ int, p *multipath.Path) bool {
		if !stillPresent[p] {
			p.Orphan()
		}
		return true
	})
	m.Paths = flat

	// Stage iii: update per-path dm-state and priority from the fetched
	// status, then the group membership and sums.
	for _, st := range status.Paths {
		p, ok := byDevNum[st.DevNum]
		if !ok {
			continue
		}
		p.DMState = st.DMState
		p.Priority = st.Priority
	}
	m.Groups.ForEach(func(_ int, g *multipath.PathGroup) bool {
		g.Paths.DeleteWhere(func(p *multipath.Path) bool { return !stillPresent[p] })
		g.Recompute()
		return true
	})

	return m.CheckInvariants()
}
