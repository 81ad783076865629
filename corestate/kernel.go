package corestate

import (
	"context"

	"github.com/sharedcode/multipathd"
)

// PathSpec is one row of a device-mapper table target's member list, as
// the kernel table-fetch stage of Sync disassembles it (spec.md section
// 4.7 stage i: "fetch table parameters and disassemble into
// groups/paths").
type PathSpec struct {
	DevNum string
	Group  int // index into the resulting group list
}

// TableSnapshot is what Kerneler.FetchTable returns: the map's grouping
// policy and the flat member list in group order.
type TableSnapshot struct {
	Policy multipath.GroupingPolicy
	Paths  []PathSpec
}

// PathStatus is one member's status row from the kernel status-fetch
// stage (spec.md section 4.7 stage iii).
type PathStatus struct {
	DevNum   string
	DMState  string
	Priority int
}

// StatusSnapshot is what Kerneler.FetchStatus returns.
type StatusSnapshot struct {
	Paths []PathStatus
}

// Kerneler is the external collaborator boundary to device-mapper:
// everything corestate needs from the kernel, narrow enough to fake in
// tests. A real implementation issues DM_TABLE_STATUS/DM_TABLE_DEPS
// ioctls; that plumbing is outside this module's scope (spec.md section
// 1 names the kernel ioctl surface as an external collaborator).
type Kerneler interface {
	FetchTable(ctx context.Context, wwid string) (TableSnapshot, error)
	FetchStatus(ctx context.Context, wwid string) (StatusSnapshot, error)
	SetQueueIfNoPath(ctx context.Context, wwid string, on bool) error
}
