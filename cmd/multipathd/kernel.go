package main

import (
	"context"
	"fmt"

	"github.com/sharedcode/multipathd/corestate"
)

// dmKernel is the real corestate.Kerneler implementation: DM_TABLE_STATUS
// and DM_TABLE_DEPS ioctls against /dev/mapper/control. corestate's own
// doc comment scopes this plumbing as an external collaborator outside
// the module (spec.md section 1); this type is the seam where it plugs
// in, left unimplemented here.
//
// TODO: implement the dm-ioctl(4) wire structs (struct dm_ioctl, struct
// dm_target_deps, struct dm_target_spec) and issue DM_TABLE_DEPS_CMD /
// DM_TABLE_STATUS_CMD against an open /dev/mapper/control fd.
type dmKernel struct{}

func (dmKernel) FetchTable(ctx context.Context, wwid string) (corestate.TableSnapshot, error) {
	return corestate.TableSnapshot{}, fmt.Errorf("dmKernel.FetchTable: device-mapper ioctl backend not wired for %s", wwid)
}

func (dmKernel) FetchStatus(ctx context.Context, wwid string) (corestate.StatusSnapshot, error) {
	return corestate.StatusSnapshot{}, fmt.Errorf("dmKernel.FetchStatus: device-mapper ioctl backend not wired for %s", wwid)
}

func (dmKernel) SetQueueIfNoPath(ctx context.Context, wwid string, on bool) error {
	return fmt.Errorf("dmKernel.SetQueueIfNoPath: device-mapper ioctl backend not wired for %s", wwid)
}
