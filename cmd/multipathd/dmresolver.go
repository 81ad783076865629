package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sharedcode/multipathd"
	"github.com/sharedcode/multipathd/corestate"
)

// dmUUIDPrefix is the device-mapper UUID prefix multipath-tools gives
// every map it creates, "mpath-" followed by the WWID.
const dmUUIDPrefix = "mpath-"

// stateMapResolver implements reservation.MapResolver by stripping the
// dm-uuid prefix and looking the WWID up in the shared corestate.State,
// rather than querying the kernel directly — the daemon always learns a
// map's dm-uuid through the same table-sync path corestate.Sync already
// populates Maps from, so a second kernel round trip here would be
// redundant.
type stateMapResolver struct {
	state *corestate.State
}

func (r *stateMapResolver) ResolveByDMUUID(ctx context.Context, dmUUID string) (*multipath.Map, error) {
	wwid, ok := strings.CutPrefix(dmUUID, dmUUIDPrefix)
	if !ok {
		return nil, fmt.Errorf("dm-uuid %q is not a multipath map", dmUUID)
	}

	r.state.RLock()
	defer r.state.RUnlock()
	m := r.state.FindMapByWWID(wwid)
	if m == nil {
		return nil, fmt.Errorf("no map registered for wwid %q", wwid)
	}
	return m, nil
}
