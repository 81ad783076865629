package reservation

import (
	"context"
	"fmt"

	"github.com/sharedcode/multipathd"
)

// Action is the top-level PERSISTENT RESERVE request class (spec.md
// section 4.9: "an IN or OUT persistent-reservation request").
type Action int

const (
	ActionIn Action = iota
	ActionOut
)

// MapResolver resolves the multipath map owning a device's dm-uuid — the
// kernel/device-mapper collaborator boundary (spec.md section 4.9:
// "resolves the target map from the kernel's dm-uuid").
type MapResolver interface {
	ResolveByDMUUID(ctx context.Context, dmUUID string) (*multipath.Map, error)
}

// Request describes one PR IN or OUT call.
type Request struct {
	Action        Action
	ServiceAction ServiceAction // meaningful for Action == ActionOut
	Key           uint64
	SAKey         uint64 // service-action reservation key (Register/RegisterAndMove)
	ScopeType     byte
	AllTgPt       bool // spec.md section 4.9: fan-out to every path subject to all_tg_pt
	APTPL         bool
}

// PathResult is one path's outcome from an OUT fan-out.
type PathResult struct {
	Path *multipath.Path
	Err  error
}

// Result is a coordinator call's aggregate outcome. For ActionIn, Keys
// and Generation come from the single path the request was issued to;
// PerPath is empty. For ActionOut, PerPath holds one entry per path the
// request fanned out to.
type Result struct {
	Generation uint32
	Keys       []uint64
	PerPath    []PathResult
}

// Coordinator implements C9: given a dm-uuid and a PR request, resolve
// the map, gather its UP/GHOST paths, and issue the request either to a
// single path (IN) or, for OUT, to every active path when AllTgPt is set
// and to the first active path otherwise, persisting registrations to
// the prkeys Store.
type Coordinator struct {
	Maps   MapResolver
	Prkeys *Store
}

// NewCoordinator wires a Coordinator to its map resolver and prkeys store.
func NewCoordinator(maps MapResolver, prkeys *Store) *Coordinator {
	return &Coordinator{Maps: maps, Prkeys: prkeys}
}

// Execute runs req against the map identified by dmUUID.
func (c *Coordinator) Execute(ctx context.Context, dmUUID string, req Request) (Result, error) {
	m, err := c.Maps.ResolveByDMUUID(ctx, dmUUID)
	if err != nil {
		return Result{}, multipath.NewError(multipath.ErrDeviceGone, dmUUID, fmt.Errorf("resolving map: %w", err))
	}

	active := activePaths(m)
	if len(active) == 0 {
		return Result{}, multipath.NewError(multipath.ErrDeviceGone, m.Alias, fmt.Errorf("no UP/GHOST paths available"))
	}

	switch req.Action {
	case ActionIn:
		return c.executeIn(m, active[0])
	case ActionOut:
		return c.executeOut(m, active, req)
	default:
		return Result{}, fmt.Errorf("unknown reservation action %d", req.Action)
	}
}

func activePaths(m *multipath.Map) []*multipath.Path {
	var active []*multipath.Path
	m.Paths.ForEach(func(_ int, p *multipath.Path) bool {
		if p.State.Active() {
			active = append(active, p)
		}
		return true
	})
	return active
}

func (c *Coordinator) executeIn(m *multipath.Map, p *multipath.Path) (Result, error) {
	if p.Fd() == nil {
		return Result{}, multipath.NewError(multipath.ErrTransientIO, p.Name, fmt.Errorf("no open file descriptor"))
	}
	generation, keys, err := prInReadKeys(p.Fd().Fd())
	if err != nil {
		return Result{}, multipath.NewError(multipath.ErrTransientIO, p.Name, err)
	}
	return Result{Generation: generation, Keys: keys}, nil
}

// executeOut fans req out to every active path (spec.md section 4.9:
// "fans the OUT out to every path (subject to all_tg_pt), aggregating
// per-path results") and, for register/register-and-ignore service
// actions, persists the key to the prkeys file so it is reapplied after
// restart.
func (c *Coordinator) executeOut(m *multipath.Map, paths []*multipath.Path, req Request) (Result, error) {
	targets := paths
	if !req.AllTgPt {
		targets = paths[:1]
	}

	results := make([]PathResult, 0, len(targets))
	anyOK := false
	for _, p := range targets {
		err := c.issueOut(p, req)
		results = append(results, PathResult{Path: p, Err: err})
		if err == nil {
			anyOK = true
		}
	}

	if anyOK && req.ServiceAction.isRegisterAction() && c.Prkeys != nil {
		// The key actually registered on the device is the
		// service-action reservation key (scsi.go writes SAKey into
		// the parameter list's Service Action Reservation Key field);
		// Key addresses the *current* reservation and is typically 0
		// for register/register-and-ignore. Persist SAKey so it is
		// the value reapplied after restart.
		if err := c.Prkeys.Put(m.WWID, req.SAKey, req.APTPL); err != nil {
			return Result{PerPath: results}, fmt.Errorf("persisting prkeys entry: %w", err)
		}
	}
	if req.ServiceAction == Clear && anyOK && c.Prkeys != nil {
		_ = c.Prkeys.Remove(m.WWID)
	}

	return Result{PerPath: results}, nil
}

func (c *Coordinator) issueOut(p *multipath.Path, req Request) error {
	if p.Fd() == nil {
		return multipath.NewError(multipath.ErrTransientIO, p.Name, fmt.Errorf("no open file descriptor"))
	}
	if err := prOut(p.Fd().Fd(), req.ServiceAction, req.Key, req.SAKey, req.ScopeType); err != nil {
		return multipath.NewError(multipath.ErrTransientIO, p.Name, err)
	}
	return nil
}
