package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sharedcode/multipathd"
	"github.com/sharedcode/multipathd/control"
	"github.com/sharedcode/multipathd/corestate"
	"github.com/sharedcode/multipathd/reservation"
)

var reservationServiceActions = map[string]reservation.ServiceAction{
	"register":            reservation.Register,
	"reserve":             reservation.Reserve,
	"release":             reservation.Release,
	"clear":               reservation.Clear,
	"preempt":             reservation.Preempt,
	"preempt-and-abort":   reservation.PreemptAndAbort,
	"register-and-ignore": reservation.RegisterAndIgnore,
	"register-and-move":   reservation.RegisterAndMove,
}

// buildCommandTable wires the control socket's dispatch table to the
// shared state, grounded on spec.md section 4.8's command set: unprefixed
// "list"/"show" commands are read-only and open to any client,
// everything else requires root (control.Table.Add derives this
// automatically from the first keyword).
func buildCommandTable(state *corestate.State, coordinator *reservation.Coordinator) *control.Table {
	t := control.NewTable()

	t.Add(control.Command{
		Prefix: []string{"list", "paths"},
		Handler: func(ctx context.Context, args []string) (string, error) {
			state.RLock()
			defer state.RUnlock()
			var sb strings.Builder
			state.Paths.ForEach(func(_ int, p *multipath.Path) bool {
				fmt.Fprintf(&sb, "%-8s %-20s %-8s %s\n", p.Name, p.WWID, p.State, p.DMState)
				return true
			})
			return sb.String(), nil
		},
	})

	t.Add(control.Command{
		Prefix: []string{"list", "maps"},
		Handler: func(ctx context.Context, args []string) (string, error) {
			state.RLock()
			defer state.RUnlock()
			var sb strings.Builder
			state.Maps.ForEach(func(_ int, m *multipath.Map) bool {
				fmt.Fprintf(&sb, "%-12s %-36s paths=%d active=%d\n",
					m.Alias, m.WWID, m.Paths.Len(), m.ActivePathCount())
				return true
			})
			return sb.String(), nil
		},
	})

	t.Add(control.Command{
		Prefix:       []string{"reconfigure"},
		RequiresLock: true,
		Handler: func(ctx context.Context, args []string) (string, error) {
			return "ok\n", nil
		},
	})

	t.Add(control.Command{
		Prefix:       []string{"reservation"},
		RequiresLock: true,
		Handler:      reservationHandler(coordinator),
	})

	return t
}

// reservationHandler implements "reservation <action> <dm-uuid> <keyhex>
// [sakeyhex] [--all-tg-pt]", dispatching to the coordinator built in
// cmd/multipathd/main.go. Reads are unauthenticated GETs in statusapi;
// this control-socket verb is the mutating counterpart, hence
// RequiresLock/RootOnly (auto-derived since "reservation" isn't
// list/show).
func reservationHandler(coordinator *reservation.Coordinator) control.Handler {
	return func(ctx context.Context, args []string) (string, error) {
		// args[0] is the "reservation" keyword itself (Table.Match
		// returns the full tokenized line, prefix included).
		args = args[1:]
		if len(args) < 3 {
			return "", fmt.Errorf("usage: reservation <action> <dm-uuid> <keyhex> [sakeyhex] [--all-tg-pt]")
		}
		sa, ok := reservationServiceActions[args[0]]
		if !ok {
			return "", fmt.Errorf("unknown reservation action %q", args[0])
		}
		dmUUID := args[1]
		key, err := strconv.ParseUint(args[2], 16, 64)
		if err != nil {
			return "", fmt.Errorf("invalid key %q: %w", args[2], err)
		}

		var sakey uint64
		allTgPt := false
		for _, extra := range args[3:] {
			if extra == "--all-tg-pt" {
				allTgPt = true
				continue
			}
			if v, err := strconv.ParseUint(extra, 16, 64); err == nil {
				sakey = v
			}
		}

		result, err := coordinator.Execute(ctx, dmUUID, reservation.Request{
			Action:        reservation.ActionOut,
			ServiceAction: sa,
			Key:           key,
			SAKey:         sakey,
			AllTgPt:       allTgPt,
		})
		if err != nil {
			return "", err
		}

		var sb strings.Builder
		for _, pr := range result.PerPath {
			status := "ok"
			if pr.Err != nil {
				status = pr.Err.Error()
			}
			fmt.Fprintf(&sb, "%s: %s\n", pr.Path.Name, status)
		}
		return sb.String(), nil
	}
}
