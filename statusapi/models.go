// Package statusapi exposes the daemon's in-memory state as a read-only
// HTTP API: a gin router served on the address the caller passes to
// NewServer (cmd/multipathd defaults to 127.0.0.1), grounded on teacher
// rest_api/rest_main.go and rest_api/stores.go's router-setup and
// swaggo-annotated-handler shape. Unlike the teacher, every route here
// is unauthenticated GET — the daemon's own authorization boundary is
// the control socket's SO_PEERCRED check (control package), not a bearer
// token, so the okta/JWT verification rest_main.go wraps every route in
// has no analogue here and is not ported.
package statusapi

import "github.com/sharedcode/multipathd"

// PathView is the JSON projection of a multipath.Path.
type PathView struct {
	DevNum   string `json:"dev_num"`
	Name     string `json:"name"`
	WWID     string `json:"wwid"`
	Vendor   string `json:"vendor"`
	Product  string `json:"product"`
	State    string `json:"state"`
	DMState  string `json:"dm_state"`
	Priority int    `json:"priority"`
}

func newPathView(p *multipath.Path) PathView {
	return PathView{
		DevNum:   p.DevNum,
		Name:     p.Name,
		WWID:     p.WWID,
		Vendor:   p.Vendor,
		Product:  p.Product,
		State:    p.State.String(),
		DMState:  p.DMState,
		Priority: p.Priority,
	}
}

// PathGroupView is the JSON projection of a multipath.PathGroup.
type PathGroupView struct {
	Priority     int        `json:"priority"`
	EnabledPaths int        `json:"enabled_paths"`
	Marginal     bool       `json:"marginal"`
	Paths        []PathView `json:"paths"`
}

func newPathGroupView(g *multipath.PathGroup) PathGroupView {
	v := PathGroupView{
		Priority:     g.Priority,
		EnabledPaths: g.EnabledPaths,
		Marginal:     g.Marginal,
		Paths:        make([]PathView, 0, g.Paths.Len()),
	}
	g.Paths.ForEach(func(_ int, p *multipath.Path) bool {
		v.Paths = append(v.Paths, newPathView(p))
		return true
	})
	return v
}

// MapView is the JSON projection of a multipath.Map.
type MapView struct {
	WWID             string          `json:"wwid"`
	Alias            string          `json:"alias"`
	SizeSectors      uint64          `json:"size_sectors"`
	Policy           string          `json:"policy"`
	NoPathRetry      string          `json:"no_path_retry"`
	InRecovery       bool            `json:"in_recovery"`
	RetryTick        int             `json:"retry_tick"`
	QueueingTimeouts int             `json:"queueing_timeouts"`
	MapFailures      int             `json:"map_failures"`
	ActivePathCount  int             `json:"active_path_count"`
	Groups           []PathGroupView `json:"groups"`
}

func newMapView(m *multipath.Map) MapView {
	v := MapView{
		WWID:             m.WWID,
		Alias:            m.Alias,
		SizeSectors:      m.SizeSectors,
		Policy:           m.Policy.String(),
		NoPathRetry:      m.NoPathRetry.String(),
		InRecovery:       m.InRecovery,
		RetryTick:        m.RetryTick,
		QueueingTimeouts: m.Stats.QueueingTimeouts,
		MapFailures:      m.Stats.MapFailures,
		ActivePathCount:  m.ActivePathCount(),
		Groups:           make([]PathGroupView, 0, m.Groups.Len()),
	}
	m.Groups.ForEach(func(_ int, g *multipath.PathGroup) bool {
		v.Groups = append(v.Groups, newPathGroupView(g))
		return true
	})
	return v
}
