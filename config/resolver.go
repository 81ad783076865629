package config

import (
	"log/slog"
	"sync"
)

// Resolver holds the four layers of configuration and resolves a
// tunable's effective value for a given path/map by walking them
// highest-precedence first (spec.md section 4.4):
//
//  1. per-map entry (matched on WWID or alias)
//  2. overrides block
//  3. hardware-table entry (matched on vendor/product/revision regex)
//  4. defaults block
//
// There is no built-in default table behind the defaults block: a key
// that no layer sets resolves as unset.
type Resolver struct {
	defaults  *layer
	hardware  []HardwareEntry
	overrides []OverrideEntry
	maps      []MapEntry

	eval *predicateEvaluator

	warnOnce sync.Map // deprecated keyword -> struct{}, for the once-only warning
}

// NewResolver builds a Resolver from the four already-parsed layers.
func NewResolver(defaults RawLayer, hardware []HardwareEntry, overrides []OverrideEntry, maps []MapEntry) (*Resolver, error) {
	eval, err := newPredicateEvaluator()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		defaults:  newLayer(defaults),
		hardware:  hardware,
		overrides: overrides,
		maps:      maps,
		eval:      eval,
	}, nil
}

// Lookup walks the four layers for key against a path/map identified by
// wwid/alias and the hardware attrs vendor/product/revision, returning
// the first layer that sets it and the string value found there. The
// caller is responsible for parsing the string into the tunable's typed
// domain (ParseTriState, parseEnum, ParseNumTristate, ...).
func (r *Resolver) Lookup(key string, wwid, alias, vendor, product, revision string) (string, bool) {
	a := attrs{Vendor: vendor, Product: product, Revision: revision, WWID: wwid, Alias: alias}

	for _, m := range r.maps {
		if m.matchesMap(wwid, alias) {
			if v, ok := newLayer(m.Values).get(key); ok {
				return v, true
			}
		}
	}

	for _, o := range r.overrides {
		if o.matchesOverride(a, r.eval) {
			if v, ok := newLayer(o.Values).get(key); ok {
				return v, true
			}
		}
	}

	for _, h := range r.hardware {
		if a.matchesHardware(h) {
			if v, ok := newLayer(h.Values).get(key); ok {
				return v, true
			}
		}
	}

	return r.defaults.get(key)
}

// Deprecated records that a keyword from the parsed configuration tree
// is no longer meaningful, logging a warning exactly once per keyword
// for the life of the Resolver (spec.md section 4.4: "Deprecated
// keywords are accepted, logged once, and ignored"), then discards it —
// callers should not feed the value into any Parse* function.
func (r *Resolver) Deprecated(keyword string) {
	if _, loaded := r.warnOnce.LoadOrStore(keyword, struct{}{}); !loaded {
		slog.Warn("deprecated configuration keyword, ignoring", "keyword", keyword)
	}
}

// LookupTriState resolves key and parses it as a TriState, warning and
// returning TriUndef if a layer sets it to something other than yes/no.
func (r *Resolver) LookupTriState(key, wwid, alias, vendor, product, revision string) TriState {
	v, ok := r.Lookup(key, wwid, alias, vendor, product, revision)
	if !ok {
		return TriUndef
	}
	t, parsed := ParseTriState(v)
	if !parsed {
		slog.Warn("invalid tri-state value, leaving tunable undefined", "keyword", key, "value", v)
		return TriUndef
	}
	return t
}

// LookupFindMultipaths resolves and parses the find_multipaths tunable.
func (r *Resolver) LookupFindMultipaths(wwid, alias, vendor, product, revision string) FindMultipaths {
	v, ok := r.Lookup("find_multipaths", wwid, alias, vendor, product, revision)
	if !ok {
		return FindMultipathsUndef
	}
	return parseEnum("find_multipaths", v, findMultipathsValues)
}

// LookupAutoResize resolves and parses the auto_resize tunable.
func (r *Resolver) LookupAutoResize(wwid, alias, vendor, product, revision string) AutoResize {
	v, ok := r.Lookup("auto_resize", wwid, alias, vendor, product, revision)
	if !ok {
		return AutoResizeUndef
	}
	return parseEnum("auto_resize", v, autoResizeValues)
}

// LookupLogCheckerErr resolves and parses the log_checker_err tunable.
func (r *Resolver) LookupLogCheckerErr(wwid, alias, vendor, product, revision string) LogCheckerErr {
	v, ok := r.Lookup("log_checker_err", wwid, alias, vendor, product, revision)
	if !ok {
		return LogCheckerErrUndef
	}
	return parseEnum("log_checker_err", v, logCheckerErrValues)
}

// LookupQueueWithoutDaemon resolves and parses the queue_without_daemon tunable.
func (r *Resolver) LookupQueueWithoutDaemon(wwid, alias, vendor, product, revision string) QueueWithoutDaemon {
	v, ok := r.Lookup("queue_without_daemon", wwid, alias, vendor, product, revision)
	if !ok {
		return QueueWithoutDaemonUndef
	}
	return parseEnum("queue_without_daemon", v, queueWithoutDaemonValues)
}

// LookupNumTristate resolves key under the numeric-with-off/0/undef
// domain, clamped to [min, max].
func (r *Resolver) LookupNumTristate(key, wwid, alias, vendor, product, revision string, min, max int) NumTristate {
	v, _ := r.Lookup(key, wwid, alias, vendor, product, revision)
	return ParseNumTristate(key, v, min, max)
}

// LookupDevLossTmo resolves and parses dev_loss_tmo.
func (r *Resolver) LookupDevLossTmo(wwid, alias, vendor, product, revision string) DevLossTmo {
	v, _ := r.Lookup("dev_loss_tmo", wwid, alias, vendor, product, revision)
	return ParseDevLossTmo(v)
}

// LookupMaxFds resolves and parses max_fds.
func (r *Resolver) LookupMaxFds(wwid, alias, vendor, product, revision string) MaxFds {
	v, _ := r.Lookup("max_fds", wwid, alias, vendor, product, revision)
	return ParseMaxFds(v)
}

// LookupReservationKey resolves and parses reservation_key.
func (r *Resolver) LookupReservationKey(wwid, alias, vendor, product, revision string) ReservationKey {
	v, _ := r.Lookup("reservation_key", wwid, alias, vendor, product, revision)
	return ParseReservationKey(v)
}
