package config

import "log/slog"

// NullifyConflictingAliases clears the Alias field on any per-map entry
// whose alias appears in conflicting — the list bindings.CheckAndRepair
// returns when a statically-configured alias collides with the bindings
// file (spec.md section 4.1's "a static alias repeated for two distinct
// WWIDs loses precedence to neither: it logs and is treated as if
// unset"). Called once after loading the parsed configuration tree and
// before NewResolver, so the resulting per-map layer never offers an
// alias the bindings store disagrees with.
func NullifyConflictingAliases(maps []MapEntry, conflicting []string) []MapEntry {
	if len(conflicting) == 0 {
		return maps
	}
	bad := make(map[string]bool, len(conflicting))
	for _, a := range conflicting {
		bad[a] = true
	}
	out := make([]MapEntry, len(maps))
	for i, m := range maps {
		if bad[m.Alias] {
			slog.Warn("static alias conflicts with bindings file, ignoring", "wwid", m.WWID, "alias", m.Alias)
			m.Alias = ""
		}
		out[i] = m
	}
	return out
}
