package bindings

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sharedcode/multipathd/internal/recordstore"
)

// CheckAndRepair implements check_and_repair (spec.md section 4.1):
// detect aliases bound to more than one WWID within the bindings file,
// and aliases that conflict with the static configuration's manual
// aliases (staticAliases, alias -> wwid from multipath.conf's
// "multipaths" block). If the file itself contains conflicting
// duplicates and is writable, it is rewritten atomically, keeping the
// first binding seen for each alias. The caller (the config package) is
// expected to null out any returned conflicting static aliases, since
// this package has no authority over static configuration state.
//
// Applying CheckAndRepair twice in succession to the same file yields
// the same file content: the second pass observes no internal
// duplicates and performs no rewrite.
func (s *Store) CheckAndRepair(ctx context.Context, staticAliases map[string]string) ([]string, error) {
	records, err := s.file().ReadAll()
	if err != nil {
		return nil, fmt.Errorf("bindings: cannot open %s for repair, fatal: %w", s.path, err)
	}

	seen := make(map[string]string, len(records))
	var order []string
	fileHasConflict := false

	for _, r := range records {
		if existingWWID, ok := seen[r.Key]; ok {
			if existingWWID != r.Value {
				fileHasConflict = true
				slog.Warn("multiple bindings for alias in bindings file, discarding later binding",
					"alias", r.Key, "kept_wwid", existingWWID, "discarded_wwid", r.Value)
			}
			continue
		}
		seen[r.Key] = r.Value
		order = append(order, r.Key)
	}

	var conflictingStatic []string
	for alias, wwid := range staticAliases {
		if fileWWID, ok := seen[alias]; ok && fileWWID != wwid {
			conflictingStatic = append(conflictingStatic, alias)
			slog.Error("alias bound to multiple wwids between bindings file and configuration",
				"alias", alias, "bindings_file_wwid", fileWWID, "config_wwid", wwid)
		}
	}
	sort.Strings(conflictingStatic)

	if !fileHasConflict {
		return conflictingStatic, nil
	}

	sort.Strings(order)
	recs := make([]recordstore.Record, 0, len(order))
	for _, alias := range order {
		recs = append(recs, recordstore.Record{Key: alias, Value: seen[alias]})
	}

	writable, err := s.file().EnsureExists(0600)
	if err != nil {
		return conflictingStatic, err
	}
	if !writable {
		slog.Error("bad settings in read-only bindings file", "path", s.path)
		return conflictingStatic, nil
	}
	if err := s.file().AtomicRewrite(recs); err != nil {
		return conflictingStatic, fmt.Errorf("bindings: repair rewrite of %s failed: %w", s.path, err)
	}
	slog.Info("updated bindings file", "path", s.path)
	return conflictingStatic, nil
}
