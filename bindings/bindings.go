// Package bindings implements the persistent WWID<->alias store described
// in spec.md section 4.1: linear lookup and fresh base-26 alias
// generation backed by an atomically-rewritten text file, protected by
// POSIX advisory locking so concurrent multipath(d) processes never
// interleave partial writes.
package bindings

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sharedcode/multipathd"
	"github.com/sharedcode/multipathd/internal/recordstore"
)

const fileHeader = "# Multipath bindings, Version : 1.0\n" +
	"# NOTE: this file is automatically maintained by the multipathd program.\n" +
	"# You should not need to edit this file in normal circumstances.\n" +
	"#\n" +
	"# Format:\n" +
	"# alias wwid\n" +
	"#\n"

// AliasTaken reports whether alias is already claimed outside the
// bindings file — in the reference system, by a live device-mapper map
// with a different WWID. Store.LookupAliasForWWID consults it, if set,
// while searching for a free id so generated aliases don't collide with
// state the bindings file doesn't know about yet.
type AliasTaken func(alias, wwid string) bool

// Store is a handle on one bindings file.
type Store struct {
	path   string
	prefix string

	// IsTaken is consulted while allocating a fresh id, see AliasTaken.
	// Nil means skip the check.
	IsTaken AliasTaken
}

// New returns a Store for the bindings file at path, generating aliases
// under prefix (e.g. "mpath").
func New(path, prefix string) *Store {
	return &Store{path: path, prefix: prefix}
}

func (s *Store) file() *recordstore.File {
	return recordstore.New(s.path, fileHeader)
}

// LookupWWIDForAlias returns the WWID bound to alias, or false if no
// binding exists.
func (s *Store) LookupWWIDForAlias(ctx context.Context, alias string) (string, bool, error) {
	records, err := s.file().ReadAll()
	if err != nil {
		return "", false, fmt.Errorf("bindings: cannot open %s for read, fatal: %w", s.path, err)
	}
	for _, r := range records {
		if r.Key == alias {
			return r.Value, true, nil
		}
	}
	return "", false, nil
}

// LookupAliasForWWID implements lookup_alias_for_wwid (spec.md section
// 4.1): scan for an existing binding; if none exists and readOnly is
// false, allocate the smallest free id and append a new binding.
//
// Inability to open the file for reading is fatal to the caller. In
// read-only mode the freshly formatted alias is returned without being
// recorded. When not read-only, inability to write the file is a logged
// warning rather than an error and the caller gets no alias (an empty
// string and a nil error), per the section 4.1 failure model.
//
// A Store with an empty prefix and an IsTaken hook is rejected up front
// with an ErrConfig error.
func (s *Store) LookupAliasForWWID(ctx context.Context, wwid string, readOnly bool) (string, error) {
	if s.prefix == "" && s.IsTaken != nil {
		return "", multipath.NewError(multipath.ErrConfig, wwid,
			fmt.Errorf("bindings: an alias-taken check needs a non-empty prefix"))
	}

	records, err := s.file().ReadAll()
	if err != nil {
		return "", fmt.Errorf("bindings: cannot open %s for read, fatal: %w", s.path, err)
	}

	if alias, ok := findAliasForWWID(records, wwid); ok {
		return alias, nil
	}

	id, err := s.allocateID(records, wwid)
	if err != nil {
		return "", err
	}

	alias, err := FormatDevname(id, s.prefix)
	if err != nil {
		return "", fmt.Errorf("bindings: %w", err)
	}

	if readOnly {
		return alias, nil
	}

	writable, err := s.file().EnsureExists(0600)
	if err != nil {
		return "", err
	}
	if !writable {
		slog.Warn("bindings file not writable, no alias assigned", "path", s.path, "wwid", wwid)
		return "", nil
	}
	if err := s.file().Append(alias, wwid); err != nil {
		slog.Warn("failed to append binding, no alias assigned", "path", s.path, "wwid", wwid, "error", err)
		return "", nil
	}
	return alias, nil
}

func findAliasForWWID(records []recordstore.Record, wwid string) (string, bool) {
	for _, r := range records {
		if r.Value == wwid {
			return r.Key, true
		}
	}
	return "", false
}

// allocateID ports alias.c's lookup_binding id search: walk the records,
// tracking the next candidate id, the largest id seen, and the smallest
// id seen that exceeds the candidate; if the candidate collided with
// every id up to the smallest bigger one, jump past the largest seen.
func (s *Store) allocateID(records []recordstore.Record, wwid string) (int, error) {
	id := 1
	biggestID := 1
	smallestBiggerID := math.MaxInt32

	for _, r := range records {
		currID, err := ScanDevname(r.Key, s.prefix)
		if err != nil {
			continue
		}
		if currID == id {
			if id == math.MaxInt32 {
				return 0, fmt.Errorf("bindings: %w: alias id space exhausted for prefix %q", errExhaustedIDs, s.prefix)
			}
			id++
		}
		if currID > biggestID {
			biggestID = currID
		}
		if currID > id && currID < smallestBiggerID {
			smallestBiggerID = currID
		}
	}

	if id >= smallestBiggerID {
		if biggestID == math.MaxInt32 {
			return 0, fmt.Errorf("bindings: %w: alias id space exhausted for prefix %q", errExhaustedIDs, s.prefix)
		}
		id = biggestID + 1
	}

	if s.IsTaken != nil {
		for {
			alias, err := FormatDevname(id, s.prefix)
			if err != nil {
				return 0, fmt.Errorf("bindings: %w: no ids left within the 7-digit alias limit for prefix %q", errExhaustedIDs, s.prefix)
			}
			if !s.IsTaken(alias, wwid) {
				break
			}
			if id == math.MaxInt32 {
				return 0, fmt.Errorf("bindings: %w: alias id space exhausted for prefix %q", errExhaustedIDs, s.prefix)
			}
			id++
			if id == smallestBiggerID {
				if biggestID == math.MaxInt32 {
					return 0, fmt.Errorf("bindings: %w: alias id space exhausted for prefix %q", errExhaustedIDs, s.prefix)
				}
				if biggestID >= smallestBiggerID {
					id = biggestID + 1
				}
			}
		}
	}
	return id, nil
}

// ReuseExistingAlias implements reuse_existing_alias (spec.md section
// 4.1): succeeds only if oldAlias is unbound, or already bound to wwid.
func (s *Store) ReuseExistingAlias(ctx context.Context, wwid, oldAlias string) (string, error) {
	boundWWID, found, err := s.LookupWWIDForAlias(ctx, oldAlias)
	if err != nil {
		return "", err
	}
	if found {
		if boundWWID == wwid {
			return oldAlias, nil
		}
		return "", fmt.Errorf("bindings: alias %q already bound to wwid %s, cannot reuse for %s", oldAlias, boundWWID, wwid)
	}

	if existing, ok := findAliasForWWID(mustReadAll(s), wwid); ok {
		return existing, nil
	}

	id, err := ScanDevname(oldAlias, s.prefix)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("bindings: alias %q does not decode under prefix %q: %w", oldAlias, s.prefix, err)
	}

	writable, err := s.file().EnsureExists(0600)
	if err != nil {
		return "", err
	}
	if !writable {
		return "", fmt.Errorf("bindings: %s is not writable, cannot allocate existing alias %q", s.path, oldAlias)
	}
	if err := s.file().Append(oldAlias, wwid); err != nil {
		return "", err
	}
	return oldAlias, nil
}

func mustReadAll(s *Store) []recordstore.Record {
	records, _ := s.file().ReadAll()
	return records
}

var errExhaustedIDs = fmt.Errorf("exhausted alias id space")

// IsExhaustedIDs reports whether err was returned because the alias id
// space under a prefix is exhausted (spec.md section 4.1, ResourceExhaustion).
func IsExhaustedIDs(err error) bool {
	return err != nil && strings.Contains(err.Error(), errExhaustedIDs.Error())
}
