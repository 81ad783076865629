package reservation

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sharedcode/multipathd/internal/recordstore"
)

const prkeysHeader = "# Multipath persistent reservation keys, Version : 1.0\n" +
	"# Do not edit this file; it is maintained by the multipathd daemon.\n"

// Store is the prkeys file (spec.md section 4.9): "same textual
// discipline" as the bindings file (section 4.1), built on the shared
// internal/recordstore package rather than duplicating its atomic
// rewrite/flock logic or depending on the bindings package for it.
// Records are "keyhex[:aptpl] wwid" lines.
type Store struct {
	path string
}

// New returns a prkeys Store rooted at path.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) file() *recordstore.File {
	return recordstore.New(s.path, prkeysHeader)
}

// formatKey renders a key/aptpl pair in the file's on-disk form.
func formatKey(keyHex uint64, aptpl bool) string {
	if aptpl {
		return fmt.Sprintf("%x:aptpl", keyHex)
	}
	return fmt.Sprintf("%x", keyHex)
}

// Put records that wwid's persistent reservation key is keyHex (with the
// given APTPL bit), overwriting any existing entry for that WWID. This
// is the write side of spec.md section 4.9's "for register/register-and-
// ignore service actions, updates the persistent prkeys file".
func (s *Store) Put(wwid string, keyHex uint64, aptpl bool) error {
	f := s.file()
	if _, err := f.EnsureExists(0600); err != nil {
		return fmt.Errorf("ensuring prkeys file exists: %w", err)
	}
	records, err := f.ReadAll()
	if err != nil {
		return fmt.Errorf("reading prkeys file: %w", err)
	}

	newKey := formatKey(keyHex, aptpl)
	replaced := false
	for i, r := range records {
		if r.Value == wwid {
			records[i].Key = newKey
			replaced = true
		}
	}
	if !replaced {
		records = append(records, recordstore.Record{Key: newKey, Value: wwid})
	}

	if err := f.AtomicRewrite(records); err != nil {
		slog.Warn("failed to persist prkeys entry", "wwid", wwid, "err", err)
		return err
	}
	return nil
}

// Remove clears wwid's persistent reservation key entry, if any — used
// when a Clear service action succeeds on at least one path.
func (s *Store) Remove(wwid string) error {
	f := s.file()
	records, err := f.ReadAll()
	if err != nil {
		return fmt.Errorf("reading prkeys file: %w", err)
	}
	kept := records[:0]
	for _, r := range records {
		if r.Value != wwid {
			kept = append(kept, r)
		}
	}
	return f.AtomicRewrite(kept)
}

// Lookup returns the stored key/APTPL pair for wwid, if any.
func (s *Store) Lookup(wwid string) (keyHex uint64, aptpl bool, ok bool) {
	records, err := s.file().ReadAll()
	if err != nil {
		return 0, false, false
	}
	for _, r := range records {
		if r.Value == wwid {
			keyHex, aptpl = parseKey(r.Key)
			return keyHex, aptpl, true
		}
	}
	return 0, false, false
}

func parseKey(s string) (keyHex uint64, aptpl bool) {
	if rest, ok := strings.CutSuffix(s, ":aptpl"); ok {
		aptpl = true
		s = rest
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, aptpl
	}
	return v, aptpl
}
