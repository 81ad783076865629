package control

import (
	"context"
	"sort"
	"strings"
)

// Handler is a command's implementation. It receives the full tokenized
// command line (including the matched keyword prefix) and returns the
// reply body, which is written back verbatim; the handler includes the
// protocol's trailing newline itself (e.g. "ok\n"). A non-nil error
// makes the client reply "fail\n" instead.
type Handler func(ctx context.Context, args []string) (string, error)

// Command is one entry in the dispatch table.
type Command struct {
	// Prefix is the command's keyword sequence, e.g. "list paths",
	// "add path". Matching is by longest registered prefix of the
	// tokenized input line (spec.md section 4.8).
	Prefix []string
	// RequiresLock reports whether Handler needs the global vectors
	// lock held for its entire execution (spec.md section 5: "any
	// handler touching the map/path lists holds the global lock for
	// the whole handler").
	RequiresLock bool
	// RootOnly additionally restricts non-"list"/"show" commands to
	// root peers (spec.md section 4.8's ACL rule is really "first
	// keyword list/show is always allowed"; this flag exists for
	// clarity at registration sites and is derived automatically by
	// Table.Add when the first keyword isn't list/show).
	RootOnly bool
	Handler  Handler
}

// Table is the command dispatch table: commands sorted by descending
// prefix length so the longest match wins, exactly like original
// multipathd's keyword-tree lookup collapsed to a flat slice (the
// original's commands are few enough that a tree brings no benefit a
// sorted slice doesn't already give in Go).
type Table struct {
	commands []Command
}

// NewTable returns an empty dispatch table.
func NewTable() *Table {
	return &Table{}
}

// Add registers cmd, deriving RootOnly from its first keyword unless the
// caller already set it explicitly.
func (t *Table) Add(cmd Command) {
	if len(cmd.Prefix) > 0 {
		first := cmd.Prefix[0]
		if first != "list" && first != "show" {
			cmd.RootOnly = true
		}
	}
	t.commands = append(t.commands, cmd)
	sort.SliceStable(t.commands, func(i, j int) bool {
		return len(t.commands[i].Prefix) > len(t.commands[j].Prefix)
	})
}

// Match tokenizes line and returns the longest-prefix-matching command
// along with the full token list. If nothing matches it returns a nil
// command, the token list (nil for a blank line), and false.
func (t *Table) Match(line string) (*Command, []string, bool) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, nil, false
	}
	for i := range t.commands {
		cmd := &t.commands[i]
		if hasPrefix(tokens, cmd.Prefix) {
			return cmd, tokens, true
		}
	}
	return nil, tokens, false
}

func hasPrefix(tokens, prefix []string) bool {
	if len(tokens) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if tokens[i] != p {
			return false
		}
	}
	return true
}
