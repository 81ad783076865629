package control

import (
	"context"
	"testing"
)

func TestTableMatchesLongestPrefix(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"list"}, Handler: noop})
	tbl.Add(Command{Prefix: []string{"list", "paths"}, Handler: noop})

	cmd, tokens, ok := tbl.Match("list paths verbose")
	if !ok {
		t.Fatal("expected a match")
	}
	if len(cmd.Prefix) != 2 {
		t.Fatalf("expected the longer prefix to win, got %v", cmd.Prefix)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %v", tokens)
	}
}

func TestTableRootOnlyDerivedFromFirstKeyword(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"list", "maps"}, Handler: noop})
	tbl.Add(Command{Prefix: []string{"add", "path"}, Handler: noop})
	tbl.Add(Command{Prefix: []string{"show", "status"}, Handler: noop})

	cases := []struct {
		line     string
		rootOnly bool
	}{
		{"list maps", false},
		{"add path sda", true},
		{"show status", false},
	}
	for _, c := range cases {
		cmd, _, ok := tbl.Match(c.line)
		if !ok {
			t.Fatalf("%q: expected a match", c.line)
		}
		if cmd.RootOnly != c.rootOnly {
			t.Fatalf("%q: RootOnly = %v, want %v", c.line, cmd.RootOnly, c.rootOnly)
		}
	}
}

func TestTableNoMatch(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Command{Prefix: []string{"list", "paths"}, Handler: noop})

	if _, _, ok := tbl.Match("frobnicate"); ok {
		t.Fatal("expected no match")
	}
}

func noop(ctx context.Context, args []string) (string, error) { return "ok\n", nil }
