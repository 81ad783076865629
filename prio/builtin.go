package prio

import (
	"context"
	"strconv"

	"github.com/sharedcode/multipathd"
)

// constClass is PRIO_CONST: every path gets the same fixed priority,
// taken from args (default 1). Grounded on original_source/libmultipath/
// prio.h's PRIO_CONST built-in.
type constClass struct{}

func (constClass) Name() string { return "const" }

func (constClass) GetPrio(_ context.Context, _ *multipath.Path, args string) (int, error) {
	if args == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil {
		return Undef, err
	}
	return n, nil
}

// weightedPathClass is PRIO_WEIGHTED_PATH: priority is read from a
// caller-supplied table passed as "name1:prio1,name2:prio2,..." in args.
// Each name is compared literally (not as a regular expression) with the
// path's device name; HCTL keys are not recognised. A path matching no
// entry falls back to Undef.
type weightedPathClass struct{}

func (weightedPathClass) Name() string { return "weightedpath" }

func (weightedPathClass) GetPrio(_ context.Context, path *multipath.Path, args string) (int, error) {
	if path == nil {
		return Undef, nil
	}
	for _, entry := range splitArgs(args) {
		key, val, ok := splitPair(entry)
		if !ok {
			continue
		}
		if key == path.Name || key == path.DevNum {
			n, err := strconv.Atoi(val)
			if err != nil {
				continue
			}
			return n, nil
		}
	}
	return Undef, nil
}

func splitArgs(args string) []string {
	var out []string
	start := 0
	for i := 0; i < len(args); i++ {
		if args[i] == ',' {
			out = append(out, args[start:i])
			start = i + 1
		}
	}
	if start < len(args) {
		out = append(out, args[start:])
	}
	return out
}

func splitPair(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func init() {
	Register(constClass{})
	Register(weightedPathClass{})
}
