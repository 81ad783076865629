// Package config implements the layered tunable-resolution model from
// spec.md section 4.4: per-map entry, overrides block, hardware-table
// entry, and defaults, walked highest-precedence first.
//
// Grounded on original_source/libmultipath/dict.c (the keyword-handler
// table behind defaults/overrides/devices/multipaths blocks) for the
// tunable set and clamping/rejection rules. The configuration file's own
// lexer/parser grammar is out of scope (spec.md section 1): this package
// consumes an already-parsed tree of string key/value blocks, RawLayer.
package config

import (
	"log/slog"
	"strconv"
	"strings"
)

// TriState is the yes/no/undef domain spec.md section 4.4 uses for
// booleans like user_friendly_names, retain_attached_hw_handler,
// detect_prio, deferred_remove, skip_kpartx.
type TriState int

const (
	TriUndef TriState = iota
	TriNo
	TriYes
)

func (t TriState) String() string {
	switch t {
	case TriNo:
		return "no"
	case TriYes:
		return "yes"
	default:
		return "undef"
	}
}

// ParseTriState parses "yes"/"no" (any other string, including "", leaves
// the tunable undefined and is not itself an error — callers decide
// whether an unrecognized value deserves a warning).
func ParseTriState(s string) (TriState, bool) {
	switch s {
	case "yes":
		return TriYes, true
	case "no":
		return TriNo, true
	default:
		return TriUndef, false
	}
}

// FindMultipaths is the find_multipaths enum (spec.md section 4.4).
type FindMultipaths int

const (
	FindMultipathsUndef FindMultipaths = iota
	FindMultipathsOff
	FindMultipathsOn
	FindMultipathsStrict
	FindMultipathsGreedy
	FindMultipathsSmart
)

var findMultipathsValues = map[string]FindMultipaths{
	"off":    FindMultipathsOff,
	"on":     FindMultipathsOn,
	"strict": FindMultipathsStrict,
	"greedy": FindMultipathsGreedy,
	"smart":  FindMultipathsSmart,
}

// AutoResize is the auto_resize enum.
type AutoResize int

const (
	AutoResizeUndef AutoResize = iota
	AutoResizeNever
	AutoResizeGrowOnly
	AutoResizeGrowShrink
)

var autoResizeValues = map[string]AutoResize{
	"never":       AutoResizeNever,
	"grow_only":   AutoResizeGrowOnly,
	"grow_shrink": AutoResizeGrowShrink,
}

// LogCheckerErr is the log_checker_err enum.
type LogCheckerErr int

const (
	LogCheckerErrUndef LogCheckerErr = iota
	LogCheckerErrOnce
	LogCheckerErrAlways
)

var logCheckerErrValues = map[string]LogCheckerErr{
	"once":   LogCheckerErrOnce,
	"always": LogCheckerErrAlways,
}

// QueueWithoutDaemon is the queue_without_daemon enum.
type QueueWithoutDaemon int

const (
	QueueWithoutDaemonUndef QueueWithoutDaemon = iota
	QueueWithoutDaemonNo
	QueueWithoutDaemonYes
	QueueWithoutDaemonForced
)

var queueWithoutDaemonValues = map[string]QueueWithoutDaemon{
	"no":     QueueWithoutDaemonNo,
	"yes":    QueueWithoutDaemonYes,
	"forced": QueueWithoutDaemonForced,
}

// parseEnum looks s up in values, warning and returning the zero
// ("undef") value on an unrecognized string — spec.md section 4.4:
// "unknown enum strings are rejected with a warning and leave the
// tunable undefined."
func parseEnum[T ~int](keyword, s string, values map[string]T) T {
	if v, ok := values[s]; ok {
		return v
	}
	var zero T
	if s != "" {
		slog.Warn("invalid enum value, leaving tunable undefined", "keyword", keyword, "value", s)
	}
	return zero
}

// clampInt mirrors dict.c's do_set_int: out-of-range values are clamped
// to the nearer bound with a warning rather than rejected outright.
func clampInt(keyword string, v, min, max int) int {
	if v > max {
		slog.Warn("value too large, clamping", "keyword", keyword, "value", v, "clamped_to", max)
		return max
	}
	if v < min {
		slog.Warn("value too small, clamping", "keyword", keyword, "value", v, "clamped_to", min)
		return min
	}
	return v
}

// NumTristate is the "numeric with off/0/undef tri-distinction" domain
// (fast_io_fail_tmo, eh_deadline, delay_*_checks, san_path_err_*,
// marginal_path_*, ghost_delay): Off and Undef are distinct from any
// numeric value including 0.
type NumTristate struct {
	Undef bool
	Off   bool
	Value int
}

// ParseNumTristate parses "off" into Off, "" into Undef, and anything
// else as a clamped integer via clampInt.
func ParseNumTristate(keyword, s string, min, max int) NumTristate {
	switch s {
	case "":
		return NumTristate{Undef: true}
	case "off":
		return NumTristate{Off: true}
	}
	n, ok := atoiLenient(s)
	if !ok {
		slog.Warn("invalid numeric value, leaving tunable undefined", "keyword", keyword, "value", s)
		return NumTristate{Undef: true}
	}
	return NumTristate{Value: clampInt(keyword, n, min, max)}
}

func atoiLenient(s string) (int, bool) {
	neg := false
	i := 0
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		i = 1
	}
	if i >= len(s) {
		return 0, false
	}
	n := 0
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// DevLossTmo is dev_loss_tmo's domain: a bounded integer, or Infinity
// meaning the kernel's UINT_MAX sentinel (spec.md section 4.4).
type DevLossTmo struct {
	Undef    bool
	Infinity bool
	Value    int
}

// ParseDevLossTmo parses "infinity" specially; everything else follows
// the plain numeric-with-undef rule.
func ParseDevLossTmo(s string) DevLossTmo {
	switch s {
	case "":
		return DevLossTmo{Undef: true}
	case "infinity":
		return DevLossTmo{Infinity: true}
	}
	n, ok := atoiLenient(s)
	if !ok {
		slog.Warn("invalid dev_loss_tmo value, leaving tunable undefined", "value", s)
		return DevLossTmo{Undef: true}
	}
	return DevLossTmo{Value: clampInt("dev_loss_tmo", n, 0, 2147483647)}
}

// MaxFds is max_fds' domain: a bounded integer, or Max meaning the
// kernel's nr_open.
type MaxFds struct {
	Undef bool
	Max   bool
	Value int
}

// ParseMaxFds parses "max" specially.
func ParseMaxFds(s string) MaxFds {
	switch s {
	case "":
		return MaxFds{Undef: true}
	case "max":
		return MaxFds{Max: true}
	}
	n, ok := atoiLenient(s)
	if !ok {
		slog.Warn("invalid max_fds value, leaving tunable undefined", "value", s)
		return MaxFds{Undef: true}
	}
	return MaxFds{Value: n}
}

// ReservationKey is reservation_key's domain: either the literal "file"
// sentinel (value kept in the prkeys file, spec.md section 4.9) or a
// 64-bit hex value with an optional :aptpl suffix.
type ReservationKey struct {
	Undef   bool
	UseFile bool
	KeyHex  uint64
	APTPL   bool
}

// ParseReservationKey parses the "file" sentinel and the hex[:aptpl] form.
func ParseReservationKey(s string) ReservationKey {
	if s == "" {
		return ReservationKey{Undef: true}
	}
	if s == "file" {
		return ReservationKey{UseFile: true}
	}
	aptpl := false
	hexPart := s
	if rest, ok := strings.CutSuffix(s, ":aptpl"); ok {
		aptpl = true
		hexPart = rest
	}
	v, err := strconv.ParseUint(hexPart, 16, 64)
	if err != nil {
		slog.Warn("invalid reservation_key value, leaving tunable undefined", "value", s)
		return ReservationKey{Undef: true}
	}
	return ReservationKey{KeyHex: v, APTPL: aptpl}
}
