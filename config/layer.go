package config

import (
	"github.com/spf13/viper"
)

// RawLayer is a single already-parsed key/value block (one "defaults"
// stanza, one "devices/device" entry, one "overrides" stanza, one
// "multipaths/multipath" entry). Something outside this package — the
// configuration file lexer/parser (spec.md section 1, an external
// collaborator) or a test fixture — produces these from
// /etc/multipath.conf text.
type RawLayer map[string]string

// layer wraps a RawLayer in its own viper instance so lookups get
// viper's case-insensitive key handling and env-override support for
// free, without entangling the four layers' keyspaces.
type layer struct {
	v *viper.Viper
}

func newLayer(raw RawLayer) *layer {
	v := viper.New()
	for k, val := range raw {
		v.Set(k, val)
	}
	return &layer{v: v}
}

func (l *layer) get(key string) (string, bool) {
	if l == nil || !l.v.IsSet(key) {
		return "", false
	}
	return l.v.GetString(key), true
}

// HardwareEntry is one "devices/device" stanza: a vendor/product/revision
// regex triple plus its tunable overrides, matched in table order
// (spec.md section 4.4 item 3).
type HardwareEntry struct {
	VendorRegex   string
	ProductRegex  string
	RevisionRegex string
	Values        RawLayer
}

// OverrideEntry is one "overrides" stanza. Beyond vendor/product/revision
// regex matching, it may carry an optional CEL predicate for
// multi-attribute rules the regex triple can't express (spec.md's
// DOMAIN STACK: github.com/google/cel-go, grounded on teacher cel/cel.go).
type OverrideEntry struct {
	VendorRegex   string
	ProductRegex  string
	RevisionRegex string
	Predicate     string // CEL expression over attrs (path attrs); "" if unused
	Values        RawLayer
}

// MapEntry is one "multipaths/multipath" stanza, matched on WWID or alias.
type MapEntry struct {
	WWID  string
	Alias string
	Values RawLayer
}
