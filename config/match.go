package config

import (
	"regexp"
)

// attrs is the small set of path attributes hardware-table and overrides
// entries match against — vendor/product/revision regexes, and (for
// overrides) an optional CEL predicate over the richer attribute map.
type attrs struct {
	Vendor, Product, Revision string
	WWID, Alias               string
}

func regexMatches(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

func (a attrs) matchesHardware(h HardwareEntry) bool {
	return regexMatches(h.VendorRegex, a.Vendor) &&
		regexMatches(h.ProductRegex, a.Product) &&
		regexMatches(h.RevisionRegex, a.Revision)
}

func (a attrs) toMap() map[string]any {
	return map[string]any{
		"vendor":   a.Vendor,
		"product":  a.Product,
		"revision": a.Revision,
		"wwid":     a.WWID,
		"alias":    a.Alias,
	}
}

// matchesOverride reports whether o applies to a: the regex triple must
// match, and if o carries a CEL predicate it must additionally evaluate
// truthy (nonzero) against a's attribute map.
func (o OverrideEntry) matchesOverride(a attrs, eval *predicateEvaluator) bool {
	if !regexMatches(o.VendorRegex, a.Vendor) ||
		!regexMatches(o.ProductRegex, a.Product) ||
		!regexMatches(o.RevisionRegex, a.Revision) {
		return false
	}
	if o.Predicate == "" {
		return true
	}
	if eval == nil {
		return false
	}
	result, err := eval.Evaluate(o.Predicate, a.toMap())
	if err != nil {
		return false
	}
	return result != 0
}

func (m MapEntry) matchesMap(wwid, alias string) bool {
	if m.WWID != "" && m.WWID == wwid {
		return true
	}
	if m.Alias != "" && m.Alias == alias {
		return true
	}
	return false
}
