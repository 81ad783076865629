package bindings

import (
	"fmt"
	"math"
	"strings"
)

// ValidAlias reports whether alias is acceptable as a binding target:
// it must not contain '/' (spec.md section 4.1 edge policy).
func ValidAlias(alias string) bool {
	return !strings.Contains(alias, "/")
}

// maxAliasDigits is the longest base-26 suffix that still fits a 32-bit
// signed id: 8 lowercase digits ('aaaaaaaa') overflow int32, so 7 is the
// largest the codec accepts (spec.md section 4.1: "aliases exceeding
// prefix+7 characters are rejected").
const maxAliasDigits = 7

// FormatDevname encodes id (>= 1) as prefix followed by a base-26 suffix
// using 'a'..'z', mirroring alias.c's format_devname: the suffix is
// built least-significant-digit-first by repeated "id--; digit = id%26;
// id /= 26" until id < 26, then reversed into place.
func FormatDevname(id int, prefix string) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("bindings: cannot format alias for non-positive id %d", id)
	}
	var digits []byte
	n := id
	for {
		n--
		digits = append(digits, byte('a'+n%26))
		if n < 26 {
			break
		}
		n /= 26
	}
	if len(digits) > maxAliasDigits {
		return "", fmt.Errorf("bindings: id %d needs %d digits, exceeds max %d", id, len(digits), maxAliasDigits)
	}
	// digits were appended least-significant first; reverse for the
	// correct most-significant-first order.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return prefix + string(digits), nil
}

// ScanDevname inverts FormatDevname: given an alias and the prefix that
// produced it, recovers the original id, or returns an error if alias
// does not have that prefix or its suffix isn't a valid lowercase-letter
// base-26 digit string within int range.
func ScanDevname(alias, prefix string) (int, error) {
	if prefix == "" || !strings.HasPrefix(alias, prefix) {
		return -1, fmt.Errorf("bindings: alias %q does not have prefix %q", alias, prefix)
	}
	suffix := alias[len(prefix):]
	if suffix == "" {
		return -1, fmt.Errorf("bindings: alias %q is bare prefix with no id", alias)
	}
	if len(suffix) > maxAliasDigits+1 {
		return -1, fmt.Errorf("bindings: alias %q suffix too long, would overflow int", alias)
	}

	const lastTwentySix = math.MaxInt32 / 26
	n := 0
	for _, c := range suffix {
		if c < 'a' || c > 'z' {
			return -1, fmt.Errorf("bindings: alias %q has non-lowercase digit %q", alias, c)
		}
		i := int(c - 'a')
		if n > lastTwentySix || (n == lastTwentySix && i >= math.MaxInt32%26) {
			return -1, fmt.Errorf("bindings: alias %q overflows int id range", alias)
		}
		n = n*26 + i
		n++
	}
	return n, nil
}
