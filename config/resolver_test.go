package config

import "testing"

func TestLookupWalksLayersHighestPrecedenceFirst(t *testing.T) {
	r, err := NewResolver(
		RawLayer{"no_path_retry": "fail", "user_friendly_names": "no"},
		[]HardwareEntry{{
			VendorRegex: "^ACME$", ProductRegex: ".*",
			Values: RawLayer{"no_path_retry": "12", "user_friendly_names": "yes"},
		}},
		[]OverrideEntry{{
			VendorRegex: "^ACME$",
			Values:      RawLayer{"no_path_retry": "queue"},
		}},
		[]MapEntry{{
			WWID:   "WWID-1",
			Values: RawLayer{"no_path_retry": "5"},
		}},
	)
	if err != nil {
		t.Fatal(err)
	}

	v, ok := r.Lookup("no_path_retry", "WWID-1", "mpatha", "ACME", "WIDGET", "1.0")
	if !ok || v != "5" {
		t.Fatalf("per-map entry should win: got %q, %v", v, ok)
	}

	v, ok = r.Lookup("no_path_retry", "WWID-OTHER", "mpathb", "ACME", "WIDGET", "1.0")
	if !ok || v != "queue" {
		t.Fatalf("overrides should win over hardware-table: got %q, %v", v, ok)
	}

	v, ok = r.Lookup("user_friendly_names", "WWID-OTHER", "mpathb", "ACME", "WIDGET", "1.0")
	if !ok || v != "yes" {
		t.Fatalf("hardware-table should win over defaults: got %q, %v", v, ok)
	}

	v, ok = r.Lookup("user_friendly_names", "WWID-ELSE", "mpathc", "OTHERCO", "GADGET", "2.0")
	if !ok || v != "no" {
		t.Fatalf("defaults should apply when nothing else matches: got %q, %v", v, ok)
	}
}

func TestLookupTriStateInvalidValueWarnsAndUndef(t *testing.T) {
	r, err := NewResolver(RawLayer{"detect_prio": "maybe"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.LookupTriState("detect_prio", "W", "a", "", "", ""); got != TriUndef {
		t.Fatalf("got %v, want TriUndef", got)
	}
}

func TestLookupFindMultipathsEnum(t *testing.T) {
	r, err := NewResolver(RawLayer{"find_multipaths": "smart"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.LookupFindMultipaths("W", "a", "", "", ""); got != FindMultipathsSmart {
		t.Fatalf("got %v, want smart", got)
	}
}

func TestLookupNumTristateOffAndUndef(t *testing.T) {
	r, err := NewResolver(RawLayer{"ghost_delay": "off"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := r.LookupNumTristate("ghost_delay", "W", "a", "", "", "", 0, 600)
	if !got.Off {
		t.Fatalf("expected Off, got %+v", got)
	}

	got = r.LookupNumTristate("fast_io_fail_tmo", "W", "a", "", "", "", 0, 600)
	if !got.Undef {
		t.Fatalf("expected Undef for unset key, got %+v", got)
	}
}

func TestLookupNumTristateClamps(t *testing.T) {
	r, err := NewResolver(RawLayer{"eh_deadline": "9999"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := r.LookupNumTristate("eh_deadline", "W", "a", "", "", "", 0, 300)
	if got.Value != 300 {
		t.Fatalf("expected clamp to 300, got %d", got.Value)
	}
}

func TestLookupDevLossTmoInfinity(t *testing.T) {
	r, err := NewResolver(RawLayer{"dev_loss_tmo": "infinity"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := r.LookupDevLossTmo("W", "a", "", "", "")
	if !got.Infinity {
		t.Fatalf("expected Infinity, got %+v", got)
	}
}

func TestLookupMaxFdsMax(t *testing.T) {
	r, err := NewResolver(RawLayer{"max_fds": "max"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := r.LookupMaxFds("W", "a", "", "", "")
	if !got.Max {
		t.Fatalf("expected Max, got %+v", got)
	}
}

func TestLookupReservationKeyFileAndHex(t *testing.T) {
	r, err := NewResolver(RawLayer{"reservation_key": "file"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := r.LookupReservationKey("W", "a", "", "", "")
	if !got.UseFile {
		t.Fatalf("expected UseFile, got %+v", got)
	}

	r2, err := NewResolver(RawLayer{"reservation_key": "123abc:aptpl"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got2 := r2.LookupReservationKey("W", "a", "", "", "")
	if !got2.APTPL || got2.KeyHex != 0x123abc {
		t.Fatalf("got %+v, want hex 0x123abc with aptpl", got2)
	}
}

func TestOverridesCELPredicate(t *testing.T) {
	r, err := NewResolver(
		RawLayer{"no_path_retry": "fail"},
		nil,
		[]OverrideEntry{{
			Predicate: `attrs["vendor"] == "ACME" && attrs["product"].startsWith("FAST")`,
			Values:    RawLayer{"no_path_retry": "queue"},
		}},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}

	v, ok := r.Lookup("no_path_retry", "W", "a", "ACME", "FASTDISK", "1.0")
	if !ok || v != "queue" {
		t.Fatalf("CEL predicate should have matched: got %q, %v", v, ok)
	}

	v, ok = r.Lookup("no_path_retry", "W", "a", "ACME", "SLOWDISK", "1.0")
	if !ok || v != "fail" {
		t.Fatalf("CEL predicate should not have matched: got %q, %v", v, ok)
	}
}

func TestDeprecatedWarnsOnlyOnce(t *testing.T) {
	r, err := NewResolver(nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Deprecated("pg_timeout")
	r.Deprecated("pg_timeout")
	if _, loaded := r.warnOnce.Load("pg_timeout"); !loaded {
		t.Fatal("expected keyword to be recorded after first call")
	}
}

func TestNullifyConflictingAliases(t *testing.T) {
	maps := []MapEntry{
		{WWID: "W1", Alias: "mpatha"},
		{WWID: "W2", Alias: "mpathb"},
	}
	out := NullifyConflictingAliases(maps, []string{"mpatha"})
	if out[0].Alias != "" {
		t.Fatalf("expected conflicting alias cleared, got %q", out[0].Alias)
	}
	if out[1].Alias != "mpathb" {
		t.Fatalf("expected non-conflicting alias preserved, got %q", out[1].Alias)
	}
}
