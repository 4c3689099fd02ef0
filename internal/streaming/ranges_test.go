package streaming

import "testing"

func TestResolve(t *testing.T) {
	const size = 10000

	cases := []struct {
		name   string
		header string
		want   Decision
	}{
		{"absent", "", Decision{Kind: Full}},
		{"blank", "   ", Decision{Kind: Full}},
		{"closed", "bytes=0-999", Decision{Kind: Partial, Start: 0, End: 999}},
		{"open_end", "bytes=500-", Decision{Kind: Partial, Start: 500, End: size - 1}},
		{"single_byte", "bytes=42-42", Decision{Kind: Partial, Start: 42, End: 42}},
		{"last_byte", "bytes=9999-9999", Decision{Kind: Partial, Start: 9999, End: 9999}},
		{"end_clamped", "bytes=9000-20000", Decision{Kind: Partial, Start: 9000, End: size - 1}},
		{"end_overflow_clamped", "bytes=1-99999999999999999999", Decision{Kind: Partial, Start: 1, End: size - 1}},
		{"unit_case_and_spaces", " Bytes = 10 - 20 ", Decision{Kind: Partial, Start: 10, End: 20}},
		{"start_greater_than_end", "bytes=50-10", Decision{Kind: Unsatisfiable}},
		{"start_at_size", "bytes=10000-", Decision{Kind: Unsatisfiable}},
		{"start_beyond_size", "bytes=20000-30000", Decision{Kind: Unsatisfiable}},
		{"start_overflow", "bytes=99999999999999999999-", Decision{Kind: Unsatisfiable}},
		{"suffix", "bytes=-500", Decision{Kind: Unsatisfiable}},
		{"multi_range", "bytes=0-10,20-30", Decision{Kind: Unsatisfiable}},
		{"other_unit", "items=0-10", Decision{Kind: Unsatisfiable}},
		{"no_equals", "bytes 0-10", Decision{Kind: Unsatisfiable}},
		{"no_dash", "bytes=100", Decision{Kind: Unsatisfiable}},
		{"negative_start", "bytes=--5", Decision{Kind: Unsatisfiable}},
		{"plus_sign", "bytes=+5-10", Decision{Kind: Unsatisfiable}},
		{"garbage_end", "bytes=5-x", Decision{Kind: Unsatisfiable}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.header, size); got != tc.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tc.header, got, tc.want)
			}
		})
	}
}

func TestResolve_empty_entity(t *testing.T) {
	if got := Resolve("", 0); got.Kind != Full {
		t.Errorf("absent header on empty file should be Full, got %v", got.Kind)
	}
	if got := Resolve("bytes=0-", 0); got.Kind != Unsatisfiable {
		t.Errorf("any range on empty file is unsatisfiable, got %v", got.Kind)
	}
}

func TestResolve_start_beyond_size_ignores_end(t *testing.T) {
	for _, h := range []string{"bytes=100-", "bytes=100-100", "bytes=100-5000", "bytes=150-99"} {
		if got := Resolve(h, 100); got.Kind != Unsatisfiable {
			t.Errorf("Resolve(%q, 100) = %v, want unsatisfiable", h, got.Kind)
		}
	}
}

func TestDecision_Length(t *testing.T) {
	if n := (Decision{Kind: Partial, Start: 0, End: 999}).Length(); n != 1000 {
		t.Errorf("expected 1000, got %d", n)
	}
	if n := (Decision{Kind: Full}).Length(); n != 0 {
		t.Errorf("expected 0 for full, got %d", n)
	}
}

func TestKind_String(t *testing.T) {
	if Partial.String() != "partial" || Kind(9).String() != "kind(9)" {
		t.Errorf("unexpected kind strings %s %s", Partial, Kind(9))
	}
}
