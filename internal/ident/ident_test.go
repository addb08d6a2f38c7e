package ident

import "testing"

func TestDeriveStable(t *testing.T) {
	a := Derive("main.lume", "fun sum/body/0/cond")
	b := Derive("main.lume", "fun sum/body/0/cond")
	if a != b {
		t.Errorf("same unit and path produced different ids: %s vs %s", a, b)
	}
}

func TestDeriveDistinct(t *testing.T) {
	tests := []struct {
		unitA, pathA string
		unitB, pathB string
	}{
		{"main.lume", "fun f/body/0", "main.lume", "fun f/body/1"},
		{"main.lume", "fun f/body/0", "other.lume", "fun f/body/0"},
		{"a", "b/c", "a/b", "c"},
	}
	for _, tt := range tests {
		a := Derive(tt.unitA, tt.pathA)
		b := Derive(tt.unitB, tt.pathB)
		if a == b {
			t.Errorf("Derive(%q,%q) == Derive(%q,%q)", tt.unitA, tt.pathA, tt.unitB, tt.pathB)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := Derive("main.lume", "let x")
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("Parse(%q) failed: %s", id.String(), err)
	}
	if parsed != id {
		t.Errorf("round trip changed id: %s vs %s", parsed, id)
	}
}

func TestZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Error("Zero.IsZero() = false")
	}
	if Derive("u", "p").IsZero() {
		t.Error("derived id reported zero")
	}
}
