package algorithms

import (
	"reflect"
	"testing"
)

func TestNormalizeIdempotent(t *testing.T) {
	// P2: normalize(normalize(c)) = normalize(c)
	cycles := [][]string{
		{"a", "b", "c"},
		{"b", "c", "a"},
		{"z", "a", "m"},
		{"x"},
		{},
	}
	for _, c := range cycles {
		once := Normalize(c)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Normalize not idempotent for %v: once=%v twice=%v", c, once, twice)
		}
	}
}

func TestNormalizeRotationInvariant(t *testing.T) {
	// P2: any rotation of c normalizes to the same result.
	base := []string{"m", "a", "z", "b"}
	rotations := [][]string{
		{"m", "a", "z", "b"},
		{"a", "z", "b", "m"},
		{"z", "b", "m", "a"},
		{"b", "m", "a", "z"},
	}
	want := Normalize(base)
	for _, r := range rotations {
		if got := Normalize(r); !reflect.DeepEqual(got, want) {
			t.Errorf("Normalize(%v) = %v, want %v", r, got, want)
		}
	}
}

func TestNormalizeReversalDiffersAboveLengthTwo(t *testing.T) {
	// P2: a reversed cycle of length > 2 is not equal to the original.
	cycle := []string{"a", "b", "c"}
	reversed := []string{"a", "c", "b"}
	if reflect.DeepEqual(Normalize(cycle), Normalize(reversed)) {
		t.Errorf("Normalize should distinguish a 3-cycle from its reversal")
	}
}

func TestNormalizeReversalEqualAtLengthTwo(t *testing.T) {
	// P2: reversal IS equal when cycle length <= 2.
	cycle := []string{"a", "b"}
	reversed := []string{"b", "a"}
	if !reflect.DeepEqual(Normalize(cycle), Normalize(reversed)) {
		t.Errorf("Normalize should treat a 2-cycle and its reversal as equal")
	}
}

func TestCycleKeyDeduplicates(t *testing.T) {
	a := CycleKey([]string{"a", "b", "c"})
	b := CycleKey([]string{"b", "c", "a"})
	if a != b {
		t.Errorf("CycleKey should be identical for rotations: %q vs %q", a, b)
	}
}
