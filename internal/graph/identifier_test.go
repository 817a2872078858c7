package graph

import "testing"

func TestValidateIdentifier(t *testing.T) {
	// P8: only [A-Za-z0-9_-], non-empty, at most 100 chars.
	cases := []struct {
		in   string
		want bool
	}{
		{"Function", true},
		{"god_class-v2", true},
		{"", false},
		{"has space", false},
		{"semicolon;DROP TABLE", false},
		{"quote\"injected", false},
		{"back`tick", false},
		{"dot.path", false},
	}
	for _, c := range cases {
		if got := ValidateIdentifier(c.in); got != c.want {
			t.Errorf("ValidateIdentifier(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidateIdentifierLengthBoundary(t *testing.T) {
	ok := make([]byte, 100)
	for i := range ok {
		ok[i] = 'a'
	}
	if !ValidateIdentifier(string(ok)) {
		t.Error("100-char identifier should be valid")
	}
	tooLong := make([]byte, 101)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	if ValidateIdentifier(string(tooLong)) {
		t.Error("101-char identifier should be rejected")
	}
}
