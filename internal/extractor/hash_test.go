package extractor

import "testing"

func TestContentHashIsStableAndSensitiveToContent(t *testing.T) {
	a := contentHash([]byte("def foo():\n    pass\n"))
	b := contentHash([]byte("def foo():\n    pass\n"))
	c := contentHash([]byte("def foo():\n    pass\n\n"))
	if a != b {
		t.Errorf("hashing the same content twice gave different results: %q vs %q", a, b)
	}
	if a == c {
		t.Error("hashing different content should not collide")
	}
}

func TestContentHashEmpty(t *testing.T) {
	if contentHash(nil) != contentHash([]byte{}) {
		t.Error("nil and empty-slice content should hash identically")
	}
}
