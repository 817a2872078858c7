package linter

import (
	"context"
	"testing"
	"time"
)

func TestParseJSONArray(t *testing.T) {
	parse := ParseJSONArray("file", "line", "rule", "message", "severity")
	data := []byte(`[
		{"file": "a.py", "line": 12, "rule": "E501", "message": "line too long", "severity": "warning"},
		{"file": "b.py", "line": 3.0, "rule": "F401", "message": "unused import", "severity": "error"}
	]`)
	diags, err := parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(diags))
	}
	if diags[0].FilePath != "a.py" || diags[0].Line != 12 || diags[0].Rule != "E501" {
		t.Errorf("diags[0] = %+v", diags[0])
	}
	if diags[1].Line != 3 {
		t.Errorf("diags[1].Line = %d, want 3 (JSON numbers decode as float64)", diags[1].Line)
	}
}

func TestRunParsesSubprocessOutput(t *testing.T) {
	r := NewRunner(
		[]string{"sh", "-c", `echo '[{"file":"a.py","line":5,"rule":"X1","message":"m","severity":"high"}]'`},
		5*time.Second, 10,
		ParseJSONArray("file", "line", "rule", "message", "severity"),
	)
	diags, err := r.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diags) != 1 || diags[0].FilePath != "a.py" {
		t.Errorf("diags = %+v, want one diagnostic for a.py", diags)
	}
}

func TestRunEmptyStdoutWithErrorIsDetectorError(t *testing.T) {
	r := NewRunner([]string{"sh", "-c", "exit 1"}, 5*time.Second, 10, ParseJSONArray("file", "line", "rule", "message", "severity"))
	_, err := r.Run(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("expected an error when the subprocess fails with empty stdout")
	}
}

func TestRunEmptyStdoutWithoutErrorIsNoDiagnostics(t *testing.T) {
	r := NewRunner([]string{"sh", "-c", "exit 0"}, 5*time.Second, 10, ParseJSONArray("file", "line", "rule", "message", "severity"))
	diags, err := r.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("diags = %+v, want none", diags)
	}
}

func TestRunNoCommandConfigured(t *testing.T) {
	r := NewRunner(nil, time.Second, 10, ParseJSONArray("file", "line", "rule", "message", "severity"))
	_, err := r.Run(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("expected an error when no command is configured")
	}
}
