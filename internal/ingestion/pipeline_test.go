package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensrc/codehealth/internal/graph"
)

// mustWriteFile creates path (and its parent dirs) under dir with the
// given content.
func mustWriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// Scenario §8.6-adjacent: files that don't match any configured pattern,
// and files under an always-ignored directory (node_modules), never make
// it into the job list at all - only matching, non-ignored files are
// walked.
func TestIngestSkipsIgnoredDirsAndUnmatchedPatterns(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "notes.md", "plain text, not a matched pattern")
	mustWriteFile(t, dir, "notes.txt", "matches the pattern")
	mustWriteFile(t, dir, "node_modules/pkg/index.txt", "should never be walked")
	mustWriteFile(t, dir, "README.txt", "also matches the pattern")

	store := graph.NewMemoryStore()
	stats, err := Ingest(context.Background(), store, dir, Options{
		Patterns: []string{"**/*.txt"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	// node_modules/pkg/index.txt matches the pattern but must be pruned by
	// the ignored-directory walk rule before pattern matching ever runs.
	if stats.FilesWalked != 2 {
		t.Errorf("FilesWalked = %d, want 2 (node_modules contents must be pruned)", stats.FilesWalked)
	}
	// .txt has no registered language extractor, so every walked file is
	// skipped via the "skip unparseable file, continue" contract (§4.2),
	// not a fatal Ingest error.
	if stats.FilesSkipped != 2 {
		t.Errorf("FilesSkipped = %d, want 2", stats.FilesSkipped)
	}
	if stats.FilesParsed != 0 {
		t.Errorf("FilesParsed = %d, want 0", stats.FilesParsed)
	}
}

func TestIngestSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 2*1024*1024)
	for i := range big {
		big[i] = 'a'
	}
	mustWriteFile(t, dir, "huge.txt", string(big))

	store := graph.NewMemoryStore()
	stats, err := Ingest(context.Background(), store, dir, Options{
		Patterns:      []string{"**/*.txt"},
		MaxFileSizeMB: 1,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stats.FilesWalked != 1 {
		t.Errorf("FilesWalked = %d, want 1", stats.FilesWalked)
	}
	if stats.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1 (file exceeds MaxFileSizeMB)", stats.FilesSkipped)
	}
}

// Scenario §8.6: a symlink planted inside the repository that resolves
// outside the canonicalized repository root is rejected with a
// PathError, and no partial graph is written.
func TestIngestRejectsPathEscapingRepoRoot(t *testing.T) {
	outside := t.TempDir()
	mustWriteFile(t, outside, "secret.txt", "outside the repo")

	repo := t.TempDir()
	mustWriteFile(t, repo, "inside.txt", "inside the repo")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(repo, "escape.txt")); err != nil {
		t.Skipf("symlinks unsupported on this platform: %v", err)
	}

	store := graph.NewMemoryStore()
	_, err := Ingest(context.Background(), store, repo, Options{
		Patterns:       []string{"**/*.txt"},
		FollowSymlinks: true,
	})
	if err == nil {
		t.Fatalf("expected Ingest to reject a path escaping the repository root, got nil error")
	}

	stats, statErr := store.GetStats(context.Background())
	if statErr != nil {
		t.Fatalf("GetStats: %v", statErr)
	}
	if stats.Files != 0 || stats.Classes != 0 || stats.Functions != 0 {
		t.Errorf("expected no partial graph written on PathError, got %+v", stats)
	}
}

func TestIngestReportsProgress(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "a.txt", "a")
	mustWriteFile(t, dir, "b.txt", "b")

	var calls int
	var lastCurrent, lastTotal int
	store := graph.NewMemoryStore()
	_, err := Ingest(context.Background(), store, dir, Options{
		Patterns: []string{"**/*.txt"},
		Progress: func(current, total int, filename string) {
			calls++
			lastCurrent, lastTotal = current, total
		},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if calls != 2 {
		t.Errorf("progress callback invoked %d times, want 2", calls)
	}
	if lastCurrent != lastTotal {
		t.Errorf("final progress callback current=%d total=%d, want equal", lastCurrent, lastTotal)
	}
}
