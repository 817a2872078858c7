// Package ingestion implements the Ingestion Pipeline (C3): walks a
// repository tree, invokes the Language Extractor per file, batches the
// resulting entities/relationships into the Graph Store, and reports
// progress.
//
// Reference: the fan-out-then-aggregate shape is adapted from
// _examples/rohankatakam-coderisk/internal/analysis/phase0/detector.go
// (RunPhase0's parallel-collect-then-synthesize pattern), generalized
// from git-diff analysis to whole-repository file walking.
package ingestion

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/opensrc/codehealth/internal/errors"
	"github.com/opensrc/codehealth/internal/extractor"
	"github.com/opensrc/codehealth/internal/graph"
	"github.com/opensrc/codehealth/internal/metrics"
	"github.com/opensrc/codehealth/internal/model"
)

// defaultIgnore is the set of path components the walk always rejects:
// VCS metadata, caches, virtual envs, build artifacts.
var defaultIgnore = map[string]bool{
	".git": true, "node_modules": true, "__pycache__": true,
	".venv": true, "venv": true, "dist": true, "build": true,
	".tox": true, ".mypy_cache": true, "vendor": true,
	".next": true, "target": true, ".pytest_cache": true,
}

// ProgressCallback is invoked at least once per file processed.
type ProgressCallback func(current, total int, filename string)

type Options struct {
	Patterns       []string
	FollowSymlinks bool
	MaxFileSizeMB  int
	BatchSize      int
	SecretsPolicy  extractor.SecretsPolicy
	Scanner        extractor.SecretsScanner
	Progress       ProgressCallback
	Concurrency    int
}

// Stats extends graph.Stats with ingestion-level counters not visible
// from the graph alone.
type Stats struct {
	graph.Stats
	FilesWalked  int
	FilesParsed  int
	FilesSkipped int
}

type fileJob struct {
	absPath string
	relPath string
}

type parseOutcome struct {
	relPath string
	result  *extractor.Result
	err     error
}

// Ingest walks repoPath, extracts every matching file, and loads the
// resulting graph into store. Every candidate path is checked against
// the canonicalized repository root (P7); the pipeline rejects, does
// not silently skip, a path that resolves outside it.
func Ingest(ctx context.Context, store graph.Store, repoPath string, opts Options) (Stats, error) {
	logger := slog.Default().With("component", "ingestion")
	started := time.Now()
	defer func() { metrics.ObserveIngestionSeconds(time.Since(started).Seconds()) }()

	repoRoot, err := filepath.Abs(repoPath)
	if err != nil {
		return Stats{}, errors.PathErrorf("cannot resolve repository root %s: %v", repoPath, err)
	}
	repoRoot = filepath.Clean(repoRoot)
	if resolved, err := filepath.EvalSymlinks(repoRoot); err == nil {
		repoRoot = resolved
	}

	if err := store.InitializeSchema(ctx); err != nil {
		return Stats{}, err
	}

	jobs, err := collectFiles(repoRoot, opts)
	if err != nil {
		return Stats{}, err
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	maxBytes := int64(opts.MaxFileSizeMB) * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	outcomes := make([]parseOutcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			info, err := os.Stat(job.absPath)
			if err != nil {
				outcomes[i] = parseOutcome{relPath: job.relPath, err: err}
				return nil
			}
			if info.Size() > maxBytes {
				outcomes[i] = parseOutcome{relPath: job.relPath, err: errors.ParseError(
					errFileTooLarge(info.Size(), maxBytes), job.relPath)}
				return nil
			}
			content, err := os.ReadFile(job.absPath)
			if err != nil {
				outcomes[i] = parseOutcome{relPath: job.relPath, err: err}
				return nil
			}
			result, extractErr := extractor.ExtractFile(job.relPath, content, extractor.Options{
				SecretsPolicy: opts.SecretsPolicy,
				Scanner:       opts.Scanner,
			})
			outcomes[i] = parseOutcome{relPath: job.relPath, result: result, err: extractErr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	stats.FilesWalked = len(jobs)

	var bufferedEntities []model.Entity
	var bufferedRels []model.Relationship
	flush := func() error {
		if len(bufferedEntities) == 0 && len(bufferedRels) == 0 {
			return nil
		}
		if _, err := store.BatchCreateNodes(ctx, bufferedEntities); err != nil {
			return err
		}
		if _, err := store.BatchCreateRelationships(ctx, bufferedRels); err != nil {
			return err
		}
		bufferedEntities = bufferedEntities[:0]
		bufferedRels = bufferedRels[:0]
		return nil
	}

	for i, outcome := range outcomes {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if outcome.err != nil {
			logger.Warn("skipping file", "file", outcome.relPath, "error", outcome.err)
			stats.FilesSkipped++
			metrics.RecordIngestionError()
			metrics.RecordFileSkipped()
		} else if outcome.result != nil {
			bufferedEntities = append(bufferedEntities, outcome.result.Entities...)
			bufferedRels = append(bufferedRels, outcome.result.Relationships...)
			stats.FilesParsed++
			metrics.RecordFileIngested()
			metrics.RecordEntitiesWritten(len(outcome.result.Entities))
			metrics.RecordRelationshipsWritten(len(outcome.result.Relationships))
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(outcomes), outcome.relPath)
		}
		if len(bufferedEntities) >= opts.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	graphStats, err := store.GetStats(ctx)
	if err != nil {
		return stats, err
	}
	stats.Stats = graphStats
	return stats, nil
}

func collectFiles(repoRoot string, opts Options) ([]fileJob, error) {
	var jobs []fileJob
	walkErr := filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == repoRoot {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if defaultIgnore[name] || strings.HasPrefix(name, ".") && name != "." {
				return filepath.SkipDir
			}
			return nil
		}
		isSymlink := d.Type()&fs.ModeSymlink != 0
		if !opts.FollowSymlinks && isSymlink {
			return nil
		}

		canonical, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		canonical = filepath.Clean(canonical)
		if isSymlink {
			// A followed symlink's canonical identity is its resolved
			// target, not its own path inside the repo - that's the only
			// way to catch a symlink planted inside the tree that points
			// outside the canonicalized root (P7).
			if resolved, err := filepath.EvalSymlinks(path); err == nil {
				canonical = filepath.Clean(resolved)
			}
		}
		if canonical != repoRoot && !strings.HasPrefix(canonical, repoRoot+string(os.PathSeparator)) {
			return errors.PathErrorf("candidate path %s escapes repository root %s", canonical, repoRoot)
		}

		rel, err := filepath.Rel(repoRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		matched := false
		for _, pattern := range opts.Patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				matched = true
				break
			}
		}
		if matched {
			jobs = append(jobs, fileJob{absPath: path, relPath: rel})
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return jobs, nil
}

func errFileTooLarge(size, max int64) error {
	return &fileTooLargeError{size: size, max: max}
}

type fileTooLargeError struct{ size, max int64 }

func (e *fileTooLargeError) Error() string {
	return "file exceeds maxFileSizeMB (" +
		formatBytes(e.size) + " > " + formatBytes(e.max) + ")"
}

func formatBytes(n int64) string {
	mb := float64(n) / (1024 * 1024)
	return strconv.FormatFloat(mb, 'f', 2, 64) + "MB"
}
