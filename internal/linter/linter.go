// Package linter implements the "invoke -> parse -> correlate -> emit"
// template hybrid detectors (§4.5) use to shell out to an external
// linter, parse its JSON diagnostics, and correlate each one to the
// nearest graph node by (filePath, line).
//
// Reference: _examples/other_examples/ba5eb318_shivasurya-code-pathfinder__sast-engine-output-enricher.go.go -
// Enricher.EnrichDetection's resolve-location-then-attach-metadata shape
// is the grounding source, adapted from a callgraph/FQN lookup to a
// (filePath, line) -> graph-node lookup against this repository's
// qualified-name index.
package linter

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"golang.org/x/time/rate"

	"github.com/opensrc/codehealth/internal/errors"
)

// Diagnostic is one normalized finding an external linter reports,
// after JSON decoding from whatever wire shape that tool emits.
type Diagnostic struct {
	FilePath string
	Line     int
	Rule     string
	Message  string
	Severity string
}

// Runner invokes one external linter binary and parses its JSON output
// into Diagnostics. Each Runner has its own rate.Limiter, which limits
// how often that Runner starts its subprocess; separate Runners are not
// throttled against each other.
type Runner struct {
	Command []string
	Timeout time.Duration
	Parse   func([]byte) ([]Diagnostic, error)
	limiter *rate.Limiter
}

// NewRunner builds a Runner with the given subprocess timeout, rate
// limited to maxPerSecond invocation starts per second (burst 1).
func NewRunner(command []string, timeout time.Duration, maxPerSecond float64, parse func([]byte) ([]Diagnostic, error)) *Runner {
	if maxPerSecond <= 0 {
		maxPerSecond = 4
	}
	return &Runner{
		Command: command,
		Timeout: timeout,
		Parse:   parse,
		limiter: rate.NewLimiter(rate.Limit(maxPerSecond), 1),
	}
}

// Run executes the linter against repoPath, respecting both ctx
// cancellation and the runner's own subprocess timeout (§5: "hybrid-
// detector external-tool invocations carry their own subprocess
// timeout"). Returns AlgorithmUnavailable-shaped errors are not used
// here - a missing/failing external tool is a DetectorError, since
// hybrid detectors are still "detectors" for error-taxonomy purposes.
func (r *Runner) Run(ctx context.Context, repoPath string) ([]Diagnostic, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if len(r.Command) == 0 {
		return nil, errors.DetectorError(errNoCommand{}, "hybrid-linter")
	}
	cmd := exec.CommandContext(runCtx, r.Command[0], r.Command[1:]...)
	cmd.Dir = repoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	// Many linters exit non-zero when they find diagnostics, so a
	// non-zero exit is a failure only when stdout is empty; empty stdout
	// with a clean exit means no diagnostics.
	if stdout.Len() == 0 {
		if runErr != nil {
			return nil, errors.DetectorError(runErr, "hybrid-linter")
		}
		return nil, nil
	}
	return r.Parse(stdout.Bytes())
}

type errNoCommand struct{}

func (errNoCommand) Error() string { return "no linter command configured" }

// ParseJSONArray is a Parse helper for linters that emit a flat JSON
// array of objects with file/line/rule/message/severity keys.
func ParseJSONArray(fileKey, lineKey, ruleKey, messageKey, severityKey string) func([]byte) ([]Diagnostic, error) {
	return func(data []byte) ([]Diagnostic, error) {
		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, err
		}
		out := make([]Diagnostic, 0, len(rows))
		for _, row := range rows {
			d := Diagnostic{
				FilePath: str(row[fileKey]),
				Line:     intOf(row[lineKey]),
				Rule:     str(row[ruleKey]),
				Message:  str(row[messageKey]),
				Severity: str(row[severityKey]),
			}
			out = append(out, d)
		}
		return out, nil
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func intOf(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}
