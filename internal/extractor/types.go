// Package extractor implements the Language Extractor (C2): parsing one
// source file into graph entities and relationships via tree-sitter.
//
// Reference: _examples/rohankatakam-coderisk/internal/treesitter - parser
// construction, language registration, and the walk-the-AST-once entity
// extraction shape are adapted here from flat CodeEntity records (built
// for a commit-history knowledge graph) to the full File/Module/Class/
// Function/Attribute node and CONTAINS/IMPORTS/CALLS/INHERITS/OVERRIDES/
// USES relationship schema this pipeline requires.
package extractor

import (
	"github.com/opensrc/codehealth/internal/model"
)

// SecretsPolicy governs what happens when a docstring or comment is
// handed to the injected secrets scanner and a finding comes back.
type SecretsPolicy string

const (
	PolicyRedact SecretsPolicy = "REDACT"
	PolicySkip   SecretsPolicy = "SKIP"
	PolicyFail   SecretsPolicy = "FAIL"
	PolicyWarn   SecretsPolicy = "WARN"
)

// SecretsScanner is the collaborator interface the extractor dispatches
// to; the scanner implementation itself is out of scope for this core.
type SecretsScanner interface {
	Scan(text string, context string) (found bool, redacted string)
}

// noopScanner never flags anything; used when no scanner is configured.
type noopScanner struct{}

func (noopScanner) Scan(text string, _ string) (bool, string) { return false, text }

// Result is what one file extraction produces.
type Result struct {
	FilePath      string
	Language      string
	Entities      []model.Entity
	Relationships []model.Relationship
}

// Options configures a single extraction pass.
type Options struct {
	SecretsPolicy  SecretsPolicy
	Scanner        SecretsScanner
	ExportsVarName string // defaults to "__all__" for Python
}

func (o Options) scanner() SecretsScanner {
	if o.Scanner != nil {
		return o.Scanner
	}
	return noopScanner{}
}

// applySecretsPolicy dispatches a docstring/comment string through the
// configured policy, returning the text to store (possibly empty) and
// an error only for PolicyFail.
func applySecretsPolicy(opts Options, text, ctx string) (string, error) {
	if text == "" {
		return "", nil
	}
	found, redacted := opts.scanner().Scan(text, ctx)
	if !found {
		return text, nil
	}
	switch opts.SecretsPolicy {
	case PolicyRedact:
		return redacted, nil
	case PolicySkip:
		return "", nil
	case PolicyFail:
		return "", &SecretError{Context: ctx}
	case PolicyWarn:
		return text, nil
	default:
		return text, nil
	}
}

// SecretError is returned when PolicyFail matches a secret in a docstring.
type SecretError struct {
	Context string
}

func (e *SecretError) Error() string {
	return "secret detected in " + e.Context + ", aborting file under FAIL policy"
}
