package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Graph.MaxRetries != 5 {
		t.Errorf("Graph.MaxRetries = %d, want 5", cfg.Graph.MaxRetries)
	}
	if len(cfg.Ingestion.Patterns) != 5 {
		t.Errorf("Ingestion.Patterns = %v, want 5 default language globs", cfg.Ingestion.Patterns)
	}
	if cfg.Ingestion.SecretsPolicy != "REDACT" {
		t.Errorf("Ingestion.SecretsPolicy = %q, want REDACT", cfg.Ingestion.SecretsPolicy)
	}
	if len(cfg.Detectors.DeadCodeUsagePatterns) == 0 {
		t.Error("Detectors.DeadCodeUsagePatterns should have a non-empty default list")
	}
	if cfg.Analysis.KeepMetadata {
		t.Error("Analysis.KeepMetadata should default to false")
	}
}

func TestFromEnvOverridesBase(t *testing.T) {
	t.Setenv("CODEHEALTH_GRAPH_URI", "bolt://example:7687")
	t.Setenv("CODEHEALTH_GRAPH_MAX_RETRIES", "9")
	t.Setenv("CODEHEALTH_MAX_FILE_SIZE_MB", "42")
	t.Setenv("CODEHEALTH_FOLLOW_SYMLINKS", "true")
	t.Setenv("CODEHEALTH_KEEP_METADATA", "true")

	cfg := FromEnv(Default())
	if cfg.Graph.URI != "bolt://example:7687" {
		t.Errorf("Graph.URI = %q, want overridden value", cfg.Graph.URI)
	}
	if cfg.Graph.MaxRetries != 9 {
		t.Errorf("Graph.MaxRetries = %d, want 9", cfg.Graph.MaxRetries)
	}
	if cfg.Ingestion.MaxFileSizeMB != 42 {
		t.Errorf("Ingestion.MaxFileSizeMB = %d, want 42", cfg.Ingestion.MaxFileSizeMB)
	}
	if !cfg.Ingestion.FollowSymlinks {
		t.Error("Ingestion.FollowSymlinks should be overridden to true")
	}
	if !cfg.Analysis.KeepMetadata {
		t.Error("Analysis.KeepMetadata should be overridden to true")
	}
}

func TestFromEnvLeavesUnsetFieldsAtBaseValue(t *testing.T) {
	base := Default()
	base.Graph.Database = "custom-db"
	cfg := FromEnv(base)
	if cfg.Graph.Database != "custom-db" {
		t.Errorf("Graph.Database = %q, want base value preserved when env var unset", cfg.Graph.Database)
	}
}

func TestFromEnvInvalidIntIsIgnored(t *testing.T) {
	t.Setenv("CODEHEALTH_GRAPH_MAX_RETRIES", "not-a-number")
	cfg := FromEnv(Default())
	if cfg.Graph.MaxRetries != 5 {
		t.Errorf("Graph.MaxRetries = %d, want default 5 preserved on malformed override", cfg.Graph.MaxRetries)
	}
}
