package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/opensrc/codehealth/internal/model"
	"github.com/opensrc/codehealth/internal/errors"
	"github.com/opensrc/codehealth/internal/metrics"
)

// Neo4jStore is the production Store backed by the official Neo4j driver.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
	retry    RetryPolicy
}

// NewNeo4jStore opens a connection pool and verifies connectivity,
// failing fast on startup the way the teacher's client does.
func NewNeo4jStore(ctx context.Context, uri, user, password, database string, retry RetryPolicy) (*Neo4jStore, error) {
	if uri == "" || user == "" || password == "" {
		return nil, errors.ConfigErrorf("neo4j credentials missing: uri=%s, user=%s", uri, user)
	}
	if database == "" {
		database = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(cfg *neo4j.Config) {
			cfg.MaxConnectionPoolSize = 50
			cfg.ConnectionAcquisitionTimeout = 60 * time.Second
			cfg.MaxConnectionLifetime = time.Hour
			cfg.SocketConnectTimeout = 5 * time.Second
			cfg.SocketKeepalive = true
		})
	if err != nil {
		return nil, errors.NetworkError(err, "failed to create neo4j driver")
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.NetworkErrorf(err, "failed to connect to neo4j at %s", uri)
	}

	return &Neo4jStore{
		driver:   driver,
		database: database,
		logger:   slog.Default().With("component", "graph"),
		retry:    retry,
	}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// withRetry wraps op in the exponential-backoff retry policy. Only
// transient failures (neo4j.IsRetryable) are retried; everything else returns
// immediately.
func (s *Neo4jStore) withRetry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxRetries+1; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !neo4j.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt > s.retry.MaxRetries {
			break
		}
		metrics.RecordStoreRetry()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retry.Delay(attempt)):
		}
	}
	return errors.NetworkErrorf(lastErr, "neo4j operation unavailable after %d retries", s.retry.MaxRetries)
}

func (s *Neo4jStore) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	var rows []map[string]any
	err := s.withRetry(ctx, func() error {
		result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(s.database))
		if err != nil {
			return err
		}
		rows = make([]map[string]any, 0, len(result.Records))
		for _, rec := range result.Records {
			rows = append(rows, rec.AsMap())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Neo4jStore) GetStats(ctx context.Context) (Stats, error) {
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (f:File) WITH count(f) AS files
		MATCH (c:Class) WITH files, count(c) AS classes
		MATCH (fn:Function) WITH files, classes, count(fn) AS functions
		MATCH ()-[r]->() WHERE type(r) <> 'FLAGGED_BY'
		RETURN files, classes, functions, count(r) AS relationships
	`, nil)
	if err != nil {
		return Stats{}, err
	}
	if len(rows) == 0 {
		return Stats{}, nil
	}
	row := rows[0]
	return Stats{
		Files:         int(model.Prop(row, "files", int64(0))),
		Classes:       int(model.Prop(row, "classes", int64(0))),
		Functions:     int(model.Prop(row, "functions", int64(0))),
		Relationships: int(model.Prop(row, "relationships", int64(0))),
	}, nil
}

// InitializeSchema creates uniqueness constraints, B-tree, and full-text
// indexes. Every statement is idempotent (IF NOT EXISTS); failures are
// logged and treated as non-fatal.
func (s *Neo4jStore) InitializeSchema(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT file_path_unique IF NOT EXISTS FOR (f:File) REQUIRE f.filePath IS UNIQUE`,
		`CREATE CONSTRAINT class_qname_unique IF NOT EXISTS FOR (c:Class) REQUIRE c.qualifiedName IS UNIQUE`,
		`CREATE CONSTRAINT function_qname_unique IF NOT EXISTS FOR (fn:Function) REQUIRE fn.qualifiedName IS UNIQUE`,
		`CREATE INDEX file_qname_idx IF NOT EXISTS FOR (f:File) ON (f.qualifiedName)`,
		`CREATE INDEX class_qname_idx IF NOT EXISTS FOR (c:Class) ON (c.qualifiedName)`,
		`CREATE INDEX function_qname_idx IF NOT EXISTS FOR (fn:Function) ON (fn.qualifiedName)`,
		`CREATE INDEX file_language_idx IF NOT EXISTS FOR (f:File) ON (f.language)`,
		`CREATE FULLTEXT INDEX function_docstring_idx IF NOT EXISTS FOR (fn:Function) ON EACH [fn.docstring]`,
		`CREATE FULLTEXT INDEX class_docstring_idx IF NOT EXISTS FOR (c:Class) ON EACH [c.docstring]`,
	}
	for _, stmt := range statements {
		if _, err := s.ExecuteQuery(ctx, stmt, nil); err != nil {
			s.logger.Warn("schema statement failed, continuing", "statement", stmt, "error", err)
		}
	}
	return nil
}

// Clear issues DETACH DELETE for every node this store owns, ahead of a
// full re-ingestion.
func (s *Neo4jStore) Clear(ctx context.Context) error {
	labels := []model.NodeLabel{model.LabelFile, model.LabelModule, model.LabelClass, model.LabelFunction, model.LabelAttribute, model.LabelDetectorMetadata}
	for _, label := range labels {
		if !ValidateIdentifier(string(label)) {
			return errors.SecurityErrorf("unsafe node label: %q", label)
		}
		cypher := fmt.Sprintf(`MATCH (n:%s) DETACH DELETE n`, label)
		if _, err := s.ExecuteQuery(ctx, cypher, nil); err != nil {
			return errors.DatabaseError(err, "failed to clear graph")
		}
	}
	return nil
}
