package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opensrc/codehealth/internal/config"
	"github.com/opensrc/codehealth/internal/graph"
)

var (
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
)

func addGraphFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&graphURI, "graph-uri", "", "Neo4j bolt URI (overrides CODEHEALTH_GRAPH_URI)")
	cmd.Flags().StringVar(&graphUser, "graph-user", "", "Neo4j user (overrides CODEHEALTH_GRAPH_USER)")
	cmd.Flags().StringVar(&graphPassword, "graph-password", "", "Neo4j password (overrides CODEHEALTH_GRAPH_PASSWORD)")
	cmd.Flags().StringVar(&graphDatabase, "graph-database", "", "Neo4j database name")
}

// openStore resolves configuration (defaults, .env, CLI flags, in that
// ascending precedence) and opens the Neo4j store.
func openStore(ctx context.Context) (*graph.Neo4jStore, *config.Config, error) {
	cfg := config.FromEnv(config.Default())
	if graphURI != "" {
		cfg.Graph.URI = graphURI
	}
	if graphUser != "" {
		cfg.Graph.User = graphUser
	}
	if graphPassword != "" {
		cfg.Graph.Password = graphPassword
	}
	if graphDatabase != "" {
		cfg.Graph.Database = graphDatabase
	}

	retry := graph.RetryPolicy{
		MaxRetries:    cfg.Graph.MaxRetries,
		BaseDelay:     cfg.Graph.RetryBaseDelay,
		BackoffFactor: cfg.Graph.RetryBackoffFactor,
	}
	store, err := graph.NewNeo4jStore(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database, retry)
	if err != nil {
		return nil, cfg, err
	}
	return store, cfg, nil
}
