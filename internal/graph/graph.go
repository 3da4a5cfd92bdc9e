// Package graph provides the Neo4j storage layer for the context graph.
//
// All entities are labeled nodes keyed by a string id and written with
// MERGE upsert semantics: repeated creation merges properties instead of
// duplicating nodes. Relationships are created with MATCH + MERGE, so an
// edge between two existing nodes is idempotent and an edge whose endpoint
// is missing silently matches nothing.
//
// Every operation accepts an optional logical database name for
// multi-tenancy; an empty name falls back to the store's default database.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrNotFound is returned when a requested node does not exist.
var ErrNotFound = errors.New("graph: not found")

// Node labels.
const (
	LabelDecision       = "Decision"
	LabelActor          = "Actor"
	LabelEvidence       = "Evidence"
	LabelPolicy         = "Policy"
	LabelPolicyCategory = "PolicyCategory"
	LabelApproval       = "Approval"
)

// Relationship types.
const (
	RelMade        = "MADE"
	RelJustifiedBy = "JUSTIFIED_BY"
	RelOverrides   = "OVERRIDES"
	RelFollows     = "FOLLOWS"
	RelApproved    = "APPROVED"
	RelPartOf      = "PART_OF"
	RelSupersedes  = "SUPERSEDES"
)

// Config holds connection settings for the graph store.
type Config struct {
	URI         string
	Username    string
	Password    string
	Database    string // Default logical database. Empty = server default.
	Timeout     time.Duration
	MaxPoolSize int
}

// Store wraps a Neo4j driver with typed create/link/query operations.
// Safe for concurrent use; every call is a remote round trip with no
// local caching.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// New connects to Neo4j and verifies connectivity. A connection or auth
// failure here is a configuration error and should abort startup.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph: NEO4J_URI is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}

	return &Store{
		driver:   driver,
		database: cfg.Database,
		logger:   logger,
	}, nil
}

// Ping checks connectivity to the store.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close shuts down the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// session opens a session against the requested logical database,
// falling back to the store default when database is empty.
func (s *Store) session(ctx context.Context, database string, mode neo4j.AccessMode) neo4j.SessionWithContext {
	if database == "" {
		database = s.database
	}
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: database,
	})
}

// write runs a single Cypher statement in a managed write transaction.
func (s *Store) write(ctx context.Context, database, cypher string, params map[string]any) error {
	session := s.session(ctx, database, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("graph: write: %w", err)
	}
	return nil
}

// readRecords runs a Cypher statement in a managed read transaction and
// collects all records.
func (s *Store) readRecords(ctx context.Context, database, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, database, neo4j.AccessModeRead)
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("graph: read: %w", err)
	}
	recs, _ := records.([]*neo4j.Record)
	return recs, nil
}
