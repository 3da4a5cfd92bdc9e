// Command loadkb seeds the graph with a policy knowledge base from JSON.
//
// With no -file flag it loads the embedded sample knowledge base, which
// covers refunds, customer service, service level, and risk policies.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/DevTechJr/context-graphs/internal/config"
	"github.com/DevTechJr/context-graphs/internal/graph"
	"github.com/DevTechJr/context-graphs/internal/model"
)

//go:embed knowledge_base.json
var sampleKB []byte

// knowledgeBase is the JSON shape the loader consumes.
type knowledgeBase struct {
	Categories []model.PolicyCategory `json:"categories"`
	Policies   []policyEntry          `json:"policies"`
}

// policyEntry is a policy plus its graph placement.
type policyEntry struct {
	model.Policy
	CategoryID string `json:"category_id,omitempty"`
	Supersedes string `json:"supersedes,omitempty"`
}

func main() {
	file := flag.String("file", "", "path to a knowledge base JSON file (default: embedded sample)")
	database := flag.String("database", "", "logical database to load into (default: store default)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(*file, *database, logger); err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}
}

func run(file, database string, logger *slog.Logger) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data := sampleKB
	if file != "" {
		data, err = os.ReadFile(file) //nolint:gosec // operator-supplied path
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
	}

	var kb knowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return fmt.Errorf("parse knowledge base: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := graph.New(ctx, graph.Config{
		URI:         cfg.Neo4jURI,
		Username:    cfg.Neo4jUsername,
		Password:    cfg.Neo4jPassword,
		Database:    cfg.Neo4jDatabase,
		Timeout:     cfg.Neo4jTimeout,
		MaxPoolSize: cfg.Neo4jMaxPool,
	}, logger)
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	defer func() { _ = store.Close(context.Background()) }()

	if err := store.EnsureSchema(ctx, database); err != nil {
		return fmt.Errorf("graph schema: %w", err)
	}

	for _, cat := range kb.Categories {
		if cat.ID == "" {
			return fmt.Errorf("category %q missing id", cat.Name)
		}
		if err := store.UpsertPolicyCategory(ctx, database, cat); err != nil {
			return fmt.Errorf("category %s: %w", cat.ID, err)
		}
		logger.Info("category loaded", "id", cat.ID, "name", cat.Name)
	}

	for _, entry := range kb.Policies {
		if entry.ID == "" {
			return fmt.Errorf("policy %q missing id", entry.Name)
		}
		if err := store.UpsertPolicy(ctx, database, entry.Policy); err != nil {
			return fmt.Errorf("policy %s: %w", entry.ID, err)
		}
		if entry.CategoryID != "" {
			if err := store.LinkPolicyPartOfCategory(ctx, database, entry.ID, entry.CategoryID); err != nil {
				return fmt.Errorf("policy %s category link: %w", entry.ID, err)
			}
		}
		if entry.Supersedes != "" {
			if err := store.LinkPolicySupersedes(ctx, database, entry.ID, entry.Supersedes); err != nil {
				return fmt.Errorf("policy %s supersedes link: %w", entry.ID, err)
			}
		}
		logger.Info("policy loaded", "id", entry.ID, "name", entry.Name, "severity", entry.Severity)
	}

	logger.Info("knowledge base loaded",
		"categories", len(kb.Categories),
		"policies", len(kb.Policies))
	return nil
}
