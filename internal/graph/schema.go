package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/DevTechJr/context-graphs/migrations"
)

// EnsureSchema applies the embedded schema statements (constraints and
// indexes) to the target database. Every statement uses IF NOT EXISTS, so
// the call is idempotent and safe to run on every startup.
func (s *Store) EnsureSchema(ctx context.Context, database string) error {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("graph: read schema files: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".cypher") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("graph: read schema file %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(data)) {
			if err := s.write(ctx, database, stmt, nil); err != nil {
				return fmt.Errorf("graph: apply schema %s: %w", name, err)
			}
		}
		s.logger.Info("schema applied", "file", name)
	}
	return nil
}

// splitStatements breaks a schema file into individual Cypher statements.
// Comment lines are dropped and statements are separated by semicolons.
// None of the embedded statements contain semicolons in string literals.
func splitStatements(src string) []string {
	var clean []string
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		clean = append(clean, line)
	}

	var stmts []string
	for _, stmt := range strings.Split(strings.Join(clean, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
