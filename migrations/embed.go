// Package migrations embeds graph schema files for use at runtime.
// Statements are embedded so they work regardless of working directory.
package migrations

import "embed"

// FS is the embedded schema filesystem.
// Contains all .cypher files in this directory (e.g. 001_constraints.cypher).
//
//go:embed *.cypher
var FS embed.FS
