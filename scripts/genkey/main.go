// genkey generates the JWT signing secret for Context Graphs auth.
//
// Usage (run from the repo root):
//
//	go run scripts/genkey/main.go
//	go run scripts/genkey/main.go -mint agent-ai-001
//
// Writes data/jwt_secret with mode 0600. The data/ directory
// is gitignored. Export the contents as CONTEXTGRAPH_JWT_SECRET before
// starting the server; an unset secret disables auth entirely.
//
// With -mint, also issues a 24-hour token for the given actor id using the
// secret on disk, for handing to a client out of band.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DevTechJr/context-graphs/internal/auth"
)

func main() {
	mint := flag.String("mint", "", "actor id to mint a token for (requires an existing secret)")
	flag.Parse()

	dir := "data"
	secretPath := filepath.Join(dir, "jwt_secret")

	if *mint != "" {
		mintToken(secretPath, *mint)
		return
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot create %s: %v\n", dir, err)
		os.Exit(1)
	}

	// Refuse to overwrite an existing secret. Rotation invalidates every
	// live token, so it should be a deliberate act.
	if _, err := os.Stat(secretPath); err == nil {
		fmt.Fprintf(os.Stderr, "error: %s already exists; delete it first if you want to rotate the secret\n", secretPath)
		os.Exit(1)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		fmt.Fprintf(os.Stderr, "error: generate secret: %v\n", err)
		os.Exit(1)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.WriteFile(secretPath, []byte(secret+"\n"), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "error: write %s: %v\n", secretPath, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s\n", secretPath)
	fmt.Printf("export CONTEXTGRAPH_JWT_SECRET=%s\n", secret)
}

func mintToken(secretPath, actorID string) {
	data, err := os.ReadFile(secretPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read %s (run without -mint first): %v\n", secretPath, err)
		os.Exit(1)
	}
	secret := strings.TrimSpace(string(data))

	mgr := auth.NewJWTManager(secret, 24*time.Hour)
	if mgr == nil {
		fmt.Fprintf(os.Stderr, "error: %s is empty\n", secretPath)
		os.Exit(1)
	}

	token, expires, err := mgr.IssueToken(actorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token for %s (expires %s):\n%s\n", actorID, expires.UTC().Format(time.RFC3339), token)
}
