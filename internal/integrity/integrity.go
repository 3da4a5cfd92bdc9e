// Package integrity provides tamper-evident content hashing for recorded
// decisions. All functions are pure and deterministic.
package integrity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// Hash version prefix. The version is carried in the stored hash so the
// encoding can evolve without invalidating existing records.
const hashV1Prefix = "v1:"

// ComputeContentHash produces a versioned SHA-256 hex digest over the
// immutable fields of a decision. The embedding is excluded: it is attached
// after creation and may be rebuilt with a different model.
func ComputeContentHash(d model.Decision) string {
	return hashV1Prefix + computeV1Hash(d)
}

// VerifyContentHash reports whether a stored hash matches the decision's
// recomputed hash. An empty or unversioned stored hash never verifies.
func VerifyContentHash(stored string, d model.Decision) bool {
	if !strings.HasPrefix(stored, hashV1Prefix) {
		return false
	}
	return stored == hashV1Prefix+computeV1Hash(d)
}

// computeV1Hash encodes each field as a 4-byte big-endian length prefix
// followed by the field bytes. Length prefixing avoids delimiter collisions
// when freeform text fields contain whatever separator would otherwise be
// used.
func computeV1Hash(d model.Decision) string {
	h := sha256.New()
	writeField := func(s string) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s))) //nolint:gosec // field lengths are bounded by request body limits
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	writeField(d.ID)
	writeField(d.Prompt)
	writeField(d.Response)
	writeField(strconv.FormatFloat(d.Confidence, 'f', 10, 64))
	writeField(d.Reasoning)
	writeField(d.PoliciesMentioned)
	writeField(strconv.FormatBool(d.UsedPrecedents))
	// Second precision matches how the store serializes timestamps, so a
	// hash computed before the write verifies after a read round trip.
	writeField(d.CreatedAt.UTC().Format(time.RFC3339))
	writeField(d.LLMModel)
	return hex.EncodeToString(h.Sum(nil))
}
