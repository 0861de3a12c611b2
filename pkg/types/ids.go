package types

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var memoryIDPattern = regexp.MustCompile(`^mem_[0-9a-f]{12}$`)

// entityIDPattern matches entity:<entity_type>:<slug>, where entity_type
// is one of the lowercase curated values and slug is lowercase
// alphanumerics/underscores.
var entityIDPattern = regexp.MustCompile(`^entity:[a-z_]+:[a-z0-9_]+$`)

// GenerateMemoryID returns a new id of the canonical form mem_<12 hex
// chars> (§3 Data model). Random bytes come from crypto/rand; on the
// exceedingly rare read failure it falls back to nothing — the caller
// gets a clear error instead of a silently weaker id.
func GenerateMemoryID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate memory id: %w", err)
	}
	return "mem_" + hex.EncodeToString(b), nil
}

// IsValidMemoryID reports whether id has the canonical mem_<12 hex> form.
func IsValidMemoryID(id string) bool {
	return memoryIDPattern.MatchString(id)
}

// EntityID deterministically derives an entity's id from its type and
// name: entity:<entity_type>:<slug>, where slug is name lowercased with
// runs of whitespace collapsed to single underscores. The same
// (entityType, name) pair always yields the same id, which is what makes
// add_entity idempotent.
func EntityID(entityType EntityType, name string) string {
	return fmt.Sprintf("entity:%s:%s", entityType, Slugify(name))
}

// Slugify lowercases s and collapses whitespace/non-alphanumeric runs
// into single underscores, trimming leading/trailing underscores.
func Slugify(s string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// IsValidEntityID reports whether id has the canonical
// entity:<entity_type>:<slug> form.
func IsValidEntityID(id string) bool {
	return entityIDPattern.MatchString(id)
}
