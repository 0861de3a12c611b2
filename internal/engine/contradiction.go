package engine

import (
	"context"
	"fmt"
	"strings"
)

// oppositionPairs is the curated list of word pairs that flag a potential
// contradiction when one appears in the new content and the other in an
// existing, similar memory (§4.5.3). Grounded on the original storage
// module's contradiction_signals table, extended with the technology-pair
// examples the spec calls out by name.
var oppositionPairs = [][2]string{
	{"don't", "do"},
	{"never", "always"},
	{"enable", "disable"},
	{"avoid", "use"},
	{"prefer", "avoid"},
	{"instead of", "use"},
	{"sqlite", "postgresql"},
	{"typescript", "javascript"},
	{"react", "vue"},
}

// negationTokens are scanned for the asymmetric-negation signal: one text
// carries a negation the other lacks (§4.5.3).
var negationTokens = []string{"not", "never", "avoid"}

// updateLikeTypes are the memory_type values for which a high-similarity
// match is flagged as "may be an update" rather than left unremarked
// (§4.5.3).
var updateLikeTypes = map[string]bool{
	"fact":       true,
	"preference": true,
	"decision":   true,
	"pattern":    true,
}

// scanContradictions implements the contradiction scan (§4.5.3): recall
// the top-10 similar active memories (optionally project-scoped), and for
// each with similarity >= 0.5, flag a conflict via opposition-pair match,
// asymmetric negation, or "very similar, may be update". This is distinct
// from the Knowledge Graph's Contradictions(memID) query, which audits
// already-stored structural state rather than gatekeeping a new write.
func (e *Engine) scanContradictions(ctx context.Context, content, project string) ([]Conflict, error) {
	opts := RecallOptions{Limit: 10, HybridSearch: true}
	if project != "" {
		opts.Project, opts.ProjectSet = project, true
	}
	candidates, err := e.Recall(ctx, content, opts)
	if err != nil {
		return nil, fmt.Errorf("contradiction scan recall: %w", err)
	}

	contentLower := strings.ToLower(content)
	var conflicts []Conflict
	for _, c := range candidates {
		if c.Similarity < 0.5 {
			continue
		}
		memLower := strings.ToLower(c.Content)

		reason := oppositionConflict(contentLower, memLower)
		if reason == "" {
			reason = negationConflict(contentLower, memLower)
		}
		if reason == "" && c.Similarity > 0.55 && updateLikeTypes[string(c.MemoryType)] {
			reason = fmt.Sprintf("very similar %s (%.0f%%) - may be an update", c.MemoryType, c.Similarity*100)
		}
		if reason == "" {
			continue
		}

		conflicts = append(conflicts, Conflict{
			Memory: memoryFromRecall(c),
			Similarity: c.Similarity,
			ConflictReason: reason,
		})
	}
	return conflicts, nil
}

func oppositionConflict(contentLower, memLower string) string {
	for _, pair := range oppositionPairs {
		a, b := pair[0], pair[1]
		if strings.Contains(contentLower, a) && strings.Contains(memLower, b) {
			return fmt.Sprintf("potential conflict: new has %q, existing has %q", a, b)
		}
		if strings.Contains(contentLower, b) && strings.Contains(memLower, a) {
			return fmt.Sprintf("potential conflict: new has %q, existing has %q", b, a)
		}
	}
	return ""
}

func negationConflict(contentLower, memLower string) string {
	for _, tok := range negationTokens {
		newHas := strings.Contains(contentLower, tok)
		oldHas := strings.Contains(memLower, tok)
		if newHas != oldHas {
			return "potential negation conflict"
		}
	}
	return ""
}
