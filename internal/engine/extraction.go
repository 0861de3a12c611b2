package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/upstarter/engram/pkg/types"
)

type extractionPattern struct {
	re         *regexp.Regexp
	confidence float64
}

var goalPatterns = []extractionPattern{
	{regexp.MustCompile(`(?i)goal:\s*(.+?)(?:\.|$)`), 0.9},
	{regexp.MustCompile(`(?i)objective:\s*(.+?)(?:\.|$)`), 0.9},
	{regexp.MustCompile(`(?i)primary goal[:\s]+(.+?)(?:\.|$)`), 0.9},
	{regexp.MustCompile(`(?i)aiming to\s+(.+?)(?:\.|$)`), 0.7},
}

var blockerPatterns = []extractionPattern{
	{regexp.MustCompile(`(?i)blocker:\s*(.+?)(?:\.|$)`), 0.9},
	{regexp.MustCompile(`(?i)blocked by\s+(.+?)(?:\.|$)`), 0.8},
	{regexp.MustCompile(`(?i)obstacle:\s*(.+?)(?:\.|$)`), 0.8},
	{regexp.MustCompile(`(?i)stuck on\s+(.+?)(?:\.|$)`), 0.7},
	{regexp.MustCompile(`(?i)prevents?\s+(.+?)(?:\.|$)`), 0.7},
}

var patternPatterns = []extractionPattern{
	{regexp.MustCompile(`(?i)pattern:\s*(.+?)(?:\.|$)`), 0.8},
	{regexp.MustCompile(`(?i)approach:\s*(.+?)(?:\.|$)`), 0.7},
	{regexp.MustCompile(`(?i)best practice:\s*(.+?)(?:\.|$)`), 0.8},
}

// relationshipKeywords maps a content phrase to the relation type it
// implies, in the order it should be checked (§4.5.4). Go maps don't
// preserve iteration order, so this is a slice of pairs rather than a map.
var relationshipKeywords = []struct {
	keyword string
	relType types.RelationType
}{
	{"because", types.RelMotivatedBy},
	{"motivated by", types.RelMotivatedBy},
	{"caused by", types.RelCausedBy},
	{"results in", types.RelResultedIn},
	{"leads to", types.RelResultedIn},
	{"blocks", types.RelBlocks},
	{"prevents", types.RelBlocks},
	{"enables", types.RelEnables},
	{"unlocks", types.RelEnables},
	{"requires", types.RelRequires},
	{"needs", types.RelRequires},
	{"depends on", types.RelDependsOn},
	{"supersedes", types.RelSupersedes},
	{"replaces", types.RelSupersedes},
	{"instead of", types.RelSupersedes},
	{"evolved from", types.RelEvolvedFrom},
	{"contradicts", types.RelContradicts},
	{"conflicts with", types.RelContradicts},
	{"reinforces", types.RelReinforces},
	{"supports", types.RelReinforces},
	{"similar to", types.RelSimilarTo},
}

// entityRelationPattern captures whatever follows a relationship keyword,
// stopping at a quote, period, or comma, for the keyword-target scan.
func entityRelationPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)%s\s+["']?([^"'.,]+)["']?`, regexp.QuoteMeta(keyword)))
}

var candidateEntityTypes = []types.EntityType{
	types.EntityTypeGoal, types.EntityTypeBlocker, types.EntityTypePattern,
	types.EntityTypeTool, types.EntityTypeConcept,
}

// autoExtract scans a freshly-remembered memory's content for goal,
// blocker, and pattern mentions, and for free-text relationship keywords
// referencing an already-known entity, adding graph entities and edges
// for whatever it finds (§4.5.4). Best-effort: every error here is
// swallowed by the caller, which only logs.
func (e *Engine) autoExtract(ctx context.Context, memory *types.Memory) error {
	contentLower := strings.ToLower(memory.Content)

	for _, p := range goalPatterns {
		if err := e.extractEntityMatches(p, contentLower, memory.ID, types.EntityTypeGoal, types.RelMotivatedBy); err != nil {
			return err
		}
	}
	for _, p := range blockerPatterns {
		if err := e.extractEntityMatches(p, contentLower, memory.ID, types.EntityTypeBlocker, types.RelBlockedBy); err != nil {
			return err
		}
	}
	if memory.MemoryType == types.MemoryTypeSolution || memory.MemoryType == types.MemoryTypePattern {
		for _, p := range patternPatterns {
			if err := e.extractEntityMatches(p, contentLower, memory.ID, types.EntityTypePattern, types.RelExampleOf); err != nil {
				return err
			}
		}
	}

	for _, rk := range relationshipKeywords {
		if !strings.Contains(contentLower, rk.keyword) {
			continue
		}
		matches := entityRelationPattern(rk.keyword).FindStringSubmatch(contentLower)
		if matches == nil {
			continue
		}
		targetName := strings.TrimSpace(matches[1])
		if len(targetName) > 50 {
			targetName = targetName[:50]
		}
		if len(targetName) <= 3 {
			continue
		}
		slug := types.Slugify(targetName)
		for _, et := range candidateEntityTypes {
			targetID := fmt.Sprintf("entity:%s:%s", et, slug)
			if _, ok := e.graph.Node(targetID); !ok {
				continue
			}
			if err := e.Link(memory.ID, targetID, rk.relType, 1.0, 0.6, memory.ID, false); err != nil {
				return err
			}
			break
		}
	}

	return nil
}

// extractEntityMatches runs pattern against content, capped at 2 matches,
// adding an entity (length 6-50 chars after trimming) and a relationship
// edge from memID to it for each hit.
func (e *Engine) extractEntityMatches(p extractionPattern, contentLower, memID string, entityType types.EntityType, relType types.RelationType) error {
	matches := p.re.FindAllStringSubmatch(contentLower, -1)
	count := 0
	for _, m := range matches {
		if count >= 2 {
			break
		}
		count++
		name := strings.TrimSpace(m[1])
		if len(name) > 50 {
			name = name[:50]
		}
		if len(name) <= 5 {
			continue
		}
		entityID, err := e.AddEntity(entityType, name, types.EntityStatusActive, "", "")
		if err != nil {
			return err
		}
		if err := e.Link(memID, entityID, relType, 1.0, p.confidence, memID, false); err != nil {
			return err
		}
	}
	return nil
}
