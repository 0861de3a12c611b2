package engine

import (
	"math"
	"regexp"
	"strings"
)

// stopwords is the closed set used for hybrid-search keyword extraction
// (§6 "the concrete list in §4.5 is part of the contract"). Any change
// here is a recall-ranking-breaking change, same as the scoring formula
// itself.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "must": true, "shall": true, "can": true,
	"need": true, "dare": true, "ought": true, "used": true, "to": true, "of": true,
	"in": true, "for": true, "on": true, "with": true, "at": true, "by": true,
	"from": true, "as": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "above": true, "below": true, "between": true,
	"under": true, "again": true, "further": true, "then": true, "once": true,
	"here": true, "there": true, "when": true, "where": true, "why": true, "how": true,
	"all": true, "each": true, "few": true, "more": true, "most": true, "other": true,
	"some": true, "such": true, "no": true, "nor": true, "not": true, "only": true,
	"own": true, "same": true, "so": true, "than": true, "too": true, "very": true,
	"just": true, "and": true, "but": true, "if": true, "or": true, "because": true,
	"until": true, "while": true, "what": true, "which": true, "who": true, "this": true,
	"that": true, "these": true, "those": true, "am": true, "it": true, "its": true,
	"i": true, "me": true, "my": true, "we": true, "our": true, "you": true, "your": true,
	"he": true, "him": true, "his": true, "she": true, "her": true, "they": true,
	"them": true, "their": true, "best": true, "practices": true, "tips": true, "help": true,
}

var keywordTokenPattern = regexp.MustCompile(`\b[a-zA-Z0-9]+\b`)

// extractKeywords tokenizes query, lowercases it, drops stopwords and any
// token of length <= 2 (§4.5.1 step 2).
func extractKeywords(query string) []string {
	tokens := keywordTokenPattern.FindAllString(strings.ToLower(query), -1)
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) > 2 && !stopwords[t] {
			keywords = append(keywords, t)
		}
	}
	return keywords
}

// compositeScoreInput holds every input to the authoritative relevance
// formula (§4.5.2).
type compositeScoreInput struct {
	similarity  float64
	importance  float64
	accessCount int
	daysSince   float64
	keywords    []string
	content     string
	currentRole string
	sourceRole  string
	// decayRate is ln(2)/half-life-days; 0 means "use the formula's own
	// 0.023/day constant" (§4.5.2, ~30-day half-life).
	decayRate float64
}

// compositeScoreOutput breaks the score down into the named components the
// recall contract returns alongside relevance (§4.5.1 result fields).
type compositeScoreOutput struct {
	Relevance      float64
	Similarity     float64
	Freshness      float64
	RoleAffinity   float64
	KeywordBoost   float64
	KeywordMatches int
}

// computeCompositeScore implements the composite scoring formula verbatim
// (§4.5.2). This is the single scoring formula in the system: any change
// here is a semver-breaking contract change.
func computeCompositeScore(in compositeScoreInput) compositeScoreOutput {
	s := in.similarity
	if s < 0 {
		s = 0
	}
	similarityWeight := math.Pow(s, 1.3)
	decayRate := in.decayRate
	if decayRate <= 0 {
		decayRate = 0.023
	}
	decayFactor := math.Exp(-decayRate * in.daysSince)
	reinforcement := 1 + 0.1*math.Log1p(float64(in.accessCount))
	reinforcementContribution := math.Min(reinforcement*0.10, 0.12)
	importanceFactor := 0.5 + 0.5*in.importance

	keywordMatches := 0
	contentLower := strings.ToLower(in.content)
	for _, kw := range in.keywords {
		if strings.Contains(contentLower, kw) {
			keywordMatches++
		}
	}
	matchRatio := 0.0
	if len(in.keywords) > 0 {
		matchRatio = float64(keywordMatches) / float64(len(in.keywords))
	}
	keywordBoost := 1 + 0.25*matchRatio

	roleAffinity := 1.0
	if in.currentRole != "" && in.sourceRole == in.currentRole {
		roleAffinity = 1.15
	}

	baseScore := 0.55*similarityWeight + 0.15*decayFactor + reinforcementContribution
	relevance := baseScore * importanceFactor * keywordBoost * roleAffinity

	return compositeScoreOutput{
		Relevance:      relevance,
		Similarity:     s,
		Freshness:      decayFactor,
		RoleAffinity:   roleAffinity,
		KeywordBoost:   keywordBoost,
		KeywordMatches: keywordMatches,
	}
}
