// Package types defines the core data structures for the Engram memory system.
// These types represent memories, entities, relationships, and their metadata.
package types

// MemoryType classifies the purpose/nature of a memory. The set is open-valued:
// callers may pass any string and it is stored verbatim, but the six curated
// values below get named constants for ergonomics on the hot path (recall
// scoring, auto-extraction). IsKnownMemoryType distinguishes the curated set
// from the open "other" tail without rejecting anything.
type MemoryType string

const (
	MemoryTypeFact       MemoryType = "fact"
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeDecision   MemoryType = "decision"
	MemoryTypeSolution   MemoryType = "solution"
	MemoryTypePhilosophy MemoryType = "philosophy"
	MemoryTypePattern    MemoryType = "pattern"
)

// KnownMemoryTypes lists the curated memory_type values.
var KnownMemoryTypes = []MemoryType{
	MemoryTypeFact,
	MemoryTypePreference,
	MemoryTypeDecision,
	MemoryTypeSolution,
	MemoryTypePhilosophy,
	MemoryTypePattern,
}

// IsKnownMemoryType reports whether t is one of the curated values.
// Unknown values are still valid memory_types; this only tells callers
// whether a type participates in the curated set (e.g. consolidation always
// produces MemoryTypePattern, auto-extraction pattern edges only fire for
// solution/pattern memories).
func IsKnownMemoryType(t MemoryType) bool {
	for _, k := range KnownMemoryTypes {
		if k == t {
			return true
		}
	}
	return false
}

// MemoryStatus is the lifecycle status of a memory (§3 Lifecycle).
type MemoryStatus string

const (
	StatusActive       MemoryStatus = "active"
	StatusSuperseded   MemoryStatus = "superseded"
	StatusArchived     MemoryStatus = "archived"
	StatusExperimental MemoryStatus = "experimental"
)

// IsValidMemoryStatus reports whether s is one of the four lifecycle statuses.
func IsValidMemoryStatus(s MemoryStatus) bool {
	switch s {
	case StatusActive, StatusSuperseded, StatusArchived, StatusExperimental:
		return true
	}
	return false
}

// EntityType classifies an Entity graph node. Like MemoryType this is
// open-valued; the ten curated values below are what auto-extraction and
// the curated entity-name scan produce.
type EntityType string

const (
	EntityTypeProject       EntityType = "project"
	EntityTypeEpisode       EntityType = "episode"
	EntityTypePhase         EntityType = "phase"
	EntityTypeTool          EntityType = "tool"
	EntityTypeConcept       EntityType = "concept"
	EntityTypeGoal          EntityType = "goal"
	EntityTypeBlocker       EntityType = "blocker"
	EntityTypePattern       EntityType = "pattern"
	EntityTypeDecisionPoint EntityType = "decision_point"
	EntityTypePerson        EntityType = "person"
)

// KnownEntityTypes lists the curated entity_type values.
var KnownEntityTypes = []EntityType{
	EntityTypeProject,
	EntityTypeEpisode,
	EntityTypePhase,
	EntityTypeTool,
	EntityTypeConcept,
	EntityTypeGoal,
	EntityTypeBlocker,
	EntityTypePattern,
	EntityTypeDecisionPoint,
	EntityTypePerson,
}

// IsKnownEntityType reports whether t is one of the curated entity types.
func IsKnownEntityType(t EntityType) bool {
	for _, k := range KnownEntityTypes {
		if k == t {
			return true
		}
	}
	return false
}

// EntityStatus tracks the lifecycle of an entity node (e.g. a goal achieved
// or abandoned).
type EntityStatus string

const (
	EntityStatusActive    EntityStatus = "active"
	EntityStatusAchieved  EntityStatus = "achieved"
	EntityStatusAbandoned EntityStatus = "abandoned"
)

// IsValidEntityStatus reports whether s is a valid entity status.
func IsValidEntityStatus(s EntityStatus) bool {
	switch s {
	case EntityStatusActive, EntityStatusAchieved, EntityStatusAbandoned:
		return true
	}
	return false
}

// Priority is an optional entity priority marker.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// IsValidPriority reports whether p is empty (unset) or a valid priority.
func IsValidPriority(p Priority) bool {
	switch p {
	case "", PriorityP0, PriorityP1, PriorityP2:
		return true
	}
	return false
}

// CreatedBy records the provenance of a memory or edge.
type CreatedBy string

const (
	CreatedByAuto      CreatedBy = "auto"
	CreatedByAssistant CreatedBy = "assistant"
	CreatedByUser      CreatedBy = "user"
)

// RelationFamily groups the 27-label relationship vocabulary (§4.4) into
// five families for classification and stats.
type RelationFamily string

const (
	FamilyTemporal   RelationFamily = "temporal"
	FamilyCausal     RelationFamily = "causal"
	FamilyStructural RelationFamily = "structural"
	FamilyDependency RelationFamily = "dependency"
	FamilySemantic   RelationFamily = "semantic"
)

// RelationType is one of the labels in the relationship vocabulary.
type RelationType string

// The 5-family relationship vocabulary (§4.4). Every label here is
// authoritative: this list, and the reverse-pair table below, is the
// single source of truth for graph edge semantics in this system.
const (
	// Temporal
	RelSupersedes   RelationType = "supersedes"
	RelPrecedes     RelationType = "precedes"
	RelEvolvedFrom  RelationType = "evolved_from"
	RelActiveDuring RelationType = "active_during"

	// Causal
	RelCausedBy    RelationType = "caused_by"
	RelResultedIn  RelationType = "resulted_in"
	RelMotivatedBy RelationType = "motivated_by"
	RelBlockedBy   RelationType = "blocked_by"
	RelEnabledBy   RelationType = "enabled_by"
	RelTriggeredBy RelationType = "triggered_by"

	// Structural
	RelPartOf     RelationType = "part_of"
	RelContains   RelationType = "contains"
	RelInstanceOf RelationType = "instance_of"
	RelPhaseOf    RelationType = "phase_of"
	RelVersionOf  RelationType = "version_of"

	// Dependency
	RelRequires      RelationType = "requires"
	RelEnables       RelationType = "enables"
	RelBlocks        RelationType = "blocks"
	RelConflictsWith RelationType = "conflicts_with"
	RelDependsOn     RelationType = "depends_on"

	// Semantic
	RelSimilarTo  RelationType = "similar_to"
	RelRelatedTo  RelationType = "related_to"
	RelExampleOf  RelationType = "example_of"
	RelContradicts RelationType = "contradicts"
	RelReinforces RelationType = "reinforces"
	RelAppliesTo  RelationType = "applies_to"
	RelMentions   RelationType = "mentions"
)

// relationFamilies maps every relation type to its family.
var relationFamilies = map[RelationType]RelationFamily{
	RelSupersedes:   FamilyTemporal,
	RelPrecedes:     FamilyTemporal,
	RelEvolvedFrom:  FamilyTemporal,
	RelActiveDuring: FamilyTemporal,

	RelCausedBy:    FamilyCausal,
	RelResultedIn:  FamilyCausal,
	RelMotivatedBy: FamilyCausal,
	RelBlockedBy:   FamilyCausal,
	RelEnabledBy:   FamilyCausal,
	RelTriggeredBy: FamilyCausal,

	RelPartOf:     FamilyStructural,
	RelContains:   FamilyStructural,
	RelInstanceOf: FamilyStructural,
	RelPhaseOf:    FamilyStructural,
	RelVersionOf:  FamilyStructural,

	RelRequires:      FamilyDependency,
	RelEnables:       FamilyDependency,
	RelBlocks:        FamilyDependency,
	RelConflictsWith: FamilyDependency,
	RelDependsOn:     FamilyDependency,

	RelSimilarTo:   FamilySemantic,
	RelRelatedTo:   FamilySemantic,
	RelExampleOf:   FamilySemantic,
	RelContradicts: FamilySemantic,
	RelReinforces:  FamilySemantic,
	RelAppliesTo:   FamilySemantic,
	RelMentions:    FamilySemantic,
}

// reverseRelation maps a relation type to its reverse label, when the
// vocabulary defines one. Families/labels with no reverse (e.g.
// evolved_from, conflicts_with) are absent from this map.
//
// Note: RelBlocks and RelBlockedBy appear in both the Causal and
// Dependency families in the source table (§4.4); they share one
// reverse-pair entry here regardless of which family context they are
// used from.
var reverseRelation = map[RelationType]RelationType{
	RelSupersedes: RelPrecedes,
	RelPrecedes:   RelSupersedes,

	RelCausedBy:   RelResultedIn,
	RelResultedIn: RelCausedBy,
	RelBlockedBy:  RelBlocks,
	RelBlocks:     RelBlockedBy,

	RelPartOf:   RelContains,
	RelContains: RelPartOf,

	RelRequires: RelEnables,
	RelEnables:  RelRequires,
}

// ValidRelationTypes lists every relationship label across all five families.
var ValidRelationTypes = []RelationType{
	RelSupersedes, RelPrecedes, RelEvolvedFrom, RelActiveDuring,
	RelCausedBy, RelResultedIn, RelMotivatedBy, RelBlockedBy, RelEnabledBy, RelTriggeredBy,
	RelPartOf, RelContains, RelInstanceOf, RelPhaseOf, RelVersionOf,
	RelRequires, RelEnables, RelBlocks, RelConflictsWith, RelDependsOn,
	RelSimilarTo, RelRelatedTo, RelExampleOf, RelContradicts, RelReinforces, RelAppliesTo, RelMentions,
}

// IsValidRelationType reports whether r is one of the vocabulary labels.
func IsValidRelationType(r RelationType) bool {
	for _, v := range ValidRelationTypes {
		if v == r {
			return true
		}
	}
	return false
}

// FamilyOf returns the family a relation type belongs to, and false if r is
// not a recognized relation type.
func FamilyOf(r RelationType) (RelationFamily, bool) {
	f, ok := relationFamilies[r]
	return f, ok
}

// ReverseOf returns the reverse label for r, and false if the vocabulary
// defines no reverse for r.
func ReverseOf(r RelationType) (RelationType, bool) {
	rev, ok := reverseRelation[r]
	return rev, ok
}
