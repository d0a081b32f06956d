// Package types defines the shared data model for sleuth research runs.
//
// Everything that flows through the research pipeline lives here: content
// items retrieved from the web, facts extracted from them, discovered
// entities awaiting investigation, risks, connections, and the audit trail.
// Keeping the model in one leaf package avoids import cycles between the
// pipeline stages.
package types

import "time"

// EntityType classifies the research target.
type EntityType string

const (
	EntityIndividual    EntityType = "individual"
	EntityOrganization  EntityType = "organization"
	EntityTechExecutive EntityType = "tech_executive"
	EntityPolitician    EntityType = "politician"
	EntityEntrepreneur  EntityType = "entrepreneur"
	EntityCelebrity     EntityType = "celebrity"
	EntityScientist     EntityType = "scientist"
)

// ValidEntityType reports whether s is a recognized entity type.
func ValidEntityType(s string) bool {
	switch EntityType(s) {
	case EntityIndividual, EntityOrganization, EntityTechExecutive,
		EntityPolitician, EntityEntrepreneur, EntityCelebrity, EntityScientist:
		return true
	}
	return false
}

// Priority ranks how urgently a discovered entity should be investigated.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a numeric ordering for priorities (higher = more urgent).
// Unknown priorities rank below low so malformed model output never
// displaces a real record.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// SourceKind records how a content item's text was obtained.
type SourceKind string

const (
	// SourcePrimary means the search provider returned the page text directly.
	SourcePrimary SourceKind = "primary"
	// SourceFallback means the text came from our own scrape of the URL.
	SourceFallback SourceKind = "fallback"
)

// ContentItem is one retrieved piece of web content. Items carry a stable
// ID assigned at creation so scrape enrichment can update them by lookup
// rather than by positional index.
type ContentItem struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Title      string     `json:"title,omitempty"`
	Text       string     `json:"text"`
	SourceKind SourceKind `json:"source_kind"`
	Relevance  float64    `json:"relevance"` // provider score in [0,1]
	Query      string     `json:"query,omitempty"`
}

// FactCategory buckets extracted facts for reporting.
type FactCategory string

const (
	FactBiographical  FactCategory = "biographical"
	FactProfessional  FactCategory = "professional"
	FactFinancial     FactCategory = "financial"
	FactRelationships FactCategory = "relationships"
	FactEvents        FactCategory = "events"
	FactPatterns      FactCategory = "patterns"
)

// Fact is an atomic factual claim about the target entity.
//
// Confidence is recomputed by the validator from cross-source corroboration;
// the extractor's self-reported confidence is discarded. It is the only
// field in the model that is overwritten in place rather than appended.
type Fact struct {
	Category          FactCategory `json:"category"`
	Claim             string       `json:"claim"`
	Confidence        float64      `json:"confidence"`
	SourceURL         string       `json:"source_url"`
	SupportingSources []string     `json:"supporting_sources,omitempty"`
	SourceCount       int          `json:"source_count"`
	SourceQuality     string       `json:"source_quality,omitempty"`
	IsHidden          bool         `json:"is_hidden"`
}

// Entity is a person or organization discovered during research that may
// warrant second-order investigation.
type Entity struct {
	Name                  string   `json:"name"`
	Priority              Priority `json:"priority"`
	Relationship          string   `json:"relationship"`
	DiscoveredAtIteration int      `json:"discovered_at_iteration"`
}

// Connection is a relationship edge from the target entity to another entity.
type Connection struct {
	TargetEntity string  `json:"target_entity"`
	RelationType string  `json:"relationship_type"`
	Description  string  `json:"description,omitempty"`
	TimePeriod   string  `json:"time_period,omitempty"`
	Confidence   float64 `json:"confidence"`
	Significance string  `json:"significance,omitempty"`
}

// Severity grades a risk finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Risk is a red flag or area of concern derived from the accumulated facts.
type Risk struct {
	Category             string   `json:"category"`
	Description          string   `json:"description"`
	Severity             Severity `json:"severity"`
	Confidence           float64  `json:"confidence"`
	SupportingFacts      []string `json:"supporting_facts,omitempty"`
	RequiresVerification bool     `json:"requires_verification"`
}

// AuditEntry records one node invocation in the research loop. Every node
// emits exactly one entry per invocation, success or failure; the trail is
// the system's only debugging and verification surface.
type AuditEntry struct {
	Node      string         `json:"node"`
	Iteration int            `json:"iteration"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"data,omitempty"`
}

// RunSummary is the lightweight listing record for a persisted run.
type RunSummary struct {
	ID         string    `json:"id"`
	Entity     string    `json:"entity"`
	EntityType string    `json:"entity_type"`
	Status     string    `json:"status"`
	Iterations int       `json:"iterations"`
	Confidence float64   `json:"confidence"`
	FactCount  int       `json:"fact_count"`
	CreatedAt  time.Time `json:"created_at"`
}
