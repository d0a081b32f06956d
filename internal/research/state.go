// Package research drives the investigation loop: a bounded state machine
// of plan, search, extract, analyze, validate, refine rounds over one
// shared state object. State only changes through Apply, which runs a
// declarative per-field merge policy — append for collections, replace
// for scalars, with fact replacement during validation as the single
// exception.
package research

import (
	"strings"

	"sleuth/internal/types"
)

// State is the single accumulating record of one investigation run. All
// collections are append-only; see the merge policy table for the
// exceptions.
type State struct {
	Entity     string
	EntityType types.EntityType

	Iteration     int
	MaxDepth      int
	PlanningDepth int

	// PendingQueries is the write-once-per-iteration query queue: refine
	// (or plan) fills it, search drains it.
	PendingQueries  []string
	ExecutedQueries []string

	ContentItems []types.ContentItem
	Facts        []types.Fact
	Connections  []types.Connection
	Risks        []types.Risk

	// Discovered is keyed by normalized name via entityIndex; on collision
	// the higher-priority record survives in place.
	Discovered  []types.Entity
	entityIndex map[string]int

	// Investigated holds normalized names of entities whose dedicated
	// queries have been issued.
	Investigated     []string
	investigatedSeen map[string]struct{}

	InformationGaps []string

	OverallConfidence float64
	ShouldContinue    bool

	AuditTrail []types.AuditEntry
}

// NewState creates the run's initial state: empty collections,
// shouldContinue true.
func NewState(entity string, entityType types.EntityType, maxDepth int) *State {
	return &State{
		Entity:           entity,
		EntityType:       entityType,
		MaxDepth:         maxDepth,
		ShouldContinue:   true,
		entityIndex:      make(map[string]int),
		investigatedSeen: make(map[string]struct{}),
	}
}

// Update is one node's partial contribution to the state. Nil slices and
// nil pointers mean "no change"; non-nil empty slices are meaningful for
// the replace-policy fields.
type Update struct {
	// EntityType is applied only while the state's type is still unset.
	EntityType types.EntityType

	PlanningDepthDelta int
	IterationDelta     int

	// SetPending replaces the pending-query queue when HasSetPending is
	// true (search clears it with an empty slice).
	SetPending    []string
	HasSetPending bool

	ExecutedQueries []string
	ContentItems    []types.ContentItem

	// Facts appends; ValidatedFacts, when non-nil, replaces the whole fact
	// list — the validator's recomputed-confidence exception.
	Facts          []types.Fact
	ValidatedFacts []types.Fact

	Connections []types.Connection
	Risks       []types.Risk

	Entities     []types.Entity
	Investigated []string

	// InformationGaps replaces when non-nil.
	InformationGaps []string

	OverallConfidence *float64
	ShouldContinue    *bool

	Audit []types.AuditEntry
}

// mergeRule binds one state field to its merge behavior. The table below
// is the complete, ordered merge policy; Apply never touches state any
// other way.
type mergeRule struct {
	field string
	apply func(*State, *Update)
}

var mergePolicy = []mergeRule{
	{"entityType", func(s *State, u *Update) {
		if s.EntityType == "" && types.ValidEntityType(string(u.EntityType)) {
			s.EntityType = u.EntityType
		}
	}},
	{"planningDepth", func(s *State, u *Update) { s.PlanningDepth += u.PlanningDepthDelta }},
	{"iteration", func(s *State, u *Update) { s.Iteration += u.IterationDelta }},
	{"pendingQueries", func(s *State, u *Update) {
		if u.HasSetPending {
			s.PendingQueries = u.SetPending
		}
	}},
	{"executedQueries", func(s *State, u *Update) {
		s.ExecutedQueries = append(s.ExecutedQueries, u.ExecutedQueries...)
	}},
	{"contentItems", func(s *State, u *Update) {
		s.ContentItems = append(s.ContentItems, u.ContentItems...)
	}},
	{"facts", func(s *State, u *Update) {
		if u.ValidatedFacts != nil {
			s.Facts = u.ValidatedFacts
			return
		}
		s.Facts = append(s.Facts, u.Facts...)
	}},
	{"connections", func(s *State, u *Update) {
		s.Connections = append(s.Connections, u.Connections...)
	}},
	{"risks", func(s *State, u *Update) { s.Risks = append(s.Risks, u.Risks...) }},
	{"discoveredEntities", func(s *State, u *Update) {
		for _, e := range u.Entities {
			s.mergeEntity(e)
		}
	}},
	{"investigatedEntities", func(s *State, u *Update) {
		for _, name := range u.Investigated {
			s.markInvestigated(name)
		}
	}},
	{"informationGaps", func(s *State, u *Update) {
		if u.InformationGaps != nil {
			s.InformationGaps = u.InformationGaps
		}
	}},
	{"overallConfidence", func(s *State, u *Update) {
		if u.OverallConfidence != nil {
			s.OverallConfidence = *u.OverallConfidence
		}
	}},
	{"shouldContinue", func(s *State, u *Update) {
		if u.ShouldContinue != nil {
			s.ShouldContinue = *u.ShouldContinue
		}
	}},
	{"auditTrail", func(s *State, u *Update) {
		s.AuditTrail = append(s.AuditTrail, u.Audit...)
	}},
}

// Apply merges one node's update into the state by running every rule in
// the policy table. A nil update is a no-op.
func (s *State) Apply(u *Update) {
	if u == nil {
		return
	}
	for _, rule := range mergePolicy {
		rule.apply(s, u)
	}
}

// NormalizeName is the identity key for entities across the whole run.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// mergeEntity applies highest-priority-wins against any prior record for
// the same normalized name.
func (s *State) mergeEntity(e types.Entity) {
	key := NormalizeName(e.Name)
	if key == "" {
		return
	}
	if idx, ok := s.entityIndex[key]; ok {
		if e.Priority.Rank() > s.Discovered[idx].Priority.Rank() {
			s.Discovered[idx] = e
		}
		return
	}
	s.entityIndex[key] = len(s.Discovered)
	s.Discovered = append(s.Discovered, e)
}

func (s *State) markInvestigated(name string) {
	key := NormalizeName(name)
	if key == "" {
		return
	}
	if _, ok := s.investigatedSeen[key]; ok {
		return
	}
	s.investigatedSeen[key] = struct{}{}
	s.Investigated = append(s.Investigated, key)
}

// IsInvestigated reports whether the entity's dedicated queries have been
// issued.
func (s *State) IsInvestigated(name string) bool {
	_, ok := s.investigatedSeen[NormalizeName(name)]
	return ok
}

// UniqueSourceCount counts distinct content URLs collected so far.
func (s *State) UniqueSourceCount() int {
	seen := make(map[string]struct{})
	for _, item := range s.ContentItems {
		if item.URL != "" {
			seen[item.URL] = struct{}{}
		}
	}
	return len(seen)
}
