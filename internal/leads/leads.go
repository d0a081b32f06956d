// Package leads ranks discovered entities into an investigation order.
// It owns no state: the caller supplies the discovered list and an
// investigated predicate, and gets back the leads still worth a round.
package leads

import (
	"sort"
	"strings"

	"sleuth/internal/types"
)

// normalize is the identity key for entity names, shared with the rest of
// the pipeline.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Pending returns the discovered entities not yet investigated, ordered by
// priority rank descending then discovery iteration ascending, so the
// strongest oldest leads come first.
func Pending(discovered []types.Entity, investigated func(name string) bool) []types.Entity {
	var pending []types.Entity
	for _, e := range discovered {
		if normalize(e.Name) == "" || investigated(e.Name) {
			continue
		}
		pending = append(pending, e)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority.Rank() != pending[j].Priority.Rank() {
			return pending[i].Priority.Rank() > pending[j].Priority.Rank()
		}
		return pending[i].DiscoveredAtIteration < pending[j].DiscoveredAtIteration
	})
	return pending
}

// HighPriorityPending returns the high-priority entities that are neither
// investigated nor named in excluded (the entities targeted by the round
// currently being planned). A non-empty result is the continuation
// override: the investigation keeps going for these even when confidence
// already clears the bar.
func HighPriorityPending(discovered []types.Entity, investigated func(name string) bool, excluded []string) []types.Entity {
	excludedSet := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		excludedSet[normalize(name)] = struct{}{}
	}

	var high []types.Entity
	for _, e := range Pending(discovered, investigated) {
		if e.Priority != types.PriorityHigh {
			continue
		}
		if _, ok := excludedSet[normalize(e.Name)]; ok {
			continue
		}
		high = append(high, e)
	}
	return high
}

// Top returns at most n leads from the pending order.
func Top(discovered []types.Entity, investigated func(name string) bool, n int) []types.Entity {
	pending := Pending(discovered, investigated)
	if len(pending) > n {
		pending = pending[:n]
	}
	return pending
}
