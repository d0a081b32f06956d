// Package validate recomputes fact confidence from cross-source
// corroboration. The extractor's self-reported confidence is discarded:
// the only trusted signal is keyword overlap between a claim and
// independently retrieved content, weighted by source quality.
//
// Validation is a pure function of (facts, contentItems) — given the same
// inputs it always produces the same scores.
package validate

import (
	"strings"

	"sleuth/internal/types"
)

// supportThreshold is the keyword-overlap ratio above which a content item
// counts as supporting a claim. Deliberately simple: lowercase whitespace
// tokens, no stemming.
const supportThreshold = 0.4

// maxSupportingSources caps the recorded supporter list to keep fact
// records compact.
const maxSupportingSources = 5

// Base confidence by supporter count, multiplied by the quality weight of
// the best supporting tier.
const (
	confidenceThreeSources = 0.9
	confidenceTwoSources   = 0.7
	confidenceOneSource    = 0.5
)

var qualityWeights = map[string]float64{
	"high":   1.0,
	"medium": 0.9,
	"low":    0.7,
}

// Source reliability tiers, matched by substring against the lowercased URL.
var (
	highQualityDomains = []string{
		"wikipedia.org", "reuters.com", "bloomberg.com",
		"wsj.com", "nytimes.com", "bbc.com", "forbes.com",
		".gov", ".edu",
	}
	mediumQualityDomains = []string{
		"techcrunch.com", "theverge.com", "wired.com",
		"fortune.com", "businessinsider.com", "cnbc.com",
	}
)

// Summary holds aggregate statistics from one validation pass, logged in
// the validate node's audit payload.
type Summary struct {
	TotalFacts          int     `json:"total_facts"`
	AvgConfidence       float64 `json:"avg_confidence"`
	HighConfidenceCount int     `json:"high_confidence_count"`   // >= 0.7
	MediumCount         int     `json:"medium_confidence_count"` // [0.5, 0.7)
	LowConfidenceCount  int     `json:"low_confidence_count"`    // < 0.5
	AvgSourcesPerFact   float64 `json:"avg_sources_per_fact"`
}

// AssessSourceQuality classifies a URL into a reliability tier.
func AssessSourceQuality(url string) string {
	lower := strings.ToLower(url)
	for _, domain := range highQualityDomains {
		if strings.Contains(lower, domain) {
			return "high"
		}
	}
	for _, domain := range mediumQualityDomains {
		if strings.Contains(lower, domain) {
			return "medium"
		}
	}
	return "low"
}

// baseConfidence computes the score before clamping: count score times
// quality weight.
func baseConfidence(sourceCount int, sourceQuality string) float64 {
	var countScore float64
	switch {
	case sourceCount >= 3:
		countScore = confidenceThreeSources
	case sourceCount == 2:
		countScore = confidenceTwoSources
	default:
		countScore = confidenceOneSource
	}

	weight, ok := qualityWeights[sourceQuality]
	if !ok {
		weight = qualityWeights["low"]
	}

	score := countScore * weight
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// keywords tokenizes text into a lowercase whitespace-split set.
func keywords(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

// supports reports whether the content keywords cover more than
// supportThreshold of the claim keywords.
func supports(claimWords, contentWords map[string]struct{}) bool {
	if len(claimWords) == 0 {
		return false
	}
	overlap := 0
	for word := range claimWords {
		if _, ok := contentWords[word]; ok {
			overlap++
		}
	}
	return float64(overlap)/float64(len(claimWords)) > supportThreshold
}

// CrossReference validates one fact against all content items, returning
// a copy with recomputed confidence and supporter metadata. The input fact
// is not mutated.
func CrossReference(fact types.Fact, items []types.ContentItem, itemWords []map[string]struct{}) types.Fact {
	claimWords := keywords(fact.Claim)

	var supporting []string
	bestQuality := ""
	for i, item := range items {
		if !supports(claimWords, itemWords[i]) {
			continue
		}
		supporting = append(supporting, item.URL)

		// Optimistic tiering: one great source carries the fact
		switch AssessSourceQuality(item.URL) {
		case "high":
			bestQuality = "high"
		case "medium":
			if bestQuality != "high" {
				bestQuality = "medium"
			}
		default:
			if bestQuality == "" {
				bestQuality = "low"
			}
		}
	}
	if bestQuality == "" {
		bestQuality = "low"
	}

	validated := fact
	validated.Confidence = baseConfidence(len(supporting), bestQuality)
	validated.SourceCount = len(supporting)
	validated.SourceQuality = bestQuality
	if len(supporting) > maxSupportingSources {
		supporting = supporting[:maxSupportingSources]
	}
	validated.SupportingSources = supporting
	return validated
}

// Batch validates every fact against every content item and returns the
// validated facts plus summary statistics. Content items are tokenized
// once up front, so cost scales with facts+items rather than facts*items
// tokenizations.
func Batch(facts []types.Fact, items []types.ContentItem) ([]types.Fact, Summary) {
	itemWords := make([]map[string]struct{}, len(items))
	for i, item := range items {
		itemWords[i] = keywords(item.Text)
	}

	validated := make([]types.Fact, len(facts))
	var confidenceSum float64
	var sourceSum int
	summary := Summary{TotalFacts: len(facts)}

	for i, fact := range facts {
		v := CrossReference(fact, items, itemWords)
		validated[i] = v

		confidenceSum += v.Confidence
		sourceSum += v.SourceCount
		switch {
		case v.Confidence >= 0.7:
			summary.HighConfidenceCount++
		case v.Confidence >= 0.5:
			summary.MediumCount++
		default:
			summary.LowConfidenceCount++
		}
	}

	if len(facts) > 0 {
		summary.AvgConfidence = confidenceSum / float64(len(facts))
		summary.AvgSourcesPerFact = float64(sourceSum) / float64(len(facts))
	}
	return validated, summary
}

// OverallConfidence is the run-level aggregate: the arithmetic mean of all
// fact confidences, or 0 when no facts exist.
func OverallConfidence(facts []types.Fact) float64 {
	if len(facts) == 0 {
		return 0
	}
	var sum float64
	for _, f := range facts {
		sum += f.Confidence
	}
	return sum / float64(len(facts))
}
