// Package analyze derives risk flags and relationship edges from the
// accumulated facts. The reasoning itself is delegated to the completion
// capability; this package's job is structuring the two prompts, parsing
// the responses, and defaulting missing fields. Results are always
// appended to state, never replace prior findings.
package analyze

import (
	"context"
	"fmt"
	"os"
	"strings"

	"sleuth/internal/ai"
	"sleuth/internal/types"
)

// maxFactsAnalyzed bounds how many of the most recent facts feed the
// analysis prompts.
const maxFactsAnalyzed = 50

// Analyzer runs risk and connection analysis through the completion
// capability's analyzer tier.
type Analyzer struct {
	client ai.Client
}

// New creates an analyzer.
func New(client ai.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Result holds one analysis round's findings.
type Result struct {
	Risks       []types.Risk
	Connections []types.Connection
}

type riskPayload struct {
	Risks []struct {
		Category             string   `json:"category"`
		Description          string   `json:"description"`
		Severity             string   `json:"severity"`
		Confidence           float64  `json:"confidence"`
		SupportingFacts      []string `json:"supporting_facts"`
		RequiresVerification bool     `json:"requires_verification"`
	} `json:"risks"`
}

type connectionPayload struct {
	Connections []struct {
		TargetEntity string  `json:"target_entity"`
		RelationType string  `json:"relationship_type"`
		Description  string  `json:"description"`
		TimePeriod   string  `json:"time_period"`
		Confidence   float64 `json:"confidence"`
		Significance string  `json:"significance"`
	} `json:"connections"`
}

// Run analyzes the most recent facts with two independent completion
// calls. Either call failing (or returning garbage) degrades to an empty
// slice for that half; the other half still lands.
func (a *Analyzer) Run(ctx context.Context, entity string, facts []types.Fact) Result {
	recent := facts
	if len(recent) > maxFactsAnalyzed {
		recent = recent[len(recent)-maxFactsAnalyzed:]
	}
	factsText := formatFacts(recent)

	return Result{
		Risks:       a.analyzeRisks(ctx, entity, factsText),
		Connections: a.mapConnections(ctx, entity, factsText),
	}
}

func (a *Analyzer) analyzeRisks(ctx context.Context, entity, factsText string) []types.Risk {
	response, err := a.client.Complete(ctx, ai.RoleAnalyzer, buildRiskPrompt(entity, factsText))
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: risk analysis failed: %v\n", err)
		return nil
	}

	parsed := ai.Parse[riskPayload](response)
	if !parsed.Success {
		fmt.Fprintf(os.Stderr, "analyze: malformed risk response: %s\n", parsed.Error)
		return nil
	}

	risks := make([]types.Risk, 0, len(parsed.Data.Risks))
	for _, r := range parsed.Data.Risks {
		description := strings.TrimSpace(r.Description)
		if description == "" {
			continue
		}
		severity := types.Severity(strings.ToLower(r.Severity))
		switch severity {
		case types.SeverityLow, types.SeverityMedium, types.SeverityHigh:
		default:
			severity = types.SeverityLow
		}
		risks = append(risks, types.Risk{
			Category:             defaultString(r.Category, "unknown"),
			Description:          description,
			Severity:             severity,
			Confidence:           clamp01(r.Confidence),
			SupportingFacts:      r.SupportingFacts,
			RequiresVerification: r.RequiresVerification,
		})
	}
	return risks
}

func (a *Analyzer) mapConnections(ctx context.Context, entity, factsText string) []types.Connection {
	response, err := a.client.Complete(ctx, ai.RoleAnalyzer, buildConnectionPrompt(entity, factsText))
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: connection mapping failed: %v\n", err)
		return nil
	}

	parsed := ai.Parse[connectionPayload](response)
	if !parsed.Success {
		fmt.Fprintf(os.Stderr, "analyze: malformed connection response: %s\n", parsed.Error)
		return nil
	}

	connections := make([]types.Connection, 0, len(parsed.Data.Connections))
	for _, c := range parsed.Data.Connections {
		target := strings.TrimSpace(c.TargetEntity)
		if target == "" {
			continue
		}
		connections = append(connections, types.Connection{
			TargetEntity: target,
			RelationType: defaultString(c.RelationType, "related"),
			Description:  c.Description,
			TimePeriod:   c.TimePeriod,
			Confidence:   clamp01(c.Confidence),
			Significance: defaultString(c.Significance, "medium"),
		})
	}
	return connections
}

// formatFacts renders facts as a bullet list for the analysis prompts.
func formatFacts(facts []types.Fact) string {
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "- [%s] %s (confidence: %.2f)\n", f.Category, f.Claim, f.Confidence)
	}
	if b.Len() == 0 {
		return "(no facts discovered yet)"
	}
	return b.String()
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func buildRiskPrompt(entity, factsText string) string {
	return fmt.Sprintf(`You are a risk analyst evaluating: %s

ALL DISCOVERED FACTS:
%s

Identify potential red flags, inconsistencies, and areas of concern.

RISK CATEGORIES TO CONSIDER:
1. legal: criminal history, lawsuits, regulatory violations
2. financial: fraud, bankruptcy, questionable financial practices
3. ethical: conflicts of interest, misrepresentation, misconduct
4. reputational: controversies, negative press, scandals
5. operational: business failures, mismanagement
6. associational: connections to problematic entities or individuals

ANALYSIS PROCESS:
1. Review all facts for concerning patterns
2. Identify inconsistencies or contradictions
3. Flag relationships with high-risk entities
4. Assess severity and credibility of each risk

OUTPUT FORMAT (JSON):
{
  "risks": [
    {
      "category": "legal|financial|ethical|reputational|operational|associational",
      "description": "Specific risk or red flag",
      "severity": "low|medium|high",
      "confidence": 0.0,
      "supporting_facts": ["Fact 1", "Fact 2"],
      "requires_verification": false
    }
  ]
}

Provide your response as valid JSON only.`, entity, factsText)
}

func buildConnectionPrompt(entity, factsText string) string {
	return fmt.Sprintf(`You are mapping the network of relationships for: %s

ALL DISCOVERED FACTS:
%s

Identify and structure all connections to other entities (people,
organizations, events).

CONNECTION TYPES:
employment, investment, personal, advisory, ownership, partnership

OUTPUT FORMAT (JSON):
{
  "connections": [
    {
      "target_entity": "Name of connected person/org",
      "relationship_type": "employment|investment|personal|advisory|ownership|partnership",
      "description": "Specific nature of connection",
      "time_period": "YYYY-YYYY or current",
      "confidence": 0.0,
      "significance": "low|medium|high"
    }
  ]
}

Provide your response as valid JSON only.`, entity, factsText)
}
