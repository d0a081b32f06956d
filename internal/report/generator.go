// Package report renders a finished investigation into its three output
// artifacts: a markdown report, a JSON state snapshot, and the audit
// trail (JSON plus a human-readable summary). Rendering is deterministic;
// the optional synthesizer pass only adds narrative on top.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"sleuth/internal/ai"
	"sleuth/internal/research"
	"sleuth/internal/types"
)

// Rendering caps, to keep reports readable.
const (
	maxFactsPerCategory   = 20
	maxDiagramConnections = 15
	maxSourcesListed      = 30
	maxClaimLen           = 100
)

// Fixed category order so reports are stable across runs.
var categoryOrder = []types.FactCategory{
	types.FactBiographical,
	types.FactProfessional,
	types.FactFinancial,
	types.FactRelationships,
	types.FactEvents,
	types.FactPatterns,
}

// Generator writes investigation artifacts into outputDir.
type Generator struct {
	outputDir string
	client    ai.Client
	now       func() time.Time
}

// NewGenerator creates a generator, making outputDir as needed.
func NewGenerator(outputDir string) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &Generator{outputDir: outputDir, now: time.Now}, nil
}

// WithSynthesizer enables the narrative executive summary. Without it (or
// when the synthesis call fails) the report falls back to the
// deterministic summary.
func (g *Generator) WithSynthesizer(client ai.Client) *Generator {
	g.client = client
	return g
}

// SaveReport renders the markdown report and writes it to the output
// directory, returning the file path.
func (g *Generator) SaveReport(ctx context.Context, state *research.State) (string, error) {
	content := g.Render(ctx, state)
	path := filepath.Join(g.outputDir, g.filename(state.Entity, "", "md"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("report: saved to %s\n", path)
	return path, nil
}

// Render produces the full markdown document.
func (g *Generator) Render(ctx context.Context, state *research.State) string {
	sources := uniqueSources(state)

	var b strings.Builder
	fmt.Fprintf(&b, `---
entity: %s
generated: %s
total_facts: %d
total_sources: %d
confidence: %.2f
---

`, state.Entity, g.now().Format(time.RFC3339), len(state.Facts), len(sources), state.OverallConfidence)

	fmt.Fprintf(&b, "# Research Report: %s\n\n", state.Entity)

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(g.executiveSummary(ctx, state))
	fmt.Fprintf(&b, "**Total Facts Discovered**: %d\n", len(state.Facts))
	fmt.Fprintf(&b, "**Connections Identified**: %d\n", len(state.Connections))
	fmt.Fprintf(&b, "**Risk Flags**: %d\n", len(state.Risks))
	fmt.Fprintf(&b, "**Overall Confidence**: %.0f%%\n\n", state.OverallConfidence*100)

	b.WriteString("## Key Facts\n\n")
	for _, category := range categoryOrder {
		table := FactsTable(state.Facts, category)
		if table == "" {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n", titleCase(string(category)), table)
	}

	b.WriteString("## Network & Connections\n\n")
	if diagram := ConnectionDiagram(state.Connections); diagram != "" {
		b.WriteString(diagram)
		b.WriteString("\n\n")
	} else {
		b.WriteString("_No significant connections identified_\n\n")
	}

	b.WriteString("## Risk Assessment\n\n")
	b.WriteString(RisksSection(state.Risks))
	b.WriteString("\n")

	b.WriteString("## Research Methodology\n\n")
	fmt.Fprintf(&b, "- **Queries Executed**: %d\n", len(state.ExecutedQueries))
	fmt.Fprintf(&b, "- **Sources Consulted**: %d\n", len(sources))
	fmt.Fprintf(&b, "- **Research Depth**: %d iterations\n\n", state.Iteration)

	if len(state.Discovered) > 0 {
		b.WriteString("## Discovered Entities\n\n")
		b.WriteString("| Entity | Priority | Relationship | Investigated |\n")
		b.WriteString("|--------|----------|--------------|-------------|\n")
		for _, e := range state.Discovered {
			investigated := "no"
			if state.IsInvestigated(e.Name) {
				investigated = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				e.Name, e.Priority, e.Relationship, investigated)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Sources\n\n")
	for i, source := range sources {
		if i >= maxSourcesListed {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, source)
	}

	return b.String()
}

// executiveSummary asks the synthesizer for narrative prose, falling back
// to a one-line deterministic summary.
func (g *Generator) executiveSummary(ctx context.Context, state *research.State) string {
	fallback := fmt.Sprintf("Investigation completed with %d research iterations.\n\n", state.Iteration)
	if g.client == nil {
		return fallback
	}

	response, err := g.client.Complete(ctx, ai.RoleSynthesizer, buildSynthesisPrompt(state))
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: synthesis failed, using fallback summary: %v\n", err)
		return fallback
	}
	summary := strings.TrimSpace(stripMarkdownFence(response))
	if summary == "" {
		return fallback
	}
	return summary + "\n\n"
}

// FactsTable renders one category's facts as a markdown table, empty
// string when the category has none.
func FactsTable(facts []types.Fact, category types.FactCategory) string {
	var rows []types.Fact
	for _, f := range facts {
		if f.Category == category {
			rows = append(rows, f)
		}
	}
	if len(rows) == 0 {
		return ""
	}
	if len(rows) > maxFactsPerCategory {
		rows = rows[:maxFactsPerCategory]
	}

	var b strings.Builder
	b.WriteString("| Fact | Confidence | Source |\n")
	b.WriteString("|------|------------|--------|\n")
	for _, f := range rows {
		claim := f.Claim
		if len(claim) > maxClaimLen {
			claim = claim[:maxClaimLen]
		}
		fmt.Fprintf(&b, "| %s | %.0f%% | %s |\n", claim, f.Confidence*100, sourceDomain(f.SourceURL))
	}
	return b.String()
}

// ConnectionDiagram renders the relationship network as a Mermaid graph,
// capped at maxDiagramConnections edges.
func ConnectionDiagram(connections []types.Connection) string {
	if len(connections) == 0 {
		return ""
	}
	if len(connections) > maxDiagramConnections {
		connections = connections[:maxDiagramConnections]
	}

	var b strings.Builder
	b.WriteString("```mermaid\ngraph TD\n")
	for _, conn := range connections {
		fmt.Fprintf(&b, "    TARGET -->|%s| %s\n", conn.RelationType, mermaidNode(conn.TargetEntity))
	}
	b.WriteString("```")
	return b.String()
}

// RisksSection groups risks by severity, highest first.
func RisksSection(risks []types.Risk) string {
	if len(risks) == 0 {
		return "_No significant risks identified_\n"
	}

	var b strings.Builder
	for _, severity := range []types.Severity{types.SeverityHigh, types.SeverityMedium, types.SeverityLow} {
		var group []types.Risk
		for _, r := range risks {
			if r.Severity == severity {
				group = append(group, r)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s Severity\n\n", titleCase(string(severity)))
		for _, r := range group {
			fmt.Fprintf(&b, "- **[%s]** %s\n", strings.ToUpper(r.Category), r.Description)
			fmt.Fprintf(&b, "  - Confidence: %.0f%%\n", r.Confidence*100)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildSynthesisPrompt(state *research.State) string {
	var claims strings.Builder
	for i, f := range state.Facts {
		if i >= 30 {
			break
		}
		fmt.Fprintf(&claims, "- [%s] %s (confidence %.2f)\n", f.Category, f.Claim, f.Confidence)
	}

	return fmt.Sprintf(`You are writing the executive summary of an investigation report on: %s

FINDINGS:
%s
Connections mapped: %d
Risks identified: %d

Write 2-4 paragraphs of plain prose summarizing who/what this entity is,
the most significant findings, and any notable risks. No headers, no
bullet lists, no preamble. Respond with the prose only.`,
		state.Entity, claims.String(), len(state.Connections), len(state.Risks))
}

var fenceRegexp = regexp.MustCompile("(?s)^```(?:markdown)?\\s*\n(.*?)\n```\\s*$")

// stripMarkdownFence unwraps model output wrapped in a code fence.
func stripMarkdownFence(content string) string {
	if m := fenceRegexp.FindStringSubmatch(strings.TrimSpace(content)); m != nil {
		return m[1]
	}
	return content
}

// uniqueSources returns distinct content URLs in first-seen order.
func uniqueSources(state *research.State) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, item := range state.ContentItems {
		if item.URL == "" {
			continue
		}
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		sources = append(sources, item.URL)
	}
	return sources
}

// sourceDomain shortens a URL to its host for table display.
func sourceDomain(url string) string {
	if url == "" {
		return "N/A"
	}
	parts := strings.Split(url, "/")
	if len(parts) > 2 && strings.Contains(url, "://") {
		return parts[2]
	}
	return url
}

func mermaidNode(name string) string {
	if name == "" {
		return "Unknown"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, "'", "")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (g *Generator) filename(entity, suffix, ext string) string {
	clean := strings.ToLower(strings.ReplaceAll(entity, " ", "_"))
	stamp := g.now().Format("20060102_150405")
	if suffix != "" {
		return fmt.Sprintf("%s_%s_%s.%s", clean, suffix, stamp, ext)
	}
	return fmt.Sprintf("%s_%s.%s", clean, stamp, ext)
}
