package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sleuth/internal/research"
	"sleuth/internal/types"
)

// auditExport is the JSON envelope for a saved trail.
type auditExport struct {
	Entity     string             `json:"entity"`
	Timestamp  time.Time          `json:"timestamp"`
	TotalSteps int                `json:"total_steps"`
	Trail      []types.AuditEntry `json:"trail"`
}

// SaveAuditTrail writes the full trail as JSON, returning the file path.
func (g *Generator) SaveAuditTrail(state *research.State) (string, error) {
	export := auditExport{
		Entity:     state.Entity,
		Timestamp:  g.now().UTC(),
		TotalSteps: len(state.AuditTrail),
		Trail:      emptyNotNil(state.AuditTrail),
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding audit trail: %w", err)
	}

	path := filepath.Join(g.outputDir, g.filename(state.Entity, "audit", "json"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing audit trail: %w", err)
	}
	return path, nil
}

// SaveAuditSummary writes the human-readable summary, returning the file
// path.
func (g *Generator) SaveAuditSummary(state *research.State) (string, error) {
	path := filepath.Join(g.outputDir, g.filename(state.Entity, "audit_summary", "md"))
	if err := os.WriteFile(path, []byte(AuditSummary(state.AuditTrail)), 0o644); err != nil {
		return "", fmt.Errorf("writing audit summary: %w", err)
	}
	return path, nil
}

// AuditSummary renders the trail grouped by node, in first-appearance
// order, with payload values compacted for scanning.
func AuditSummary(trail []types.AuditEntry) string {
	var b strings.Builder
	b.WriteString("# Audit Trail Summary\n\n")

	byNode := make(map[string][]types.AuditEntry)
	var order []string
	for _, entry := range trail {
		if _, ok := byNode[entry.Node]; !ok {
			order = append(order, entry.Node)
		}
		byNode[entry.Node] = append(byNode[entry.Node], entry)
	}

	for _, node := range order {
		entries := byNode[node]
		fmt.Fprintf(&b, "## %s (%d calls)\n\n", titleCase(node), len(entries))
		for i, entry := range entries {
			fmt.Fprintf(&b, "### Call %d (Iteration %d)\n\n", i+1, entry.Iteration)
			for _, key := range sortedKeys(entry.Payload) {
				b.WriteString(formatPayloadLine(key, entry.Payload[key]))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatPayloadLine(key string, value any) string {
	switch v := value.(type) {
	case []string:
		return fmt.Sprintf("- **%s**: %d items\n", key, len(v))
	case []any:
		return fmt.Sprintf("- **%s**: %d items\n", key, len(v))
	case map[string]any:
		encoded, _ := json.Marshal(v)
		s := string(encoded)
		if len(s) > 100 {
			s = s[:100] + "..."
		}
		return fmt.Sprintf("- **%s**: %s\n", key, s)
	default:
		return fmt.Sprintf("- **%s**: %v\n", key, v)
	}
}

func sortedKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
