package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"sleuth/internal/ai"
	"sleuth/internal/types"
)

type scriptedClient struct {
	response string
	err      error
}

func (s *scriptedClient) Complete(ctx context.Context, role ai.Role, prompt string) (string, error) {
	return s.response, s.err
}

func TestDetectEntityType_Heuristics(t *testing.T) {
	tests := []struct {
		entity string
		want   types.EntityType
	}{
		{"Acme Ventures LLC", types.EntityOrganization},
		{"Stanford University", types.EntityOrganization},
		{"Senator Jane Doe", types.EntityPolitician},
		{"Sam Altman", types.EntityTechExecutive},
		{"Dr. Jane Doe", types.EntityScientist},
	}
	for _, tt := range tests {
		// nil client: heuristics must decide without a completion call
		got := DetectEntityType(context.Background(), nil, tt.entity)
		assert.Equal(t, tt.want, got, tt.entity)
	}
}

func TestDetectEntityType_LLMClassification(t *testing.T) {
	client := &scriptedClient{response: " Celebrity:\n"}
	got := DetectEntityType(context.Background(), client, "Some Unknown Person")
	assert.Equal(t, types.EntityCelebrity, got)
}

func TestDetectEntityType_FallsBackToIndividual(t *testing.T) {
	assert.Equal(t, types.EntityIndividual,
		DetectEntityType(context.Background(), nil, "Some Unknown Person"))

	client := &scriptedClient{err: errors.New("provider down")}
	assert.Equal(t, types.EntityIndividual,
		DetectEntityType(context.Background(), client, "Some Unknown Person"))

	client = &scriptedClient{response: "alien overlord"}
	assert.Equal(t, types.EntityIndividual,
		DetectEntityType(context.Background(), client, "Some Unknown Person"))
}

func TestFewShotQueryExamples_VariesByType(t *testing.T) {
	assert.Contains(t, fewShotQueryExamples(types.EntityTechExecutive), "Investment firms")
	assert.Contains(t, fewShotQueryExamples(types.EntityOrganization), "SEC filings")
	assert.Contains(t, fewShotQueryExamples(types.EntityIndividual), "career history")
}
