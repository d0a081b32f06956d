// Package ai provides the text-completion capability for the research
// pipeline: role-based model routing across two provider tiers with
// automatic fallback, bounded retries, and a circuit breaker.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"
)

// Role selects the model tier and policy for a completion call.
type Role string

const (
	// RolePlanner generates research strategy and refined queries.
	RolePlanner Role = "planner"
	// RoleResearcher extracts facts and entities from content.
	RoleResearcher Role = "researcher"
	// RoleAnalyzer derives risks and connections from accumulated facts.
	RoleAnalyzer Role = "analyzer"
	// RoleSynthesizer writes the final report.
	RoleSynthesizer Role = "synthesizer"
)

// Default models per provider tier. Analysis runs on the secondary tier so
// risk findings are cross-checked by a different model family than the one
// that extracted the facts.
const (
	DefaultPrimaryModel   = "claude-sonnet-4-5-20250929"
	DefaultSecondaryModel = "gpt-4o"
)

// Client is the completion capability the pipeline stages depend on.
// Implementations must fall back to a secondary tier before surfacing
// failure so a single provider outage does not halt a research run.
type Client interface {
	Complete(ctx context.Context, role Role, prompt string) (string, error)
}

// Config holds router configuration.
type Config struct {
	AnthropicAPIKey string // if empty, reads ANTHROPIC_API_KEY
	OpenAIAPIKey    string // if empty, reads OPENAI_API_KEY
	PrimaryModel    string // default: DefaultPrimaryModel
	SecondaryModel  string // default: DefaultSecondaryModel
	MaxTokens       int    // default: 4096
	Retry           RetryConfig
}

// Router routes completion calls to a primary or secondary provider based
// on role, retrying with backoff and falling back across tiers on failure.
type Router struct {
	primary        provider
	secondary      provider
	maxTokens      int
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted // limits concurrent provider calls
}

var _ Client = (*Router)(nil)

// NewRouter creates a completion router from config. Missing API keys are a
// startup failure: research must not begin with a half-configured client.
func NewRouter(cfg *Config) (*Router, error) {
	anthropicKey := cfg.AnthropicAPIKey
	if anthropicKey == "" {
		anthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if anthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	openaiKey := cfg.OpenAIAPIKey
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}
	if openaiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	primaryModel := cfg.PrimaryModel
	if primaryModel == "" {
		primaryModel = DefaultPrimaryModel
	}
	secondaryModel := cfg.SecondaryModel
	if secondaryModel == "" {
		secondaryModel = DefaultSecondaryModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	var cb *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		cb = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	anthClient := anthropic.NewClient(option.WithAPIKey(anthropicKey))
	return &Router{
		primary:        &anthropicProvider{client: &anthClient, model: primaryModel},
		secondary:      &openaiProvider{client: openai.NewClient(openaiKey), model: secondaryModel},
		maxTokens:      maxTokens,
		retry:          retry,
		circuitBreaker: cb,
		concurrencySem: sem,
	}, nil
}

// providerForRole returns the tier assigned to a role. The analyzer runs on
// the secondary tier; everything else on the primary.
func (r *Router) providerForRole(role Role) (provider, provider) {
	if role == RoleAnalyzer {
		return r.secondary, r.primary
	}
	return r.primary, r.secondary
}

// Complete sends the prompt to the role's assigned provider. On exhaustion
// of the assigned tier's retries it makes one attempt against the other
// tier before surfacing failure.
func (r *Router) Complete(ctx context.Context, role Role, prompt string) (string, error) {
	assigned, fallback := r.providerForRole(role)

	text, err := r.completeWithRetry(ctx, role, assigned, prompt)
	if err == nil {
		return text, nil
	}

	fmt.Fprintf(os.Stderr, "AI %s call failed on %s, falling back to %s: %v\n",
		role, assigned.name(), fallback.name(), err)

	// Single fallback attempt against the other tier. No retry loop here:
	// if both tiers are down the caller degrades to an empty update.
	fbCtx, cancel := context.WithTimeout(ctx, r.retry.Timeout)
	defer cancel()
	text, fbErr := fallback.complete(fbCtx, prompt, r.maxTokens)
	if fbErr != nil {
		return "", fmt.Errorf("%s completion failed on both tiers (%s: %v; %s: %v)",
			role, assigned.name(), err, fallback.name(), fbErr)
	}
	return text, nil
}

// provider is one model backend.
type provider interface {
	name() string
	complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type anthropicProvider struct {
	client *anthropic.Client
	model  string
}

func (p *anthropicProvider) name() string { return "anthropic/" + p.model }

func (p *anthropicProvider) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	fmt.Printf("AI call (%s): input=%d tokens, output=%d tokens, duration=%v\n",
		p.name(), resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(start))
	return text, nil
}

type openaiProvider struct {
	client *openai.Client
	model  string
}

func (p *openaiProvider) name() string { return "openai/" + p.model }

func (p *openaiProvider) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	fmt.Printf("AI call (%s): input=%d tokens, output=%d tokens, duration=%v\n",
		p.name(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, time.Since(start))
	return resp.Choices[0].Message.Content, nil
}
