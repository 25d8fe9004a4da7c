package grading

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/arjunm/recallmap/internal/llm"
)

// Config tunes the LLM-backed grading client.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the standard grading settings. Temperature
// stays low: grading should be stable, not creative.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   2048,
		Temperature: 0.2,
	}
}

// LLMClient implements Client on top of a language-model provider. The
// model is stateless, so the client issues its own session IDs and
// carries grading context inside each request.
type LLMClient struct {
	provider llm.Provider
	cfg      Config
}

// NewLLMClient creates a grading client over the given provider.
func NewLLMClient(provider llm.Provider, cfg Config) *LLMClient {
	return &LLMClient{provider: provider, cfg: cfg}
}

func (c *LLMClient) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	ctx = llm.WithPurpose(ctx, "start-session")

	var out struct {
		Questions []Question `json:"questions"`
	}
	if err := c.generate(ctx, "start-session", buildStartMessage(req), questionListSchema, &out); err != nil {
		return nil, err
	}

	if len(out.Questions) != len(req.Nodes) {
		return nil, &TransportError{
			Op:  "start-session",
			Err: fmt.Errorf("got %d questions for %d nodes", len(out.Questions), len(req.Nodes)),
		}
	}
	// Realign by node id in case the model reordered; order on the wire
	// must match the node order we were given.
	byNode := make(map[string]Question, len(out.Questions))
	for _, q := range out.Questions {
		byNode[q.NodeID] = q
	}
	questions := make([]Question, len(req.Nodes))
	for i, n := range req.Nodes {
		q, ok := byNode[n.ID]
		if !ok {
			return nil, &TransportError{
				Op:  "start-session",
				Err: fmt.Errorf("no question generated for node %s", n.ID),
			}
		}
		questions[i] = q
	}

	return &StartResult{
		SessionID: uuid.NewString(),
		Questions: questions,
	}, nil
}

func (c *LLMClient) ValidateAnswer(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	ctx = llm.WithPurpose(ctx, "validate-answer")

	var out struct {
		Correct        bool         `json:"correct"`
		Message        string       `json:"message"`
		Confidence     float64      `json:"confidence"`
		Misconception  string       `json:"misconception"`
		HasRemediation bool         `json:"has_remediation"`
		Remediation    *Remediation `json:"remediation"`
	}
	if err := c.generate(ctx, "validate-answer", buildValidateMessage(req), verdictSchema, &out); err != nil {
		return nil, err
	}

	res := &ValidateResult{
		Correct:       out.Correct,
		Message:       out.Message,
		Confidence:    out.Confidence,
		Misconception: out.Misconception,
	}
	if !out.Correct && out.HasRemediation && out.Remediation != nil {
		res.Remediation = out.Remediation
	}
	return res, nil
}

func (c *LLMClient) Hint(ctx context.Context, req HintRequest) (*HintResult, error) {
	ctx = llm.WithPurpose(ctx, "hint")

	var out struct {
		Hint string `json:"hint"`
	}
	if err := c.generate(ctx, "hint", buildHintMessage(req), hintSchema, &out); err != nil {
		return nil, err
	}
	return &HintResult{Hint: out.Hint}, nil
}

func (c *LLMClient) VerifyUnderstanding(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	ctx = llm.WithPurpose(ctx, "verify-understanding")

	var out struct {
		Verified bool   `json:"understanding_verified"`
		Message  string `json:"message"`
	}
	if err := c.generate(ctx, "verify-understanding", buildVerifyMessage(req), understandingSchema, &out); err != nil {
		return nil, err
	}
	return &VerifyResult{Verified: out.Verified, Message: out.Message}, nil
}

// generate runs one structured call and decodes the result, mapping
// every provider failure to a TransportError for the given op.
func (c *LLMClient) generate(ctx context.Context, op, userMsg string, schema *llm.Schema, out any) error {
	resp, err := c.provider.Generate(ctx, llm.Request{
		System:      graderSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      schema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
