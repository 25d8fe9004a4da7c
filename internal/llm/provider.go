// Package llm abstracts the language-model vendors behind a single
// structured-generation interface. The grading client builds its four
// remote operations on top of this; nothing above it knows which vendor
// is in use.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured JSON from a prompt.
type Provider interface {
	// Generate sends one request and returns the model's output. When
	// req.Schema is set the provider uses its native structured-output
	// mechanism and the returned Content is schema-validated JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID reports the configured model identifier.
	ModelID() string
}

// Request is a single generation request.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation. Grading calls are single-turn, so
	// this usually holds exactly one user message.
	Messages []Message

	// Schema, when non-nil, constrains the output to the given JSON
	// Schema. Responses that fail validation come back as ErrBadOutput.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature in [0,1]; zero means deterministic.
	Temperature float64
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role identifies the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema the response must satisfy.
type Schema struct {
	// Name is a kebab-case identifier, e.g. "answer-verdict". Doubles
	// as the structured-output name for vendors that require one.
	Name string

	// Description tells the model what the schema represents.
	Description string

	// Definition is the JSON Schema as a map.
	Definition map[string]any
}

// Response is the model's output.
type Response struct {
	// Content is validated JSON when a schema was requested, raw text
	// otherwise.
	Content json.RawMessage

	// Usage reports token consumption.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage is token accounting for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
