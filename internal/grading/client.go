// Package grading wraps the remote grading/question service behind a
// four-operation contract. The session controller only ever sees these
// operations and the TransportError type; which transport or model sits
// behind them is this package's concern.
package grading

import (
	"context"
	"fmt"
)

// Question is one generated question for a redacted node. Context is
// grading material carried back on validation calls; the engine treats
// it as opaque.
type Question struct {
	NodeID     string `json:"node_id"`
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"` // "easy", "medium", "hard"
	Context    string `json:"context"`
}

// NodeInfo describes a redacted node to the service at session start.
type NodeInfo struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// StartRequest opens a grading session.
type StartRequest struct {
	DiagramType string
	DiagramName string
	Nodes       []NodeInfo
	Language    string
}

// StartResult carries the issued session and the question per node,
// aligned 1:1 with StartRequest.Nodes.
type StartResult struct {
	SessionID string
	Questions []Question
}

// ValidateRequest grades a primary answer.
type ValidateRequest struct {
	SessionID  string
	NodeID     string
	UserAnswer string
	Question   Question
	Language   string
}

// Remediation is teaching material supplied alongside a failed answer.
type Remediation struct {
	Explanation string `json:"explanation"`
	Example     string `json:"example"`
}

// ValidateResult is the grading verdict for a primary answer.
type ValidateResult struct {
	Correct       bool
	Message       string
	Confidence    float64
	Misconception string
	Remediation   *Remediation // nil when the service has nothing to teach
}

// HintRequest asks for a progressive hint.
type HintRequest struct {
	SessionID string
	NodeID    string
	Question  Question
	Level     int // 1..3
	Language  string
}

// HintResult is one hint.
type HintResult struct {
	Hint string
}

// VerifyRequest checks conceptual understanding after remediation.
type VerifyRequest struct {
	SessionID            string
	NodeID               string
	UserAnswer           string
	CorrectAnswer        string
	VerificationQuestion string
	Language             string
}

// VerifyResult is the understanding verdict.
type VerifyResult struct {
	Verified bool
	Message  string
}

// Client is the grading service contract.
type Client interface {
	StartSession(ctx context.Context, req StartRequest) (*StartResult, error)
	ValidateAnswer(ctx context.Context, req ValidateRequest) (*ValidateResult, error)
	Hint(ctx context.Context, req HintRequest) (*HintResult, error)
	VerifyUnderstanding(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// TransportError means a remote call never produced a usable verdict.
// The triggering action did not happen as far as session state is
// concerned and may be retried by the caller.
type TransportError struct {
	Op  string // "start-session", "validate-answer", "hint", "verify-understanding"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("grading %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
