package grading

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient is a deterministic Client for tests and offline demos.
// Verdicts compare the answer to the node's hidden text case-
// insensitively; remediation and hints are fixed strings.
type MockClient struct {
	mu      sync.Mutex
	answers map[string]string // nodeID → hidden text

	// Remediate controls whether wrong answers come with remediation
	// material.
	Remediate bool
}

// NewMockClient creates an empty mock grading client.
func NewMockClient() *MockClient {
	return &MockClient{answers: make(map[string]string), Remediate: true}
}

func (m *MockClient) StartSession(_ context.Context, req StartRequest) (*StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	questions := make([]Question, len(req.Nodes))
	for i, n := range req.Nodes {
		m.answers[n.ID] = n.Text
		questions[i] = Question{
			NodeID:     n.ID,
			Text:       fmt.Sprintf("What belongs in the hidden %s node?", n.Type),
			Difficulty: "medium",
			Context:    "mock",
		}
	}
	return &StartResult{SessionID: "mock-session", Questions: questions}, nil
}

func (m *MockClient) ValidateAnswer(_ context.Context, req ValidateRequest) (*ValidateResult, error) {
	m.mu.Lock()
	want := m.answers[req.NodeID]
	m.mu.Unlock()

	if strings.EqualFold(strings.TrimSpace(req.UserAnswer), strings.TrimSpace(want)) {
		return &ValidateResult{Correct: true, Message: "Correct.", Confidence: 1}, nil
	}

	res := &ValidateResult{Correct: false, Message: "Not quite.", Confidence: 1}
	if m.Remediate {
		res.Remediation = &Remediation{
			Explanation: fmt.Sprintf("The hidden content here is %q.", want),
			Example:     "Think of where this sits in the diagram.",
		}
	}
	return res, nil
}

func (m *MockClient) Hint(_ context.Context, req HintRequest) (*HintResult, error) {
	return &HintResult{Hint: fmt.Sprintf("Mock hint level %d.", req.Level)}, nil
}

func (m *MockClient) VerifyUnderstanding(_ context.Context, req VerifyRequest) (*VerifyResult, error) {
	if strings.Contains(strings.ToLower(req.UserAnswer), strings.ToLower(req.CorrectAnswer)) {
		return &VerifyResult{Verified: true, Message: "Good explanation."}, nil
	}
	return &VerifyResult{Verified: false, Message: "That doesn't show understanding yet."}, nil
}
