package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndSummary(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	if err := repo.AppendSession(ctx, SessionEventData{SessionID: "s1", Event: "started", Language: "en", NodeCount: 2}); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := repo.AppendAnswer(ctx, AnswerEventData{SessionID: "s1", NodeID: "a", NodeType: "branch", Answer: "x", Correct: true}); err != nil {
		t.Fatalf("append answer: %v", err)
	}
	if err := repo.AppendAnswer(ctx, AnswerEventData{SessionID: "s1", NodeID: "b", NodeType: "leaf", Answer: "y", Correct: false}); err != nil {
		t.Fatalf("append answer: %v", err)
	}
	if err := repo.AppendHint(ctx, HintEventData{SessionID: "s1", NodeID: "a", Level: 1, Source: "local"}); err != nil {
		t.Fatalf("append hint: %v", err)
	}
	if err := repo.AppendMisconception(ctx, MisconceptionEventData{SessionID: "s1", NodeID: "b", UserAnswer: "y", CorrectAnswer: "z", EscalationLevel: 0}); err != nil {
		t.Fatalf("append misconception: %v", err)
	}
	if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{Provider: "mock", Model: "mock", Purpose: "validate-answer", Success: true}); err != nil {
		t.Fatalf("append llm request: %v", err)
	}
	if err := repo.AppendSession(ctx, SessionEventData{SessionID: "s1", Event: "completed", CorrectCount: 1, AttemptCount: 2, Accuracy: 0.5}); err != nil {
		t.Fatalf("append session: %v", err)
	}

	sum, err := repo.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.SessionsStarted != 1 || sum.SessionsCompleted != 1 {
		t.Errorf("sessions = %d started / %d completed, want 1/1", sum.SessionsStarted, sum.SessionsCompleted)
	}
	if sum.Answers != 2 || sum.Correct != 1 {
		t.Errorf("answers = %d/%d correct, want 2/1", sum.Answers, sum.Correct)
	}
	if sum.Accuracy() != 0.5 {
		t.Errorf("accuracy = %v, want 0.5", sum.Accuracy())
	}
	if sum.Hints != 1 || sum.Misconceptions != 1 || sum.LLMRequests != 1 {
		t.Errorf("hints/misconceptions/llm = %d/%d/%d, want 1/1/1", sum.Hints, sum.Misconceptions, sum.LLMRequests)
	}
}

func TestMissedNodeTypes(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		repo.AppendAnswer(ctx, AnswerEventData{SessionID: "s1", NodeID: "x", NodeType: "leaf", Answer: "w", Correct: false})
	}
	repo.AppendAnswer(ctx, AnswerEventData{SessionID: "s1", NodeID: "y", NodeType: "branch", Answer: "w", Correct: false})
	repo.AppendAnswer(ctx, AnswerEventData{SessionID: "s1", NodeID: "z", NodeType: "branch", Answer: "r", Correct: true})

	missed, err := repo.MissedNodeTypes(ctx, 5)
	if err != nil {
		t.Fatalf("missed node types: %v", err)
	}
	if len(missed) != 2 {
		t.Fatalf("expected 2 node types, got %d", len(missed))
	}
	if missed[0].NodeType != "leaf" || missed[0].Misses != 3 {
		t.Errorf("top miss = %+v, want leaf/3", missed[0])
	}
}

func TestReset(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	repo.AppendSession(ctx, SessionEventData{SessionID: "s1", Event: "started"})
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	sum, err := repo.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.SessionsStarted != 0 {
		t.Errorf("expected empty store after reset, got %d sessions", sum.SessionsStarted)
	}
}
