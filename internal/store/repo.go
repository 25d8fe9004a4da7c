package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionEventData records a session lifecycle change.
type SessionEventData struct {
	SessionID    string
	Event        string // "started", "completed", "exited"
	Language     string
	DiagramType  string
	NodeCount    int
	CorrectCount int
	AttemptCount int
	Accuracy     float64
}

// AnswerEventData records one graded primary answer.
type AnswerEventData struct {
	SessionID string
	NodeID    string
	NodeType  string
	Answer    string
	Correct   bool
}

// HintEventData records one serviced hint request.
type HintEventData struct {
	SessionID string
	NodeID    string
	Level     int
	Source    string // "remote" or "local"
}

// MisconceptionEventData records one failed understanding check.
type MisconceptionEventData struct {
	SessionID       string
	NodeID          string
	UserAnswer      string
	CorrectAnswer   string
	EscalationLevel int
}

// LLMRequestEventData audits one model call.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventRepo appends assessment events and answers summary queries.
type EventRepo interface {
	AppendSession(ctx context.Context, data SessionEventData) error
	AppendAnswer(ctx context.Context, data AnswerEventData) error
	AppendHint(ctx context.Context, data HintEventData) error
	AppendMisconception(ctx context.Context, data MisconceptionEventData) error
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	Summary(ctx context.Context) (*Summary, error)
	MissedNodeTypes(ctx context.Context, limit int) ([]TypeMissCount, error)
}

// Summary aggregates stored events for the stats command.
type Summary struct {
	SessionsStarted   int
	SessionsCompleted int
	SessionsExited    int
	Answers           int
	Correct           int
	Hints             int
	Misconceptions    int
	LLMRequests       int
	LLMFailures       int
	LastSessionAt     time.Time
}

// Accuracy returns overall answer accuracy, zero when nothing answered.
func (s *Summary) Accuracy() float64 {
	if s.Answers == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Answers)
}

// TypeMissCount counts wrong answers per node type.
type TypeMissCount struct {
	NodeType string
	Misses   int
}

type sqlRepo struct {
	db *sql.DB
}

func (r *sqlRepo) AppendSession(ctx context.Context, d SessionEventData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_events (session_id, event, language, diagram_type, node_count, correct_count, attempt_count, accuracy)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.SessionID, d.Event, d.Language, d.DiagramType, d.NodeCount, d.CorrectCount, d.AttemptCount, d.Accuracy)
	if err != nil {
		return fmt.Errorf("append session event: %w", err)
	}
	return nil
}

func (r *sqlRepo) AppendAnswer(ctx context.Context, d AnswerEventData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO answer_events (session_id, node_id, node_type, answer, correct)
		 VALUES (?, ?, ?, ?, ?)`,
		d.SessionID, d.NodeID, d.NodeType, d.Answer, boolInt(d.Correct))
	if err != nil {
		return fmt.Errorf("append answer event: %w", err)
	}
	return nil
}

func (r *sqlRepo) AppendHint(ctx context.Context, d HintEventData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hint_events (session_id, node_id, level, source) VALUES (?, ?, ?, ?)`,
		d.SessionID, d.NodeID, d.Level, d.Source)
	if err != nil {
		return fmt.Errorf("append hint event: %w", err)
	}
	return nil
}

func (r *sqlRepo) AppendMisconception(ctx context.Context, d MisconceptionEventData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO misconception_events (session_id, node_id, user_answer, correct_answer, escalation_level)
		 VALUES (?, ?, ?, ?, ?)`,
		d.SessionID, d.NodeID, d.UserAnswer, d.CorrectAnswer, d.EscalationLevel)
	if err != nil {
		return fmt.Errorf("append misconception event: %w", err)
	}
	return nil
}

func (r *sqlRepo) AppendLLMRequest(ctx context.Context, d LLMRequestEventData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO llm_request_events (provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Provider, d.Model, d.Purpose, d.InputTokens, d.OutputTokens, d.LatencyMs, boolInt(d.Success), d.ErrorMessage)
	if err != nil {
		return fmt.Errorf("append llm request event: %w", err)
	}
	return nil
}

func (r *sqlRepo) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{}

	err := r.db.QueryRowContext(ctx, `SELECT
		COUNT(CASE WHEN event = 'started' THEN 1 END),
		COUNT(CASE WHEN event = 'completed' THEN 1 END),
		COUNT(CASE WHEN event = 'exited' THEN 1 END)
	FROM session_events`).Scan(
		&s.SessionsStarted, &s.SessionsCompleted, &s.SessionsExited)
	if err != nil {
		return nil, fmt.Errorf("session summary: %w", err)
	}

	var last sql.NullString
	if err := r.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM session_events`).Scan(&last); err != nil {
		return nil, fmt.Errorf("last session time: %w", err)
	}
	if last.Valid {
		if t, err := time.Parse("2006-01-02 15:04:05", last.String); err == nil {
			s.LastSessionAt = t
		}
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(correct), 0) FROM answer_events`).Scan(&s.Answers, &s.Correct)
	if err != nil {
		return nil, fmt.Errorf("answer summary: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hint_events`).Scan(&s.Hints); err != nil {
		return nil, fmt.Errorf("hint summary: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM misconception_events`).Scan(&s.Misconceptions); err != nil {
		return nil, fmt.Errorf("misconception summary: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(CASE WHEN success = 0 THEN 1 END) FROM llm_request_events`).Scan(&s.LLMRequests, &s.LLMFailures)
	if err != nil {
		return nil, fmt.Errorf("llm summary: %w", err)
	}

	return s, nil
}

func (r *sqlRepo) MissedNodeTypes(ctx context.Context, limit int) ([]TypeMissCount, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT node_type, COUNT(*) AS misses FROM answer_events
		 WHERE correct = 0 GROUP BY node_type ORDER BY misses DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("missed node types: %w", err)
	}
	defer rows.Close()

	var out []TypeMissCount
	for rows.Next() {
		var tc TypeMissCount
		if err := rows.Scan(&tc.NodeType, &tc.Misses); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NopRepo discards every event. Used when persistence is disabled.
type NopRepo struct{}

func (NopRepo) AppendSession(context.Context, SessionEventData) error             { return nil }
func (NopRepo) AppendAnswer(context.Context, AnswerEventData) error               { return nil }
func (NopRepo) AppendHint(context.Context, HintEventData) error                   { return nil }
func (NopRepo) AppendMisconception(context.Context, MisconceptionEventData) error { return nil }
func (NopRepo) AppendLLMRequest(context.Context, LLMRequestEventData) error       { return nil }
func (NopRepo) Summary(context.Context) (*Summary, error)                         { return &Summary{}, nil }
func (NopRepo) MissedNodeTypes(context.Context, int) ([]TypeMissCount, error)     { return nil, nil }
