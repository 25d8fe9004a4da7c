// Package assess orchestrates a Learning Mode session: node sampling,
// redaction, the per-node Q&A loop with hints, the remediation
// sub-loop, scoring, and teardown.
//
// A Controller is scoped to one session. All remote calls are
// serialized by the state machine: while one grading request is in
// flight every other mutating action is rejected with ErrBusy, and a
// response that lands after the session ended is discarded.
package assess

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/arjunm/recallmap/internal/diagram"
	"github.com/arjunm/recallmap/internal/escalation"
	"github.com/arjunm/recallmap/internal/grading"
	"github.com/arjunm/recallmap/internal/ledger"
	"github.com/arjunm/recallmap/internal/redaction"
	"github.com/arjunm/recallmap/internal/sampler"
	"github.com/arjunm/recallmap/internal/store"
)

// Options configures a Controller.
type Options struct {
	// Ratio is the redaction ratio; zero means sampler.DefaultRatio.
	Ratio float64

	// Events receives assessment events; nil disables persistence.
	Events store.EventRepo

	// Log is the structured logger; nil means no logging.
	Log *zap.Logger
}

// Controller drives one assessment session end to end.
type Controller struct {
	mu sync.Mutex

	grader grading.Client
	red    *redaction.Store
	miscon *ledger.Ledger
	events store.EventRepo
	log    *zap.Logger
	ratio  float64

	status      Status
	sessionID   string
	language    string
	diagramType string

	nodes     []*redaction.RedactedNode
	questions []grading.Question
	idx       int

	correctCount int
	attemptCount int

	hint          HintState
	esc           escalation.State
	phase         nodePhase
	remediation   *grading.Remediation
	verificationQ string

	// busy is true while a grading call is in flight; it enforces the
	// single-outstanding-request discipline.
	busy bool

	score  Score
	scored bool
}

// New creates a Controller for one session. The renderer may be nil for
// headless use.
func New(grader grading.Client, renderer diagram.Renderer, opts Options) *Controller {
	events := opts.Events
	if events == nil {
		events = store.NopRepo{}
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	ratio := opts.Ratio
	if ratio <= 0 {
		ratio = sampler.DefaultRatio
	}
	return &Controller{
		grader: grader,
		red:    redaction.NewStore(renderer),
		miscon: ledger.New(),
		events: events,
		log:    log,
		ratio:  ratio,
		status: StatusIdle,
	}
}

// Start samples and redacts nodes, then opens the grading session. On
// any failure everything is restored and the controller reverts to
// idle so the caller may retry.
func (c *Controller) Start(ctx context.Context, snap diagram.Snapshot, language string) (*StartInfo, error) {
	c.mu.Lock()
	if c.status != StatusIdle {
		c.mu.Unlock()
		return nil, ErrNotActive
	}
	c.status = StatusStarting
	c.mu.Unlock()

	sampled, err := sampler.Sample(snap.Nodes, c.ratio)
	if err != nil {
		c.revertToIdle()
		return nil, err
	}

	nodes, err := c.red.Redact(sampled)
	if err != nil {
		c.revertToIdle()
		return nil, &StartError{Err: err}
	}

	infos := make([]grading.NodeInfo, len(nodes))
	for i, n := range nodes {
		infos[i] = grading.NodeInfo{ID: n.ID, Type: string(n.Type), Text: n.OriginalText}
	}

	res, err := c.grader.StartSession(ctx, grading.StartRequest{
		DiagramType: snap.DiagramType,
		DiagramName: snap.Title,
		Nodes:       infos,
		Language:    language,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusStarting {
		// Exited while the start call was in flight; nodes redacted
		// after the exit's restore pass still need revealing.
		c.red.RestoreAll()
		return nil, ErrSessionOver
	}
	if err != nil {
		c.red.RestoreAll()
		c.resetLocked()
		return nil, &StartError{Err: err}
	}

	c.status = StatusActive
	c.sessionID = res.SessionID
	c.language = language
	c.diagramType = snap.DiagramType
	c.nodes = nodes
	c.questions = res.Questions
	c.idx = 0
	c.hint = HintState{}
	c.esc.Reset()
	c.phase = phaseQuestion

	c.appendEvent(ctx, store.SessionEventData{
		SessionID:   c.sessionID,
		Event:       "started",
		Language:    language,
		DiagramType: snap.DiagramType,
		NodeCount:   len(nodes),
	})
	c.log.Info("assessment session started",
		zap.String("session_id", c.sessionID),
		zap.Int("nodes", len(nodes)))

	return &StartInfo{
		SessionID:     c.sessionID,
		NodeCount:     len(nodes),
		FirstQuestion: c.questions[0],
	}, nil
}

// SubmitAnswer grades the primary answer for the current node.
func (c *Controller) SubmitAnswer(ctx context.Context, text string) (*AnswerOutcome, error) {
	c.mu.Lock()
	if c.status != StatusActive {
		c.mu.Unlock()
		return nil, ErrNotActive
	}
	if c.phase != phaseQuestion {
		c.mu.Unlock()
		return nil, ErrAwaitingVerification
	}
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	node := c.nodes[c.idx]
	question := c.questions[c.idx]

	// Ground-truth pre-check: an answer matching the hidden text
	// verbatim needs no remote verdict.
	if normalizeAnswer(text) == normalizeAnswer(node.OriginalText) {
		defer c.mu.Unlock()
		return c.resolveCorrectLocked(ctx, node, text, "Exactly right.")
	}

	c.busy = true
	sessionID, language := c.sessionID, c.language
	c.mu.Unlock()

	res, err := c.grader.ValidateAnswer(ctx, grading.ValidateRequest{
		SessionID:  sessionID,
		NodeID:     node.ID,
		UserAnswer: text,
		Question:   question,
		Language:   language,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if c.status != StatusActive {
		return nil, ErrSessionOver
	}
	if err != nil {
		// Transport failure: the submission never happened; state is
		// untouched and the learner may resubmit.
		return nil, err
	}

	if res.Correct {
		return c.resolveCorrectLocked(ctx, node, text, res.Message)
	}

	c.appendEvent(ctx, store.AnswerEventData{
		SessionID: c.sessionID,
		NodeID:    node.ID,
		NodeType:  string(node.Type),
		Answer:    text,
		Correct:   false,
	})

	if res.Remediation != nil {
		// Enter the remediation sub-loop; the cursor stays put until
		// the node resolves.
		c.phase = phaseRemediation
		c.remediation = res.Remediation
		c.verificationQ = escalation.Question(c.esc.Angle(), node.OriginalText, node.Type)
		return &AnswerOutcome{
			Kind:                 OutcomeRemediate,
			Message:              res.Message,
			Remediation:          c.remediation,
			VerificationQuestion: c.verificationQ,
		}, nil
	}

	// Nothing to teach: reveal the answer and move on.
	c.attemptCount++
	c.red.Restore(node)
	next, completed := c.advanceLocked(ctx)
	return &AnswerOutcome{
		Kind:           OutcomeAdvance,
		Message:        res.Message,
		Revealed:       true,
		RevealedAnswer: node.OriginalText,
		NextQuestion:   next,
		Completed:      completed,
	}, nil
}

// RequestHint services a hint for the current node, falling back to a
// locally derived hint when the remote operation is unreachable.
func (c *Controller) RequestHint(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.status != StatusActive {
		c.mu.Unlock()
		return "", ErrNotActive
	}
	if c.phase != phaseQuestion {
		c.mu.Unlock()
		return "", ErrAwaitingVerification
	}
	if c.busy {
		c.mu.Unlock()
		return "", ErrBusy
	}
	if c.hint.Level >= MaxHintLevel {
		c.mu.Unlock()
		return "", ErrHintExhausted
	}

	c.busy = true
	node := c.nodes[c.idx]
	question := c.questions[c.idx]
	level := c.hint.Level + 1
	sessionID, language := c.sessionID, c.language
	c.mu.Unlock()

	source := "remote"
	var hint string
	res, err := c.grader.Hint(ctx, grading.HintRequest{
		SessionID: sessionID,
		NodeID:    node.ID,
		Question:  question,
		Level:     level,
		Language:  language,
	})
	if err != nil {
		// Hint failures are absorbed: degraded but still correct.
		c.log.Debug("remote hint failed, using local fallback", zap.Error(err))
		source = "local"
		hint = fallbackHint(node, level)
	} else {
		hint = res.Hint
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if c.status != StatusActive {
		return "", ErrSessionOver
	}

	c.hint.Level = level
	c.appendEvent(ctx, store.HintEventData{
		SessionID: c.sessionID,
		NodeID:    node.ID,
		Level:     level,
		Source:    source,
	})
	return hint, nil
}

// SubmitVerification grades the learner's answer to the current
// verification question inside the remediation sub-loop.
func (c *Controller) SubmitVerification(ctx context.Context, text string) (*VerifyOutcome, error) {
	c.mu.Lock()
	if c.status != StatusActive {
		c.mu.Unlock()
		return nil, ErrNotActive
	}
	if c.phase != phaseRemediation {
		c.mu.Unlock()
		return nil, ErrNoVerificationPending
	}
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	c.busy = true
	node := c.nodes[c.idx]
	verificationQ := c.verificationQ
	sessionID, language := c.sessionID, c.language
	c.mu.Unlock()

	res, err := c.grader.VerifyUnderstanding(ctx, grading.VerifyRequest{
		SessionID:            sessionID,
		NodeID:               node.ID,
		UserAnswer:           text,
		CorrectAnswer:        node.OriginalText,
		VerificationQuestion: verificationQ,
		Language:             language,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if c.status != StatusActive {
		return nil, ErrSessionOver
	}
	if err != nil {
		return nil, err
	}

	if res.Verified {
		c.correctCount++
		c.attemptCount++
		c.red.Restore(node)
		next, completed := c.advanceLocked(ctx)
		return &VerifyOutcome{
			Kind:         OutcomeAdvance,
			Message:      res.Message,
			NextQuestion: next,
			Completed:    completed,
		}, nil
	}

	// Failed verification: record the misconception, escalate.
	rec := ledger.Record{
		NodeID:          node.ID,
		UserAnswer:      text,
		CorrectAnswer:   node.OriginalText,
		EscalationLevel: c.esc.Attempts,
	}
	c.miscon.Append(rec)
	c.appendEvent(ctx, store.MisconceptionEventData{
		SessionID:       c.sessionID,
		NodeID:          node.ID,
		UserAnswer:      text,
		CorrectAnswer:   node.OriginalText,
		EscalationLevel: c.esc.Attempts,
	})
	c.esc.RecordFailure()

	if c.esc.Exhausted() {
		c.phase = phaseSkipOffered
		return &VerifyOutcome{
			Kind:    OutcomeSkipAvailable,
			Message: res.Message,
		}, nil
	}

	// Loop back to the material with a question from the next angle.
	c.verificationQ = escalation.Question(c.esc.Angle(), node.OriginalText, node.Type)
	return &VerifyOutcome{
		Kind:                 OutcomeEscalate,
		Message:              res.Message,
		Remediation:          c.remediation,
		VerificationQuestion: c.verificationQ,
	}, nil
}

// Skip resolves the current node after escalations are exhausted,
// revealing the ground truth.
func (c *Controller) Skip(ctx context.Context) (*SkipOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusActive {
		return nil, ErrNotActive
	}
	if c.phase != phaseSkipOffered {
		return nil, ErrSkipUnavailable
	}
	if c.busy {
		return nil, ErrBusy
	}

	node := c.nodes[c.idx]
	c.attemptCount++
	c.red.Restore(node)
	next, completed := c.advanceLocked(ctx)
	return &SkipOutcome{
		RevealedAnswer: node.OriginalText,
		NextQuestion:   next,
		Completed:      completed,
	}, nil
}

// Exit tears the session down, unconditionally restoring every node.
// Always available, always terminal; a grading response that arrives
// afterwards is discarded.
func (c *Controller) Exit(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusIdle, StatusExited, StatusCompleted:
		c.red.RestoreAll()
		return
	}

	c.status = StatusExited
	c.red.RestoreAll()
	c.appendEvent(ctx, store.SessionEventData{
		SessionID:    c.sessionID,
		Event:        "exited",
		Language:     c.language,
		DiagramType:  c.diagramType,
		NodeCount:    len(c.nodes),
		CorrectCount: c.correctCount,
		AttemptCount: c.attemptCount,
	})
	c.log.Info("assessment session exited",
		zap.String("session_id", c.sessionID),
		zap.Int("resolved", c.idx),
		zap.Int("total", len(c.nodes)))
}

// Status returns the lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the grading session identifier.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Progress reports resolved vs total nodes.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Progress{Resolved: c.idx, Total: len(c.nodes)}
}

// CurrentQuestion returns the question under the cursor.
func (c *Controller) CurrentQuestion() (grading.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusActive || c.idx >= len(c.questions) {
		return grading.Question{}, false
	}
	return c.questions[c.idx], true
}

// HintLevel returns the current node's hint level.
func (c *Controller) HintLevel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hint.Level
}

// Score returns the final score once the session completed.
func (c *Controller) Score() (Score, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score, c.scored
}

// Misconceptions returns the session's failed-verification records.
func (c *Controller) Misconceptions() []ledger.Record {
	return c.miscon.Records()
}

// resolveCorrectLocked handles the success path shared by remote and
// ground-truth verdicts. Caller holds the lock.
func (c *Controller) resolveCorrectLocked(ctx context.Context, node *redaction.RedactedNode, answer, message string) (*AnswerOutcome, error) {
	c.correctCount++
	c.attemptCount++
	c.appendEvent(ctx, store.AnswerEventData{
		SessionID: c.sessionID,
		NodeID:    node.ID,
		NodeType:  string(node.Type),
		Answer:    answer,
		Correct:   true,
	})
	c.red.Restore(node)
	next, completed := c.advanceLocked(ctx)
	return &AnswerOutcome{
		Kind:         OutcomeAdvance,
		Correct:      true,
		Message:      message,
		NextQuestion: next,
		Completed:    completed,
	}, nil
}

// advanceLocked moves the cursor past the resolved node and resets
// per-node state. On the last node it completes the session and
// freezes the score. Caller holds the lock.
func (c *Controller) advanceLocked(ctx context.Context) (*grading.Question, bool) {
	c.idx++
	c.hint = HintState{}
	c.esc.Reset()
	c.phase = phaseQuestion
	c.remediation = nil
	c.verificationQ = ""

	if c.idx < len(c.nodes) {
		return &c.questions[c.idx], false
	}

	c.status = StatusCompleted
	c.score = computeScore(c.correctCount, c.attemptCount)
	c.scored = true
	c.appendEvent(ctx, store.SessionEventData{
		SessionID:    c.sessionID,
		Event:        "completed",
		Language:     c.language,
		DiagramType:  c.diagramType,
		NodeCount:    len(c.nodes),
		CorrectCount: c.correctCount,
		AttemptCount: c.attemptCount,
		Accuracy:     c.score.Accuracy,
	})
	c.log.Info("assessment session completed",
		zap.String("session_id", c.sessionID),
		zap.Float64("accuracy", c.score.Accuracy))
	return nil, true
}

func (c *Controller) revertToIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.red.RestoreAll()
	// An exit that raced the failed start wins; never resurrect.
	if c.status == StatusStarting {
		c.resetLocked()
	}
}

// resetLocked returns the controller to idle after a failed start.
func (c *Controller) resetLocked() {
	c.status = StatusIdle
	c.sessionID = ""
	c.nodes = nil
	c.questions = nil
	c.idx = 0
}

func (c *Controller) appendEvent(ctx context.Context, data any) {
	var err error
	switch d := data.(type) {
	case store.SessionEventData:
		err = c.events.AppendSession(ctx, d)
	case store.AnswerEventData:
		err = c.events.AppendAnswer(ctx, d)
	case store.HintEventData:
		err = c.events.AppendHint(ctx, d)
	case store.MisconceptionEventData:
		err = c.events.AppendMisconception(ctx, d)
	}
	if err != nil {
		c.log.Warn("failed to append assessment event", zap.Error(err))
	}
}

// computeScore derives the immutable session score.
func computeScore(correct, attempts int) Score {
	s := Score{CorrectCount: correct, AttemptCount: attempts}
	if attempts > 0 {
		s.Accuracy = float64(correct) / float64(attempts)
	}
	return s
}

// normalizeAnswer lowercases, collapses whitespace, and trims trailing
// punctuation so verbatim recalls match the hidden text.
func normalizeAnswer(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimRight(s, ".!?")
}
