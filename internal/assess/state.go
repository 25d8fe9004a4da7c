package assess

import "github.com/arjunm/recallmap/internal/grading"

// Status is the session lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusStarting
	StatusActive
	StatusCompleted
	StatusExited
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// nodePhase tracks where the current node is inside its Q&A loop.
type nodePhase int

const (
	phaseQuestion    nodePhase = iota // awaiting a primary answer
	phaseRemediation                  // material shown, awaiting verification
	phaseSkipOffered                  // escalations exhausted, awaiting skip
)

// MaxHintLevel is the hint ceiling per node. Level 3 is terminal.
const MaxHintLevel = 3

// HintState is the per-node hint progression, reset on advance.
type HintState struct {
	Level int // 0..3, monotonically increasing within a node
}

// Score is the immutable session result, computed once on completion.
type Score struct {
	CorrectCount int     `json:"correct_count"`
	AttemptCount int     `json:"attempt_count"`
	Accuracy     float64 `json:"accuracy"`
}

// Progress reports how far the session has advanced.
type Progress struct {
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

// OutcomeKind classifies what an answer or verification led to.
type OutcomeKind int

const (
	// OutcomeAdvance: the node resolved and the cursor moved on.
	OutcomeAdvance OutcomeKind = iota
	// OutcomeRemediate: wrong answer with teaching material; the
	// remediation sub-loop was entered, cursor unchanged.
	OutcomeRemediate
	// OutcomeEscalate: failed verification with attempts remaining; new
	// verification question under the next cognitive angle.
	OutcomeEscalate
	// OutcomeSkipAvailable: escalations exhausted; only skip resolves
	// the node now.
	OutcomeSkipAvailable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdvance:
		return "advance"
	case OutcomeRemediate:
		return "remediate"
	case OutcomeEscalate:
		return "escalate"
	case OutcomeSkipAvailable:
		return "skip-available"
	default:
		return "unknown"
	}
}

// StartInfo is returned by Start on success.
type StartInfo struct {
	SessionID     string
	NodeCount     int
	FirstQuestion grading.Question
}

// AnswerOutcome is the result of a primary answer submission.
type AnswerOutcome struct {
	Kind    OutcomeKind
	Correct bool
	Message string

	// Revealed is set when a wrong answer had no remediation material:
	// the node was restored and RevealedAnswer holds its content.
	Revealed       bool
	RevealedAnswer string

	// Remediation material and the first verification question, set on
	// OutcomeRemediate.
	Remediation          *grading.Remediation
	VerificationQuestion string

	// NextQuestion is the following node's question after an advance;
	// nil when the session completed.
	NextQuestion *grading.Question
	Completed    bool
}

// VerifyOutcome is the result of a verification submission.
type VerifyOutcome struct {
	Kind    OutcomeKind
	Message string

	// Remediation and the regenerated question, set on OutcomeEscalate.
	Remediation          *grading.Remediation
	VerificationQuestion string

	NextQuestion *grading.Question
	Completed    bool
}

// SkipOutcome is the result of taking the skip affordance.
type SkipOutcome struct {
	RevealedAnswer string
	NextQuestion   *grading.Question
	Completed      bool
}
