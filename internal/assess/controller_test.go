package assess

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/arjunm/recallmap/internal/diagram"
	"github.com/arjunm/recallmap/internal/grading"
)

// countingRenderer mirrors the redaction test double: it records hide
// calls and how often each restore capability fires.
type countingRenderer struct {
	hidden   []string
	restores map[string]int
}

func newCountingRenderer() *countingRenderer {
	return &countingRenderer{restores: make(map[string]int)}
}

func (r *countingRenderer) HideNode(id string) (diagram.RestoreFunc, error) {
	r.hidden = append(r.hidden, id)
	return func() error {
		r.restores[id]++
		return nil
	}, nil
}

func biologyNodes(n int) []diagram.Node {
	nodes := make([]diagram.Node, n)
	for i := range nodes {
		nodes[i] = diagram.Node{
			ID:   fmt.Sprintf("n%d", i),
			Type: diagram.TypeLeaf,
			Text: fmt.Sprintf("concept %d", i),
		}
	}
	return nodes
}

func snapshotOf(nodes []diagram.Node) diagram.Snapshot {
	return diagram.Snapshot{
		DiagramID:   "d1",
		DiagramType: "mindmap",
		Title:       "Cell Biology",
		Nodes:       nodes,
	}
}

func textByID(nodes []diagram.Node) map[string]string {
	m := make(map[string]string, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n.Text
	}
	return m
}

func mustStart(t *testing.T, c *Controller, snap diagram.Snapshot) *StartInfo {
	t.Helper()
	info, err := c.Start(context.Background(), snap, "en")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return info
}

func TestFullSession_AllCorrect(t *testing.T) {
	nodes := biologyNodes(10)
	answers := textByID(nodes)
	renderer := newCountingRenderer()
	c := New(grading.NewMockClient(), renderer, Options{})

	info := mustStart(t, c, snapshotOf(nodes))
	if info.NodeCount != 2 {
		t.Fatalf("10 nodes at the default ratio should redact 2, got %d", info.NodeCount)
	}
	if c.Status() != StatusActive {
		t.Fatalf("status = %v, want active", c.Status())
	}

	for {
		q, ok := c.CurrentQuestion()
		if !ok {
			break
		}
		out, err := c.SubmitAnswer(context.Background(), answers[q.NodeID])
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if !out.Correct || out.Kind != OutcomeAdvance {
			t.Fatalf("correct answer did not advance: %+v", out)
		}
		if out.Completed {
			break
		}
	}

	if c.Status() != StatusCompleted {
		t.Fatalf("status = %v, want completed", c.Status())
	}
	score, ok := c.Score()
	if !ok {
		t.Fatal("completed session must expose a score")
	}
	if score.CorrectCount != 2 || score.AttemptCount != 2 || score.Accuracy != 1.0 {
		t.Fatalf("score = %+v, want 2/2 at 1.0", score)
	}
	for _, id := range renderer.hidden {
		if renderer.restores[id] != 1 {
			t.Errorf("node %s restored %d times, want exactly 1", id, renderer.restores[id])
		}
	}
}

func TestStart_SingleNodeDiagram(t *testing.T) {
	c := New(grading.NewMockClient(), nil, Options{})
	info := mustStart(t, c, snapshotOf(biologyNodes(1)))
	if info.NodeCount != 1 {
		t.Fatalf("1-node diagram should redact 1, got %d", info.NodeCount)
	}
}

func TestStart_EmptyDiagram(t *testing.T) {
	c := New(grading.NewMockClient(), nil, Options{})
	_, err := c.Start(context.Background(), snapshotOf(nil), "en")
	if err == nil {
		t.Fatal("expected error for an empty diagram")
	}
	if c.Status() != StatusIdle {
		t.Fatalf("status = %v, want idle after failed start", c.Status())
	}
}

func TestWrongAnswer_EntersRemediationWithoutAdvancing(t *testing.T) {
	nodes := biologyNodes(1)
	c := New(grading.NewMockClient(), nil, Options{})
	mustStart(t, c, snapshotOf(nodes))

	out, err := c.SubmitAnswer(context.Background(), "no idea")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if out.Kind != OutcomeRemediate {
		t.Fatalf("kind = %v, want remediate", out.Kind)
	}
	if out.Remediation == nil || out.VerificationQuestion == "" {
		t.Fatal("remediation outcome must carry material and a verification question")
	}
	if p := c.Progress(); p.Resolved != 0 {
		t.Fatalf("cursor advanced during remediation: %+v", p)
	}

	// Primary answers are rejected until the node resolves.
	if _, err := c.SubmitAnswer(context.Background(), "again"); !errors.Is(err, ErrAwaitingVerification) {
		t.Fatalf("expected ErrAwaitingVerification, got %v", err)
	}

	// A verification showing understanding resolves the node.
	vout, err := c.SubmitVerification(context.Background(), "it relates to "+nodes[0].Text)
	if err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if vout.Kind != OutcomeAdvance || !vout.Completed {
		t.Fatalf("successful verification should complete: %+v", vout)
	}

	score, _ := c.Score()
	if score.CorrectCount != 1 || score.AttemptCount != 1 {
		t.Fatalf("remediated success must count as correct once: %+v", score)
	}
}

func TestEscalation_ExhaustionOffersSkip(t *testing.T) {
	nodes := biologyNodes(1)
	renderer := newCountingRenderer()
	c := New(grading.NewMockClient(), renderer, Options{})
	mustStart(t, c, snapshotOf(nodes))

	if _, err := c.Skip(context.Background()); !errors.Is(err, ErrSkipUnavailable) {
		t.Fatalf("skip before exhaustion should be rejected, got %v", err)
	}

	out, err := c.SubmitAnswer(context.Background(), "wrong")
	if err != nil || out.Kind != OutcomeRemediate {
		t.Fatalf("expected remediation, got %+v err %v", out, err)
	}

	firstQ := out.VerificationQuestion
	var lastKind OutcomeKind
	for i := 0; i < 3; i++ {
		vout, err := c.SubmitVerification(context.Background(), "still no idea")
		if err != nil {
			t.Fatalf("verification %d failed: %v", i+1, err)
		}
		lastKind = vout.Kind
		if i == 0 {
			if vout.Kind != OutcomeEscalate {
				t.Fatalf("first failure should escalate, got %v", vout.Kind)
			}
			if vout.VerificationQuestion == firstQ {
				t.Fatal("escalation must regenerate the question under a new angle")
			}
		}
	}
	if lastKind != OutcomeSkipAvailable {
		t.Fatalf("third failure should offer skip, got %v", lastKind)
	}

	recs := c.Misconceptions()
	if len(recs) != 3 {
		t.Fatalf("expected 3 misconception records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.EscalationLevel != i {
			t.Errorf("record %d escalation level = %d, want %d", i, r.EscalationLevel, i)
		}
		if r.CorrectAnswer != nodes[0].Text {
			t.Errorf("record %d missing ground truth: %+v", i, r)
		}
	}

	// Only skip resolves the node now.
	if _, err := c.SubmitVerification(context.Background(), "x"); !errors.Is(err, ErrNoVerificationPending) {
		t.Fatalf("verification after exhaustion should be rejected, got %v", err)
	}
	sout, err := c.Skip(context.Background())
	if err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if sout.RevealedAnswer != nodes[0].Text || !sout.Completed {
		t.Fatalf("unexpected skip outcome: %+v", sout)
	}

	score, _ := c.Score()
	if score.CorrectCount != 0 || score.AttemptCount != 1 || score.Accuracy != 0 {
		t.Fatalf("skipped node must count as attempted only: %+v", score)
	}
	if renderer.restores[nodes[0].ID] != 1 {
		t.Fatal("skip must restore the node")
	}
}

func TestExit_RestoresEverything(t *testing.T) {
	nodes := biologyNodes(10)
	answers := textByID(nodes)
	renderer := newCountingRenderer()
	c := New(grading.NewMockClient(), renderer, Options{})
	mustStart(t, c, snapshotOf(nodes))

	// Resolve one node, then bail out mid-session.
	q, _ := c.CurrentQuestion()
	if _, err := c.SubmitAnswer(context.Background(), answers[q.NodeID]); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	c.Exit(context.Background())

	if c.Status() != StatusExited {
		t.Fatalf("status = %v, want exited", c.Status())
	}
	for _, id := range renderer.hidden {
		if renderer.restores[id] != 1 {
			t.Errorf("node %s restored %d times on exit, want exactly 1", id, renderer.restores[id])
		}
	}
	if _, err := c.SubmitAnswer(context.Background(), "late"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive after exit, got %v", err)
	}
	if _, ok := c.Score(); ok {
		t.Fatal("exited session must not expose a score")
	}
}

func TestHints_CeilingAndLevels(t *testing.T) {
	c := New(grading.NewMockClient(), nil, Options{})
	mustStart(t, c, snapshotOf(biologyNodes(1)))

	for level := 1; level <= MaxHintLevel; level++ {
		hint, err := c.RequestHint(context.Background())
		if err != nil {
			t.Fatalf("hint %d failed: %v", level, err)
		}
		if hint == "" {
			t.Fatalf("hint %d is empty", level)
		}
		if c.HintLevel() != level {
			t.Fatalf("hint level = %d, want %d", c.HintLevel(), level)
		}
	}

	if _, err := c.RequestHint(context.Background()); !errors.Is(err, ErrHintExhausted) {
		t.Fatalf("fourth hint should be rejected, got %v", err)
	}
}

// failingHintClient degrades the hint operation only.
type failingHintClient struct {
	*grading.MockClient
}

func (f *failingHintClient) Hint(context.Context, grading.HintRequest) (*grading.HintResult, error) {
	return nil, &grading.TransportError{Op: "hint", Err: errors.New("unreachable")}
}

func TestHints_LocalFallbackWhenRemoteFails(t *testing.T) {
	nodes := biologyNodes(1)
	c := New(&failingHintClient{grading.NewMockClient()}, nil, Options{})
	mustStart(t, c, snapshotOf(nodes))

	h1, err := c.RequestHint(context.Background())
	if err != nil {
		t.Fatalf("fallback hint must not surface the failure: %v", err)
	}
	h2, _ := c.RequestHint(context.Background())
	h3, _ := c.RequestHint(context.Background())

	if h1 == "" || h2 == "" || h3 == "" {
		t.Fatal("fallback hints must be non-empty")
	}
	if h2 == h3 {
		t.Fatal("fallback hints must grow more revealing per level")
	}
	if c.HintLevel() != 3 {
		t.Fatalf("fallback hints still count toward the ceiling, level = %d", c.HintLevel())
	}
	if _, err := c.RequestHint(context.Background()); !errors.Is(err, ErrHintExhausted) {
		t.Fatalf("expected ErrHintExhausted, got %v", err)
	}
}

// flakyValidateClient fails the first validation, then recovers.
type flakyValidateClient struct {
	*grading.MockClient
	calls int
}

func (f *flakyValidateClient) ValidateAnswer(ctx context.Context, req grading.ValidateRequest) (*grading.ValidateResult, error) {
	f.calls++
	if f.calls == 1 {
		return nil, &grading.TransportError{Op: "validate-answer", Err: errors.New("connection reset")}
	}
	return f.MockClient.ValidateAnswer(ctx, req)
}

func TestTransportError_PreservesStateForRetry(t *testing.T) {
	nodes := biologyNodes(1)
	c := New(&flakyValidateClient{MockClient: grading.NewMockClient()}, nil, Options{})
	mustStart(t, c, snapshotOf(nodes))

	_, err := c.SubmitAnswer(context.Background(), "wrong")
	var te *grading.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if c.Status() != StatusActive {
		t.Fatalf("transport failure must not end the session, status = %v", c.Status())
	}
	if p := c.Progress(); p.Resolved != 0 {
		t.Fatalf("transport failure must not advance: %+v", p)
	}

	// Retry goes through and is graded normally.
	out, err := c.SubmitAnswer(context.Background(), "wrong")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if out.Kind != OutcomeRemediate {
		t.Fatalf("retry verdict = %v, want remediate", out.Kind)
	}
}

// blockingClient parks validations until released, for overlap tests.
type blockingClient struct {
	*grading.MockClient
	entered chan struct{}
	release chan struct{}
}

func newBlockingClient() *blockingClient {
	return &blockingClient{
		MockClient: grading.NewMockClient(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (b *blockingClient) ValidateAnswer(ctx context.Context, req grading.ValidateRequest) (*grading.ValidateResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.MockClient.ValidateAnswer(ctx, req)
}

func TestBusy_RejectsOverlappingRequests(t *testing.T) {
	c := New(newBlockingClient(), nil, Options{})
	client := c.grader.(*blockingClient)
	mustStart(t, c, snapshotOf(biologyNodes(1)))

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitAnswer(context.Background(), "wrong")
		done <- err
	}()
	<-client.entered

	if _, err := c.SubmitAnswer(context.Background(), "another"); !errors.Is(err, ErrBusy) {
		t.Fatalf("overlapping submit should be rejected, got %v", err)
	}
	if _, err := c.RequestHint(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("hint during in-flight grading should be rejected, got %v", err)
	}

	close(client.release)
	if err := <-done; err != nil {
		t.Fatalf("original submission failed: %v", err)
	}
}

func TestLateResponseAfterExitIsDiscarded(t *testing.T) {
	renderer := newCountingRenderer()
	c := New(newBlockingClient(), renderer, Options{})
	client := c.grader.(*blockingClient)
	nodes := biologyNodes(1)
	mustStart(t, c, snapshotOf(nodes))

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitAnswer(context.Background(), "wrong")
		done <- err
	}()
	<-client.entered

	c.Exit(context.Background())
	close(client.release)

	if err := <-done; !errors.Is(err, ErrSessionOver) {
		t.Fatalf("late response should be discarded with ErrSessionOver, got %v", err)
	}
	if c.Status() != StatusExited {
		t.Fatalf("status = %v, want exited", c.Status())
	}
	if renderer.restores[nodes[0].ID] != 1 {
		t.Fatal("exit must have restored the node exactly once")
	}
}

// brokenStartClient fails session creation.
type brokenStartClient struct {
	*grading.MockClient
	fail bool
}

func (b *brokenStartClient) StartSession(ctx context.Context, req grading.StartRequest) (*grading.StartResult, error) {
	if b.fail {
		return nil, &grading.TransportError{Op: "start-session", Err: errors.New("service down")}
	}
	return b.MockClient.StartSession(ctx, req)
}

func TestStartFailure_RevertsToIdleAndIsRetryable(t *testing.T) {
	renderer := newCountingRenderer()
	client := &brokenStartClient{MockClient: grading.NewMockClient(), fail: true}
	c := New(client, renderer, Options{})
	snap := snapshotOf(biologyNodes(10))

	_, err := c.Start(context.Background(), snap, "en")
	var se *StartError
	if !errors.As(err, &se) {
		t.Fatalf("expected StartError, got %v", err)
	}
	if c.Status() != StatusIdle {
		t.Fatalf("status = %v, want idle after failed start", c.Status())
	}
	for _, id := range renderer.hidden {
		if renderer.restores[id] != 1 {
			t.Errorf("node %s not restored after failed start", id)
		}
	}

	// Same controller, second attempt succeeds.
	client.fail = false
	if _, err := c.Start(context.Background(), snap, "en"); err != nil {
		t.Fatalf("retry after failed start should succeed: %v", err)
	}
	if c.Status() != StatusActive {
		t.Fatalf("status = %v, want active", c.Status())
	}
}

// deadValidateClient fails every validation.
type deadValidateClient struct {
	*grading.MockClient
}

func (deadValidateClient) ValidateAnswer(context.Context, grading.ValidateRequest) (*grading.ValidateResult, error) {
	return nil, &grading.TransportError{Op: "validate-answer", Err: errors.New("service down")}
}

func TestGroundTruthAnswer_SkipsRemoteValidation(t *testing.T) {
	nodes := biologyNodes(1)
	// Only the local pre-check can mark this correct.
	c := New(deadValidateClient{grading.NewMockClient()}, nil, Options{})
	mustStart(t, c, snapshotOf(nodes))

	out, err := c.SubmitAnswer(context.Background(), "  Concept 0! ")
	if err != nil {
		t.Fatalf("verbatim answer must not need the remote service: %v", err)
	}
	if !out.Correct || !out.Completed {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}
