package redaction

import (
	"errors"
	"testing"

	"github.com/arjunm/recallmap/internal/diagram"
)

// countingRenderer records hide calls and how many times each restore
// capability fires.
type countingRenderer struct {
	hidden   []string
	restores map[string]int
	failOn   string
}

func newCountingRenderer() *countingRenderer {
	return &countingRenderer{restores: make(map[string]int)}
}

func (r *countingRenderer) HideNode(id string) (diagram.RestoreFunc, error) {
	if id == r.failOn {
		return nil, errors.New("renderer gone")
	}
	r.hidden = append(r.hidden, id)
	return func() error {
		r.restores[id]++
		return nil
	}, nil
}

func testNodes() []diagram.Node {
	return []diagram.Node{
		{ID: "a", Type: diagram.TypeBranch, Text: "photosynthesis"},
		{ID: "b", Type: diagram.TypeLeaf, Text: "chlorophyll"},
		{ID: "c", Type: diagram.TypeLeaf, Text: "glucose"},
	}
}

func TestRedact_PreservesOrderAndText(t *testing.T) {
	r := newCountingRenderer()
	s := NewStore(r)

	nodes, err := s.Redact(testNodes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 redacted nodes, got %d", len(nodes))
	}
	if nodes[1].ID != "b" || nodes[1].OriginalText != "chlorophyll" {
		t.Errorf("node order or text not preserved: %+v", nodes[1])
	}
	if len(r.hidden) != 3 {
		t.Errorf("expected 3 hide calls, got %d", len(r.hidden))
	}
}

func TestRestore_Idempotent(t *testing.T) {
	r := newCountingRenderer()
	s := NewStore(r)
	nodes, _ := s.Redact(testNodes())

	s.Restore(nodes[0])
	s.Restore(nodes[0])
	s.Restore(nodes[0])

	if got := r.restores["a"]; got != 1 {
		t.Fatalf("restore capability fired %d times, want 1", got)
	}
	if !nodes[0].Restored() {
		t.Fatal("node should report restored")
	}
}

func TestRestoreAll_Unconditional(t *testing.T) {
	r := newCountingRenderer()
	s := NewStore(r)
	nodes, _ := s.Redact(testNodes())

	// One node already resolved mid-session (scenario: exit with 1 of 3 done).
	s.Restore(nodes[0])
	s.RestoreAll()

	for _, id := range []string{"a", "b", "c"} {
		if got := r.restores[id]; got != 1 {
			t.Errorf("node %s restored %d times, want exactly 1", id, got)
		}
	}
}

func TestRedact_PartialFailureRollsBack(t *testing.T) {
	r := newCountingRenderer()
	r.failOn = "c"
	s := NewStore(r)

	if _, err := s.Redact(testNodes()); err == nil {
		t.Fatal("expected error when renderer fails")
	}
	// Nodes hidden before the failure must have been revealed again.
	for _, id := range []string{"a", "b"} {
		if got := r.restores[id]; got != 1 {
			t.Errorf("node %s restored %d times after rollback, want 1", id, got)
		}
	}
}

func TestNewStore_NilRendererIsHeadless(t *testing.T) {
	s := NewStore(nil)
	nodes, err := s.Redact(testNodes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.RestoreAll()
	if !nodes[2].Restored() {
		t.Fatal("headless store should still track restore state")
	}
}
