// Package redaction owns the authoritative copy of hidden node content
// and the restore capabilities that undo redaction in the editor.
package redaction

import (
	"fmt"
	"sync"

	"github.com/arjunm/recallmap/internal/diagram"
)

// RedactedNode is one sampled node whose text is hidden from the
// learner for the duration of a session. OriginalText is the engine's
// ground truth for correctness fallback and for revealing answers.
type RedactedNode struct {
	ID           string
	Type         diagram.NodeType
	OriginalText string

	restore  diagram.RestoreFunc
	restored bool
}

// Restored reports whether the node has already been revealed.
func (n *RedactedNode) Restored() bool { return n.restored }

// Store tracks every redacted node of a session. It is the single place
// that invokes restore capabilities, so restores stay exactly-once even
// when multiple resolution paths race with session exit.
type Store struct {
	mu       sync.Mutex
	renderer diagram.Renderer
	nodes    []*RedactedNode
}

// NewStore creates a Store backed by the given renderer.
func NewStore(r diagram.Renderer) *Store {
	if r == nil {
		r = diagram.NopRenderer{}
	}
	return &Store{renderer: r}
}

// Redact snapshots each node's text and instructs the renderer to hide
// it. Node order is preserved: it becomes the question order of the
// session. If hiding fails partway, every node hidden so far is
// restored before the error is returned.
func (s *Store) Redact(nodes []diagram.Node) ([]*RedactedNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range nodes {
		restore, err := s.renderer.HideNode(n.ID)
		if err != nil {
			s.restoreAllLocked()
			return nil, fmt.Errorf("hide node %s: %w", n.ID, err)
		}
		s.nodes = append(s.nodes, &RedactedNode{
			ID:           n.ID,
			Type:         n.Type,
			OriginalText: n.Text,
			restore:      restore,
		})
	}
	return s.nodes, nil
}

// Restore reveals a single node. Restoring an already-restored node is
// a no-op, not an error: every resolution path (correct answer,
// remediation success, skip, exit) calls this without coordination.
func (s *Store) Restore(n *RedactedNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked(n)
}

// RestoreAll reveals every still-redacted node. Runs unconditionally on
// session exit regardless of progress.
func (s *Store) RestoreAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreAllLocked()
}

// Nodes returns the redacted nodes in question order.
func (s *Store) Nodes() []*RedactedNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*RedactedNode, len(s.nodes))
	copy(out, s.nodes)
	return out
}

func (s *Store) restoreAllLocked() {
	for _, n := range s.nodes {
		s.restoreLocked(n)
	}
}

func (s *Store) restoreLocked(n *RedactedNode) {
	if n == nil || n.restored {
		return
	}
	n.restored = true
	if n.restore != nil {
		// Renderer-side failures don't undo the bookkeeping: the node
		// counts as restored so it is never retried into a double reveal.
		_ = n.restore()
	}
}
