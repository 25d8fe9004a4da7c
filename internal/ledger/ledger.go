// Package ledger keeps the append-only record of failed understanding
// checks for session-level analytics. Records are never graded against
// and never mutated.
package ledger

import (
	"sync"
	"time"
)

// Record is one failed verification attempt.
type Record struct {
	NodeID          string
	UserAnswer      string
	CorrectAnswer   string
	EscalationLevel int
	Timestamp       time.Time
}

// Ledger is an in-memory append-only list scoped to one session.
type Ledger struct {
	mu      sync.Mutex
	records []Record
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds a record, stamping it with the current time when the
// timestamp is zero.
func (l *Ledger) Append(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
}

// Records returns a copy of all records in append order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// CountForNode returns how many records exist for the given node.
func (l *Ledger) CountForNode(nodeID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.NodeID == nodeID {
			n++
		}
	}
	return n
}

// Len returns the total number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
