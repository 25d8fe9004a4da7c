package escalation

import (
	"strings"
	"testing"

	"github.com/arjunm/recallmap/internal/diagram"
)

func TestAngle_RotationAndClamp(t *testing.T) {
	var s State

	want := []Angle{AngleStructural, AngleFunctional, AngleApplied, AngleDefinitional}
	for i, w := range want {
		if got := s.Angle(); got != w {
			t.Fatalf("attempt %d: angle = %s, want %s", i, got, w)
		}
		s.RecordFailure()
	}

	// Beyond the list the angle clamps to the last entry instead of panicking.
	for i := 0; i < 5; i++ {
		s.RecordFailure()
	}
	if got := s.Angle(); got != AngleDefinitional {
		t.Fatalf("clamped angle = %s, want %s", got, AngleDefinitional)
	}
}

func TestExhausted(t *testing.T) {
	var s State
	for i := 0; i < MaxAttempts-1; i++ {
		s.RecordFailure()
		if s.Exhausted() {
			t.Fatalf("exhausted after %d failures, want only at %d", i+1, MaxAttempts)
		}
	}
	s.RecordFailure()
	if !s.Exhausted() {
		t.Fatal("expected exhausted at MaxAttempts failures")
	}

	s.Reset()
	if s.Exhausted() || s.Attempts != 0 {
		t.Fatal("reset should clear the counter")
	}
}

func TestQuestion_MentionsConcept(t *testing.T) {
	for _, angle := range []Angle{AngleStructural, AngleFunctional, AngleApplied, AngleDefinitional} {
		q := Question(angle, "osmosis", diagram.TypeBranch)
		if !strings.Contains(q, "osmosis") {
			t.Errorf("angle %s: question %q does not mention the concept", angle, q)
		}
	}
}

func TestQuestion_UnknownAngleFallsBackToDefinition(t *testing.T) {
	q := Question(Angle("bogus"), "osmosis", diagram.TypeLeaf)
	if !strings.Contains(q, "your own words") {
		t.Fatalf("unexpected fallback question: %q", q)
	}
}
