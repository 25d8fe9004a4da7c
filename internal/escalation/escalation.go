// Package escalation drives the remediation sub-loop: it counts failed
// understanding checks per node and rotates through a fixed list of
// cognitive angles to keep regenerated verification questions from
// repeating themselves.
package escalation

import (
	"fmt"

	"github.com/arjunm/recallmap/internal/diagram"
)

// Angle is a question framing used for verification questions.
type Angle string

const (
	AngleStructural   Angle = "structural"   // where the concept sits in the map
	AngleFunctional   Angle = "functional"   // what the concept does
	AngleApplied      Angle = "applied"      // the concept in a concrete scenario
	AngleDefinitional Angle = "definitional" // plain definition
)

// angles is the fixed escalation order. Attempt N uses angles[N],
// clamped to the last entry: the index never goes out of range.
var angles = [...]Angle{AngleStructural, AngleFunctional, AngleApplied, AngleDefinitional}

// MaxAttempts is the number of failed verifications allowed before the
// skip affordance is forced.
const MaxAttempts = 3

// State is the per-node escalation counter. Zero value is ready to use
// and is reset whenever the session cursor advances.
type State struct {
	Attempts int
}

// Angle returns the cognitive angle for the current attempt.
func (s *State) Angle() Angle {
	i := s.Attempts
	if i >= len(angles) {
		i = len(angles) - 1
	}
	return angles[i]
}

// RecordFailure increments the counter after a failed verification.
func (s *State) RecordFailure() { s.Attempts++ }

// Exhausted reports whether the skip affordance must be offered instead
// of another remediation round.
func (s *State) Exhausted() bool { return s.Attempts >= MaxAttempts }

// Reset clears the counter for the next node.
func (s *State) Reset() { s.Attempts = 0 }

// Question composes the verification question for a concept under the
// given angle. The concept has already been taught by the remediation
// material, so naming it is intentional: the check is about
// understanding, not recall of the hidden text.
func Question(angle Angle, concept string, nodeType diagram.NodeType) string {
	place := placeInDiagram(nodeType)
	switch angle {
	case AngleStructural:
		return fmt.Sprintf("In this diagram, %q appears as %s. What does it connect to, and why does it belong there?", concept, place)
	case AngleFunctional:
		return fmt.Sprintf("What role does %q play in the topic this diagram describes?", concept)
	case AngleApplied:
		return fmt.Sprintf("Give a concrete example or situation where %q matters.", concept)
	default:
		return fmt.Sprintf("In your own words, what is %q?", concept)
	}
}

func placeInDiagram(t diagram.NodeType) string {
	switch t {
	case diagram.TypeCentral:
		return "the central topic"
	case diagram.TypeBranch:
		return "a main branch"
	case diagram.TypeNote:
		return "an annotation"
	default:
		return "a detail node"
	}
}
