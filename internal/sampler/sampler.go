// Package sampler picks the subset of diagram nodes to redact for an
// assessment session.
package sampler

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/arjunm/recallmap/internal/diagram"
)

// DefaultRatio is the fraction of nodes redacted per session.
const DefaultRatio = 0.2

// ErrEmptySelection indicates there were no nodes to sample from.
// Session start aborts on this error.
var ErrEmptySelection = errors.New("sampler: diagram has no nodes to sample")

// Sample returns a uniform random subset of nodes sized
// max(1, ceil(len(nodes)*ratio)), clamped to len(nodes).
//
// The input slice is never mutated: the shuffle runs over a copy. The
// order of the returned nodes is the question order for the session;
// callers must not re-sort it.
func Sample(nodes []diagram.Node, ratio float64) ([]diagram.Node, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptySelection
	}
	if ratio <= 0 {
		ratio = DefaultRatio
	}

	count := int(math.Ceil(float64(len(nodes)) * ratio))
	if count < 1 {
		count = 1
	}
	if count > len(nodes) {
		count = len(nodes)
	}

	shuffled := make([]diagram.Node, len(nodes))
	copy(shuffled, nodes)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:count], nil
}
