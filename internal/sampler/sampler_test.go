package sampler

import (
	"fmt"
	"testing"

	"github.com/arjunm/recallmap/internal/diagram"
)

func makeNodes(n int) []diagram.Node {
	nodes := make([]diagram.Node, n)
	for i := range nodes {
		nodes[i] = diagram.Node{
			ID:   fmt.Sprintf("n%d", i),
			Type: diagram.TypeBranch,
			Text: fmt.Sprintf("concept %d", i),
		}
	}
	return nodes
}

func TestSample_Count(t *testing.T) {
	cases := []struct {
		total int
		ratio float64
		want  int
	}{
		{1, 0.2, 1},  // floor clamp: never empty
		{2, 0.2, 1},
		{4, 0.2, 1},
		{5, 0.2, 1},
		{6, 0.2, 2},
		{10, 0.2, 2}, // scenario A
		{11, 0.2, 3},
		{50, 0.2, 10},
		{3, 1.0, 3},
		{3, 2.0, 3}, // clamped to total
	}

	for _, tc := range cases {
		got, err := Sample(makeNodes(tc.total), tc.ratio)
		if err != nil {
			t.Fatalf("Sample(%d, %v): unexpected error: %v", tc.total, tc.ratio, err)
		}
		if len(got) != tc.want {
			t.Errorf("Sample(%d, %v) returned %d nodes, want %d", tc.total, tc.ratio, len(got), tc.want)
		}
	}
}

func TestSample_NoDuplicatesAndSubset(t *testing.T) {
	nodes := makeNodes(25)
	valid := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		valid[n.ID] = true
	}

	for trial := 0; trial < 50; trial++ {
		got, err := Sample(nodes, 0.4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen := make(map[string]bool, len(got))
		for _, n := range got {
			if !valid[n.ID] {
				t.Fatalf("sampled node %q not in input", n.ID)
			}
			if seen[n.ID] {
				t.Fatalf("node %q sampled twice", n.ID)
			}
			seen[n.ID] = true
		}
	}
}

func TestSample_DoesNotMutateInput(t *testing.T) {
	nodes := makeNodes(20)
	orig := make([]diagram.Node, len(nodes))
	copy(orig, nodes)

	if _, err := Sample(nodes, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range nodes {
		if nodes[i] != orig[i] {
			t.Fatalf("input mutated at index %d: %v != %v", i, nodes[i], orig[i])
		}
	}
}

func TestSample_Empty(t *testing.T) {
	if _, err := Sample(nil, 0.2); err != ErrEmptySelection {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestSample_ZeroRatioFallsBackToDefault(t *testing.T) {
	got, err := Sample(makeNodes(10), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected default ratio to pick 2 of 10, got %d", len(got))
	}
}
