// Package diagram defines the engine's view of the external mind-map
// editor: the node model passed in with a snapshot, and the renderer
// capability used to hide and reveal node content in the browser.
//
// The engine never touches the DOM/SVG representation directly. All
// visual effects go through the Renderer interface so the assessment
// core can run (and be tested) without any editor attached.
package diagram

// NodeType is the diagram-specific role of a node. It only influences
// how question context and local hints are phrased.
type NodeType string

const (
	TypeCentral NodeType = "central" // root topic of the map
	TypeBranch  NodeType = "branch"  // first-level concept
	TypeLeaf    NodeType = "leaf"    // detail node
	TypeNote    NodeType = "note"    // free-floating annotation
)

// Node is a single diagram node as reported by the editor.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Text string   `json:"text"`
}

// Snapshot is a point-in-time copy of the diagram handed to the engine
// at session start. Node order is whatever the editor reports; the
// sampler fixes question order independently of it.
type Snapshot struct {
	DiagramID   string `json:"diagram_id"`
	DiagramType string `json:"diagram_type"` // e.g. "mindmap", "concept-map"
	Title       string `json:"title"`
	Nodes       []Node `json:"nodes"`
}

// RestoreFunc reveals a previously hidden node. It is the capability
// handed back by HideNode; callers must invoke it at most once per
// hidden node (the redaction store enforces idempotence on top).
type RestoreFunc func() error

// Renderer is the editor-side collaborator that owns node visibility.
type Renderer interface {
	// HideNode blanks the node's text in the editor and returns the
	// capability that undoes it.
	HideNode(id string) (RestoreFunc, error)
}

// NopRenderer is a Renderer with no visual effect. Used when no editor
// is connected (headless assessments, tests).
type NopRenderer struct{}

func (NopRenderer) HideNode(id string) (RestoreFunc, error) {
	return func() error { return nil }, nil
}
