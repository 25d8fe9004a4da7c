package assess

import (
	"fmt"

	"github.com/arjunm/recallmap/internal/diagram"
	"github.com/arjunm/recallmap/internal/redaction"
)

// fallbackHint derives a hint locally when the remote hint operation is
// unreachable. It is deterministic for a given (node text, level) and
// never more revealing than the remote hint it stands in for:
//
//	level 1: category nudge, no text leakage
//	level 2: first character
//	level 3: first character and total character count
func fallbackHint(node *redaction.RedactedNode, level int) string {
	switch level {
	case 1:
		return fmt.Sprintf("Think about what %s would add to the surrounding topic.", nodeCategory(node.Type))
	case 2:
		return fmt.Sprintf("It starts with %q.", firstChar(node.OriginalText))
	default:
		runes := []rune(node.OriginalText)
		return fmt.Sprintf("It starts with %q and is %d characters long.", firstChar(node.OriginalText), len(runes))
	}
}

func firstChar(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func nodeCategory(t diagram.NodeType) string {
	switch t {
	case diagram.TypeCentral:
		return "the central topic"
	case diagram.TypeBranch:
		return "a main concept"
	case diagram.TypeNote:
		return "a side note"
	default:
		return "a supporting detail"
	}
}
