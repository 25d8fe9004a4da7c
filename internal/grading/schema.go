package grading

import "github.com/arjunm/recallmap/internal/llm"

// questionListSchema shapes the session-start output: one question per
// redacted node, in the order the nodes were given.
var questionListSchema = &llm.Schema{
	Name:        "question-list",
	Description: "Questions for the redacted diagram nodes, one per node in input order",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"node_id": map[string]any{
							"type":        "string",
							"description": "ID of the node this question targets",
						},
						"text": map[string]any{
							"type":        "string",
							"description": "The question shown to the learner",
						},
						"difficulty": map[string]any{
							"type": "string",
							"enum": []any{"easy", "medium", "hard"},
						},
						"context": map[string]any{
							"type":        "string",
							"description": "Grading notes carried back on validation, never shown to the learner",
						},
					},
					"required": []any{"node_id", "text", "difficulty", "context"},
				},
			},
		},
		"required": []any{"questions"},
	},
}

// verdictSchema shapes an answer-validation verdict.
var verdictSchema = &llm.Schema{
	Name:        "answer-verdict",
	Description: "Verdict on a learner's answer with optional remediation material",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{"type": "boolean"},
			"message": map[string]any{
				"type":        "string",
				"description": "Short feedback for the learner",
			},
			"confidence": map[string]any{
				"type":        "number",
				"description": "Grading confidence 0.0-1.0",
			},
			"misconception": map[string]any{
				"type":        "string",
				"description": "Suspected misconception label, empty when none",
			},
			"has_remediation": map[string]any{
				"type":        "boolean",
				"description": "Whether remediation material is worth showing",
			},
			"remediation": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"explanation": map[string]any{
						"type":        "string",
						"description": "2-4 sentence re-teaching of the concept",
					},
					"example": map[string]any{
						"type":        "string",
						"description": "One concrete example grounding the explanation",
					},
				},
				"required": []any{"explanation", "example"},
			},
		},
		"required": []any{"correct", "message", "confidence", "has_remediation"},
	},
}

// hintSchema shapes a progressive hint.
var hintSchema = &llm.Schema{
	Name:        "progressive-hint",
	Description: "A hint that narrows the answer without revealing it",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hint": map[string]any{"type": "string"},
		},
		"required": []any{"hint"},
	},
}

// understandingSchema shapes an understanding-verification verdict.
var understandingSchema = &llm.Schema{
	Name:        "understanding-verdict",
	Description: "Whether the learner's explanation shows real understanding",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"understanding_verified": map[string]any{"type": "boolean"},
			"message": map[string]any{
				"type":        "string",
				"description": "Short feedback for the learner",
			},
		},
		"required": []any{"understanding_verified", "message"},
	},
}
