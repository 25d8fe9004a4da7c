package grading

import (
	"fmt"
	"strings"
)

const graderSystemPrompt = `You are the grading service for a mind-map learning tool. Parts of a learner's completed diagram have been hidden, and the learner must recall or reconstruct the missing content. You write questions, grade free-text answers generously but honestly (accept synonyms and paraphrases, reject different concepts), and produce hints and remediation material. Always answer in the requested language.`

func buildStartMessage(req StartRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Diagram type: %s\n", req.DiagramType)
	if req.DiagramName != "" {
		fmt.Fprintf(&b, "Diagram title: %s\n", req.DiagramName)
	}
	fmt.Fprintf(&b, "Language: %s\n", req.Language)

	b.WriteString("\nHidden nodes (in question order):\n")
	for _, n := range req.Nodes {
		fmt.Fprintf(&b, "- id=%s type=%s hidden text: %q\n", n.ID, n.Type, n.Text)
	}

	b.WriteString(`
Instructions:
Write exactly one question per hidden node, in the same order as listed.
Each question should prompt the learner to recall the hidden text from the
surrounding diagram context, without quoting or strongly paraphrasing the
hidden text itself. Set difficulty from how central the node is (central
topic = easy to recall, detail leaf = harder). Put any notes a grader would
need (acceptable synonyms, what counts as close enough) in the context field.`)

	return b.String()
}

func buildValidateMessage(req ValidateRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Question: %s\n", req.Question.Text)
	fmt.Fprintf(&b, "Grading context: %s\n", req.Question.Context)
	fmt.Fprintf(&b, "Learner answer: %q\n", req.UserAnswer)

	b.WriteString(`
Instructions:
Decide whether the answer demonstrates the learner knows the hidden
content. Accept synonyms, paraphrases, spelling slips and partial wording
that clearly refer to the right concept. Reject answers naming a different
concept, even a related one.
If the answer is wrong in a way that suggests a fixable misunderstanding,
set has_remediation to true and include remediation material: a short
re-teaching explanation plus one concrete example. If the answer is just a
blank guess with nothing to teach against, set has_remediation to false.`)

	return b.String()
}

func buildHintMessage(req HintRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Question: %s\n", req.Question.Text)
	fmt.Fprintf(&b, "Grading context: %s\n", req.Question.Context)
	fmt.Fprintf(&b, "Hint level: %d of 3\n", req.Level)

	b.WriteString(`
Instructions:
Write one hint matched to the level. Level 1: point at the category or the
neighborhood in the diagram, reveal nothing of the wording. Level 2: narrow
it down further, at most the first letter of the hidden text. Level 3:
strongest hint short of saying the answer: first letter plus shape or
length of the expression. Never state the hidden text outright.`)

	return b.String()
}

func buildVerifyMessage(req VerifyRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Concept under discussion: %q\n", req.CorrectAnswer)
	fmt.Fprintf(&b, "Verification question: %s\n", req.VerificationQuestion)
	fmt.Fprintf(&b, "Learner explanation: %q\n", req.UserAnswer)

	b.WriteString(`
Instructions:
The learner already saw teaching material about this concept; the question
checks whether they understood it, not whether they can repeat the term.
Verify understanding when the explanation engages with the concept
correctly in the learner's own words, even loosely. Do not verify empty,
evasive, or clearly wrong explanations. Keep the feedback message to one
or two sentences.`)

	return b.String()
}
