package rag

import (
	"fmt"
	"strings"
)

// promptTemplate is the grounded generation prompt. The context block
// always precedes the question so the model reads the evidence before
// the ask; the trailing "Answer:" cue anchors the completion.
const promptTemplate = "Context:\n%s\n\nQuestion: %s\n\nAnswer:"

// JoinContext concatenates the content of ranked chunks in rank order,
// separated by a blank line, forming a single context block.
func JoinContext(chunks []Scored) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// ContextTexts returns the content of each ranked chunk in rank order.
// The query response echoes these so the caller can see exactly which
// chunks grounded the answer.
func ContextTexts(chunks []Scored) []string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Content)
	}
	return texts
}

// BuildPrompt assembles the grounded generation prompt from the ranked
// chunks and the user's question. An empty chunk list yields an empty
// context section but the prompt stays well-formed — the model is free
// to answer that it found nothing relevant.
func BuildPrompt(chunks []Scored, query string) string {
	return fmt.Sprintf(promptTemplate, JoinContext(chunks), query)
}
