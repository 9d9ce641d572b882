package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// Client streams a model's answer as text fragments. Failures are yielded
// as a final "Error: ..." fragment rather than returned.
type Client interface {
	Stream(ctx context.Context, system, prompt string) iter.Seq[string]
}

const (
	// RAGSystemPrompt is used when answering from retrieved context.
	RAGSystemPrompt = "You are a helpful and smart research assistant. Answer questions based on the provided context from the PDFs. Be accurate and cite sources when possible."

	// ChatSystemPrompt is used when no documents are indexed.
	ChatSystemPrompt = "You are a helpful and smart assistant."
)

// BuildPrompt combines a formatted context block with the user's question.
func BuildPrompt(contextBlock, question string) string {
	return fmt.Sprintf("Context from PDFs:\n%s\n\nQuestion: %s", contextBlock, question)
}

// Collect drains a stream into one string.
func Collect(fragments iter.Seq[string]) string {
	var b strings.Builder
	for f := range fragments {
		b.WriteString(f)
	}
	return b.String()
}

func errorFragment(err error) string {
	return fmt.Sprintf("Error: %v", err)
}
