package retriever

import (
	"fmt"
	"strings"
)

const (
	// NoContext is returned by Format when nothing was retrieved.
	NoContext = "No relevant context found."

	// Separator joins rendered chunk blocks.
	Separator = "\n---\n"

	unknownSource = "Unknown"
)

// RetrievedChunk is a search hit ready for formatting.
type RetrievedChunk struct {
	Text      string
	SourcePDF string
	Distance  *float64 // nil when the search did not report one
	Metadata  map[string]string
}

// Format renders chunks, in the given order, as citation-labelled blocks:
//
//	[Source 1: report.pdf]
//	chunk text
//
// Blocks are joined with Separator. The output depends only on the input.
func Format(chunks []RetrievedChunk) string {
	if len(chunks) == 0 {
		return NoContext
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		source := c.SourcePDF
		if source == "" {
			source = unknownSource
		}
		parts[i] = fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, source, c.Text)
	}
	return strings.Join(parts, Separator)
}
