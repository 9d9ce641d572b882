package main

import (
	"os"

	"github.com/spf13/cobra"

	"pdf-rag/internal/app"
)

// buildDeps is replaced in tests.
var buildDeps = app.Build

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rag",
		Short: "Ask questions about your PDFs with a local retrieval-augmented LLM",
		Long: `rag indexes PDF, Markdown and text documents into a vector store and
answers questions from the most relevant chunks.

Example usage:
  rag index ./pdfs            # Index a folder of documents
  rag ask "What is chapter 3 about?"
  rag doctor                  # Check the model, embedder and store`,
		SilenceUsage: true,
	}
	root.AddCommand(newIndexCmd(), newAskCmd(), newCountCmd(), newClearCmd(), newDoctorCmd())
	return root
}

// withDeps builds dependencies for one command run and closes them after.
func withDeps(fn func(deps app.Deps) error) error {
	deps, err := buildDeps()
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(deps)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
