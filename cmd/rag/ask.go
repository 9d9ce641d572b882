package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pdf-rag/internal/app"
	"pdf-rag/internal/rag"
)

func newAskCmd() *cobra.Command {
	var (
		topK        int
		showContext bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Retrieve the most relevant chunks for the question and stream the
model's answer. With an empty index the question is answered as a plain chat.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(deps app.Deps) error {
				return runAsk(cmd, deps, strings.Join(args, " "), topK, showContext)
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks to retrieve (default TOP_K)")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved context before the answer")
	return cmd
}

func runAsk(cmd *cobra.Command, deps app.Deps, question string, topK int, showContext bool) error {
	out := cmd.OutOrStdout()
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}
	if topK <= 0 {
		topK = deps.Config.TopK
	}

	ans, err := deps.Answerer().Ask(cmd.Context(), question, topK)
	if err != nil {
		return err
	}
	if ans.Mode == rag.ModeChat {
		fmt.Fprintln(out, "No documents indexed, answering in regular chat mode.")
	}
	if showContext && ans.Context != "" {
		fmt.Fprintf(out, "%s\n\n", ans.Context)
	}
	for fragment := range ans.Stream {
		fmt.Fprint(out, fragment)
	}
	fmt.Fprintln(out)
	return nil
}
