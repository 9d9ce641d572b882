package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pdf-rag/internal/app"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of indexed chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(deps app.Deps) error {
				n, err := deps.Index.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d chunks indexed\n", n)
				return nil
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every indexed chunk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "Delete the whole index?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return withDeps(func(deps app.Deps) error {
				if err := deps.Index.Clear(cmd.Context()); err != nil {
					return err
				}
				if err := deps.Cache.Invalidate(cmd.Context()); err != nil {
					deps.Log.Warn("failed to invalidate context cache", "err", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Index cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a y/n question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (y/n): ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the tokenizer, store, embedder, model and cache work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(deps app.Deps) error {
				return printChecks(cmd, deps.Doctor(cmd.Context()))
			})
		},
	}
}

func printChecks(cmd *cobra.Command, checks []app.Check) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, c := range checks {
		if c.OK() {
			fmt.Fprintf(out, "  ok    %-10s %s\n", c.Name, c.Detail)
			continue
		}
		failed++
		fmt.Fprintf(out, "  FAIL  %-10s %v\n", c.Name, c.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}
