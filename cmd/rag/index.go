package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pdf-rag/internal/app"
	"pdf-rag/internal/ingest"
)

func newIndexCmd() *cobra.Command {
	var reindex bool
	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Index documents for retrieval",
		Long: `Index files or directories. Directories are scanned recursively for
.pdf, .md and .txt files. Without paths INPUT_DIR is indexed.

An index that already has chunks is reused unless --reindex is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(deps app.Deps) error {
				return runIndex(cmd, deps, args, reindex)
			})
		},
	}
	cmd.Flags().BoolVar(&reindex, "reindex", false, "clear the existing index and rebuild it")
	return cmd
}

func runIndex(cmd *cobra.Command, deps app.Deps, paths []string, reindex bool) error {
	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		paths = []string{deps.Config.InputDir}
	}

	var bar *progressbar.ProgressBar
	progress := func(done, total int, res ingest.DocumentResult) {
		if bar == nil {
			bar = newProgressBar(out, total)
		}
		bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] %s", res.DocumentID))
		_ = bar.Set(done)
	}

	report, err := deps.Ingester().Run(cmd.Context(), ingest.Request{Paths: paths, Reindex: reindex}, progress)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if report.Reused {
		fmt.Fprintf(out, "Using existing index (%d chunks). Run with --reindex to rebuild.\n", report.ExistingChunks)
		return nil
	}
	if len(report.Documents) == 0 {
		fmt.Fprintf(out, "No documents found in %v.\n", paths)
		return nil
	}

	fmt.Fprintf(out, "\nIndexing complete:\n")
	fmt.Fprintf(out, "  Documents indexed: %d\n", report.Succeeded)
	fmt.Fprintf(out, "  Documents failed:  %d\n", report.Failed)
	fmt.Fprintf(out, "  Chunks created:    %d\n", report.TotalChunks)
	if report.Failed > 0 {
		fmt.Fprintf(out, "\nWarnings:\n")
		for _, d := range report.Documents {
			if d.Err != nil {
				fmt.Fprintf(out, "  - %s: %v\n", d.Path, d.Err)
			}
		}
	}
	if report.Succeeded == 0 {
		return fmt.Errorf("no documents indexed: all %d failed", report.Failed)
	}
	return nil
}

func newProgressBar(out io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
}
