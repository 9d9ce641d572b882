package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"pdf-rag/internal/app"
	"pdf-rag/internal/httputil"
	"pdf-rag/internal/ingest"
	"pdf-rag/internal/queue"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()
	if deps.Queue == nil {
		deps.Log.Error("indexer requires QUEUE_PROVIDER=nats")
		os.Exit(1)
	}
	deps.Log.Info("indexer worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeIngest, func(ctx context.Context, task queue.Task) error {
			payload, err := queue.DecodeIngest(task)
			if err != nil {
				return err
			}
			return handleIngest(ctx, deps, payload)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port, "indexer")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("indexer service stopped", "err", err)
	}
}

// handleIngest indexes the task's files into the shared store. Any failed
// document fails the task so the queue retries it; re-adding the documents
// that did succeed overwrites the same records.
func handleIngest(ctx context.Context, deps app.Deps, payload queue.IngestPayload) error {
	report, err := deps.Ingester().Run(ctx, ingest.Request{
		Paths:   payload.Paths,
		Reindex: payload.Reindex,
		Append:  true,
	}, nil)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		var errs []error
		for _, d := range report.Documents {
			if d.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", d.DocumentID, d.Err))
			}
		}
		return errors.Join(errs...)
	}
	return nil
}
