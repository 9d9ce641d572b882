package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"pdf-rag/internal/cache"
	"pdf-rag/internal/chunker"
	"pdf-rag/internal/extract"
	"pdf-rag/internal/store"
	"pdf-rag/internal/tokenizer"
)

const defaultWorkers = 4

// Options configures an ingestion run.
type Options struct {
	Chunking chunker.Options
	// Workers bounds concurrent extraction and chunking.
	Workers int
}

// Request describes one ingestion run.
type Request struct {
	Paths []string
	// Reindex clears a non-empty index before ingesting.
	Reindex bool
	// Append adds to a non-empty index. Without Reindex or Append a
	// non-empty index is reused as is and Paths are ignored.
	Append bool
}

// DocumentResult is the outcome for one input document.
type DocumentResult struct {
	DocumentID string
	Path       string
	Chunks     int
	Err        error
}

// Report is the tally of a run.
type Report struct {
	Reused         bool
	ExistingChunks int
	Documents      []DocumentResult
	Succeeded      int
	Failed         int
	TotalChunks    int
}

// ProgressFunc is called after each document is stored or fails.
type ProgressFunc func(done, total int, result DocumentResult)

// Ingester turns documents into stored chunks.
type Ingester struct {
	index   store.Index
	tok     tokenizer.Tokenizer
	cache   cache.Cache
	log     *slog.Logger
	opts    Options
	extract func(path string) (extract.Document, error)
}

// New builds an Ingester. A nil cache disables invalidation.
func New(index store.Index, tok tokenizer.Tokenizer, c cache.Cache, log *slog.Logger, opts Options) *Ingester {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Ingester{
		index:   index,
		tok:     tok,
		cache:   c,
		log:     log,
		opts:    opts,
		extract: extract.File,
	}
}

type prepared struct {
	doc    extract.Document
	chunks []chunker.Chunk
	err    error
}

// Run ingests req.Paths. Chunking options are validated before anything else
// happens. A failing document is logged and counted; the run continues.
func (in *Ingester) Run(ctx context.Context, req Request, progress ProgressFunc) (Report, error) {
	if err := in.opts.Chunking.Validate(); err != nil {
		return Report{}, err
	}

	existing, err := in.index.Count(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("count index: %w", err)
	}
	if existing > 0 {
		switch {
		case req.Reindex:
			in.log.Info("clearing existing index", "chunks", existing)
			if err := in.index.Clear(ctx); err != nil {
				return Report{}, fmt.Errorf("clear index: %w", err)
			}
			in.invalidate(ctx)
		case !req.Append:
			in.log.Info("using existing index", "chunks", existing)
			return Report{Reused: true, ExistingChunks: existing}, nil
		}
	}

	paths, err := Discover(req.Paths)
	if err != nil {
		return Report{}, err
	}

	docs, err := in.prepare(ctx, paths)
	if err != nil {
		return Report{}, err
	}

	// Stores are written one document at a time, in input order.
	report := Report{Documents: make([]DocumentResult, 0, len(docs))}
	for i, p := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := DocumentResult{DocumentID: p.doc.ID, Path: paths[i], Err: p.err}
		if res.DocumentID == "" {
			res.DocumentID = filepath.Base(paths[i])
		}
		switch {
		case res.Err != nil:
		case len(p.chunks) == 0:
			in.log.Warn("document has no text", "document", res.DocumentID)
		default:
			res.Chunks, res.Err = in.index.Add(ctx, p.chunks, res.DocumentID)
		}

		if res.Err != nil {
			report.Failed++
			in.log.Error("failed to ingest document", "document", res.Path, "err", res.Err)
		} else {
			report.Succeeded++
			report.TotalChunks += res.Chunks
			in.log.Info("ingested document", "document", res.DocumentID, "chunks", res.Chunks)
		}
		report.Documents = append(report.Documents, res)
		if progress != nil {
			progress(i+1, len(docs), res)
		}
	}

	if report.TotalChunks > 0 {
		in.invalidate(ctx)
	}
	in.log.Info("indexing complete",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"chunks", report.TotalChunks,
	)
	return report, nil
}

// prepare extracts and chunks every path concurrently. Per-document errors
// are kept in the result; only cancellation fails the whole step.
func (in *Ingester) prepare(ctx context.Context, paths []string) ([]prepared, error) {
	out := make([]prepared, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = in.prepareOne(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (in *Ingester) prepareOne(path string) prepared {
	doc, err := in.extract(path)
	if err != nil {
		return prepared{doc: doc, err: fmt.Errorf("extract: %w", err)}
	}
	chunks, err := chunker.ChunkText(doc.Text, in.tok, in.opts.Chunking)
	if err != nil {
		return prepared{doc: doc, err: fmt.Errorf("chunk: %w", err)}
	}
	return prepared{doc: doc, chunks: chunker.WithSource(chunks, doc.Path)}
}

func (in *Ingester) invalidate(ctx context.Context) {
	if err := in.cache.Invalidate(ctx); err != nil {
		in.log.Warn("failed to invalidate context cache", "err", err)
	}
}
