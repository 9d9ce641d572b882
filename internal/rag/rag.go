// Package rag answers questions from the indexed documents, or as a plain
// chat when nothing is indexed yet.
package rag

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"pdf-rag/internal/llm"
	"pdf-rag/internal/retriever"
	"pdf-rag/internal/store"
)

// Mode says how an answer was produced.
type Mode string

const (
	ModeRAG  Mode = "rag"
	ModeChat Mode = "chat"
)

const defaultTopK = 3

// Answer is a prepared response. Stream is lazy; the model is only called
// once it is ranged over.
type Answer struct {
	Mode    Mode
	Context string
	Stream  iter.Seq[string]
}

// Answerer joins retrieval and generation.
type Answerer struct {
	index     store.Index
	retriever *retriever.Retriever
	llm       llm.Client
	log       *slog.Logger
}

func New(index store.Index, r *retriever.Retriever, client llm.Client, log *slog.Logger) *Answerer {
	return &Answerer{index: index, retriever: r, llm: client, log: log}
}

// Ask retrieves the k best chunks for question and builds the prompt. With an
// empty index the question goes to the model as is.
func (a *Answerer) Ask(ctx context.Context, question string, k int) (Answer, error) {
	if k <= 0 {
		k = defaultTopK
	}
	n, err := a.index.Count(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("count index: %w", err)
	}
	if n == 0 {
		a.log.Info("no documents indexed, answering in chat mode")
		return Answer{Mode: ModeChat, Stream: a.llm.Stream(ctx, llm.ChatSystemPrompt, question)}, nil
	}

	block, err := a.retriever.RetrieveAndFormat(ctx, question, k)
	if err != nil {
		return Answer{}, err
	}
	return Answer{
		Mode:    ModeRAG,
		Context: block,
		Stream:  a.llm.Stream(ctx, llm.RAGSystemPrompt, llm.BuildPrompt(block, question)),
	}, nil
}
