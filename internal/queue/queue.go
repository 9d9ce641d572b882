package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pdf-rag/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	// TaskTypeIngest asks an indexer to ingest files already on shared storage.
	TaskTypeIngest TaskType = "ingest"
)

const defaultMaxAttempts = 5

// Task represents a unit of work handed from the gateway to the indexer.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

// IngestPayload is the body of a TaskTypeIngest task.
type IngestPayload struct {
	Paths   []string `json:"paths"`
	Reindex bool     `json:"reindex,omitempty"`
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// NewIngestTask builds an ingest task for paths.
func NewIngestTask(payload IngestPayload) (Task, error) {
	if len(payload.Paths) == 0 {
		return Task{}, fmt.Errorf("ingest task needs at least one path")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:          uuid.New(),
		Type:        TaskTypeIngest,
		Payload:     body,
		MaxAttempts: defaultMaxAttempts,
	}, nil
}

// DecodeIngest reads the payload of an ingest task.
func DecodeIngest(task Task) (IngestPayload, error) {
	if task.Type != TaskTypeIngest {
		return IngestPayload{}, fmt.Errorf("unexpected task type %q", task.Type)
	}
	var p IngestPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return IngestPayload{}, fmt.Errorf("decode ingest payload: %w", err)
	}
	return p, nil
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return nil
}
