package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf-rag/internal/app"
	"pdf-rag/internal/extract"
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

	r := httputil.NewRouter(deps.Log)
	r.Post("/api/documents/upload", uploadHandler(deps))
	r.Get("/api/stats", statsHandler(deps))
	r.Post("/api/query", queryHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

var allowedTypes = map[string]bool{
	"text/plain":               true,
	"text/markdown":            true,
	"application/pdf":          true,
	"application/octet-stream": true,
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		name := filepath.Base(header.Filename)
		if !extract.Supported(name) {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF, Markdown and TXT allowed)", nil, http.StatusBadRequest)
			return
		}
		contentType := header.Header.Get("Content-Type")
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = strings.TrimSpace(contentType[:i])
		}
		if contentType != "" && !allowedTypes[contentType] {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF, Markdown and TXT allowed)", nil, http.StatusBadRequest)
			return
		}

		log := deps.Log.With("document", name)
		up, err := stage(deps.Config.InputDir, name, file)
		if err != nil {
			httputil.Fail(log, w, "failed to store file", err, http.StatusInternalServerError)
			return
		}
		path := up.path

		if deps.Queue != nil {
			task, err := queue.NewIngestTask(queue.IngestPayload{Paths: []string{path}})
			if err == nil {
				err = queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond)
			}
			if err != nil {
				up.discard(log)
				httputil.Fail(log, w, "failed to enqueue document; please retry", err, http.StatusInternalServerError)
				return
			}
			up.keep(log)
			httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
				"document_id": name,
				"task_id":     task.ID.String(),
				"status":      "queued",
			})
			return
		}

		report, err := deps.Ingester().Run(ctx, ingest.Request{Paths: []string{path}, Append: true}, nil)
		if err != nil {
			up.discard(log)
			httputil.Fail(log, w, "indexing failed", err, http.StatusInternalServerError)
			return
		}
		if report.Failed > 0 {
			up.discard(log)
			httputil.Fail(log, w, "document could not be indexed", report.Documents[0].Err, http.StatusUnprocessableEntity)
			return
		}
		up.keep(log)
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"document_id": name,
			"chunks":      report.TotalChunks,
			"status":      "indexed",
		})
	}
}

// staged is an upload in place under its final name. A file it replaced is
// kept aside until the upload is either kept or discarded.
type staged struct {
	path   string
	backup string // empty when nothing was replaced
}

// stage copies src to a temporary file in dir and renames it to name. An
// existing file of that name is moved aside, not overwritten. Temporary and
// backup names carry no document extension, so discovery skips them.
func stage(dir, name string, src io.Reader) (*staged, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	up := &staged{path: filepath.Join(dir, name)}
	if _, err := os.Stat(up.path); err == nil {
		up.backup = tmp.Name() + ".previous"
		if err := os.Rename(up.path, up.backup); err != nil {
			os.Remove(tmp.Name())
			return nil, err
		}
	}
	if err := os.Rename(tmp.Name(), up.path); err != nil {
		os.Remove(tmp.Name())
		if up.backup != "" {
			_ = os.Rename(up.backup, up.path)
		}
		return nil, err
	}
	return up, nil
}

// keep accepts the upload and drops the file it replaced.
func (u *staged) keep(log *slog.Logger) {
	if u.backup == "" {
		return
	}
	if err := os.Remove(u.backup); err != nil {
		log.Warn("failed to remove replaced upload", "path", u.backup, "err", err)
	}
}

// discard removes the upload and puts back the file it replaced.
func (u *staged) discard(log *slog.Logger) {
	var err error
	if u.backup != "" {
		err = os.Rename(u.backup, u.path)
	} else {
		err = os.Remove(u.path)
	}
	if err != nil {
		log.Warn("failed to roll back upload", "path", u.path, "err", err)
	}
}

func statsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Index.Count(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to count chunks", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"chunks": n})
	}
}

func queryHandler(deps app.Deps) http.HandlerFunc {
	queryURL := deps.Config.QueryURL
	client := &http.Client{Timeout: deps.Config.LLMTimeout + 10*time.Second}

	return func(w http.ResponseWriter, r *http.Request) {
		// Forward request to query service
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, queryURL, r.Body)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to create request", err, http.StatusInternalServerError)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			httputil.Fail(deps.Log, w, "query service unavailable", err, http.StatusServiceUnavailable)
			return
		}
		defer resp.Body.Close()

		// Copy response status, headers, and body
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			deps.Log.Error("failed to copy response", "err", err)
		}
	}
}
