package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"

	"pdf-rag/internal/app"
	"pdf-rag/internal/cache"
	"pdf-rag/internal/config"
	"pdf-rag/internal/queue"
	"pdf-rag/internal/store"
)

// byteTokenizer maps every byte to one token.
type byteTokenizer struct{}

func (byteTokenizer) Encode(text string) []int {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out
}

func (byteTokenizer) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return string(b)
}

func newTestDeps(t *testing.T, idx store.Index, q queue.Queue) app.Deps {
	return app.Deps{
		Index:     idx,
		Queue:     q,
		Tokenizer: byteTokenizer{},
		Cache:     cache.NewNoOpCache(),
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
			InputDir:      t.TempDir(),
			ChunkSize:     100,
			ChunkOverlap:  10,
			IngestWorkers: 1,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestUploadHandlerInline(t *testing.T) {
	tests := []struct {
		name          string
		filename      string
		contentType   string
		content       []byte
		setup         func(*store.MockIndex)
		wantStatus    int
		wantSaved     bool
		checkResponse func(*testing.T, map[string]any)
	}{
		{
			name:        "successful upload is indexed",
			filename:    "test.txt",
			contentType: "text/plain",
			content:     []byte("Hello"),
			setup: func(s *store.MockIndex) {
				s.On("Count", mock.Anything).Return(4, nil).Once()
				s.On("Add", mock.Anything, mock.Anything, "test.txt").Return(1, nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantSaved:  true,
			checkResponse: func(t *testing.T, result map[string]any) {
				if result["document_id"] != "test.txt" {
					t.Errorf("Expected document_id test.txt, got %v", result["document_id"])
				}
				if result["status"] != "indexed" || result["chunks"] != float64(1) {
					t.Errorf("Unexpected response %v", result)
				}
			},
		},
		{
			name:        "missing Content-Type is accepted by extension",
			filename:    "notes.md",
			contentType: "",
			content:     []byte("# Notes"),
			setup: func(s *store.MockIndex) {
				s.On("Count", mock.Anything).Return(0, nil).Once()
				s.On("Add", mock.Anything, mock.Anything, "notes.md").Return(1, nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantSaved:  true,
		},
		{
			name:        "file too large",
			filename:    "large.txt",
			contentType: "text/plain",
			content:     make([]byte, 2*1024*1024), // 2MB
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported extension",
			filename:    "test.docx",
			contentType: "",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported Content-Type",
			filename:    "test.txt",
			contentType: "application/msword",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "broken pdf is rejected and removed",
			filename:    "broken.pdf",
			contentType: "application/pdf",
			content:     []byte("not really a pdf"),
			setup: func(s *store.MockIndex) {
				s.On("Count", mock.Anything).Return(0, nil).Once()
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:        "store failure",
			filename:    "test.txt",
			contentType: "text/plain",
			content:     []byte("content"),
			setup: func(s *store.MockIndex) {
				s.On("Count", mock.Anything).Return(0, errors.New("db error")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIndex := new(store.MockIndex)
			if tt.setup != nil {
				tt.setup(mockIndex)
			}

			deps := newTestDeps(t, mockIndex, nil)
			handler := uploadHandler(deps)

			req, err := createMultipartRequest(tt.filename, tt.contentType, tt.content)
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}

			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			_, statErr := os.Stat(filepath.Join(deps.Config.InputDir, tt.filename))
			if saved := statErr == nil; saved != tt.wantSaved {
				t.Errorf("Expected saved=%v, got %v", tt.wantSaved, saved)
			}

			if tt.checkResponse != nil {
				var result map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				tt.checkResponse(t, result)
			}

			mockIndex.AssertExpectations(t)
		})
	}

	// Test missing file separately since it requires different request setup
	t.Run("missing file", func(t *testing.T) {
		handler := uploadHandler(newTestDeps(t, new(store.MockIndex), nil))

		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestUploadHandlerReplacement(t *testing.T) {
	upload := func(t *testing.T, deps app.Deps, name, contentType string, content []byte) int {
		t.Helper()
		req, err := createMultipartRequest(name, contentType, content)
		if err != nil {
			t.Fatalf("Failed to create request: %v", err)
		}
		w := httptest.NewRecorder()
		uploadHandler(deps)(w, req)
		return w.Code
	}
	assertOnlyFile := func(t *testing.T, dir, name, want string) {
		t.Helper()
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read dir: %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != name {
			t.Fatalf("Expected only %s in %s, got %v", name, dir, entries)
		}
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("Expected %s to contain %q, got %q", name, want, got)
		}
	}

	t.Run("failed replacement keeps the indexed file", func(t *testing.T) {
		mockIndex := new(store.MockIndex)
		mockIndex.On("Count", mock.Anything).Return(3, nil).Once()
		deps := newTestDeps(t, mockIndex, nil)
		previous := "%PDF indexed earlier"
		if err := os.WriteFile(filepath.Join(deps.Config.InputDir, "report.pdf"), []byte(previous), 0o644); err != nil {
			t.Fatal(err)
		}

		if code := upload(t, deps, "report.pdf", "application/pdf", []byte("not really a pdf")); code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected status 422, got %d", code)
		}
		assertOnlyFile(t, deps.Config.InputDir, "report.pdf", previous)
		mockIndex.AssertExpectations(t)
	})

	t.Run("successful replacement drops the old file", func(t *testing.T) {
		mockIndex := new(store.MockIndex)
		mockIndex.On("Count", mock.Anything).Return(3, nil).Once()
		mockIndex.On("Add", mock.Anything, mock.Anything, "notes.txt").Return(1, nil).Once()
		deps := newTestDeps(t, mockIndex, nil)
		if err := os.WriteFile(filepath.Join(deps.Config.InputDir, "notes.txt"), []byte("old notes"), 0o644); err != nil {
			t.Fatal(err)
		}

		if code := upload(t, deps, "notes.txt", "text/plain", []byte("new notes")); code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", code)
		}
		assertOnlyFile(t, deps.Config.InputDir, "notes.txt", "new notes")
		mockIndex.AssertExpectations(t)
	})

	t.Run("failed enqueue keeps the previous file", func(t *testing.T) {
		mockQueue := new(queue.MockQueue)
		mockQueue.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue error")).Times(3)
		deps := newTestDeps(t, new(store.MockIndex), mockQueue)
		if err := os.WriteFile(filepath.Join(deps.Config.InputDir, "notes.md"), []byte("# v1"), 0o644); err != nil {
			t.Fatal(err)
		}

		if code := upload(t, deps, "notes.md", "text/markdown", []byte("# v2")); code != http.StatusInternalServerError {
			t.Fatalf("Expected status 500, got %d", code)
		}
		assertOnlyFile(t, deps.Config.InputDir, "notes.md", "# v1")
		mockQueue.AssertExpectations(t)
	})
}

func TestUploadHandlerQueued(t *testing.T) {
	t.Run("enqueues ingest task", func(t *testing.T) {
		mockQueue := new(queue.MockQueue)
		deps := newTestDeps(t, new(store.MockIndex), mockQueue)
		wantPath := filepath.Join(deps.Config.InputDir, "report.pdf")

		mockQueue.ExpectIngest(wantPath).Return(nil).Once()

		req, err := createMultipartRequest("report.pdf", "application/pdf", []byte("%PDF-1.4 stub"))
		if err != nil {
			t.Fatalf("Failed to create request: %v", err)
		}
		w := httptest.NewRecorder()
		uploadHandler(deps)(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("Expected status 202, got %d. Body: %s", w.Code, w.Body.String())
		}
		var result map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result["status"] != "queued" || result["task_id"] == "" {
			t.Errorf("Unexpected response %v", result)
		}
		if _, err := os.Stat(wantPath); err != nil {
			t.Errorf("Expected upload saved at %s: %v", wantPath, err)
		}
		mockQueue.AssertExpectations(t)
	})

	t.Run("enqueue failure removes upload", func(t *testing.T) {
		mockQueue := new(queue.MockQueue)
		mockQueue.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue error")).Times(3)
		deps := newTestDeps(t, new(store.MockIndex), mockQueue)

		req, err := createMultipartRequest("report.pdf", "application/pdf", []byte("%PDF-1.4 stub"))
		if err != nil {
			t.Fatalf("Failed to create request: %v", err)
		}
		w := httptest.NewRecorder()
		uploadHandler(deps)(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
		if _, err := os.Stat(filepath.Join(deps.Config.InputDir, "report.pdf")); !os.IsNotExist(err) {
			t.Errorf("Expected upload to be removed, stat err: %v", err)
		}
		mockQueue.AssertExpectations(t)
	})
}

func TestStatsHandler(t *testing.T) {
	mockIndex := new(store.MockIndex)
	mockIndex.On("Count", mock.Anything).Return(17, nil).Once()
	mockIndex.On("Count", mock.Anything).Return(0, errors.New("db error")).Once()
	handler := statsHandler(newTestDeps(t, mockIndex, nil))

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["chunks"] != float64(17) {
		t.Errorf("Expected 17 chunks, got %v", result["chunks"])
	}

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestQueryHandlerForwards(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"echo":%s}`, body)
	}))
	defer upstream.Close()

	deps := newTestDeps(t, new(store.MockIndex), nil)
	deps.Config.QueryURL = upstream.URL

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(`{"question":"What is Go?"}`))
	queryHandler(deps)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != `{"echo":{"question":"What is Go?"}}` {
		t.Errorf("Unexpected body %s", w.Body.String())
	}

	upstream.Close()
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(`{}`))
	queryHandler(deps)(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func createMultipartRequest(filename, contentType string, content []byte) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}

	if _, err := part.Write(content); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req, nil
}
