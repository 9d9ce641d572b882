package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// writeSSE streams one chat.completion.chunk event per delta, then [DONE].
func writeSSE(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for i, d := range deltas {
		content, _ := json.Marshal(d)
		fmt.Fprintf(w, "data: {\"id\":\"c%d\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"llama3.2\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":%s}}]}\n\n", i, content)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func newTestOllama(t *testing.T, url, model string) *OpenAIClient {
	t.Helper()
	c, err := NewOllamaClient(url, model, time.Second, option.WithMaxRetries(0))
	require.NoError(t, err)
	return c
}

func TestOllamaStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "llama3.2", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "sys", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "hi", req.Messages[1].Content)

		writeSSE(w, "Hel", "", "lo")
	}))
	defer srv.Close()

	c := newTestOllama(t, srv.URL+"/", "")
	got := slices.Collect(c.Stream(context.Background(), "sys", "hi"))
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestOllamaStreamErrorsBecomeFragments(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"api_error"}}`))
			},
			want: "500",
		},
		{
			name: "garbage event",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = w.Write([]byte("data: not json\n\n"))
			},
			want: "Error: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got := Collect(newTestOllama(t, srv.URL, "llama3.2").Stream(context.Background(), "s", "p"))
			assert.True(t, strings.HasPrefix(got, "Error: "), "got %q", got)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestOllamaStreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	got := Collect(newTestOllama(t, url, "").Stream(context.Background(), "s", "p"))
	assert.True(t, strings.HasPrefix(got, "Error: "), "got %q", got)
}

func TestOllamaStreamStopsWhenConsumerStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "a", "b")
	}))
	defer srv.Close()

	var got []string
	for f := range newTestOllama(t, srv.URL, "").Stream(context.Background(), "s", "p") {
		got = append(got, f)
		break
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestOllamaPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"llama3.2:latest","object":"model","created":0,"owned_by":"library"}]}`))
	}))
	defer srv.Close()

	assert.NoError(t, newTestOllama(t, srv.URL, "llama3.2").Ping(context.Background()))
	assert.NoError(t, newTestOllama(t, srv.URL, "llama3.2:latest").Ping(context.Background()))
	assert.ErrorContains(t, newTestOllama(t, srv.URL, "mistral").Ping(context.Background()), "ollama pull mistral")
	assert.Error(t, newTestOllama(t, srv.URL, "llama3").Ping(context.Background()), "llama3 must not match llama3.2")
}

func TestOllamaPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.ErrorContains(t, newTestOllama(t, url, "").Ping(context.Background()), "list models")
}
