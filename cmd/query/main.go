package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"pdf-rag/internal/app"
	"pdf-rag/internal/httputil"
	"pdf-rag/internal/llm"
)

type queryRequest struct {
	Question string `json:"question" validate:"required,min=3,max=500"`
	TopK     int    `json:"top_k" validate:"omitempty,min=1,max=20"`
}

type queryResponse struct {
	Answer  string `json:"answer"`
	Context string `json:"context,omitempty"`
	Mode    string `json:"mode"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	r := httputil.NewRouter(deps.Log)
	r.Post("/api/query", queryHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("query service listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server error", "err", err)
	}
}

func queryHandler(deps app.Deps) http.HandlerFunc {
	answerer := deps.Answerer()

	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if !httputil.DecodeJSON(deps.Log, w, r, &req) {
			return
		}
		if req.TopK == 0 {
			req.TopK = deps.Config.TopK
		}

		ans, err := answerer.Ask(r.Context(), req.Question, req.TopK)
		if err != nil {
			httputil.Fail(deps.Log, w, "retrieval failed", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, queryResponse{
			Answer:  llm.Collect(ans.Stream),
			Context: ans.Context,
			Mode:    string(ans.Mode),
		})
	}
}
