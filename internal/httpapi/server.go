// Package httpapi exposes the engine over HTTP: plan creation, document
// upload, an SSE run stream, and a websocket progress feed for dashboards.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hmiyata/cascade/internal/docstore"
	"github.com/hmiyata/cascade/internal/events"
	"github.com/hmiyata/cascade/internal/logging"
	"github.com/hmiyata/cascade/internal/model"
	"github.com/hmiyata/cascade/internal/orchestrator"
	"github.com/hmiyata/cascade/internal/planner"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	addr    string
	planner *planner.Planner
	orch    *orchestrator.Orchestrator
	store   *docstore.Store
	bus     *events.Bus
	logger  *logging.Logger

	httpServer *http.Server
}

func NewServer(
	addr string,
	pl *planner.Planner,
	orch *orchestrator.Orchestrator,
	store *docstore.Store,
	bus *events.Bus,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		addr:    addr,
		planner: pl,
		orch:    orch,
		store:   store,
		bus:     bus,
		logger:  logger,
	}
}

// Routes builds the request mux. Split out from Start for tests.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /plan", s.handlePlan)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /sources", s.handleSources)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("http server listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Infof("http server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

type planRequest struct {
	Intent string `json:"intent"`
}

type planResponse struct {
	Plan model.Plan `json:"plan"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	intent := strings.TrimSpace(req.Intent)
	if intent == "" {
		writeError(w, http.StatusBadRequest, "Intent is required")
		return
	}

	plan, err := s.planner.CreatePlan(intent, s.store.Count())
	if err != nil {
		s.logger.Errorf("create plan: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create plan")
		return
	}

	s.logger.Infof("plan created: intent=%q tasks=%d", intent, len(plan.Tasks))
	writeJSON(w, http.StatusOK, planResponse{Plan: plan})
}

type uploadTextRequest struct {
	Text string `json:"text"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type uploadResponse struct {
	Sources []docstore.Source `json:"sources"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	// Pasted text or URL content arrives as JSON.
	if strings.HasPrefix(contentType, "application/json") {
		var req uploadTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var sources []docstore.Source
		if req.Text != "" {
			name := req.Name
			if name == "" {
				name = "Pasted Text"
			}
			sourceType := req.Type
			if sourceType == "" {
				sourceType = "paste"
			}
			sources = append(sources, s.store.SetText(name, sourceType, req.Text))
		}
		writeJSON(w, http.StatusOK, uploadResponse{Sources: sources})
		return
	}

	// File uploads replace previously staged content as a batch.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	s.store.Clear()
	var sources []docstore.Source
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			sources = append(sources, docstore.Source{
				Name:   header.Filename,
				Type:   "unknown",
				Status: docstore.SourceStatusError,
				Error:  err.Error(),
			})
			continue
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			sources = append(sources, docstore.Source{
				Name:   header.Filename,
				Type:   "unknown",
				Status: docstore.SourceStatusError,
				Error:  err.Error(),
			})
			continue
		}

		sources = append(sources, s.store.Add(header.Filename, fileType(header.Filename), string(content)))
	}

	s.logger.Infof("upload: %d source(s) staged", len(sources))
	writeJSON(w, http.StatusOK, uploadResponse{Sources: sources})
}

type runRequest struct {
	Plan model.Plan `json:"plan"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Plan.Tasks) == 0 {
		writeError(w, http.StatusBadRequest, "No tasks in plan")
		return
	}

	documentText, ok := s.store.Text()
	if !ok {
		documentText = model.SampleDocument
	}

	ch, err := s.orch.Run(r.Context(), req.Plan, documentText)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for event := range ch {
		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Errorf("marshal progress event: %v", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, uploadResponse{Sources: s.store.Sources()})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func fileType(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		return filename[i+1:]
	}
	return "txt"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
