// Package api exposes the ingest and query workflows over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fabfab/mini-rag/chat"
	"github.com/fabfab/mini-rag/ingestion"
)

const maxUploadBytes = 32 << 20

// Ingestor writes documents into the vector index.
type Ingestor interface {
	Ingest(ctx context.Context, docs []ingestion.Document) (int, error)
}

// Answerer produces a cited answer for a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (chat.Response, error)
}

// Pipeline bundles the initialized services. It is built once at startup and
// swapped in atomically; requests arriving before that see a not-ready error
// instead of blocking.
type Pipeline struct {
	Ingestor Ingestor
	Answerer Answerer
}

type Server struct {
	logger   *log.Logger
	handler  http.Handler
	pipeline atomic.Pointer[Pipeline]
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

type ingestRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type ingestResponse struct {
	Chunks int `json:"chunks"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

func New(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{logger: logger}
	s.handler = s.withRequestID(s.routes())
	return s
}

// SetPipeline publishes the initialized pipeline. Until this is called every
// ingest/query request is rejected with 503.
func (s *Server) SetPipeline(p *Pipeline) {
	s.pipeline.Store(p)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("server shutdown: %v", err)
		}
	}()

	s.logger.Printf("http server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/ingest", s.handleIngest)
	mux.HandleFunc("/v1/query", s.handleQuery)
	return mux
}

// withRequestID stamps each request with a short correlation id for the logs.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		s.logger.Printf("[%s] %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Liveness is independent of pipeline readiness: the process can be alive and
// still warming up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Ready: s.pipeline.Load() != nil})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	pipeline := s.pipeline.Load()
	if pipeline == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("service not ready"))
		return
	}

	docs, err := s.parseIngestPayload(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	count, err := pipeline.Ingestor.Ingest(r.Context(), docs)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("ingestion failed: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, ingestResponse{Chunks: count})
}

// parseIngestPayload accepts either a JSON body with raw text or a multipart
// upload carrying a .txt or .pdf file.
func (s *Server) parseIngestPayload(r *http.Request) ([]ingestion.Document, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file field is required: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}

		name := header.Filename
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			docs, err := ingestion.LoadPDF(data, name)
			if err != nil {
				return nil, fmt.Errorf("load pdf: %w", err)
			}
			return docs, nil
		case ".txt", ".md", ".text":
			if strings.TrimSpace(string(data)) == "" {
				return nil, fmt.Errorf("uploaded file is empty")
			}
			return []ingestion.Document{ingestion.NewTextDocument(string(data), name)}, nil
		default:
			return nil, fmt.Errorf("unsupported file type %q: provide plain text or PDF", filepath.Ext(name))
		}
	}

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("provide text content or upload a file")
	}

	return []ingestion.Document{ingestion.NewTextDocument(req.Text, req.Source)}, nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	pipeline := s.pipeline.Load()
	if pipeline == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("service not ready"))
		return
	}

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	resp, err := pipeline.Answerer.Answer(r.Context(), req.Question)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
		return
	}

	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	s.writeJSON(w, http.StatusOK, queryResponse{Answer: resp.Answer, Sources: sources})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
