package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/nick-rui/tenth-man/tenthman"
)

const (
	maxRequestBytes   = 4 << 20
	maxDisplaySources = 5
)

type server struct {
	analyzer *tenthman.Analyzer
	log      *logrus.Logger
}

type analyzeRequest struct {
	History []tenthman.ChatTurn `json:"history"`
}

type analyzeResponse struct {
	FinalText       string   `json:"final_text"`
	StimulusSummary []string `json:"stimulus_summary"`
	Sources         []string `json:"sources"`
	DegradedMode    bool     `json:"degraded_mode"`
	UsedMessages    int      `json:"used_messages"`
}

type streamMeta struct {
	StimulusSummary []string `json:"stimulus_summary"`
	Sources         []string `json:"sources"`
	DegradedMode    bool     `json:"degraded_mode"`
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Post("/api/analyze/stream", s.handleAnalyzeStream)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	analysis, used := tenthman.AnalyzeWithTruncation(r.Context(), s.analyzer, req.History)

	s.log.WithFields(logrus.Fields{
		"history_len":   len(req.History),
		"used_messages": used,
		"degraded":      analysis.DegradedMode,
	}).Info("analyze request complete")

	writeJSON(w, http.StatusOK, analyzeResponse{
		FinalText:       analysis.FinalText,
		StimulusSummary: analysis.StimulusSummary,
		Sources:         displaySources(analysis.Sources),
		DegradedMode:    analysis.DegradedMode,
		UsedMessages:    used,
	})
}

// handleAnalyzeStream delivers one analysis over SSE: a meta event carrying
// the stimulus digest, then a token event per text chunk, then done. Token
// payloads are JSON strings so chunks containing newlines survive the frame.
func (s *server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	streaming := s.analyzer.AnalyzeStream(r.Context(), req.History)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, flusher, "meta", streamMeta{
		StimulusSummary: streaming.StimulusSummary,
		Sources:         displaySources(streaming.Sources),
		DegradedMode:    streaming.DegradedMode,
	})

	for token := range streaming.Tokens {
		writeSSE(w, flusher, "token", token)
	}
	writeSSE(w, flusher, "done", struct{}{})

	s.log.WithFields(logrus.Fields{
		"history_len": len(req.History),
		"degraded":    streaming.DegradedMode,
	}).Info("stream request complete")
}

func (s *server) decodeRequest(w http.ResponseWriter, r *http.Request) (analyzeRequest, bool) {
	var req analyzeRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return analyzeRequest{}, false
	}
	return req, true
}

func displaySources(sources []string) []string {
	if len(sources) > maxDisplaySources {
		return sources[:maxDisplaySources]
	}
	return sources
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n"))
	flusher.Flush()
}
