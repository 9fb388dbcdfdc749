// Package relayhttp exposes the relay's operations over HTTP for browser
// clients: session lifecycle routes, a server-sent-events stream of
// translated upstream events, conversation history access, and a small
// administrative surface.
package relayhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/river-hendriksen/voicerelay"
)

// Server wires the relay into an HTTP handler.
type Server struct {
	relay   *voicerelay.Relay
	log     *zap.Logger
	metrics *metrics
}

// NewServer creates an HTTP surface over relay.
func NewServer(relay *voicerelay.Relay, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		relay: relay,
		log:   log.Named("relayhttp"),
	}
	s.metrics = newMetrics(relay)
	return s
}

// Handler returns the route mux for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat/session", s.handleCreateSession)
	mux.HandleFunc("POST /api/chat/{id}/connect", s.handleConnect)
	mux.HandleFunc("POST /api/chat/{id}/disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /api/chat/{id}/send-message", s.handleSendMessage)
	mux.HandleFunc("POST /api/chat/{id}/audio", s.handleSendAudio)
	mux.HandleFunc("POST /api/chat/{id}/toggle-voice", s.handleToggleVoice)
	mux.HandleFunc("GET /api/chat/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/chat/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /api/chat/{id}/history", s.handleGetHistory)
	mux.HandleFunc("DELETE /api/chat/{id}/history", s.handleClearHistory)
	mux.HandleFunc("DELETE /api/chat/{id}", s.handleRemoveSession)
	mux.HandleFunc("GET /api/admin/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/admin/cleanup", s.handleCleanup)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	return mux
}

// sendMessageRequest is the body of the send-message route.
type sendMessageRequest struct {
	Message string `json:"message"`
}

// sendAudioRequest is the body of the audio route.
type sendAudioRequest struct {
	Audio string `json:"audio"` // base64-encoded PCM16 chunk
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.relay.Sessions().CreateSession()
	s.log.Info("session created", zap.String("session_id", id))
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": id})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.relay.Connect(r.Context(), id); err != nil {
		s.log.Error("connect failed", zap.String("session_id", id), zap.Error(err))
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Connected to Voice Live API", "status": "connected"})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.relay.Disconnect(id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Disconnected from Voice Live API", "status": "disconnected"})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if err := s.relay.SendText(r.Context(), id, req.Message); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Message sent", "text": req.Message})
}

func (s *Server) handleSendAudio(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req sendAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	if err := s.relay.SendAudioChunk(r.Context(), id, req.Audio); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Audio chunk sent"})
}

func (s *Server) handleToggleVoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	recording, err := s.relay.ToggleRecording(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	msg := "Voice recording stopped"
	if recording {
		msg = "Voice recording started"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "isRecording": recording})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := s.relay.Status(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, err := s.relay.Stream(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		s.metrics.eventsRelayed.Inc()
	}
	s.log.Info("event stream closed", zap.String("session_id", id))
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history := s.relay.History().GetHistory(id)
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "history": history})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.relay.History().ClearHistory(id)
	writeJSON(w, http.StatusOK, map[string]any{"message": "History cleared"})
}

func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed := s.relay.Sessions().RemoveSession(id)
	s.relay.History().RemoveSession(id)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.relay.Sessions().GetActiveSessions()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(ids), "sessions": ids})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed := s.relay.Sessions().CleanupExpiredSessions()
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// writeError maps relay errors onto HTTP statuses: unknown session is 404,
// a send attempt while disconnected is 409, a failed upstream connect is
// 502, anything else 400.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, voicerelay.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, voicerelay.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, voicerelay.ErrConnectionFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// metrics holds the server's Prometheus instrumentation on its own registry
// so multiple servers can coexist in one process.
type metrics struct {
	registry      *prometheus.Registry
	eventsRelayed prometheus.Counter
}

func newMetrics(relay *voicerelay.Relay) *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		eventsRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicerelay_events_relayed_total",
			Help: "Client events delivered over the SSE stream.",
		}),
	}
	reg.MustRegister(m.eventsRelayed)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "voicerelay_active_sessions",
		Help: "Sessions currently held in the registry.",
	}, func() float64 {
		return float64(relay.Sessions().GetActiveSessionCount())
	}))
	return m
}
