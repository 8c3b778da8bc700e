package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/httptimesync/httptimesync/internal/config"
	"github.com/httptimesync/httptimesync/internal/state"
)

const logTailLines = 100

// LogSource supplies the tail of today's error log.
type LogSource interface {
	Tail(n int) ([]string, error)
}

type Server struct {
	machine *state.Machine
	version string
	hub     *Hub
	logs    LogSource
	log     zerolog.Logger
}

func NewServer(machine *state.Machine, version string, logs LogSource, log zerolog.Logger) *Server {
	s := &Server{
		machine: machine,
		version: version,
		hub:     NewHub(log),
		logs:    logs,
		log:     log,
	}
	machine.OnStateChange(func(st state.State) {
		s.hub.Broadcast(map[string]any{"type": "state", "state": string(st)})
	})
	machine.OnAttempt(func(a state.Attempt) {
		s.hub.Broadcast(map[string]any{"type": "attempt", "attempt": a})
	})
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("/api/ws", s.hub.HandleWS)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("status server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info := s.machine.Info()
	info["version"] = s.version
	info["now"] = time.Now().UTC()
	jsonResponse(w, info)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := config.Get()
	if cfg == nil {
		cfg = config.Defaults()
	}
	redacted := *cfg
	if redacted.NotifyWebhookURL != "" {
		redacted.NotifyWebhookURL = "(set)"
	}
	jsonResponse(w, redacted)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		jsonResponse(w, []string{})
		return
	}
	lines, err := s.logs.Tail(logTailLines)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, lines)
}
