// Package server exposes the bot's status over HTTP and keeps the process
// warm with a periodic self-ping.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/amirphl/rsi-trader/internal/journal"
	"github.com/amirphl/rsi-trader/internal/livetrading"
	"github.com/amirphl/rsi-trader/internal/utils"
)

const shutdownTimeout = 5 * time.Second

// StatusReader provides the latest published runner status.
type StatusReader interface {
	Status() livetrading.Status
}

// Options wires a Server. Only Port and StatusLine are required.
type Options struct {
	Port       int
	StatusLine string
	State      StatusReader
	Journal    journal.Journaler
	Metrics    http.Handler
	Hub        *Hub
	Logger     *log.Logger
}

type Server struct {
	opts   Options
	logger *log.Logger
	http   *http.Server
}

func New(opts Options) *Server {
	s := &Server{opts: opts, logger: opts.Logger}
	if s.logger == nil {
		s.logger = utils.GetLogger()
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router with every endpoint registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	if s.opts.State != nil {
		mux.HandleFunc("GET /api/v1/state", s.handleState)
	}
	if s.opts.Journal != nil {
		mux.HandleFunc("GET /api/v1/trades", s.handleTrades)
	}
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}
	if s.opts.Hub != nil {
		mux.HandleFunc("GET /ws", s.opts.Hub.ServeWS)
	}
	return mux
}

// Run listens on the configured port until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()
	s.logger.Printf("Server | Server started on port %d", s.opts.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.opts.Hub != nil {
		s.opts.Hub.Close()
	}
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Println("Server | Stopped")
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.opts.StatusLine)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.State.Status())
}

// handleTrades lists journaled trades. Optional from/to query parameters are
// RFC 3339 timestamps.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from: " + err.Error()})
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to: " + err.Error()})
		return
	}

	events, err := s.opts.Journal.GetEvents(r.Context(), journal.TypeTrade, from, to)
	if err != nil {
		s.logger.Printf("Server | Failed to read trades: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	if events == nil {
		events = []journal.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
