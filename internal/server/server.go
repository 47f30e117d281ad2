// Package server exposes parsed records over HTTP and WebSocket. It is
// an output surface only; the ingestion and parsing core never depends
// on it.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/config"
	"github.com/sieman/sieman/internal/parser"
	"github.com/sieman/sieman/internal/pipeline"
)

// Server serves recent parsed records, stats, Prometheus metrics and a
// live WebSocket stream.
type Server struct {
	cfg      config.ServerSettings
	logger   zerolog.Logger
	registry *prometheus.Registry
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	recent  []parser.Record
	total   uint64
	started time.Time
	clients map[*client]struct{}
}

// client is one connected WebSocket subscriber.
type client struct {
	conn   *websocket.Conn
	sendCh chan []parser.Record
}

// New creates a server.
func New(cfg config.ServerSettings, logger zerolog.Logger, registry *prometheus.Registry) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "server").Logger(),
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		recent:  make([]parser.Record, 0, cfg.RecentRecords),
		started: time.Now(),
		clients: make(map[*client]struct{}),
	}
}

// Consume batches records from the pipeline, retains the most recent
// ones for the records endpoint and broadcasts each batch to stream
// subscribers. It returns when the channel closes or ctx is cancelled.
func (s *Server) Consume(ctx context.Context, records <-chan parser.Record) {
	batcher := pipeline.NewBatcher(records, s.publish, s.logger, s.cfg.BatchSize, s.cfg.BatchInterval)
	if err := batcher.Run(ctx); err != nil && err != context.Canceled {
		s.logger.Error().Err(err).Msg("Record consumer error")
	}
}

// publish stores a flushed batch and fans it out to subscribers.
func (s *Server) publish(ctx context.Context, records []parser.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total += uint64(len(records))
	s.recent = append(s.recent, records...)
	if overflow := len(s.recent) - s.cfg.RecentRecords; overflow > 0 {
		s.recent = s.recent[overflow:]
	}

	// Non-blocking sends under the lock: unsubscribe closes sendCh only
	// after it has taken the same lock, so no send hits a closed channel.
	for c := range s.clients {
		select {
		case c.sendCh <- records:
		default:
			// Slow subscriber, drop the batch for it.
			s.logger.Warn().Msg("Subscriber too slow, dropping batch")
		}
	}
	return nil
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/records", s.handleRecords).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleStream).Methods(http.MethodGet)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats describes the server's record throughput.
type Stats struct {
	TotalRecords  uint64 `json:"total_records"`
	RecentRecords int    `json:"recent_records"`
	Subscribers   int    `json:"subscribers"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stats := Stats{
		TotalRecords:  s.total,
		RecentRecords: len(s.recent),
		Subscribers:   len(s.clients),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	records := make([]parser.Record, len(s.recent))
	copy(records, s.recent)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, records)
}

// handleStream upgrades to WebSocket and pushes record batches as JSON
// arrays until the subscriber goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		sendCh: make(chan []parser.Record, 8),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("Stream subscriber connected")

	go s.writePump(c)

	// Drain control frames; returning unregisters the subscriber.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, c)
	close(c.sendCh)
	s.mu.Unlock()

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("Stream subscriber disconnected")
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()

	for records := range c.sendCh {
		c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := c.conn.WriteJSON(records); err != nil {
			s.logger.Debug().Err(err).Msg("Stream write failed")
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
