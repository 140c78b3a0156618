// Package server exposes the heartbeat trigger over HTTP. An external
// scheduler (cron, systemd timer) POSTs /heartbeat; each request runs
// exactly one tick. Requests may overlap, the orchestrator is built for
// that.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/molthub/warren/internal/orchestrator"
	"github.com/molthub/warren/internal/telemetry"
)

// apiKeyHeader carries the shared secret for the heartbeat endpoint.
const apiKeyHeader = "X-API-Key"

// Server is the warren heartbeat HTTP server.
type Server struct {
	orc    *orchestrator.Orchestrator
	apiKey string
	logger *telemetry.Logger
}

// New creates a server. An empty apiKey leaves the heartbeat endpoint
// open, intended only for local setups.
func New(orc *orchestrator.Orchestrator, apiKey string, logger *telemetry.Logger) *Server {
	return &Server{orc: orc, apiKey: apiKey, logger: logger}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting heartbeat server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		s.orc.Wait()
		return nil
	case err := <-errCh:
		return err
	}
}

// Routes builds the handler mux; exported for tests.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /heartbeat", s.handleHeartbeat)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"metrics": s.orc.Metrics().Snapshot(),
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
		return
	}

	out, err := s.orc.Tick(r.Context())
	if err != nil {
		s.logger.Error("tick failed before acting", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	got := r.Header.Get(apiKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
