package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"selfplay/communication"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StatusServer serves the latest published status on /status and the Prometheus registry on
// /metrics.
type StatusServer struct {
	status *communication.Status
	mutex  sync.RWMutex
	server *http.Server
}

func NewStatusServer(addr string) *StatusServer {
	ss := &StatusServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", ss.handleGetStatus)
	mux.Handle("/metrics", promhttp.Handler())
	ss.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ss
}

func (ss *StatusServer) Handler() http.Handler {
	return ss.server.Handler
}

// Start serves until Shutdown is called.
func (ss *StatusServer) Start() error {
	log.Info().Str("addr", ss.server.Addr).Msg("Serving status")
	err := ss.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (ss *StatusServer) Shutdown(ctx context.Context) error {
	return ss.server.Shutdown(ctx)
}

func (ss *StatusServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()
	if ss.status == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ss.status); err != nil {
		log.Error().Err(err).Msg("Failed to encode status")
	}
}

func (ss *StatusServer) GetStatus() *communication.Status {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()
	if ss.status == nil {
		return nil
	}
	statusCopy := *ss.status
	return &statusCopy
}

func (ss *StatusServer) UpdateStatus(status communication.Status) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.status = &status
}
