package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthServer exposes the scheduler's introspection snapshot over HTTP.
type HealthServer struct {
	sched  *Scheduler
	server *http.Server
}

// NewHealthServer creates a health check server for the scheduler.
func NewHealthServer(sched *Scheduler, addr string) *HealthServer {
	h := &HealthServer{sched: sched}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)
	h.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return h
}

// Start starts the HTTP health check server in the background.
func (h *HealthServer) Start() error {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Health server error: %v\n", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the health check server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK while the dispatch loop is running, 503 otherwise.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := h.sched.Health()
	status := http.StatusOK
	if !health.Running {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}
