// Package devserver is a local development harness around the processor.
// The deployed surface is the Lambda runtime; this exists so fixture
// batches can be poked at over HTTP and metrics scraped while iterating.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cldeng/scp-exemption-trigger/internal/processor"
)

// Server holds the handler dependencies.
type Server struct {
	proc *processor.Processor
	mux  *http.ServeMux
}

// New creates the harness and registers all routes.
func New(proc *processor.Processor) http.Handler {
	s := &Server{proc: proc, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /v1/stream-events", s.postStreamEvent)
	s.mux.HandleFunc("GET /healthz", s.healthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	return s.mux
}

// POST /v1/stream-events — run one DynamoDB stream batch through the
// pipeline. A failed batch maps to 500, mirroring a failed invocation.
func (s *Server) postStreamEvent(w http.ResponseWriter, r *http.Request) {
	var batch events.DynamoDBEvent
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if err := s.proc.HandleBatch(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": len(batch.Records),
	})
}

// GET /healthz — always 200.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
