package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/billdocs/internal/batch"
	"github.com/go-chi/chi/v5"
)

// maxRequestBody bounds the JSON body of a batch request.
const maxRequestBody = 64 << 10

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports batch slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.batches.Limiter().Status())
}

// handleStartBatch starts a batch and returns its snapshot without waiting
// for it to finish.
func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req batch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	snap, err := s.batches.Start(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/batches/"+snap.ID)
	writeJSON(w, r, http.StatusAccepted, snap)
}

// handleListBatches lists known batches, newest first.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.batches.List())
}

// handleGetBatch returns the current snapshot of one batch.
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.batches.Get(chi.URLParam(r, "batchID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

// handleBatchReport returns the final report of a finished batch.
func (s *Server) handleBatchReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.batches.Report(chi.URLParam(r, "batchID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

// handleCancelBatch stops scheduling new files for a batch. Files already
// being processed run to completion.
func (s *Server) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.batches.Cancel(chi.URLParam(r, "batchID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, snap)
}
