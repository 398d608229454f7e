// Package api exposes the latest scan and scan control over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"MarketScreener/internal/model"
	"MarketScreener/internal/scheduler"
	"MarketScreener/internal/universe"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// ScanService is the scan control the handlers need.
type ScanService interface {
	Trigger() error
	Latest() (model.ScanResult, bool)
	Progress() scheduler.Progress
}

// Invalidator drops a cached universe.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	scans    ScanService
	universe Invalidator
}

// NewHandler creates a new Handler. universe may be nil.
func NewHandler(scans ScanService, universe Invalidator) *Handler {
	return &Handler{scans: scans, universe: universe}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetReport handles GET /api/report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.scans.Latest()
	if !ok {
		http.Error(w, "no scan has finished yet", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetRecord handles GET /api/report/{symbol}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	symbol := universe.Normalize(strings.ToUpper(mux.Vars(r)["symbol"]))

	res, ok := h.scans.Latest()
	if !ok || res.Report == nil {
		http.Error(w, "no scan has finished yet", http.StatusNotFound)
		return
	}
	for _, rec := range res.Report.Records {
		if rec.Symbol == symbol {
			respondJSON(w, http.StatusOK, rec)
			return
		}
	}
	http.Error(w, "symbol not in latest report", http.StatusNotFound)
}

// StartScan handles POST /api/scan.
func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	if err := h.scans.Trigger(); err != nil {
		if errors.Is(err, scheduler.ErrScanInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// GetProgress handles GET /api/progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scans.Progress())
}

// RefreshUniverse handles POST /api/universe/refresh.
func (h *Handler) RefreshUniverse(w http.ResponseWriter, r *http.Request) {
	if h.universe == nil {
		http.Error(w, "universe cache not configured", http.StatusNotImplemented)
		return
	}
	if err := h.universe.Invalidate(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
