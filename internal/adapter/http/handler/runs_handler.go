package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/adapter/csvio"
	"github.com/iho/txengine/internal/adapter/http/dto"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
)

// LatestRun addresses the most recently exported run.
const LatestRun = "latest"

// RunsHandler serves balances of previously exported runs.
type RunsHandler struct {
	loader usecase.BalanceLoader
	logger zerolog.Logger
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(loader usecase.BalanceLoader, logger zerolog.Logger) *RunsHandler {
	return &RunsHandler{loader: loader, logger: logger}
}

// Balances handles GET /api/v1/runs/{runID}/balances.
func (h *RunsHandler) Balances(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "invalid run id", errEmptyRunID.Error())
		return
	}

	if runID == LatestRun {
		latest, err := h.loader.LatestRunID(r.Context())
		if err != nil {
			h.writeLoadError(w, runID, err)
			return
		}
		runID = latest
	}

	balances, err := h.loader.Load(r.Context(), runID)
	if err != nil {
		h.writeLoadError(w, runID, err)
		return
	}

	w.Header().Set(RunIDHeader, runID)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, dto.RunBalancesResponse{
			RunID:    runID,
			Balances: dto.BalancesFromDomain(balances),
		})
		return
	}

	w.Header().Set("Content-Type", contentTypeCSV)
	w.WriteHeader(http.StatusOK)
	if err := csvio.NewWriter(w).Write(balances); err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("failed to write balances")
	}
}

func (h *RunsHandler) writeLoadError(w http.ResponseWriter, runID string, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found", runID)
		return
	}
	h.logger.Error().Err(err).Str("run_id", runID).Msg("failed to load run")
	writeError(w, http.StatusInternalServerError, "failed to load run", err.Error())
}
