package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/adapter/csvio"
	"github.com/iho/txengine/internal/adapter/http/dto"
	"github.com/iho/txengine/internal/usecase"
)

var errEmptyRunID = errors.New("run id is required")

// Replayer runs a replay over a record source.
type Replayer interface {
	ReplayPartitioned(ctx context.Context, src usecase.RecordSource, workers int) (*usecase.Report, error)
}

// Exporter publishes a finished report.
type Exporter interface {
	Enabled() bool
	Export(ctx context.Context, report *usecase.Report) error
}

// ReplayHandler handles CSV replay uploads.
type ReplayHandler struct {
	replayer Replayer
	exporter Exporter
	workers  int
	maxBytes int64
	logger   zerolog.Logger
}

// NewReplayHandler creates a new ReplayHandler. exporter may be nil.
func NewReplayHandler(replayer Replayer, exporter Exporter, workers int, maxBytes int64, logger zerolog.Logger) *ReplayHandler {
	return &ReplayHandler{
		replayer: replayer,
		exporter: exporter,
		workers:  workers,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Replay handles POST /api/v1/replay.
func (h *ReplayHandler) Replay(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	report, err := h.replayer.ReplayPartitioned(r.Context(), csvio.NewReader(body), h.workers)
	if err != nil {
		status := mapReplayError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("replay failed")
		}
		writeError(w, status, "replay failed", err.Error())
		return
	}

	logger := h.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().
		Int("applied", report.Applied).
		Int("rejected", report.Rejected).
		Int("malformed", report.Malformed).
		Int("accounts", len(report.Accounts)).
		Dur("duration", report.Duration).
		Msg("replay completed")

	exported := false
	if h.exporter != nil && h.exporter.Enabled() {
		if err := h.exporter.Export(r.Context(), report); err != nil {
			logger.Error().Err(err).Msg("export failed")
			w.Header().Set(RunIDHeader, report.RunID)
			writeError(w, http.StatusBadGateway, "export failed", err.Error())
			return
		}
		exported = true
	}

	w.Header().Set(RunIDHeader, report.RunID)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, dto.ReplayResponse{
			RunID:      report.RunID,
			Applied:    report.Applied,
			Rejected:   report.Rejected,
			Malformed:  report.Malformed,
			DurationMs: report.Duration.Milliseconds(),
			Exported:   exported,
			Balances:   dto.BalancesFromDomain(report.Balances()),
		})
		return
	}

	w.Header().Set("Content-Type", contentTypeCSV)
	w.Header().Set("X-Records-Applied", strconv.Itoa(report.Applied))
	w.Header().Set("X-Records-Rejected", strconv.Itoa(report.Rejected))
	w.WriteHeader(http.StatusOK)
	if err := report.Render(csvio.NewWriter(w)); err != nil {
		logger.Error().Err(err).Msg("failed to write balances")
	}
}
