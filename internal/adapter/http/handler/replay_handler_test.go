package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/txengine/internal/adapter/http/dto"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
	"github.com/iho/txengine/internal/usecase/mocks"
)

const replayInput = `type, client, tx, amount
deposit, 1, 1, 1.0
deposit, 2, 2, 2.0
deposit, 1, 3, 2.0
withdrawal, 1, 4, 1.5
withdrawal, 2, 5, 3.0
`

func newTestReplayHandler(exporter Exporter, maxBytes int64) *ReplayHandler {
	uc := usecase.NewReplayUseCase(mocks.NewSequenceIDGenerator("run-1"), nil, nil)
	return NewReplayHandler(uc, exporter, 2, maxBytes, zerolog.Nop())
}

func TestReplayHandler_CSVResponse(t *testing.T) {
	h := newTestReplayHandler(nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay", strings.NewReader(replayInput))
	rr := httptest.NewRecorder()
	h.Replay(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, "run-1", rr.Header().Get(RunIDHeader))
	assert.Equal(t, "4", rr.Header().Get("X-Records-Applied"))
	assert.Equal(t, "1", rr.Header().Get("X-Records-Rejected"))

	want := "client,available,held,total,locked\n" +
		"1,1.5000,0.0000,1.5000,false\n" +
		"2,2.0000,0.0000,2.0000,false\n"
	assert.Equal(t, want, rr.Body.String())
}

func TestReplayHandler_JSONResponse(t *testing.T) {
	exporter := mocks.NewRecordingExporter("memory")
	h := newTestReplayHandler(usecase.NewExportUseCase([]usecase.BalanceExporter{exporter}, 0, nil), 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay", strings.NewReader(replayInput))
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	h.Replay(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.ReplayResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, 4, resp.Applied)
	assert.Equal(t, 1, resp.Rejected)
	assert.True(t, resp.Exported)
	require.Len(t, resp.Balances, 2)
	assert.Equal(t, "1.5000", resp.Balances[0].Available)

	exported, ok := exporter.Exported("run-1")
	require.True(t, ok)
	assert.Len(t, exported, 2)
}

func TestReplayHandler_ExportFailure(t *testing.T) {
	exporter := mocks.NewRecordingExporter("broken")
	exporter.ExportFunc = func(ctx context.Context, runID string, _ []domain.Balance) error {
		return errors.New("unreachable")
	}
	h := newTestReplayHandler(usecase.NewExportUseCase([]usecase.BalanceExporter{exporter}, 0, nil), 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay", strings.NewReader(replayInput))
	rr := httptest.NewRecorder()
	h.Replay(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "run-1", rr.Header().Get(RunIDHeader))
}

func TestReplayHandler_MissingColumn(t *testing.T) {
	h := newTestReplayHandler(nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay", strings.NewReader("type,client\ndeposit,1\n"))
	rr := httptest.NewRecorder()
	h.Replay(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReplayHandler_BodyTooLarge(t *testing.T) {
	h := newTestReplayHandler(nil, 16)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay", strings.NewReader(replayInput))
	rr := httptest.NewRecorder()
	h.Replay(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestReplayHandler_EmptyBody(t *testing.T) {
	h := newTestReplayHandler(nil, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay", strings.NewReader(""))
	rr := httptest.NewRecorder()
	h.Replay(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "client,available,held,total,locked\n", rr.Body.String())
}
