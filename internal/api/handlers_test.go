package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"MarketScreener/internal/model"
	"MarketScreener/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScans struct {
	triggerErr error
	triggered  int
	latest     *model.ScanResult
	progress   scheduler.Progress
}

func (f *fakeScans) Trigger() error {
	f.triggered++
	return f.triggerErr
}

func (f *fakeScans) Latest() (model.ScanResult, bool) {
	if f.latest == nil {
		return model.ScanResult{}, false
	}
	return *f.latest, true
}

func (f *fakeScans) Progress() scheduler.Progress { return f.progress }

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return nil
}

func serve(t *testing.T, h *Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	SetupRoutes(h).ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func completedResult() *model.ScanResult {
	return &model.ScanResult{
		Status:  model.ScanCompleted,
		Scanned: 2,
		Report: &model.ScreenReport{
			Records: []model.ScreenRecord{
				{Symbol: "BRK-B", Price: 410, Status: model.Neutral},
				{Symbol: "MSFT", Price: 400, Status: model.Overbought},
			},
			Summary: model.Summary{Neutral: 1, Overbought: 1, Total: 2},
		},
	}
}

func TestHealthCheck(t *testing.T) {
	rec := serve(t, NewHandler(&fakeScans{}, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestGetReport(t *testing.T) {
	rec := serve(t, NewHandler(&fakeScans{}, nil), http.MethodGet, "/api/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, NewHandler(&fakeScans{latest: completedResult()}, nil), http.MethodGet, "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.ScanCompleted, got.Status)
	require.NotNil(t, got.Report)
	assert.Len(t, got.Report.Records, 2)
}

func TestGetRecord_NormalizesSymbol(t *testing.T) {
	h := NewHandler(&fakeScans{latest: completedResult()}, nil)

	rec := serve(t, h, http.MethodGet, "/api/report/brk.b")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BRK-B")

	rec = serve(t, h, http.MethodGet, "/api/report/XYZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartScan(t *testing.T) {
	scans := &fakeScans{}
	rec := serve(t, NewHandler(scans, nil), http.MethodPost, "/api/scan")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, scans.triggered)

	scans.triggerErr = scheduler.ErrScanInProgress
	rec = serve(t, NewHandler(scans, nil), http.MethodPost, "/api/scan")
	assert.Equal(t, http.StatusConflict, rec.Code)

	scans.triggerErr = errors.New("boom")
	rec = serve(t, NewHandler(scans, nil), http.MethodPost, "/api/scan")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, NewHandler(scans, nil), http.MethodGet, "/api/scan")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetProgress(t *testing.T) {
	scans := &fakeScans{progress: scheduler.Progress{Running: true, Done: 5, Total: 20, Fraction: 0.25}}
	rec := serve(t, NewHandler(scans, nil), http.MethodGet, "/api/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"running":true,"done":5,"total":20,"fraction":0.25}`, rec.Body.String())
}

func TestRefreshUniverse(t *testing.T) {
	rec := serve(t, NewHandler(&fakeScans{}, nil), http.MethodPost, "/api/universe/refresh")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	inv := &fakeInvalidator{}
	rec = serve(t, NewHandler(&fakeScans{}, inv), http.MethodPost, "/api/universe/refresh")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, inv.calls)
}
