package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bikereport/internal/dataprocessing"
	apierrors "bikereport/internal/errors"
	"bikereport/internal/services"
	"bikereport/internal/shared/testutil"
	"bikereport/pkg/contracts/domain"
)

// MockReportService is a mock for the ReportService interface
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Defaults() dataprocessing.ReportParams {
	return m.Called().Get(0).(dataprocessing.ReportParams)
}

func (m *MockReportService) Build(ctx context.Context, params dataprocessing.ReportParams) (*dataprocessing.Report, error) {
	args := m.Called(ctx, params)
	report, _ := args.Get(0).(*dataprocessing.Report)
	return report, args.Error(1)
}

func (m *MockReportService) Options(ctx context.Context) services.Options {
	return m.Called(ctx).Get(0).(services.Options)
}

func (m *MockReportService) Reload(ctx context.Context) (*dataprocessing.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*dataprocessing.Snapshot)
	return snap, args.Error(1)
}

func (m *MockReportService) SnapshotInfo() (services.SnapshotInfo, error) {
	args := m.Called()
	return args.Get(0).(services.SnapshotInfo), args.Error(1)
}

func newRouter(t *testing.T, service ReportService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	handler := NewReportHandler(service, logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api", handler.Routes())
	return r
}

func scenarioService(t *testing.T) *services.ReportService {
	t.Helper()
	registry, dispatch, err := testutil.WriteScenarioCSV(t.TempDir())
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewReportService(dataprocessing.NewCSVSource(registry, dispatch), defaultParams(t), nil, nil, logger)
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)
	return svc
}

func do(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestReportHandler_GetReport(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	rec := do(t, router, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		Start        string                     `json:"start"`
		Fingerprint  string                     `json:"fingerprint"`
		DispatchType string                     `json:"dispatch_type"`
		Stats        dataprocessing.ReportStats `json:"stats"`
		TypeTotals   dataprocessing.TypeTotals  `json:"type_totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "2023-01-01", report.Start)
	assert.Equal(t, 5, report.Stats.InRange)
	assert.Equal(t, "Yellow 360 YOLO", report.DispatchType)
	assert.Len(t, report.Fingerprint, 64)
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.NotContains(t, rec.Body.String(), "GART")
	assert.Len(t, report.TypeTotals.ServiceByType, 4)
}

func TestReportHandler_ETag(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	first := do(t, router, http.MethodGet, "/api/report?start=2023-02-01", nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))

	cached := do(t, router, http.MethodGet, "/api/report?start=2023-02-01", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Empty(t, cached.Body.Bytes())

	other := do(t, router, http.MethodGet, "/api/report?start=2023-03-01", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusOK, other.Code)
	assert.NotEqual(t, etag, other.Header().Get("ETag"))

	table := do(t, router, http.MethodGet, "/api/report/touches?start=2023-02-01", nil)
	assert.NotEqual(t, etag, table.Header().Get("ETag"))
}

func TestReportHandler_GetTableJSON(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	rec := do(t, router, http.MethodGet, "/api/report/dispatches", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "dispatches", body["name"])
	assert.Equal(t, "DispatchesWithKeyWordsInOfficeNotes.csv", body["filename"])
	headers := body["headers"].([]interface{})
	require.Len(t, headers, len(domain.DispatchViewHeaders))
	assert.Equal(t, "Office Note", headers[1])
	assert.Len(t, body["rows"], 1)
}

func TestReportHandler_GetTableCSV(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	rec := do(t, router, http.MethodGet, "/api/report/touches?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Touches.csv"`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte("\ufeff")))
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\ufeff")))).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "Service", records[0][0])
	assert.Contains(t, records[0], "Yellow 360 YOLO")
}

func TestReportHandler_GetTableErrors(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	rec := do(t, router, http.MethodGet, "/api/report/summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.TypeNotFound, decodeBody(t, rec)["type"])

	rec = do(t, router, http.MethodGet, "/api/report/touches?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/report/efficiency?policy=ratio", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeValidation, body["type"])
	assert.Contains(t, rec.Body.String(), `"field":"policy"`)
}

func TestReportHandler_Workbook(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	rec := do(t, router, http.MethodGet, "/api/report?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), workbookFilename)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{
		"ServiceByType", "ServiceByTypeWithKeywords", "Touches", "Dispatches", "Efficiency", "TypeTotals",
	}, f.GetSheetList())

	rec = do(t, router, http.MethodGet, "/api/report?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandler_Options(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	rec := do(t, router, http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var opts services.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Contains(t, opts.BikeTypes, "Yellow 360 YOLO")
	assert.NotContains(t, opts.Services, "GART")
	assert.Contains(t, opts.Tables, "type-totals")
	assert.Equal(t, "2023-09-13", opts.DefaultEndDate)
	require.NotNil(t, opts.Snapshot)
	assert.Equal(t, 4, opts.Snapshot.RegistryRows)
}

func TestReportHandler_RefreshSnapshot(t *testing.T) {
	router := newRouter(t, scenarioService(t))

	rec := do(t, router, http.MethodPost, "/api/snapshot/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	snapshot := body["snapshot"].(map[string]interface{})
	assert.Equal(t, float64(8), snapshot["dispatch_rows"])
}

func TestReportHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		setup      func(m *MockReportService, defaults dataprocessing.ReportParams)
		wantStatus int
		wantType   string
	}{
		{
			name:   "no snapshot",
			method: http.MethodGet,
			target: "/api/report",
			setup: func(m *MockReportService, defaults dataprocessing.ReportParams) {
				m.On("Defaults").Return(defaults)
				m.On("SnapshotInfo").Return(services.SnapshotInfo{}, apierrors.NewUnavailableError("no snapshot loaded"))
				m.On("Build", mock.Anything, defaults).Return(nil, apierrors.NewUnavailableError("no snapshot loaded"))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apierrors.TypeSnapshotMissing,
		},
		{
			name:   "schema error on build",
			method: http.MethodGet,
			target: "/api/report/touches",
			setup: func(m *MockReportService, defaults dataprocessing.ReportParams) {
				m.On("Defaults").Return(defaults)
				m.On("SnapshotInfo").Return(services.SnapshotInfo{Fingerprint: "abc"}, nil)
				m.On("Build", mock.Anything, defaults).Return(nil, apierrors.NewSchemaError("registry", "expected 16 columns"))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeSchemaMismatch,
		},
		{
			name:   "reload fails",
			method: http.MethodPost,
			target: "/api/snapshot/refresh",
			setup: func(m *MockReportService, defaults dataprocessing.ReportParams) {
				m.On("Reload", mock.Anything).Return(nil, apierrors.NewSourceError("registry.csv missing", nil))
			},
			wantStatus: http.StatusBadGateway,
			wantType:   apierrors.TypeSourceFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockReportService)
			tt.setup(svc, defaultParams(t))

			rec := do(t, newRouter(t, svc), tt.method, tt.target, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, decodeBody(t, rec)["type"])
			assert.Empty(t, rec.Header().Get("ETag"))
			svc.AssertExpectations(t)
		})
	}
}
