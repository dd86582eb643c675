package http

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/crypto/blake2b"

	"bikereport/internal/dataprocessing"
	apierrors "bikereport/internal/errors"
	"bikereport/internal/exporter"
	"bikereport/internal/services"
)

// ReportService is the report surface the handler depends on.
// *services.ReportService implements it.
type ReportService interface {
	Defaults() dataprocessing.ReportParams
	Build(ctx context.Context, params dataprocessing.ReportParams) (*dataprocessing.Report, error)
	Options(ctx context.Context) services.Options
	Reload(ctx context.Context) (*dataprocessing.Snapshot, error)
	SnapshotInfo() (services.SnapshotInfo, error)
}

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	workbookFilename = "BikeReport.xlsx"
)

// ReportHandler serves report tables as JSON, CSV and XLSX
type ReportHandler struct {
	service      ReportService
	parser       *ParamParser
	workbook     *exporter.WorkbookExporter
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a report handler
func NewReportHandler(service ReportService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		parser:       NewParamParser(),
		workbook:     exporter.NewWorkbookExporter(),
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes, mounted under /api
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/options", h.GetOptions)
	r.Post("/snapshot/refresh", h.RefreshSnapshot)

	r.Route("/report", func(r chi.Router) {
		r.Get("/", h.GetReport)
		r.Get("/{table}", h.GetTable)
	})

	return r
}

// GetReport handles GET /api/report. format=xlsx downloads every table as one
// workbook; otherwise the full report is returned as JSON.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	query := QueryFromValues(r.URL.Query())
	if query.Format == FormatCSV {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format",
			"csv is available per table under /api/report/{table}"))
		return
	}

	params, err := h.parser.Parse(query, h.service.Defaults())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	etag := h.etag(params, "report", query.Format)
	if notModified(w, r, etag) {
		return
	}

	report, err := h.service.Build(r.Context(), params)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logReport(r, report)

	if query.Format == FormatXLSX {
		var buf bytes.Buffer
		if err := h.workbook.Write(&buf, exporter.ReportTables(report)); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		writeDownload(w, etag, contentTypeXLSX, workbookFilename, buf.Bytes())
		return
	}

	setETag(w, etag)
	render.JSON(w, r, report)
}

// GetTable handles GET /api/report/{table}
func (h *ReportHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	query := QueryFromValues(r.URL.Query())
	if query.Format == FormatXLSX {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format",
			"xlsx is available for the whole report under /api/report"))
		return
	}
	if !knownTable(name) {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError(fmt.Sprintf("table %q", name)))
		return
	}

	params, err := h.parser.Parse(query, h.service.Defaults())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	etag := h.etag(params, name, query.Format)
	if notModified(w, r, etag) {
		return
	}

	report, err := h.service.Build(r.Context(), params)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logReport(r, report)

	table, err := exporter.TableFor(report, name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if query.Format == FormatCSV {
		var buf bytes.Buffer
		if err := exporter.WriteTable(&buf, table); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		writeDownload(w, etag, contentTypeCSV, table.Filename, buf.Bytes())
		return
	}

	setETag(w, etag)
	render.JSON(w, r, table)
}

// GetOptions handles GET /api/options
func (h *ReportHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts := h.service.Options(r.Context())
	opts.Tables = exporter.TableNames()
	render.JSON(w, r, opts)
}

// RefreshSnapshot handles POST /api/snapshot/refresh
func (h *ReportHandler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Reload(r.Context()); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	info, err := h.service.SnapshotInfo()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "snapshot refreshed",
		slog.String("fingerprint", info.Fingerprint),
		slog.Int("registry_rows", info.RegistryRows),
		slog.Int("dispatch_rows", info.DispatchRows))

	render.JSON(w, r, map[string]interface{}{
		"status":   "success",
		"snapshot": info,
	})
}

// etag derives a weak entity tag from the snapshot fingerprint and the
// effective parameters. It is empty while no snapshot is loaded.
func (h *ReportHandler) etag(params dataprocessing.ReportParams, resource, format string) string {
	info, err := h.service.SnapshotInfo()
	if err != nil || info.Fingerprint == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%+v", info.Fingerprint, resource, format, params)))
	return `W/"` + hex.EncodeToString(sum[:16]) + `"`
}

func (h *ReportHandler) logReport(r *http.Request, report *dataprocessing.Report) {
	attrs := []any{
		slog.String("fingerprint", report.Fingerprint),
		slog.String("start", report.Start),
		slog.String("end", report.End),
		slog.Int("working", report.Stats.Working),
		slog.Int("warnings", len(report.Warnings)),
	}
	if len(report.SectionErrors) > 0 {
		attrs = append(attrs, slog.Int("section_errors", len(report.SectionErrors)))
		h.logger.WarnContext(r.Context(), "report built with failed sections", attrs...)
		return
	}
	h.logger.DebugContext(r.Context(), "report built", attrs...)
}

func knownTable(name string) bool {
	for _, t := range exporter.TableNames() {
		if t == name {
			return true
		}
	}
	return false
}

func setETag(w http.ResponseWriter, etag string) {
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
}

// notModified answers 304 when the client already holds etag
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	if etag == "" {
		return false
	}
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == etag || candidate == "*" || "W/"+candidate == etag {
			setETag(w, etag)
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

func writeDownload(w http.ResponseWriter, etag, contentType, filename string, body []byte) {
	setETag(w, etag)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
