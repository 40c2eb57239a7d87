package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/infrastructure/http/response"
)

// PreviewImportResponse lists how each CSV row would be interpreted.
type PreviewImportResponse struct {
	Rows []RowReportDTO `json:"rows"`
}

// PreviewImport interprets an uploaded CSV without persisting anything.
// POST /v1/imports/preview
func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	rows, ok := readRows(w, r)
	if !ok {
		return
	}

	response.OK(w, PreviewImportResponse{Rows: mapReports(h.importer.Preview(r.Context(), rows))})
}

// RunImport imports an uploaded CSV, populating Jan 1 of from_year through Dec 31 of to_year.
// Both years default to the tracker's horizon.
// POST /v1/imports?from_year=&to_year=
func (h *Handler) RunImport(w http.ResponseWriter, r *http.Request) {
	fromYear, ok := queryInt(w, r, "from_year", h.tracker.Today().Year)
	if !ok {
		return
	}
	toYear, ok := queryInt(w, r, "to_year", h.tracker.HorizonEnd().Year)
	if !ok {
		return
	}

	rows, ok := readRows(w, r)
	if !ok {
		return
	}

	summary, err := h.importer.Import(r.Context(), rows, fromYear, toYear)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to import spreadsheet via HTTP",
			"rows", len(rows),
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapImportSummaryToDTO(summary))
}

// readRows parses the CSV request body, writing a 400 on failure.
func readRows(w http.ResponseWriter, r *http.Request) ([]importer.Row, bool) {
	rows, err := importer.ReadCSV(r.Body)
	if err != nil {
		if errors.Is(err, importer.ErrMissingColumn) {
			response.FromDomainError(w, r, err)
		} else {
			response.BadRequest(w, "invalid CSV: "+err.Error())
		}
		return nil, false
	}
	return rows, true
}
