package web

// handlers.go implements the JSON API. Handlers decode the wire types,
// delegate to the catalog service, and cap the row-level detail returned to
// clients; the complete detail is always persisted with the upload.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/supplysync/pricelist/internal/catalog"
	"github.com/supplysync/pricelist/internal/logging"
)

// maxDisplayErrors caps how many row-level errors or warnings one response
// carries. The full list is stored on the upload and available via the
// report endpoint.
const maxDisplayErrors = 100

var errBadRequest = errors.New("invalid request")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

// writeJSON encodes v as JSON and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing left to do but log.
		slog.Error("json encode error", "error", err)
	}
}

// decodeJSON decodes the request body into v with unknown fields rejected.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

// uploadIDParam parses the {uploadID} path parameter.
func uploadIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "uploadID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("uploadID must be a UUID")
	}
	return id, nil
}

// ============================================================================
// Health
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// Suppliers
// ============================================================================

type createSupplierRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Name == "" || req.Code == "" {
		s.respondError(w, r, badRequest("name and code are required"))
		return
	}

	sup, err := s.service.CreateSupplier(r.Context(), req.Name, req.Code)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sup)
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.service.ListSuppliers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suppliers": suppliers})
}

// ============================================================================
// Upload lifecycle
// ============================================================================

type createUploadRequest struct {
	SupplierID string `json:"supplierId"`
	Filename   string `json:"filename"`
	Currency   string `json:"currency,omitempty"`
	ValidFrom  string `json:"validFrom,omitempty"`
	ValidTo    string `json:"validTo,omitempty"`
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	var req createUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		s.respondError(w, r, badRequest("supplierId must be a UUID"))
		return
	}
	if req.Filename == "" {
		s.respondError(w, r, badRequest("filename is required"))
		return
	}

	in := catalog.NewUpload{
		SupplierID: supplierID,
		Filename:   req.Filename,
		Currency:   req.Currency,
	}
	if req.ValidFrom != "" {
		t, ok := catalog.ParseDate(req.ValidFrom)
		if !ok {
			s.respondError(w, r, badRequest("validFrom is not a recognized date"))
			return
		}
		in.ValidFrom = t
	}
	if req.ValidTo != "" {
		t, ok := catalog.ParseDate(req.ValidTo)
		if !ok {
			s.respondError(w, r, badRequest("validTo is not a recognized date"))
			return
		}
		in.ValidTo = &t
	}

	u, err := s.service.CreateUpload(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("upload created",
		"upload_id", u.ID, "supplier_id", u.SupplierID, "filename", u.Filename)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uploadIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := s.service.GetUpload(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	var supplierID *uuid.UUID
	if raw := r.URL.Query().Get("supplierId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(w, r, badRequest("supplierId must be a UUID"))
			return
		}
		supplierID = &id
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	uploads, err := s.service.ListUploads(r.Context(), supplierID, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"uploads": uploads})
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id, err := uploadIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := s.service.Reprocess(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("upload reset for reprocessing", "upload_id", u.ID)
	writeJSON(w, http.StatusOK, u)
}

// ============================================================================
// Row staging
// ============================================================================

// wireRow is the staging wire format. Price and packSize travel as strings
// so importers can pass raw cell values; the conversion layer handles
// currency symbols, separators and accounting negatives.
type wireRow struct {
	SKU      string         `json:"sku"`
	Name     string         `json:"name"`
	Brand    string         `json:"brand,omitempty"`
	UOM      string         `json:"uom"`
	PackSize string         `json:"packSize,omitempty"`
	Price    string         `json:"price"`
	Currency string         `json:"currency,omitempty"`
	Category string         `json:"category,omitempty"`
	VATCode  string         `json:"vatCode,omitempty"`
	Barcode  string         `json:"barcode,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

type stageRowsRequest struct {
	Rows []wireRow `json:"rows"`
}

func (s *Server) handleStageRows(w http.ResponseWriter, r *http.Request) {
	id, err := uploadIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req stageRowsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(req.Rows) == 0 {
		s.respondError(w, r, badRequest("rows must not be empty"))
		return
	}
	if len(req.Rows) > s.cfg.Staging.MaxRowsPerRequest {
		s.respondError(w, r, badRequest(fmt.Sprintf(
			"too many rows in one request (%d > %d)", len(req.Rows), s.cfg.Staging.MaxRowsPerRequest)))
		return
	}

	rows := make([]catalog.StagedRow, len(req.Rows))
	for i, wr := range req.Rows {
		rows[i] = catalog.StagedRow{
			SKU:      wr.SKU,
			Name:     wr.Name,
			Brand:    wr.Brand,
			UOM:      wr.UOM,
			PackSize: catalog.ParseDecimal(wr.PackSize),
			Price:    catalog.ParseDecimal(wr.Price),
			Currency: wr.Currency,
			Category: wr.Category,
			VATCode:  wr.VATCode,
			Barcode:  wr.Barcode,
			Attrs:    wr.Attrs,
		}
	}

	total, err := s.service.InsertRows(r.Context(), id, rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("rows staged",
		"upload_id", id, "staged", len(rows), "total", total)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uploadId": id,
		"staged":   len(rows),
		"rowCount": total,
	})
}

// ============================================================================
// Validation
// ============================================================================

// validateResponse is a ValidationReport with its row detail capped for
// display. The omitted counts tell the client what was cut.
type validateResponse struct {
	*catalog.ValidationReport
	ErrorsOmitted   int `json:"errorsOmitted,omitempty"`
	WarningsOmitted int `json:"warningsOmitted,omitempty"`
}

func capReport(report *catalog.ValidationReport) validateResponse {
	resp := validateResponse{ValidationReport: report}
	if n := len(report.Errors); n > maxDisplayErrors {
		capped := *resp.ValidationReport
		capped.Errors = capped.Errors[:maxDisplayErrors]
		resp.ValidationReport = &capped
		resp.ErrorsOmitted = n - maxDisplayErrors
	}
	if n := len(resp.ValidationReport.Warnings); n > maxDisplayErrors {
		capped := *resp.ValidationReport
		capped.Warnings = capped.Warnings[:maxDisplayErrors]
		resp.ValidationReport = &capped
		resp.WarningsOmitted = n - maxDisplayErrors
	}
	return resp
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, err := uploadIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report, err := s.service.Validate(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("upload validated",
		"upload_id", id, "result", report.Status,
		"errors", len(report.Errors), "warnings", len(report.Warnings))
	writeJSON(w, http.StatusOK, capReport(report))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := uploadIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status, payload, err := s.service.Report(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uploadId": id,
		"status":   status,
		"report":   payload,
	})
}

// ============================================================================
// Merge
// ============================================================================

type mergeRequest struct {
	SkipInvalidRows bool `json:"skipInvalidRows,omitempty"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	id, err := uploadIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// The body is optional; an empty body means default options.
	var req mergeRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Merge.Timeout)
	defer cancel()

	res, err := s.service.Merge(ctx, id, catalog.MergeOptions{SkipInvalidRows: req.SkipInvalidRows})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if n := len(res.Errors); n > maxDisplayErrors {
		res.Errors = res.Errors[:maxDisplayErrors]
	}

	logging.FromContext(r.Context()).Info("upload merged",
		"upload_id", id, "strategy", res.Strategy,
		"created", res.Created, "updated", res.Updated,
		"prices_updated", res.PricesUpdated, "skipped", res.SkippedRows,
		"duration_ms", res.Duration.Milliseconds())
	writeJSON(w, http.StatusOK, res)
}
