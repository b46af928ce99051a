package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/watchlist/internal/core"
)

type ctxKey string

const ctxKeyOwnerID ctxKey = "owner_id"

// ownerCtx validates the {ownerID} path parameter and stores it in the
// request context in canonical form.
func (s *Server) ownerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "ownerID")
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, r, core.ValidationErrors{{Field: "ownerId", Value: raw, Message: "invalid uuid"}}, http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyOwnerID, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyOwnerID).(string)
	return id
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return core.ValidationErrors{{Field: "body", Message: "malformed JSON: " + err.Error()}}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Preview
// ----------------------------------------------------------------------------

// previewRequest is the body of POST /preview.
type previewRequest struct {
	Rows          []core.RawRow `json:"rows"`
	SkipUnmatched bool          `json:"skipUnmatched"`
	RatingScale   float64       `json:"ratingScale"`
}

// handlePreview previews a batch of JSON rows.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}
	if len(req.Rows) == 0 {
		respondError(w, r, core.ValidationErrors{{Field: "rows", Message: "required field is empty"}}, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.PreviewTimeout)
	defer cancel()

	resp, err := s.service.PreviewRows(ctx, ownerID(r), req.Rows, core.PreviewOptions{
		SkipUnmatched: req.SkipUnmatched,
		RatingScale:   req.RatingScale,
	})
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handlePreviewRow previews a single row. Options come from the query string.
func (s *Server) handlePreviewRow(w http.ResponseWriter, r *http.Request) {
	var row core.RawRow
	if err := s.decodeJSON(w, r, &row); err != nil {
		respondError(w, r, err, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.PreviewTimeout)
	defer cancel()

	item := s.service.PreviewRow(ctx, ownerID(r), row, previewOptions(r))
	writeJSON(w, http.StatusOK, item)
}

// handlePreviewFile previews an uploaded CSV or JSON file. The file is the
// request body, or the "file" part of a multipart form.
func (s *Server) handlePreviewFile(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("source")
	if key == "" {
		key = "generic"
	}
	source, err := core.LookupSource(key)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	maxSize := s.cfg.Import.MaxBodySize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			respondError(w, r, err, 0)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "no file provided")
			return
		}
		defer file.Close()
		body = file
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.PreviewTimeout)
	defer cancel()

	resp, err := s.service.PreviewFile(ctx, ownerID(r), body, source, previewOptions(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// previewOptions reads skipUnmatched and ratingScale from the query string.
func previewOptions(r *http.Request) core.PreviewOptions {
	return core.PreviewOptions{
		SkipUnmatched: parseBoolParam(r, "skipUnmatched"),
		RatingScale:   parseFloatParam(r, "ratingScale", 0),
	}
}

// ----------------------------------------------------------------------------
// Commit
// ----------------------------------------------------------------------------

// handleImport commits a reviewed preview batch.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req core.BulkImportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.CommitTimeout)
	defer cancel()

	result, err := s.service.Commit(ctx, ownerID(r), req)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ----------------------------------------------------------------------------
// Export
// ----------------------------------------------------------------------------

// handleExport returns the owner's watchlist as JSON (default) or CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		respondError(w, r, core.ValidationErrors{{
			Field:   "format",
			Value:   format,
			Message: "invalid enum value (allowed: json, csv)",
		}}, http.StatusBadRequest)
		return
	}

	resp, err := s.service.Export(r.Context(), ownerID(r))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	timestamp := resp.ExportedAt.Format("20060102_150405")
	filename := fmt.Sprintf("watchlist_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := core.WriteExportCSV(w, resp); err != nil {
		// Can't change status code after writing, just log
		logRequestError(r, "export csv write failed", err)
	}
}

// ----------------------------------------------------------------------------
// Meta
// ----------------------------------------------------------------------------

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string                   `json:"status"`
	Time    time.Time                `json:"time"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Time:    time.Now().UTC(),
		Imports: s.service.ImportLimiterStatus(),
	})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": core.Sources()})
}
