package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"scrambler/internal/logging"
	"scrambler/internal/metrics"
	"scrambler/internal/profile"
	"scrambler/internal/store"
	"scrambler/internal/synth"
)

// allowedContentTypes gates the upload part; anything else is 415.
var allowedContentTypes = map[string]struct{}{
	"text/csv":                 {},
	"application/csv":          {},
	"application/vnd.ms-excel": {},
}

const defaultGenerateRows = 1000

// generateParams are the synthesis knobs shared by the upload and
// saved-profile generate endpoints.
type generateParams struct {
	Rows             int
	Seed             *int64
	DecimalSeparator string
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := s.profileUpload(r)
	metrics.RecordOp("profile", err, time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.RecordRows("profile", "profiled", int64(res.RowCount))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	res, err := s.profileUpload(r)
	if err != nil {
		metrics.RecordOp("generate", err, time.Since(start))
		s.writeError(w, r, err)
		return
	}
	params, err := parseGenerateParams(r)
	if err != nil {
		metrics.RecordOp("generate", err, time.Since(start))
		s.writeError(w, r, err)
		return
	}

	out, err := s.synth.ToCSV(res, params.Rows, params.Seed, params.DecimalSeparator)
	metrics.RecordOp("generate", err, time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.RecordRows("generate", "synthesized", int64(params.Rows))
	writeCSV(w, res, synth.ResolveSeparator(res, params.DecimalSeparator), out)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeDetail(w, http.StatusServiceUnavailable, "profile store is not configured")
		return
	}

	start := time.Now()
	res, err := s.profileUpload(r)
	metrics.RecordOp("profile", err, time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.cfg.Store.Save(r.Context(), res)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.RecordRows("profile", "profiled", int64(res.RowCount))
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeDetail(w, http.StatusServiceUnavailable, "profile store is not configured")
		return
	}
	recs, err := s.cfg.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeDetail(w, http.StatusServiceUnavailable, "profile store is not configured")
		return
	}
	rec, err := s.cfg.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeDetail(w, http.StatusServiceUnavailable, "profile store is not configured")
		return
	}
	if err := s.cfg.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateSaved(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeDetail(w, http.StatusServiceUnavailable, "profile store is not configured")
		return
	}

	rec, err := s.cfg.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	params, err := parseGenerateParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	start := time.Now()
	out, err := s.synth.ToCSV(rec.Profile, params.Rows, params.Seed, params.DecimalSeparator)
	metrics.RecordOp("generate", err, time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.RecordRows("generate", "synthesized", int64(params.Rows))
	writeCSV(w, rec.Profile, synth.ResolveSeparator(rec.Profile, params.DecimalSeparator), out)
}

// profileUpload reads the multipart "file" part, applies the content-type
// and size gates, and runs the profiling engine with the requested mode.
// The detection verdict is logged with the request's logger so repeated
// uploads of the same file correlate by fingerprint.
func (s *Server) profileUpload(r *http.Request) (*profile.Result, error) {
	content, err := readUpload(r)
	if err != nil {
		return nil, err
	}
	mode, err := s.requestMode(r)
	if err != nil {
		return nil, err
	}

	text, det, err := s.profiler.Decode(content)
	if err != nil {
		return nil, err
	}
	logging.FromContext(r.Context()).Info("upload decoded",
		"bytes", len(content),
		"encoding", det.Encoding,
		"fingerprint", fmt.Sprintf("%016x", det.Fingerprint),
	)

	return s.profiler.FromText(text, "", mode, det.Encoding)
}

func readUpload(r *http.Request) ([]byte, error) {
	// The request-level cap leaves headroom for multipart framing; the
	// exact file-size check happens after the part is read.
	r.Body = http.MaxBytesReader(nil, r.Body, profile.MaxUploadBytes+(10<<20))
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, profile.ErrUploadTooLarge
		}
		return nil, &badRequestError{detail: "expected a multipart form with a 'file' part"}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &badRequestError{detail: "missing 'file' upload"}
	}
	defer file.Close()

	if err := checkContentType(header); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(file, profile.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(content) > profile.MaxUploadBytes {
		return nil, profile.ErrUploadTooLarge
	}
	return content, nil
}

func checkContentType(header *multipart.FileHeader) error {
	ct := strings.TrimSpace(strings.ToLower(header.Header.Get("Content-Type")))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if _, ok := allowedContentTypes[ct]; !ok {
		return &unsupportedMediaError{contentType: ct}
	}
	return nil
}

func (s *Server) requestMode(r *http.Request) (profile.Mode, error) {
	raw := r.FormValue("mode")
	if raw == "" {
		raw = r.URL.Query().Get("mode")
	}
	if raw == "" {
		return s.cfg.DefaultMode, nil
	}
	return profile.ParseMode(raw)
}

// parseGenerateParams reads rows/seed/decimal_separator from form or query
// values; the saved-profile endpoint may also send them as a JSON body.
func parseGenerateParams(r *http.Request) (generateParams, error) {
	params := generateParams{Rows: defaultGenerateRows}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		// Rows is a pointer so an explicit 0 is rejected downstream
		// rather than silently replaced by the default.
		var body struct {
			Rows             *int   `json:"rows"`
			Seed             *int64 `json:"seed"`
			DecimalSeparator string `json:"decimal_separator"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return params, &badRequestError{detail: "invalid JSON body"}
		}
		if body.Rows != nil {
			params.Rows = *body.Rows
		}
		params.Seed = body.Seed
		params.DecimalSeparator = body.DecimalSeparator
		return params, validateGenerateParams(params)
	}

	lookup := func(key string) string {
		if v := r.FormValue(key); v != "" {
			return v
		}
		return r.URL.Query().Get(key)
	}

	if raw := lookup("rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, &badRequestError{detail: "rows must be an integer"}
		}
		params.Rows = n
	}
	if raw := lookup("seed"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params, &badRequestError{detail: "seed must be an integer"}
		}
		params.Seed = &n
	}
	params.DecimalSeparator = lookup("decimal_separator")

	return params, validateGenerateParams(params)
}

func validateGenerateParams(p generateParams) error {
	if p.DecimalSeparator != "" && p.DecimalSeparator != "." && p.DecimalSeparator != "," {
		return &badRequestError{detail: "decimal_separator must be '.' or ','"}
	}
	return nil
}

// badRequestError carries a user-facing 400 detail.
type badRequestError struct{ detail string }

func (e *badRequestError) Error() string { return e.detail }

// unsupportedMediaError is the 415 for non-CSV uploads.
type unsupportedMediaError struct{ contentType string }

func (e *unsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported content type %q; upload a CSV file", e.contentType)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var badReq *badRequestError
	var badMedia *unsupportedMediaError

	switch {
	case errors.Is(err, profile.ErrUploadTooLarge):
		s.writeDetail(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &badMedia):
		s.writeDetail(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, profile.ErrRowLimitExceeded),
		errors.Is(err, profile.ErrInvalidParseMode),
		errors.Is(err, profile.ErrDecodeFailure),
		errors.Is(err, synth.ErrRowCount):
		s.writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &badReq):
		s.writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.writeDetail(w, http.StatusNotFound, err.Error())
	default:
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		s.writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeCSV sends a synthetic CSV attachment plus the profile summary
// headers, so API clients can read the shape without parsing the body.
// decimalSep is the resolved separator actually used in the body, which may
// differ from the profiled one when the caller overrode it.
func writeCSV(w http.ResponseWriter, p *profile.Result, decimalSep string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset="+p.Encoding)
	w.Header().Set("Content-Disposition", `attachment; filename="synthetic.csv"`)
	w.Header().Set("X-Profile-Rows", strconv.Itoa(p.RowCount))
	w.Header().Set("X-Profile-Encoding", p.Encoding)
	w.Header().Set("X-Profile-Delimiter", p.Delimiter)
	w.Header().Set("X-Profile-Decimal-Separator", decimalSep)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
