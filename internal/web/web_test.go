package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrambler/internal/metrics/promexp"
	"scrambler/internal/profile"
	"scrambler/internal/store"
)

const sampleCSV = "a,b,c\n1,hello,TRUE\n2,world,false\n,hi,\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	prom, err := promexp.NewBackend()
	require.NoError(t, err)

	return NewServer(Config{
		Addr:        ":0",
		DefaultMode: profile.ModeFast,
		Store:       st,
		Gatherer:    prom.Gatherer(),
	})
}

// uploadRequest builds a multipart request with one "file" part carrying the
// given content type, plus optional extra form fields.
func uploadRequest(t *testing.T, target, contentType, body string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="data.csv"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = io.WriteString(part, body)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndexServesForm(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "multipart/form-data")
}

func TestProfileEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/profile", "text/csv", sampleCSV, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var res profile.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.RowCount)
	require.Len(t, res.Fields, 3)
	assert.Equal(t, "a", res.Fields[0].Name)
	assert.True(t, res.Fields[0].Nullable)
}

func TestProfileRejectsContentType(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/profile", "application/pdf", sampleCSV, nil))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestProfileMissingFile(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("mode", "fast"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileInvalidMode(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/profile", "text/csv", sampleCSV, map[string]string{"mode": "turbo"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	fields := map[string]string{"rows": "20", "seed": "42"}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/generate", "text/csv", sampleCSV, fields))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "3", rec.Header().Get("X-Profile-Rows"))
	assert.Equal(t, "utf-8", rec.Header().Get("X-Profile-Encoding"))
	assert.Equal(t, ",", rec.Header().Get("X-Profile-Delimiter"))
	assert.Equal(t, ".", rec.Header().Get("X-Profile-Decimal-Separator"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "synthetic.csv")

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 21)
	assert.Equal(t, "a,b,c", lines[0])

	// Same seed, byte-identical output.
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, uploadRequest(t, "/api/generate", "text/csv", sampleCSV, fields))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
}

func TestGenerateSeparatorOverrideInHeader(t *testing.T) {
	t.Parallel()

	// The header reports the separator actually used in the body, not the
	// profiled one.
	router := newTestServer(t).Router()
	fields := map[string]string{"rows": "5", "seed": "1", "decimal_separator": ","}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/generate", "text/csv", sampleCSV, fields))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ",", rec.Header().Get("X-Profile-Decimal-Separator"))
}

func TestProfileLogsDetectionFingerprint(t *testing.T) {
	// Not parallel: swaps the process logger.
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(orig)

	router := newTestServer(t).Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/profile", "text/csv", sampleCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	logged := buf.String()
	assert.Contains(t, logged, "upload decoded")
	assert.Contains(t, logged, "fingerprint=")
	assert.Contains(t, logged, "request_id=")
}

func TestGenerateRejectsRowOverflow(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	fields := map[string]string{"rows": "100001"}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/generate", "text/csv", sampleCSV, fields))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRejectsBadSeparator(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	fields := map[string]string{"decimal_separator": ";"}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/generate", "text/csv", sampleCSV, fields))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavedProfileLifecycle(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()

	// Save.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/profiles", "text/csv", sampleCSV, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved store.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)

	// Fetch.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/"+saved.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// List.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []store.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)

	// Generate from the saved profile with a JSON body.
	body, _ := json.Marshal(map[string]any{"rows": 5, "seed": 7})
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/"+saved.ID+"/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	assert.Len(t, lines, 6)

	// Delete, then confirm 404.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/profiles/"+saved.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/"+saved.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSavedGenerateRejectsZeroRowsJSON(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/api/profiles", "text/csv", sampleCSV, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved store.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	// An explicit rows: 0 is rejected, not rewritten to the default.
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/"+saved.ID+"/generate",
		strings.NewReader(`{"rows": 0}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An omitted rows field still falls back to the default.
	req = httptest.NewRequest(http.MethodPost, "/api/profiles/"+saved.ID+"/generate",
		strings.NewReader(`{"seed": 3}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSavedProfilesUnavailableWithoutStore(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{Addr: ":0"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestServer(t).Router()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
