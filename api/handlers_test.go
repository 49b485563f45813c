/*
handlers_test.go - HTTP tests for the evaluation API

Tests for:
- Upload validation (missing file, wrong extension, unreadable document)
- Upload happy path with the extraction service offline and online
- Upstream failures mapped to 429 / 503
- Structured transcript evaluation
- History, lookup, report and curriculum endpoints
*/
package api_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/curriculum-engine/api"
	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/extraction"
	"github.com/warp/curriculum-engine/store/memory"
)

// =============================================================================
// FIXTURES
// =============================================================================

type stubExtractor struct {
	payload extraction.Payload
	err     error
}

func (s stubExtractor) Extract(ctx context.Context, text string) (extraction.Payload, error) {
	return s.payload, s.err
}

func newServer(t *testing.T, ex extraction.Extractor) *httptest.Server {
	t.Helper()
	svc := audit.NewService(curriculum.MustDefault(), ex, memory.New(), nil)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, nil), nil))
	t.Cleanup(srv.Close)
	return srv
}

// document builds a minimal .docx holding the given paragraphs.
func document(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(xml))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func upload(t *testing.T, srv *httptest.Server, field, filename string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/evaluations", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// UPLOAD
// =============================================================================

func TestUpload_RejectsBadInput(t *testing.T) {
	srv := newServer(t, nil)

	tests := []struct {
		name     string
		field    string
		filename string
		data     []byte
	}{
		{"no file field", "", "", nil},
		{"wrong extension", "file", "transcript.pdf", []byte("%PDF-1.7")},
		{"empty document", "file", "transcript.docx", nil},
		{"not a zip", "file", "transcript.docx", []byte("plain text")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, srv, tt.field, tt.filename, tt.data)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[api.ErrorResponse](t, resp)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Details)
		})
	}
}

func TestUpload_OfflineEvaluatesParsedText(t *testing.T) {
	// GIVEN: The extraction service is not configured
	srv := newServer(t, nil)
	data := document(t,
		"1. Yarıyıl",
		"BM101 Algoritmalar ve Programlama I 5 3.0 FF",
	)

	// WHEN: Uploading a transcript
	resp := upload(t, srv, "file", "ogrenci.docx", data)

	// THEN: The parser's records are evaluated and stored
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decode[audit.Evaluation](t, resp)
	assert.Equal(t, "ogrenci.docx", e.Filename)
	assert.Equal(t, audit.SourceDocument, e.Source)
	assert.False(t, e.Verdict.CanGraduate)
	require.NotEmpty(t, e.Verdict.FailedMandatory)
	assert.Equal(t, "BM101", e.Verdict.FailedMandatory[0].Code)
	assert.Equal(t, 1, e.Verdict.LastTerm)
}

func TestUpload_UsesExtractionPayload(t *testing.T) {
	// GIVEN: The extraction service reports a term the text does not show
	srv := newServer(t, stubExtractor{payload: extraction.Payload{
		"terms": []any{
			map[string]any{"term": "8. Term", "credits": 30, "courses": []any{}},
		},
		"gpa": 3.1,
	}})

	resp := upload(t, srv, "file", "ogrenci.docx", document(t, "Transkript"))

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decode[audit.Evaluation](t, resp)
	assert.Equal(t, 8, e.Verdict.LastTerm)
	assert.Equal(t, "3.1", e.Verdict.GPA.String())
}

func TestUpload_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "quota exhausted",
			err:    &extraction.UpstreamError{Kind: extraction.ErrQuotaExceeded, Attempts: 3, Err: &extraction.StatusError{Code: 429}},
			status: http.StatusTooManyRequests,
			code:   "quota_exceeded",
		},
		{
			name:   "service unavailable",
			err:    &extraction.UpstreamError{Kind: extraction.ErrServiceUnavailable, Attempts: 3, Err: &extraction.StatusError{Code: 503}},
			status: http.StatusServiceUnavailable,
			code:   "extraction_unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, stubExtractor{err: tt.err})

			resp := upload(t, srv, "file", "ogrenci.docx", document(t, "1. Yarıyıl"))

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[api.ErrorResponse](t, resp)
			assert.Equal(t, tt.code, body.Code)

			// Nothing was stored
			list, err := http.Get(srv.URL + "/api/evaluations")
			require.NoError(t, err)
			defer list.Body.Close()
			assert.Zero(t, decode[api.EvaluationListDTO](t, list).Count)
		})
	}
}

// =============================================================================
// STRUCTURED TRANSCRIPT
// =============================================================================

func TestEvaluateTranscript(t *testing.T) {
	srv := newServer(t, nil)

	body := `{"terms":[{"term":"7. Term","credits":"31","courses":[{"code":"bm401","name":"Bitirme Projesi I","grade":"FF"}]}],"gpa":"2,80"}`
	resp, err := http.Post(srv.URL+"/api/evaluations/transcript?name=ogrenci-7", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decode[audit.Evaluation](t, resp)
	assert.Equal(t, "ogrenci-7", e.Filename)
	assert.Equal(t, audit.SourcePayload, e.Source)
	assert.Equal(t, "2.8", e.Verdict.GPA.String())
	require.NotEmpty(t, e.Verdict.FailedMandatory)
	assert.Equal(t, "BM401", e.Verdict.FailedMandatory[0].Code)
}

func TestEvaluateTranscript_InvalidJSON(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/evaluations/transcript", "application/json", strings.NewReader(`{"terms": [`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// HISTORY & LOOKUP
// =============================================================================

func TestEvaluations_ListGetAndReport(t *testing.T) {
	srv := newServer(t, nil)

	// GIVEN: Two stored evaluations
	var ids []string
	for _, name := range []string{"first", "second"} {
		resp, err := http.Post(srv.URL+"/api/evaluations/transcript?name="+name, "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ids = append(ids, decode[audit.Evaluation](t, resp).ID.String())
		resp.Body.Close()
	}

	// WHEN: Listing with a limit
	resp, err := http.Get(srv.URL + "/api/evaluations?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	// THEN: One summary with a report link
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[api.EvaluationListDTO](t, resp)
	require.Equal(t, 1, list.Count)
	assert.Contains(t, ids, list.Evaluations[0].ID)
	assert.Equal(t, "/api/evaluations/"+list.Evaluations[0].ID+"/report", list.Evaluations[0].ReportURL)
	assert.Equal(t, "0.00", list.Evaluations[0].GPA)

	// AND: Each evaluation can be fetched
	got, err := http.Get(srv.URL + "/api/evaluations/" + ids[0])
	require.NoError(t, err)
	defer got.Body.Close()
	require.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "first", decode[audit.Evaluation](t, got).Filename)

	// AND: Rendered as HTML
	rep, err := http.Get(srv.URL + "/api/evaluations/" + ids[1] + "/report")
	require.NoError(t, err)
	defer rep.Body.Close()
	require.Equal(t, http.StatusOK, rep.StatusCode)
	assert.Contains(t, rep.Header.Get("Content-Type"), "text/html")
	var page bytes.Buffer
	_, err = page.ReadFrom(rep.Body)
	require.NoError(t, err)
	assert.Contains(t, page.String(), "Graduation check: second")
}

func TestEvaluations_LookupErrors(t *testing.T) {
	srv := newServer(t, nil)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/evaluations/not-a-uuid", http.StatusBadRequest},
		{"/api/evaluations/" + uuid.NewString(), http.StatusNotFound},
		{"/api/evaluations/" + uuid.NewString() + "/report", http.StatusNotFound},
		{"/api/evaluations?limit=-2", http.StatusBadRequest},
		{"/api/evaluations?limit=ten", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

// =============================================================================
// CURRICULUM & HEALTH
// =============================================================================

func TestGetCurriculum(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/curriculum")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decode[api.CurriculumDTO](t, resp)
	assert.Equal(t, "bm-2024", c.Version)
	assert.Equal(t, 8, c.Definition.ProgramTerms)
	assert.Contains(t, c.Extensions, ".docx")
	require.Len(t, c.Definition.Quotas, 1)
}

func TestHealth(t *testing.T) {
	offline := newServer(t, nil)
	online := newServer(t, stubExtractor{payload: extraction.Payload{}})

	for srv, want := range map[*httptest.Server]bool{offline: true, online: false} {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		h := decode[api.HealthDTO](t, resp)
		resp.Body.Close()

		assert.Equal(t, "ok", h.Status)
		assert.Equal(t, want, h.Offline)
		assert.NotEmpty(t, resp.Header.Get("Content-Type"))
	}
}
