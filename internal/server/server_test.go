package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pciassist/internal/analysis"
)

// fakeAnalyzer returns one canned finding per row.
type fakeAnalyzer struct {
	rows []string
}

func (f *fakeAnalyzer) AnalyzeRows(_ context.Context, rows []string) []analysis.Finding {
	f.rows = rows
	findings := make([]analysis.Finding, len(rows))
	for i, row := range rows {
		findings[i] = analysis.Finding{
			Title:          "Finding",
			Category:       "Network Security",
			Observation:    row,
			Recommendation: "Fix it.",
			Actions:        "1. Act.",
		}
	}
	return findings
}

func uploadRequest(t *testing.T, filename string, content []byte, format string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	url := "/analyze"
	if format != "" {
		url += "?format=" + format
	}
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func workbookBytes(t *testing.T, observations ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]string{"Observation"}))
	for i, obs := range observations {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &[]string{obs}))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestStatus(t *testing.T) {
	srv := New(&fakeAnalyzer{})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
}

func TestAnalyzeExcelDefault(t *testing.T) {
	fa := &fakeAnalyzer{}
	srv := New(fa)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, uploadRequest(t, "audit.xlsx", workbookBytes(t, "PAN exposed.", "No firewall review."), ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"PAN exposed.", "No firewall review."}, fa.rows)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Action Report")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestAnalyzeHTMLFormat(t *testing.T) {
	srv := New(&fakeAnalyzer{})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, uploadRequest(t, "audit.xlsx", workbookBytes(t, "PAN exposed."), "html"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "PAN exposed.")
}

func TestAnalyzeRejectsWrongExtension(t *testing.T) {
	srv := New(&fakeAnalyzer{})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, uploadRequest(t, "audit.csv", []byte("a,b"), ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestAnalyzeRejectsUnknownFormat(t *testing.T) {
	srv := New(&fakeAnalyzer{})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, uploadRequest(t, "audit.xlsx", workbookBytes(t, "obs"), "pdf"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	srv := New(&fakeAnalyzer{})
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString("no multipart"))
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsCorruptWorkbook(t *testing.T) {
	srv := New(&fakeAnalyzer{})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, uploadRequest(t, "audit.xlsx", []byte("not a workbook"), ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := New(&fakeAnalyzer{})
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/analyze", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
