package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/grounded-rag/internal/rag/ragtest"
)

func newTestRouter(t *testing.T, opts Options) (*ragtest.Env, http.Handler) {
	t.Helper()
	env := ragtest.New(t)
	return env, NewRouter(env.Service, opts)
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestQuery_EmptyInputMakesNoCalls(t *testing.T) {
	env, h := newTestRouter(t, Options{})

	for _, target := range []string{"/api/query", "/api/query?input=", "/api/query?input=%20%20"} {
		rec, body := do(t, h, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Missing 'input' query parameter", body["message"])
	}

	assert.Zero(t, env.Store.Calls())
	assert.Zero(t, env.Generator.Calls())
	docs, queries := env.Embedder.Calls()
	assert.Zero(t, docs)
	assert.Zero(t, queries)
}

func TestIngestFileThenQuery(t *testing.T) {
	env, h := newTestRouter(t, Options{})

	text := strings.Repeat("Vectors are compared by cosine similarity. ", 6)
	rec, body := do(t, h, uploadRequest(t, "file", "notes.txt", []byte(text)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Chunks uploaded successfully", body["message"])
	assert.EqualValues(t, 1, body["documents"])
	assert.Greater(t, body["chunks"], float64(1))

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/api/query?input=cosine+similarity", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "stub answer", body["message"])

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 2)
	for _, d := range data {
		src := d.(map[string]any)
		assert.Equal(t, "notes.txt", src["title"])
		v, present := src["url"]
		assert.True(t, present, "url key must be present")
		assert.Nil(t, v)
	}
	assert.Equal(t, 1, env.Generator.Calls())
}

func TestIngestFile_MissingFile(t *testing.T) {
	env, h := newTestRouter(t, Options{})

	rec, body := do(t, h, uploadRequest(t, "attachment", "notes.txt", []byte("hello")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No file uploaded", body["message"])
	assert.Zero(t, env.Store.Calls())
}

func TestIngestFile_EmptyFile(t *testing.T) {
	_, h := newTestRouter(t, Options{})

	rec, body := do(t, h, uploadRequest(t, "file", "empty.txt", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to process and upload file chunks", body["message"])
}

func TestIngestFile_TooLarge(t *testing.T) {
	env, h := newTestRouter(t, Options{MaxUploadBytes: 64})

	rec, body := do(t, h, uploadRequest(t, "file", "big.txt", bytes.Repeat([]byte("x"), 4096)))

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Zero(t, env.Store.Calls())
}

func TestIngestURL(t *testing.T) {
	site := http.NewServeMux()
	site.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Home</title></head><body><p>Welcome home.</p><a href="/about">About</a></body></html>`)
	})
	site.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>About</title></head><body><p>About us.</p></body></html>`)
	})
	srv := httptest.NewServer(site)
	defer srv.Close()

	_, h := newTestRouter(t, Options{})

	payload := fmt.Sprintf(`{"url":%q,"maxPages":5}`, srv.URL+"/")
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/url", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec, body := do(t, h, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["pages"])
	assert.EqualValues(t, 2, body["chunks"])
}

func TestIngestURL_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{"url":`, "Invalid request body"},
		{"missing url", `{}`, "Missing url"},
		{"blank url", `{"url":"   "}`, "Missing url"},
		{"relative url", `{"url":"/docs"}`, "Failed to ingest url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, h := newTestRouter(t, Options{})

			req := httptest.NewRequest(http.MethodPost, "/api/ingest/url", strings.NewReader(tt.body))
			rec, body := do(t, h, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
			assert.Zero(t, env.Store.Calls())
		})
	}
}

func TestQuery_GenerationFailure(t *testing.T) {
	env, h := newTestRouter(t, Options{})
	env.Generator.Err = errors.New("model overloaded")

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/query?input=anything", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "model overloaded")
	assert.Equal(t, 1, env.Generator.Calls())
}

func TestProductionHidesErrorDetail(t *testing.T) {
	env, h := newTestRouter(t, Options{Production: true})
	env.Generator.Err = errors.New("model overloaded")

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/query?input=anything", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to answer query", body["message"])
	assert.NotContains(t, body, "error")
}

type fakeChecker struct{ err error }

func (f fakeChecker) Health(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
		wantStore  string
	}{
		{"healthy", nil, http.StatusOK, "healthy", "connected"},
		{"unhealthy", errors.New("dial tcp: refused"), http.StatusServiceUnavailable, "unhealthy", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(fakeChecker{err: tt.err})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantStore, resp.Store)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestRouter_HealthAndLanding(t *testing.T) {
	_, h := newTestRouter(t, Options{})

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/query")

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
