package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"webplayer/services"
)

// testRecorder counts stream metrics
type testRecorder struct {
	started  atomic.Int64
	finished atomic.Int64
	bytes    atomic.Int64
}

func (r *testRecorder) StreamStarted() { r.started.Add(1) }

func (r *testRecorder) StreamFinished(written int64) {
	r.finished.Add(1)
	r.bytes.Add(written)
}

// testEnv is a router serving a temporary media root
type testEnv struct {
	Router   *gin.Engine
	Root     string
	Recorder *testRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	library, err := services.NewMediaLibrary(root)
	require.NoError(t, err)

	recorder := &testRecorder{}
	media := NewMediaHandler(library, recorder)

	router := gin.New()
	router.GET("/media/*path", media.StreamFile)
	router.HEAD("/media/*path", media.StreamFile)
	router.GET("/api/media", media.ListDirectory)
	router.GET("/api/media/meta", media.Metadata)

	return &testEnv{Router: router, Root: root, Recorder: recorder}
}

// CreateTestFile creates a file below the media root
func (e *testEnv) CreateTestFile(t *testing.T, relativePath string, content []byte) {
	t.Helper()
	fullPath := filepath.Join(e.Root, filepath.FromSlash(relativePath))
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, content, 0644))
}

// Do serves one request and returns the recorded response
func (e *testEnv) Do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, body io.Reader, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(target))
}

func rangeHeader(value string) http.Header {
	return http.Header{"Range": []string{value}}
}
