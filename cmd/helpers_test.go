package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"webplayer/metrics"
	"webplayer/middleware"
	"webplayer/services"
	"webplayer/types"
	ws "webplayer/websocket"
)

// TestHelper runs the full router against a temporary media root
type TestHelper struct {
	Server    *httptest.Server
	MediaRoot string
	Srv       *server
	Router    *gin.Engine
}

// NewTestHelper creates a helper serving the given sync sources
func NewTestHelper(t *testing.T, sources ...services.Source) *TestHelper {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	root := t.TempDir()
	library, err := services.NewMediaLibrary(root)
	require.NoError(t, err)

	hub := ws.NewHub()
	go hub.Run(ctx)

	m := metrics.New()
	queue := services.NewSyncQueue(root, 2, jobEvents{hub: hub, metrics: m}, sources...)
	queue.Start(ctx)

	srv := &server{library: library, queue: queue, hub: hub, metrics: m}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS([]string{"*"}))
	router.Use(m.Middleware())
	setupRoutes(router, srv, services.NewSettingsStore(filepath.Join(t.TempDir(), "config.json"), "Hello from the test"))

	helper := &TestHelper{
		Server:    httptest.NewServer(router),
		MediaRoot: root,
		Srv:       srv,
		Router:    router,
	}
	t.Cleanup(helper.Server.Close)

	helper.setupTestData(t)
	return helper
}

// setupTestData creates a small artist/album tree
func (h *TestHelper) setupTestData(t *testing.T) {
	h.CreateTestFile(t, "Test Artist/Test Album/01 - Test Song.flac", createMinimalFLACFile())
	h.CreateTestFile(t, "Test Artist/Test Album/02 - Test Song 2.mp3", createMinimalMP3File())
	h.CreateTestFile(t, "Test Artist/Test Album/cover.jpg", []byte("jpeg"))
}

// CreateTestFile writes content below the media root
func (h *TestHelper) CreateTestFile(t *testing.T, rel string, content []byte) {
	t.Helper()
	full := filepath.Join(h.MediaRoot, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, content, 0644))
}

// createMinimalFLACFile returns a FLAC stream header without audio frames
func createMinimalFLACFile() []byte {
	return []byte("fLaC\x00\x00\x00\x22\x10\x00\x10\x00\x00\x00\x0F\x00\x00\x0F\x0A\xC4\x42\xF0\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")
}

// createMinimalMP3File returns an empty ID3v2.3 tag
func createMinimalMP3File() []byte {
	return []byte("ID3\x03\x00\x00\x00\x00\x00\x00")
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, body interface{}, header http.Header) *http.Response {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := h.Server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// GetJSON makes a GET request and unmarshals the JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target interface{}) *http.Response {
	t.Helper()
	return h.doJSON(t, http.MethodGet, path, nil, target)
}

// PostJSON makes a POST request with a JSON body and unmarshals the JSON response
func (h *TestHelper) PostJSON(t *testing.T, path string, requestBody interface{}, target interface{}) *http.Response {
	t.Helper()
	return h.doJSON(t, http.MethodPost, path, requestBody, target)
}

func (h *TestHelper) doJSON(t *testing.T, method, path string, requestBody interface{}, target interface{}) *http.Response {
	resp := h.MakeRequest(t, method, path, requestBody, nil)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), string(body))
	}
	return resp
}

// QueueSync queues a job and returns its id
func (h *TestHelper) QueueSync(t *testing.T) string {
	t.Helper()
	var response struct {
		Job types.SyncJob `json:"job"`
	}
	resp := h.PostJSON(t, "/api/sync", nil, &response)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, response.Job.ID)
	return response.Job.ID
}

// WaitForJobCompletion polls the job endpoint until the job finishes or timeout passes
func (h *TestHelper) WaitForJobCompletion(t *testing.T, jobID string, timeout time.Duration) types.SyncJob {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		var response struct {
			Job types.SyncJob `json:"job"`
		}
		resp := h.GetJSON(t, "/api/sync/jobs/"+jobID, &response)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		if response.Job.Status.Finished() {
			return response.Job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish within %s", jobID, timeout)
	return types.SyncJob{}
}

// ConnectWebSocket dials a websocket endpoint of the test server and waits until
// the hub has registered it
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	before := h.Srv.hub.ClientCount()

	wsURL := "ws" + strings.TrimPrefix(h.Server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Srv.hub.ClientCount() > before }, 2*time.Second, 5*time.Millisecond)
	return conn
}

// ReadEvent reads the next event, failing after timeout
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) types.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	var event types.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

// ReadUntil reads events until one of the given type arrives
func ReadUntil(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) (types.Event, []types.Event) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var seen []types.Event
	for {
		remaining := time.Until(deadline)
		require.Positive(t, remaining, "no %s event, saw %v", eventType, seen)
		event := ReadEvent(t, conn, remaining)
		seen = append(seen, event)
		if event.Type == eventType {
			return event, seen
		}
	}
}

// fakeSource writes files into the media root, optionally waiting for release first
type fakeSource struct {
	name    string
	files   []string
	release chan struct{}
	once    sync.Once
}

func newFakeSource(name string, blocking bool, files ...string) *fakeSource {
	s := &fakeSource{name: name, files: files}
	if blocking {
		s.release = make(chan struct{})
	}
	return s
}

func (s *fakeSource) Release() {
	if s.release != nil {
		s.once.Do(func() { close(s.release) })
	}
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Sync(ctx context.Context, root string, progress services.ProgressFunc) ([]string, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var added []string
	for i, name := range s.files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0644); err != nil {
			return added, err
		}
		added = append(added, name)
		progress(i+1, len(s.files))
	}
	return added, nil
}
