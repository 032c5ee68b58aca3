package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webplayer/services"
	"webplayer/types"
	"webplayer/websocket"
)

type stubSource struct {
	name  string
	added []string
	err   error
	block chan struct{}
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Sync(ctx context.Context, _ string, progress services.ProgressFunc) ([]string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	progress(len(s.added), len(s.added))
	return s.added, s.err
}

func newSyncRouter(t *testing.T, sources ...services.Source) (*gin.Engine, services.SyncQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	queue := services.NewSyncQueue(t.TempDir(), 1, hub, sources...)
	queue.Start(ctx)

	h := NewSyncHandler(queue, hub)
	router := gin.New()
	router.POST("/api/sync", h.QueueSync)
	router.GET("/api/sync/jobs", h.GetAllJobs)
	router.GET("/api/sync/jobs/:jobId", h.GetJob)
	router.DELETE("/api/sync/jobs/:jobId", h.CancelJob)
	router.GET("/ws/jobs/:jobId", h.HandleJobEvents)
	return router, queue
}

type queueResponse struct {
	Message string        `json:"message"`
	Job     types.SyncJob `json:"job"`
}

func TestQueueSyncWithoutSources(t *testing.T) {
	router, _ := newSyncRouter(t)

	w := serve(router, http.MethodPost, "/api/sync", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestQueueSyncDefaultSource(t *testing.T) {
	router, queue := newSyncRouter(t, &stubSource{name: "drive", added: []string{"a.mp3"}})

	w := serve(router, http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var resp queueResponse
	decodeJSON(t, w.Body, &resp)
	assert.Equal(t, "drive", resp.Job.Source)
	assert.NotEmpty(t, resp.Job.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := queue.Wait(ctx, resp.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCompleted, job.Status)
	assert.Equal(t, []string{"a.mp3"}, job.Added)

	w = serve(router, http.MethodGet, "/api/sync/jobs/"+resp.Job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"a.mp3"`)

	w = serve(router, http.MethodGet, "/api/sync/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestQueueSyncNamedSource(t *testing.T) {
	router, _ := newSyncRouter(t, &stubSource{name: "drive"}, &stubSource{name: "other"})

	w := serve(router, http.MethodPost, "/api/sync", `{"source":"other"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp queueResponse
	decodeJSON(t, w.Body, &resp)
	assert.Equal(t, "other", resp.Job.Source)

	w = serve(router, http.MethodPost, "/api/sync", `{"source":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPost, "/api/sync", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelSyncJob(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	router, queue := newSyncRouter(t, &stubSource{name: "drive", block: block})

	w := serve(router, http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var resp queueResponse
	decodeJSON(t, w.Body, &resp)

	w = serve(router, http.MethodDelete, "/api/sync/jobs/"+resp.Job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := queue.Wait(ctx, resp.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCancelled, job.Status)

	w = serve(router, http.MethodDelete, "/api/sync/jobs/"+resp.Job.ID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncJobFailureIsReported(t *testing.T) {
	router, queue := newSyncRouter(t, &stubSource{name: "drive", err: errors.New("folder is private")})

	w := serve(router, http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var resp queueResponse
	decodeJSON(t, w.Body, &resp)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := queue.Wait(ctx, resp.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Equal(t, "folder is private", job.Error)
}

func TestUnknownJob(t *testing.T) {
	router, _ := newSyncRouter(t, &stubSource{name: "drive"})

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/sync/jobs/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodDelete, "/api/sync/jobs/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/ws/jobs/missing", "").Code)
}
