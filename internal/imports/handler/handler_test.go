package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"voiceagent-server/internal/apierrors"
	"voiceagent-server/internal/clients/crm"
	"voiceagent-server/internal/imports/processor"
	"voiceagent-server/internal/imports/progress"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const sampleCSV = "id,name,email,phone\n" +
	"10,Ana Diaz,ana@example.com,\n" +
	"11,,nobody@example.com,\n" +
	"12,Bo Lee,,555-010-1002\n"

// memoryBucket stands in for S3 on both sides: the handler archives into it and the
// processor reads back from it.
type memoryBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: make(map[string][]byte)}
}

func (b *memoryBucket) Bucket() string { return "imports" }

func (b *memoryBucket) PutObject(_ context.Context, key, _ string, body io.Reader) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = raw
	return nil
}

func (b *memoryBucket) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[key]
	if !ok || bucket != b.Bucket() {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (b *memoryBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

type fakeScheduler struct {
	connector crm.ConnectorConfig
	err       error
}

func (s *fakeScheduler) EnqueueCRMSync(_ context.Context, connector crm.ConnectorConfig) (string, error) {
	s.connector = connector
	return "task-1", s.err
}

type testEnv struct {
	router    *gin.Engine
	processor *processor.ImportProcessor
	contacts  *targeting.ContactStore
}

type envOptions struct {
	bucket       *memoryBucket
	scheduler    SyncScheduler
	maxFileBytes int64
}

func setup(t *testing.T, opts envOptions) testEnv {
	t.Helper()
	contacts, err := targeting.NewContactStore(nil)
	require.NoError(t, err)

	logger := observability.NewLoggerFromZap(zap.NewNop())
	cfg := processor.Config{Tracker: progress.NewMemoryTracker(), MaxFileBytes: opts.maxFileBytes}
	var archiver Archiver
	if opts.bucket != nil {
		cfg.Objects = opts.bucket
		archiver = opts.bucket
	}
	p := processor.New(contacts, cfg, logger)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})

	h := New(p, archiver, opts.scheduler, opts.maxFileBytes, logger)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return testEnv{router: r, processor: p, contacts: contacts}
}

func uploadRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func waitForCompletion(t *testing.T, env testEnv, jobID string) processor.Job {
	t.Helper()
	var job processor.Job
	require.Eventually(t, func() bool {
		got, err := env.processor.Job(jobID)
		if err != nil {
			return false
		}
		job = got
		return job.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestHandleUploadFile_Wait(t *testing.T) {
	env := setup(t, envOptions{})

	rec := serve(env.router, uploadRequest(t, "/api/imports/file?wait=true", "leads.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[processor.ImportResult](t, rec)
	assert.Equal(t, []string{"10", "12"}, targeting.ContactIDs(result.Accepted))
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 3, result.Rejected[0].Row)
	assert.Equal(t, 2, env.contacts.Len())
}

func TestHandleUploadFile_Rejections(t *testing.T) {
	env := setup(t, envOptions{maxFileBytes: 64})

	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		code     string
	}{
		{name: "unsupported type", filename: "leads.pdf", content: sampleCSV[:40], status: http.StatusUnprocessableEntity, code: apierrors.CodeUnparseableFile},
		{name: "legacy excel", filename: "leads.xls", content: sampleCSV[:40], status: http.StatusUnprocessableEntity, code: apierrors.CodeUnparseableFile},
		{name: "too large", filename: "leads.csv", content: sampleCSV, status: http.StatusRequestEntityTooLarge, code: apierrors.CodeFileTooLarge},
		{name: "missing columns", filename: "leads.csv", content: "id,city\n1,Austin\n", status: http.StatusUnprocessableEntity, code: apierrors.CodeUnparseableFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(env.router, uploadRequest(t, "/api/imports/file?wait=true", tt.filename, tt.content))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[apierrors.ErrorResponse](t, rec).Code)
		})
	}

	rec := serve(env.router, httptest.NewRequest(http.MethodPost, "/api/imports/file", strings.NewReader("")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.contacts.Len())
}

func TestHandleUploadFile_Background(t *testing.T) {
	env := setup(t, envOptions{})

	rec := serve(env.router, uploadRequest(t, "/api/imports/file", "leads.csv", sampleCSV))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	resp := decode[JobAcceptedResponse](t, rec)
	require.NotEmpty(t, resp.JobID)
	assert.Equal(t, "/api/imports/"+resp.JobID+"/progress", resp.ProgressURL)

	job := waitForCompletion(t, env, resp.JobID)
	assert.Equal(t, progress.StatusCompleted, job.Status)

	rec = serve(env.router, httptest.NewRequest(http.MethodGet, "/api/imports/"+resp.JobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[JobStatusResponse](t, rec)
	require.NotNil(t, status.Job)
	require.NotNil(t, status.Progress)
	assert.Equal(t, 100, status.Progress.Percent)
	assert.Equal(t, 2, status.Progress.Accepted)
}

func TestHandleUploadFile_ArchivesToObjectStorage(t *testing.T) {
	bucket := newMemoryBucket()
	env := setup(t, envOptions{bucket: bucket})

	rec := serve(env.router, uploadRequest(t, "/api/imports/file", "spring leads.csv", sampleCSV))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	keys := bucket.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "imports/"))
	assert.True(t, strings.HasSuffix(keys[0], "/spring leads.csv"))

	job := waitForCompletion(t, env, decode[JobAcceptedResponse](t, rec).JobID)
	assert.Equal(t, processor.SourceObject, job.Source)
	assert.Equal(t, progress.StatusCompleted, job.Status)
	assert.Equal(t, 2, env.contacts.Len())
}

func TestHandleImportObject(t *testing.T) {
	env := setup(t, envOptions{})
	rec := serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/object", ObjectImportRequest{Key: "a.csv"}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/object", ObjectImportRequest{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bucket := newMemoryBucket()
	require.NoError(t, bucket.PutObject(context.Background(), "drop/leads.csv", "text/csv", strings.NewReader(sampleCSV)))
	env = setup(t, envOptions{bucket: bucket})

	rec = serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/object", ObjectImportRequest{Bucket: "imports", Key: "drop/leads.csv"}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := waitForCompletion(t, env, decode[JobAcceptedResponse](t, rec).JobID)
	assert.Equal(t, progress.StatusCompleted, job.Status)
}

func TestHandleImportCRM_NotConfigured(t *testing.T) {
	env := setup(t, envOptions{})
	rec := serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/crm", crm.ConnectorConfig{Provider: crm.ProviderCDK, BaseURL: "https://crm.example.com"}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/crm", crm.ConnectorConfig{Provider: crm.ProviderCDK, BaseURL: "not a url"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScheduleCRMSync(t *testing.T) {
	connector := crm.ConnectorConfig{Provider: crm.ProviderDealerSocket, BaseURL: "https://crm.example.com", DealerID: "D-9"}

	env := setup(t, envOptions{})
	rec := serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/crm/schedule", connector))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	scheduler := &fakeScheduler{}
	env = setup(t, envOptions{scheduler: scheduler})
	rec = serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/crm/schedule", connector))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "task-1", decode[JobAcceptedResponse](t, rec).JobID)
	assert.Equal(t, connector, scheduler.connector)

	rec = serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/crm/schedule", crm.ConnectorConfig{Provider: "salesforce", BaseURL: "https://crm.example.com"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.CodeInvalidConnector, decode[apierrors.ErrorResponse](t, rec).Code)

	env = setup(t, envOptions{scheduler: &fakeScheduler{err: errors.New("redis: connection refused")}})
	rec = serve(env.router, jsonRequest(t, http.MethodPost, "/api/imports/crm/schedule", connector))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleJobLookups_UnknownJob(t *testing.T) {
	env := setup(t, envOptions{})

	rec := serve(env.router, httptest.NewRequest(http.MethodGet, "/api/imports/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.CodeJobNotFound, decode[apierrors.ErrorResponse](t, rec).Code)

	rec = serve(env.router, httptest.NewRequest(http.MethodDelete, "/api/imports/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(env.router, httptest.NewRequest(http.MethodGet, "/api/imports/nope/progress", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetJob_WorkerProgressOnly(t *testing.T) {
	env := setup(t, envOptions{})
	event := progress.Event{JobID: "task-7", Source: "crm", Status: progress.StatusRunning, Percent: 40, Stage: "validating"}
	require.NoError(t, env.processor.Tracker().Report(context.Background(), event))

	rec := serve(env.router, httptest.NewRequest(http.MethodGet, "/api/imports/task-7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[JobStatusResponse](t, rec)
	assert.Nil(t, status.Job)
	require.NotNil(t, status.Progress)
	assert.Equal(t, 40, status.Progress.Percent)
}

func TestHandleProgressStream(t *testing.T) {
	env := setup(t, envOptions{})
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	tracker := env.processor.Tracker()
	ctx := context.Background()
	require.NoError(t, tracker.Report(ctx, progress.Event{JobID: "task-9", Status: progress.StatusRunning, Percent: 10, Stage: "validating"}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/imports/task-9/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var first progress.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 10, first.Percent)

	require.NoError(t, tracker.Report(ctx, progress.Event{JobID: "task-9", Status: progress.StatusRunning, Percent: 50, Stage: "validating"}))
	require.NoError(t, tracker.Report(ctx, progress.Event{JobID: "task-9", Status: progress.StatusCompleted, Percent: 100, Stage: "completed", Accepted: 3}))

	var got []progress.Event
	for {
		var e progress.Event
		if err := conn.ReadJSON(&e); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
		got = append(got, e)
	}
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, progress.StatusCompleted, last.Status)
	assert.Equal(t, 3, last.Accepted)
}

func TestRegisterRoutes_RateLimitGuardsImportStarts(t *testing.T) {
	contacts, err := targeting.NewContactStore(nil)
	require.NoError(t, err)
	logger := observability.NewLoggerFromZap(zap.NewNop())

	h := New(processor.New(contacts, processor.Config{}, logger), nil, nil, 0, logger)
	h.UseRateLimit(func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) })
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	rec := serve(r, uploadRequest(t, "/api/imports/file?wait=true", "leads.csv", sampleCSV))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 0, contacts.Len())

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/imports/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
