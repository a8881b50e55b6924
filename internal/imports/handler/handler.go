package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"voiceagent-server/internal/apierrors"
	"voiceagent-server/internal/clients/crm"
	"voiceagent-server/internal/imports/processor"
	"voiceagent-server/internal/imports/progress"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Archiver keeps uploaded files in object storage so imports can be replayed
type Archiver interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader) error
	Bucket() string
}

// SyncScheduler hands CRM pulls to the background worker
type SyncScheduler interface {
	EnqueueCRMSync(ctx context.Context, connector crm.ConnectorConfig) (string, error)
}

type Handler struct {
	processor    *processor.ImportProcessor
	archiver     Archiver
	scheduler    SyncScheduler
	maxFileBytes int64
	limiter      gin.HandlerFunc
	logger       *observability.Logger
}

// New creates an import handler. archiver and scheduler may be nil.
func New(processor *processor.ImportProcessor, archiver Archiver, scheduler SyncScheduler, maxFileBytes int64, logger *observability.Logger) Handler {
	return Handler{
		processor:    processor,
		archiver:     archiver,
		scheduler:    scheduler,
		maxFileBytes: maxFileBytes,
		logger:       logger,
	}
}

// UseRateLimit guards the endpoints that start imports with mw
func (h *Handler) UseRateLimit(mw gin.HandlerFunc) {
	h.limiter = mw
}

// ObjectImportRequest points at a file already in object storage
type ObjectImportRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key" binding:"required"`
}

// JobAcceptedResponse is returned for imports that run in the background
type JobAcceptedResponse struct {
	JobID       string `json:"job_id"`
	ProgressURL string `json:"progress_url"`
}

// JobStatusResponse combines the registry entry (API process jobs only) with the
// latest progress event.
type JobStatusResponse struct {
	Job      *processor.Job  `json:"job,omitempty"`
	Progress *progress.Event `json:"progress,omitempty"`
}

func accepted(c *gin.Context, jobID string) {
	c.JSON(http.StatusAccepted, JobAcceptedResponse{
		JobID:       jobID,
		ProgressURL: fmt.Sprintf("/api/imports/%s/progress", jobID),
	})
}

// HandleUploadFile imports a multipart CSV or XLSX upload. With wait=true the import
// runs inside the request and the result is returned; otherwise a job id is returned.
func (h *Handler) HandleUploadFile(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "file is required")
		return
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "file_name", Value: fileHeader.Filename})

	format, err := h.uploadFormat(c, fileHeader.Filename)
	if err != nil {
		apierrors.RespondWithError(c, &targeting.ParseError{Err: err})
		return
	}
	if h.maxFileBytes > 0 && fileHeader.Size > h.maxFileBytes {
		apierrors.RespondWithError(c, &targeting.ParseError{Format: string(format), Err: processor.ErrFileTooLarge})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error(ctx, "failed to open uploaded file", err)
		apierrors.InternalError(c, err)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error(ctx, "failed to read uploaded file", err)
		apierrors.InternalError(c, err)
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if wait {
		result, err := h.processor.ImportFromFile(ctx, raw, format)
		if err != nil {
			apierrors.RespondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if h.archiver != nil {
		key := path.Join("imports", uuid.New().String(), path.Base(fileHeader.Filename))
		if err := h.archiver.PutObject(ctx, key, fileHeader.Header.Get("Content-Type"), bytes.NewReader(raw)); err != nil {
			h.logger.Error(ctx, "failed to archive uploaded file", err)
			apierrors.InternalError(c, err)
			return
		}
		jobID, err := h.processor.StartObjectImport(h.archiver.Bucket(), key)
		if err != nil {
			apierrors.RespondWithError(c, err)
			return
		}
		accepted(c, jobID)
		return
	}

	jobID, err := h.processor.StartFileImport(raw, format)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	accepted(c, jobID)
}

// uploadFormat prefers an explicit format form field over the file extension
func (h *Handler) uploadFormat(c *gin.Context, filename string) (processor.Format, error) {
	if f := c.PostForm("format"); f != "" {
		return processor.ParseFormat(f)
	}
	return processor.FormatFromFilename(filename)
}

// HandleImportObject imports a file that is already in object storage
func (h *Handler) HandleImportObject(c *gin.Context) {
	var req ObjectImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	jobID, err := h.processor.StartObjectImport(req.Bucket, req.Key)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	accepted(c, jobID)
}

// HandleImportCRM pulls a CRM inside the API process
func (h *Handler) HandleImportCRM(c *gin.Context) {
	var req crm.ConnectorConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	jobID, err := h.processor.StartCRMImport(req)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	accepted(c, jobID)
}

// HandleScheduleCRMSync enqueues a CRM pull for the background worker
func (h *Handler) HandleScheduleCRMSync(c *gin.Context) {
	ctx := c.Request.Context()

	if h.scheduler == nil {
		apierrors.ServiceUnavailable(c, apierrors.CodeImportsUnavailable, "background sync is not configured", nil)
		return
	}

	var req crm.ConnectorConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}
	if !req.Provider.Valid() {
		apierrors.RespondWithError(c, fmt.Errorf("%w: unknown provider %q", processor.ErrInvalidConnector, req.Provider))
		return
	}

	jobID, err := h.scheduler.EnqueueCRMSync(ctx, req)
	if err != nil {
		h.logger.Error(ctx, "failed to schedule crm sync", err)
		apierrors.ServiceUnavailable(c, apierrors.CodeImportsUnavailable, "could not schedule crm sync", err)
		return
	}
	accepted(c, jobID)
}

// HandleGetJob reports a job's registry entry and latest progress. Jobs run by the
// background worker only have progress.
func (h *Handler) HandleGetJob(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	var resp JobStatusResponse
	if job, err := h.processor.Job(jobID); err == nil {
		resp.Job = &job
	}
	if event, err := h.processor.Tracker().Latest(ctx, jobID); err == nil {
		resp.Progress = &event
	} else if !errors.Is(err, progress.ErrUnknownJob) {
		h.logger.Error(ctx, "failed to read import progress", err)
	}

	if resp.Job == nil && resp.Progress == nil {
		apierrors.RespondWithError(c, processor.ErrJobNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleCancelJob(c *gin.Context) {
	if err := h.processor.CancelJob(c.Param("job_id")); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleProgressStream streams progress events over a websocket until the job
// finishes or the client goes away.
func (h *Handler) HandleProgressStream(c *gin.Context) {
	jobID := c.Param("job_id")
	ctx := observability.WithFields(c.Request.Context(), observability.Field{Key: "import_job_id", Value: jobID})
	tracker := h.processor.Tracker()

	if _, err := h.processor.Job(jobID); err != nil {
		if _, err := tracker.Latest(ctx, jobID); err != nil {
			apierrors.RespondWithError(c, processor.ErrJobNotFound)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "failed to upgrade progress stream", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Clients never send anything; a read error means they went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events, err := tracker.Subscribe(ctx, jobID)
	if err != nil {
		h.logger.Error(ctx, "failed to subscribe to import progress", err)
		closeStream(conn, websocket.CloseInternalServerErr, "progress unavailable")
		return
	}

	for event := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug(ctx, "progress stream closed by client")
			return
		}
	}
	closeStream(conn, websocket.CloseNormalClosure, "done")
}

func closeStream(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}

// RegisterRoutes mounts the import endpoints under group
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	start := []gin.HandlerFunc{}
	if h.limiter != nil {
		start = append(start, h.limiter)
	}

	imports := group.Group("/imports")
	{
		imports.POST("/file", append(start, h.HandleUploadFile)...)
		imports.POST("/object", append(start, h.HandleImportObject)...)
		imports.POST("/crm", append(start, h.HandleImportCRM)...)
		imports.POST("/crm/schedule", append(start, h.HandleScheduleCRMSync)...)
		imports.GET("/:job_id", h.HandleGetJob)
		imports.DELETE("/:job_id", h.HandleCancelJob)
		imports.GET("/:job_id/progress", h.HandleProgressStream)
	}
}
