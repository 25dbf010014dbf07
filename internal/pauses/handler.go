package pauses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calldoc/backend/internal/middleware"
	"github.com/calldoc/backend/pkg/response"
)

const maxReasonLen = 1000

// PauseRequest is the optional body of POST /recordings/:id/pause.
type PauseRequest struct {
	Reason string `json:"reason"`
}

// Handler handles pause/resume HTTP endpoints.
type Handler struct {
	svc      *Service
	exporter *Exporter // optional: audit trail export to S3
	logger   *zap.Logger
}

// NewHandler creates a pause handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// SetExporter sets the optional audit trail exporter.
func (h *Handler) SetExporter(e *Exporter) { h.exporter = e }

// Pause handles POST /recordings/:id/pause.
func (h *Handler) Pause(c *gin.Context) {
	recordingID, ok := recordingParam(c)
	if !ok {
		return
	}
	var body PauseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	if len(body.Reason) > maxReasonLen {
		response.BadRequest(c, "reason too long")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	res, err := h.svc.Pause(c.Request.Context(), recordingID, userID, body.Reason)
	if err != nil {
		h.logger.Error("pause recording failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to pause recording")
		return
	}
	writeResult(c, res)
}

// Resume handles POST /recordings/:id/resume.
func (h *Handler) Resume(c *gin.Context) {
	recordingID, ok := recordingParam(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	res, err := h.svc.Resume(c.Request.Context(), recordingID, userID)
	if err != nil {
		h.logger.Error("resume recording failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to resume recording")
		return
	}
	writeResult(c, res)
}

// State handles GET /recordings/:id/pause-state.
func (h *Handler) State(c *gin.Context) {
	recordingID, ok := recordingParam(c)
	if !ok {
		return
	}
	st, err := h.svc.State(c.Request.Context(), recordingID)
	if err != nil {
		h.readError(c, err, recordingID, "failed to load pause state")
		return
	}
	response.OK(c, st)
}

// Segments handles GET /recordings/:id/segments. Used by the streaming layer to skip paused audio.
func (h *Handler) Segments(c *gin.Context) {
	recordingID, ok := recordingParam(c)
	if !ok {
		return
	}
	segs, err := h.svc.Segments(c.Request.Context(), recordingID)
	if err != nil {
		h.readError(c, err, recordingID, "failed to compute segments")
		return
	}
	response.OK(c, segs)
}

// History handles GET /recordings/:id/pause-events.
func (h *Handler) History(c *gin.Context) {
	recordingID, ok := recordingParam(c)
	if !ok {
		return
	}
	events, err := h.svc.History(c.Request.Context(), recordingID)
	if err != nil {
		h.readError(c, err, recordingID, "failed to list pause events")
		return
	}
	response.OK(c, events)
}

// Export handles POST /recordings/:id/pause-events/export.
func (h *Handler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.ServiceUnavailable(c, "audit export not configured")
		return
	}
	recordingID, ok := recordingParam(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	out, err := h.exporter.Export(c.Request.Context(), recordingID, userID)
	if err != nil {
		h.readError(c, err, recordingID, "failed to export pause events")
		return
	}
	response.Created(c, out)
}

// AutoResumeCheck handles POST /pauses/auto-resume-check for operators and external schedulers.
func (h *Handler) AutoResumeCheck(c *gin.Context) {
	n, err := h.svc.AutoResumeCheck(c.Request.Context())
	if err != nil {
		h.logger.Error("auto-resume check failed", zap.Error(err))
		response.Internal(c, "auto-resume check failed")
		return
	}
	response.OK(c, gin.H{"resumed": n})
}

func (h *Handler) readError(c *gin.Context, err error, recordingID uuid.UUID, msg string) {
	if errors.Is(err, ErrRecordingNotFound) {
		response.NotFound(c, MsgNotFound)
		return
	}
	h.logger.Error(msg, zap.Error(err), zap.String("recording_id", recordingID.String()))
	response.Internal(c, msg)
}

func recordingParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return uuid.Nil, false
	}
	return id, true
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
	}
	return id, ok
}

func writeResult(c *gin.Context, res *Result) {
	switch res.Outcome {
	case OutcomeOK:
		response.OK(c, res)
	case OutcomeNotFound:
		response.Fail(c, http.StatusNotFound, string(res.Outcome), res.Message)
	case OutcomeDeleted:
		response.Fail(c, http.StatusGone, string(res.Outcome), res.Message)
	default:
		response.Fail(c, http.StatusConflict, string(res.Outcome), res.Message)
	}
}
