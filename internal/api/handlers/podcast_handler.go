package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/podcaster/internal/api/middleware"
	"github.com/yoockh/podcaster/internal/services"
	"github.com/yoockh/podcaster/internal/utils"
	"github.com/yoockh/podcaster/internal/workers"
)

// PodcastHandler exposes the three pipeline steps.
type PodcastHandler struct {
	pipeline  services.PipelineService
	sessions  services.SessionService
	queue     workers.FinalizeQueue
	maxUpload int64
}

// NewPodcastHandler takes an optional queue; without one, async finalize
// requests run inline. sessions is used to reject unknown ids before they
// are queued.
func NewPodcastHandler(pipeline services.PipelineService, sessions services.SessionService, queue workers.FinalizeQueue, maxUpload int64) *PodcastHandler {
	return &PodcastHandler{pipeline: pipeline, sessions: sessions, queue: queue, maxUpload: maxUpload}
}

type InitializeRequest struct {
	YoutubeURL string `json:"youtube_url"`
	Source     string `json:"source"`
}

type ExtendRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

type FinalizeRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Async     bool   `json:"async"`
}

type FinalizeResponse struct {
	SessionID string `json:"session_id"`
	AudioPath string `json:"audio_path"`
	VideoPath string `json:"video_path,omitempty"`
}

type QueuedResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func (h *PodcastHandler) Initialize(c *gin.Context) {
	const op = "PodcastHandler.Initialize"

	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = strings.TrimSpace(req.YoutubeURL)
	}
	if source == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "youtube_url or source is required", nil))
		return
	}

	res, err := h.pipeline.Initialize(c.Request.Context(), source)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PodcastHandler) Upload(c *gin.Context) {
	const op = "PodcastHandler.Upload"

	if h.maxUpload > 0 {
		// leave room for the multipart envelope
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, utils.E(utils.CodeTooLarge, op, "upload exceeds the size limit", err))
			return
		}
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "multipart field \"file\" is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable upload", err))
		return
	}
	defer f.Close()

	res, err := h.pipeline.InitializeUpload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PodcastHandler) Extend(c *gin.Context) {
	const op = "PodcastHandler.Extend"

	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "session_id and question are required", err))
		return
	}
	c.Set(middleware.SessionKey, req.SessionID)

	res, err := h.pipeline.Extend(c.Request.Context(), req.SessionID, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PodcastHandler) Finalize(c *gin.Context) {
	const op = "PodcastHandler.Finalize"

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "session_id is required", err))
		return
	}
	c.Set(middleware.SessionKey, req.SessionID)

	if req.Async && h.queue != nil {
		if h.sessions != nil {
			if _, err := h.sessions.Load(c.Request.Context(), req.SessionID); err != nil {
				writeError(c, err)
				return
			}
		}
		if err := h.queue.Enqueue(c.Request.Context(), req.SessionID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, QueuedResponse{SessionID: req.SessionID, Status: "queued"})
		return
	}

	res, err := h.pipeline.Finalize(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FinalizeResponse{
		SessionID: res.SessionID,
		AudioPath: res.AudioURL,
		VideoPath: res.VideoURL,
	})
}
