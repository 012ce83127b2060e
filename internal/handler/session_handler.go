package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/kontrolhq/kontrol-backend/internal/response"
	"github.com/kontrolhq/kontrol-backend/internal/service"
	"github.com/kontrolhq/kontrol-backend/internal/session"
	"github.com/kontrolhq/kontrol-backend/internal/validator"
)

// SessionHandler handles the quiz session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	submits  *service.SubmitService
	cfg      *config.Config
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, submits *service.SubmitService, cfg *config.Config) *SessionHandler {
	return &SessionHandler{sessions: sessions, submits: submits, cfg: cfg}
}

// StartSession godoc
// POST /api/v1/sessions
// Passes the identity gate and starts the countdown. One-way: the returned
// session is already running.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if h.cfg.RequireIdentity {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	} else {
		// Identity is optional in anonymous deployments; a missing or
		// empty body starts a nameless session.
		_ = c.ShouldBindJSON(&req)
	}

	view, err := h.sessions.StartSession(c.Request.Context(), req.FullName, req.ClassName)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// GetState godoc
// GET /api/v1/sessions/:session_id/state
// Restores a session after a reload: identity, answers, current question
// and the recomputed remaining time.
func (h *SessionHandler) GetState(c *gin.Context) {
	view, err := h.sessions.GetState(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SaveAnswer godoc
// PUT /api/v1/sessions/:session_id/answers/:task_id
// Write-through save of a single answer.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.sessions.SaveAnswer(
		c.Request.Context(),
		c.Param("session_id"),
		model.TaskID(c.Param("task_id")),
		req.Value,
	)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Navigate godoc
// POST /api/v1/sessions/:session_id/navigate
// Moves the current question index; out-of-range moves clamp at the edges.
func (h *SessionHandler) Navigate(c *gin.Context) {
	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	idx, err := h.sessions.Navigate(c.Request.Context(), c.Param("session_id"), req.Delta)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"current_index": idx})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Manual early submission. Incomplete work needs confirm_partial (or is
// rejected outright when the deployment accepts only finished work); the
// 409 answer carries the solved/total summary for the prompt.
func (h *SessionHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sessionID := c.Param("session_id")
	result, err := h.submits.SubmitNow(c.Request.Context(), sessionID, req.ConfirmPartial)
	if err != nil {
		if errors.Is(err, service.ErrConfirmRequired) || errors.Is(err, service.ErrCompletionRequired) {
			solved, total, perr := h.sessions.Progress(c.Request.Context(), sessionID)
			if perr != nil {
				response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
				return
			}
			code := response.ErrConfirmRequired
			if errors.Is(err, service.ErrCompletionRequired) {
				code = response.ErrCompletionRequired
			}
			response.FailWithData(c, http.StatusConflict, code,
				gin.H{"solved": solved, "total": total})
			return
		}
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Reset godoc
// POST /api/v1/sessions/:session_id/reset
// Wipes the session completely. Requires the confirm flag.
func (h *SessionHandler) Reset(c *gin.Context) {
	var req model.ResetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.Reset(c.Request.Context(), c.Param("session_id")); err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

// failSession maps service and identity-gate errors onto response codes.
func (h *SessionHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNameIncomplete):
		response.Fail(c, http.StatusBadRequest, response.ErrNameIncomplete)
	case errors.Is(err, session.ErrClassEmpty):
		response.Fail(c, http.StatusBadRequest, response.ErrClassRequired)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrTaskNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionFinished):
		response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
	case errors.Is(err, service.ErrNoTasks):
		response.Fail(c, http.StatusConflict, response.ErrNoTasks)
	case errors.Is(err, service.ErrDeliveryFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrDeliveryFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
