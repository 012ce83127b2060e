package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kontrolhq/kontrol-backend/internal/config"
	"github.com/kontrolhq/kontrol-backend/internal/response"
	"github.com/kontrolhq/kontrol-backend/internal/service"
)

// QuizHandler serves the question paper and the client surface settings.
type QuizHandler struct {
	sessions *service.SessionService
	cfg      *config.Config
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(sessions *service.SessionService, cfg *config.Config) *QuizHandler {
	return &QuizHandler{sessions: sessions, cfg: cfg}
}

// GetPaper godoc
// GET /api/v1/quizzes/paper
// Returns the question bank for rendering. Student deployments get the
// tasks with answer keys stripped; the surface block tells the client which
// affordances to render.
func (h *QuizHandler) GetPaper(c *gin.Context) {
	paper := h.sessions.StudentPaper()

	response.Success(c, http.StatusOK, gin.H{
		"paper": paper,
		"surface": gin.H{
			"mode":                     h.cfg.Mode,
			"duration_minutes":         h.cfg.DurationMinutes,
			"reminders_minutes":        h.cfg.RemindersMinutes,
			"require_identity":         h.cfg.RequireIdentity,
			"export_only_after_finish": h.cfg.ExportOnlyAfterFinish,
			"watermark":                h.cfg.Watermark,
			"block_copy":               h.cfg.BlockCopy,
			"submit_transport":         h.cfg.SubmitTransport,
		},
	})
}
