package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/kontrolhq/kontrol-backend/internal/repository"
	"github.com/kontrolhq/kontrol-backend/internal/response"
	"github.com/kontrolhq/kontrol-backend/internal/session"
	"github.com/kontrolhq/kontrol-backend/internal/validator"
	"github.com/rs/zerolog"
)

// CollectHandler is the server side of the remote transport: it receives
// result packs and archives them. Guarded by the submit-token middleware.
type CollectHandler struct {
	submissions *repository.SubmissionRepository
	log         zerolog.Logger
}

// NewCollectHandler creates a new CollectHandler.
func NewCollectHandler(submissions *repository.SubmissionRepository, log zerolog.Logger) *CollectHandler {
	return &CollectHandler{
		submissions: submissions,
		log:         log.With().Str("component", "collect_handler").Logger(),
	}
}

// CollectPack godoc
// POST /api/v1/collect
// Archives an uploaded result pack. The content hash is recomputed server
// side — never trusted from the client — and duplicate content is absorbed
// silently, mirroring the sender's idempotence guarantee.
func (h *CollectHandler) CollectPack(c *gin.Context) {
	var pack model.ResultPack
	if fields := validator.Bind(c, &pack); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	hash := session.PackHash(&pack)
	inserted, err := h.submissions.Insert(c.Request.Context(), &pack, hash)
	if err != nil {
		h.log.Error().Err(err).Str("variant", pack.Variant).Msg("Archive pack failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().
		Str("variant", pack.Variant).
		Bool("duplicate", !inserted).
		Msg("Pack collected")

	status := http.StatusCreated
	if !inserted {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{
		"content_hash": hash,
		"duplicate":    !inserted,
	})
}
