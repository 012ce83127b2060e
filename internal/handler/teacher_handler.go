package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/kontrolhq/kontrol-backend/internal/repository"
	"github.com/kontrolhq/kontrol-backend/internal/response"
	"github.com/kontrolhq/kontrol-backend/internal/service"
	"github.com/kontrolhq/kontrol-backend/internal/validator"
)

// TeacherHandler handles the teacher login and the collected-work review.
type TeacherHandler struct {
	authService *service.AuthService
	submissions *repository.SubmissionRepository
}

// NewTeacherHandler creates a new TeacherHandler.
func NewTeacherHandler(authService *service.AuthService, submissions *repository.SubmissionRepository) *TeacherHandler {
	return &TeacherHandler{authService: authService, submissions: submissions}
}

// Login godoc
// POST /api/v1/auth/teacher/login
// Validates the teacher password and returns a JWT.
func (h *TeacherHandler) Login(c *gin.Context) {
	var req model.TeacherLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.authService.TeacherLogin(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token})
}

// ListSubmissions godoc
// GET /api/v1/teacher/submissions?variant=...&page=1&per_page=20
// Lists archived packs for a variant, newest first.
func (h *TeacherHandler) ListSubmissions(c *gin.Context) {
	variant := c.Query("variant")
	if variant == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	items, total, err := h.submissions.ListByVariant(c.Request.Context(), variant, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, items, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}
