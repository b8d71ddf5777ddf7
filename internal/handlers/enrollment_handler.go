package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"inboxcrm/internal/models"
	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EnrollmentHandler drives contacts through sequence enrollments.
type EnrollmentHandler struct {
	service *services.EnrollmentService
}

func NewEnrollmentHandler(service *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req services.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	enrollment, err := h.service.Enroll(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to enroll", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

func (h *EnrollmentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	enrollment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Enrollment not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to get enrollment", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

func (h *EnrollmentHandler) List(c *gin.Context) {
	sequenceID, err := strconv.ParseUint(c.Query("sequence_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid sequence_id", Message: "sequence_id query parameter is required"})
		return
	}
	enrollments, err := h.service.ListBySequence(c.Request.Context(), uint(sequenceID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list enrollments", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, enrollments)
}

// AdvanceRequest reports the outcome of sending the current step.
type AdvanceRequest struct {
	SendStatus string `json:"send_status"`
	Error      string `json:"error"`
}

func (h *EnrollmentHandler) Advance(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if req.SendStatus == "" {
		req.SendStatus = models.SendSent
	}
	enrollment, err := h.service.Advance(c.Request.Context(), id, req.SendStatus, req.Error)
	if err != nil {
		c.JSON(h.statusFor(err), ErrorResponse{Error: "Failed to advance enrollment", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

func (h *EnrollmentHandler) Pause(c *gin.Context) {
	h.mutate(c, h.service.Pause, "Failed to pause enrollment")
}

func (h *EnrollmentHandler) Resume(c *gin.Context) {
	h.mutate(c, h.service.Resume, "Failed to resume enrollment")
}

func (h *EnrollmentHandler) Unsubscribe(c *gin.Context) {
	h.mutate(c, h.service.Unsubscribe, "Failed to unsubscribe enrollment")
}

func (h *EnrollmentHandler) Fail(c *gin.Context) {
	h.mutate(c, h.service.Fail, "Failed to mark enrollment failed")
}

func (h *EnrollmentHandler) mutate(c *gin.Context, fn func(context.Context, uint) (*models.SequenceEnrollment, error), label string) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	enrollment, err := fn(c.Request.Context(), id)
	if err != nil {
		c.JSON(h.statusFor(err), ErrorResponse{Error: label, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

func (h *EnrollmentHandler) statusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTerminalEnrollment):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func RegisterEnrollmentRoutes(r *gin.RouterGroup, handler *EnrollmentHandler) {
	enrollments := r.Group("/enrollments")
	{
		enrollments.GET("", handler.List)
		enrollments.GET(":id", handler.Get)
		enrollments.POST("", handler.Enroll)
		enrollments.POST(":id/advance", handler.Advance)
		enrollments.PUT(":id/pause", handler.Pause)
		enrollments.PUT(":id/resume", handler.Resume)
		enrollments.PUT(":id/unsubscribe", handler.Unsubscribe)
		enrollments.PUT(":id/fail", handler.Fail)
	}
}
