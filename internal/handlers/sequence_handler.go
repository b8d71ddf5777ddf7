package handlers

import (
	"errors"
	"net/http"

	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SequenceHandler manages email sequences and their steps.
type SequenceHandler struct {
	service *services.SequenceService
}

func NewSequenceHandler(service *services.SequenceService) *SequenceHandler {
	return &SequenceHandler{service: service}
}

func (h *SequenceHandler) List(c *gin.Context) {
	sequences, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list sequences", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sequences)
}

func (h *SequenceHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	sequence, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Sequence not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to get sequence", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (h *SequenceHandler) Create(c *gin.Context) {
	var req services.SequenceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	sequence, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create sequence", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sequence)
}

func (h *SequenceHandler) Toggle(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	sequence, err := h.service.Toggle(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Sequence not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to toggle sequence", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (h *SequenceHandler) AddStep(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req services.SequenceStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	step, err := h.service.AddStep(c.Request.Context(), id, &req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to add step", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, step)
}

func (h *SequenceHandler) DeleteStep(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteStep(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "step not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete step", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func RegisterSequenceRoutes(r *gin.RouterGroup, handler *SequenceHandler) {
	sequences := r.Group("/sequences")
	{
		sequences.GET("", handler.List)
		sequences.GET(":id", handler.Get)
		sequences.POST("", handler.Create)
		sequences.PUT(":id/toggle", handler.Toggle)
		sequences.POST(":id/steps", handler.AddStep)
	}
	steps := r.Group("/sequence-steps")
	{
		steps.DELETE(":id", handler.DeleteStep)
	}
}
