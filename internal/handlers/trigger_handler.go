package handlers

import (
	"errors"
	"net/http"

	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TriggerHandler manages event-driven email triggers.
type TriggerHandler struct {
	service *services.TriggerService
}

func NewTriggerHandler(service *services.TriggerService) *TriggerHandler {
	return &TriggerHandler{service: service}
}

func (h *TriggerHandler) List(c *gin.Context) {
	triggers, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list triggers", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, triggers)
}

func (h *TriggerHandler) Create(c *gin.Context) {
	var req services.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	trigger, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrInvalidCondition) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, ErrorResponse{Error: "Failed to create trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, trigger)
}

func (h *TriggerHandler) Toggle(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	trigger, err := h.service.Toggle(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Trigger not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to toggle trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, trigger)
}

func (h *TriggerHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "trigger not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// Test evaluates a trigger's conditions against a caller-supplied record
// without firing anything. Used by the UI's "test trigger" button.
func (h *TriggerHandler) Test(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var record map[string]string
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	trigger, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Trigger not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to get trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trigger_id": trigger.ID,
		"matched":    h.service.Matches(*trigger, record),
	})
}

func RegisterTriggerRoutes(r *gin.RouterGroup, handler *TriggerHandler) {
	triggers := r.Group("/triggers")
	{
		triggers.GET("", handler.List)
		triggers.POST("", handler.Create)
		triggers.PUT(":id/toggle", handler.Toggle)
		triggers.DELETE(":id", handler.Delete)
		triggers.POST(":id/test", handler.Test)
	}
}
