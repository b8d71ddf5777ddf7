package handlers

import (
	"errors"
	"net/http"

	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RuleHandler manages per-entity automation rules and their actions.
type RuleHandler struct {
	service *services.EntityRuleService
}

func NewRuleHandler(service *services.EntityRuleService) *RuleHandler {
	return &RuleHandler{service: service}
}

func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list rules", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *RuleHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	rule, err := h.service.GetRule(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Rule not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to get rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) Toggle(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	rule, err := h.service.ToggleRule(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Rule not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to toggle rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) AddAction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req services.RuleActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	action, err := h.service.AddAction(c.Request.Context(), id, &req)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrInvalidActionForEntity):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, ErrorResponse{Error: "Failed to add action", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, action)
}

func (h *RuleHandler) UpdateActionConfig(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Config string `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	action, err := h.service.UpdateActionConfig(c.Request.Context(), id, req.Config)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update action", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, action)
}

func (h *RuleHandler) ToggleAction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	action, err := h.service.ToggleAction(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Action not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to toggle action", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, action)
}

func (h *RuleHandler) DeleteAction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteAction(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "action not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete action", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func RegisterRuleRoutes(r *gin.RouterGroup, handler *RuleHandler) {
	rules := r.Group("/rules")
	{
		rules.GET("", handler.List)
		rules.GET(":id", handler.Get)
		rules.PUT(":id/toggle", handler.Toggle)
		rules.POST(":id/actions", handler.AddAction)
	}
	actions := r.Group("/rule-actions")
	{
		actions.PUT(":id/config", handler.UpdateActionConfig)
		actions.PUT(":id/toggle", handler.ToggleAction)
		actions.DELETE(":id", handler.DeleteAction)
	}
}
