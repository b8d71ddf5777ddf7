package handlers

import (
	"net/http"

	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
)

// SendLogHandler exposes the append-only automation send log.
type SendLogHandler struct {
	service *services.SendLogService
}

func NewSendLogHandler(service *services.SendLogService) *SendLogHandler {
	return &SendLogHandler{service: service}
}

func (h *SendLogHandler) List(c *gin.Context) {
	var req services.SendLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	rows, total, err := h.service.List(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list send log", Message: err.Error()})
		return
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = len(rows)
		if pageSize == 0 {
			pageSize = 1
		}
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	})
}

func (h *SendLogHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to compute stats", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func RegisterSendLogRoutes(r *gin.RouterGroup, handler *SendLogHandler) {
	logs := r.Group("/send-log")
	{
		logs.GET("", handler.List)
		logs.GET("/stats", handler.Stats)
	}
}
