package handlers

import (
	"net/http"

	"inboxcrm/pkg/engine"

	"github.com/gin-gonic/gin"
)

// EngineHandler proxies on-demand calls to the remote automation engine.
type EngineHandler struct {
	client engine.EngineInterface
}

func NewEngineHandler(client engine.EngineInterface) *EngineHandler {
	return &EngineHandler{client: client}
}

func (h *EngineHandler) RunRules(c *gin.Context) {
	var req engine.RunRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	resp, err := h.client.RunRules(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Engine call failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EngineHandler) Classify(c *gin.Context) {
	var req engine.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	resp, err := h.client.Classify(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Engine call failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *EngineHandler) Health(c *gin.Context) {
	if err := h.client.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Engine unreachable", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func RegisterEngineRoutes(r *gin.RouterGroup, handler *EngineHandler) {
	eng := r.Group("/engine")
	{
		eng.POST("/run-rules", handler.RunRules)
		eng.POST("/classify", handler.Classify)
		eng.GET("/health", handler.Health)
	}
}
