package handlers

import (
	"net/http"

	"inboxcrm/internal/registry"
	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
)

// RegistryHandler serves the static entity registry and merge-field catalog
// that the UI renders its pickers from.
type RegistryHandler struct{}

func NewRegistryHandler() *RegistryHandler {
	return &RegistryHandler{}
}

type entityInfo struct {
	Table          string   `json:"table"`
	Label          string   `json:"label"`
	Icon           string   `json:"icon"`
	Color          string   `json:"color"`
	AllowedActions []string `json:"allowed_actions"`
}

func (h *RegistryHandler) ListEntities(c *gin.Context) {
	out := make([]entityInfo, 0, len(registry.EntityTables))
	for _, table := range registry.EntityTables {
		cfg := registry.Config(table)
		allowed := registry.AllowedActions(table)
		actions := make([]string, 0, len(allowed))
		for _, a := range allowed {
			actions = append(actions, string(a))
		}
		out = append(out, entityInfo{
			Table:          table,
			Label:          cfg.Label,
			Icon:           cfg.Icon,
			Color:          cfg.Color,
			AllowedActions: actions,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *RegistryHandler) GetEntity(c *gin.Context) {
	table := c.Param("table")
	if !registry.KnownEntityTable(table) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Unknown entity table", Message: table})
		return
	}
	cfg := registry.Config(table)
	allowed := registry.AllowedActions(table)
	actions := make([]string, 0, len(allowed))
	for _, a := range allowed {
		actions = append(actions, string(a))
	}
	c.JSON(http.StatusOK, entityInfo{
		Table:          table,
		Label:          cfg.Label,
		Icon:           cfg.Icon,
		Color:          cfg.Color,
		AllowedActions: actions,
	})
}

func (h *RegistryHandler) MergeFields(c *gin.Context) {
	c.JSON(http.StatusOK, services.MergeFieldCatalog)
}

func RegisterRegistryRoutes(r *gin.RouterGroup, handler *RegistryHandler) {
	reg := r.Group("/registry")
	{
		reg.GET("/entities", handler.ListEntities)
		reg.GET("/entities/:table", handler.GetEntity)
		reg.GET("/merge-fields", handler.MergeFields)
	}
}
