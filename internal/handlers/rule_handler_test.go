package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inboxcrm/internal/models"
	"inboxcrm/internal/registry"
	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newRuleHandlerFixture(t *testing.T) (*gin.Engine, *services.EntityRuleService, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:rule_handler_" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.EntityAutomationRule{}, &models.RuleAction{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	svc := services.NewEntityRuleService(db, logrus.New())
	if err := svc.EnsureEntityRules(context.Background()); err != nil {
		t.Fatalf("seed rules: %v", err)
	}

	router := gin.New()
	api := router.Group("/api")
	RegisterRuleRoutes(api, NewRuleHandler(svc))
	return router, svc, db
}

func TestRuleHandler_List(t *testing.T) {
	router, _, _ := newRuleHandlerFixture(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rules", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var rules []models.EntityAutomationRule
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	assert.Len(t, rules, len(registry.EntityTables))
	assert.Equal(t, registry.EntityTables[0], rules[0].EntityTable)
}

func TestRuleHandler_Get_NotFound(t *testing.T) {
	router, _, _ := newRuleHandlerFixture(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rules/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rules/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuleHandler_AddAction(t *testing.T) {
	router, _, db := newRuleHandlerFixture(t)

	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "people").First(&rule)

	body, _ := json.Marshal(map[string]interface{}{
		"action_type": "tag",
		"config":      `{"tag_ids":["vip"]}`,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/rules/"+itoa(rule.ID)+"/actions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var action models.RuleAction
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &action))
	assert.Equal(t, `{"tag_ids":["vip"]}`, action.Config)
}

func TestRuleHandler_AddAction_Disallowed(t *testing.T) {
	router, _, db := newRuleHandlerFixture(t)

	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "personal_contacts").First(&rule)

	body, _ := json.Marshal(map[string]interface{}{"action_type": "extract_invoice"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/rules/"+itoa(rule.ID)+"/actions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRuleHandler_ToggleRule(t *testing.T) {
	router, _, db := newRuleHandlerFixture(t)

	var rule models.EntityAutomationRule
	db.Where("entity_table = ?", "people").First(&rule)

	body := []byte(`{"is_active": false}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/rules/"+itoa(rule.ID)+"/toggle", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got models.EntityAutomationRule
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.IsActive)

	// Missing is_active fails binding.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("PUT", "/api/rules/"+itoa(rule.ID)+"/toggle", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuleHandler_DeleteAction_NotFound(t *testing.T) {
	router, _, _ := newRuleHandlerFixture(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/rule-actions/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
