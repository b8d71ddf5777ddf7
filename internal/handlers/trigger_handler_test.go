package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inboxcrm/internal/models"
	"inboxcrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTriggerHandlerFixture(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:trigger_handler_" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.EmailTrigger{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	router := gin.New()
	api := router.Group("/api")
	RegisterTriggerRoutes(api, NewTriggerHandler(services.NewTriggerService(db, logrus.New())))
	return router
}

func TestTriggerHandler_CreateAndTest(t *testing.T) {
	router := newTriggerHandlerFixture(t)

	payload := map[string]interface{}{
		"trigger_type": "record_created",
		"entity_table": "people",
		"template_id":  1,
		"conditions": map[string]interface{}{
			"field":    "source",
			"operator": "equals",
			"value":    "web",
		},
	}
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var trigger models.EmailTrigger
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &trigger))

	// Matching record.
	record, _ := json.Marshal(map[string]string{"source": "web"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/triggers/"+itoa(trigger.ID)+"/test", bytes.NewReader(record))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Matched bool `json:"matched"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Matched)

	// Non-matching record.
	record, _ = json.Marshal(map[string]string{"source": "phone"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/triggers/"+itoa(trigger.ID)+"/test", bytes.NewReader(record))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Matched)
}

func TestTriggerHandler_Create_InvalidCondition(t *testing.T) {
	router := newTriggerHandlerFixture(t)

	payload := map[string]interface{}{
		"trigger_type": "record_created",
		"template_id":  1,
		"conditions": map[string]interface{}{
			"field":          "source",
			"operator":       "equals",
			"value":          "web",
			"and_conditions": []map[string]interface{}{{"field": "x", "operator": "is_empty"}},
		},
	}
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTriggerHandler_Delete(t *testing.T) {
	router := newTriggerHandlerFixture(t)

	body, _ := json.Marshal(map[string]interface{}{"trigger_type": "email_received", "template_id": 1})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	var trigger models.EmailTrigger
	_ = json.Unmarshal(w.Body.Bytes(), &trigger)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/triggers/"+itoa(trigger.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/triggers/"+itoa(trigger.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
