package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testClient(srvURL string) *Client {
	return NewClient(&Config{
		BaseURL:    srvURL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
		RetryDelay: time.Millisecond,
	}, logrus.New())
}

func TestClient_RunRules(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-API-Key")
		assert.Equal(t, "/v1/rules/run", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req RunRulesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, uint(42), req.EmailID)

		_ = json.NewEncoder(w).Encode(RunRulesResponse{Matched: true, ActionsApplied: 2})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).RunRules(context.Background(), &RunRulesRequest{EmailID: 42, EntityTable: "people"})
	assert.NoError(t, err)
	assert.True(t, resp.Matched)
	assert.Equal(t, 2, resp.ActionsApplied)
	assert.Equal(t, "test-key", gotAuth)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "unknown entity table", ErrorCode: "BAD_TABLE"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(), &ClassifyRequest{EmailID: 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity table")
	assert.Contains(t, err.Error(), "BAD_TABLE")
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(&Config{
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, logrus.New())

	err := client.HealthCheck(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestClient_RetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(&Config{
		BaseURL:    srv.URL,
		Timeout:    time.Second,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}, logrus.New())

	err := client.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 retries")
}

func TestClient_RespectsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(&Config{
		BaseURL:    srv.URL,
		Timeout:    time.Second,
		MaxRetries: 5,
		RetryDelay: time.Hour, // would block without cancellation
	}, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := client.HealthCheck(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
