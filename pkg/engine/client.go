// Package engine is the HTTP client for the remote automation engine: the
// service that actually runs entity rules, classifies email and ingests
// webhooks. None of that logic lives in this repository; everything here
// is a thin RPC-style call.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the automation engine over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
	config     *Config
}

// EngineInterface is the surface consumed by handlers; it exists so tests
// can substitute a fake.
type EngineInterface interface {
	RunRules(ctx context.Context, req *RunRulesRequest) (*RunRulesResponse, error)
	Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResponse, error)
	HealthCheck(ctx context.Context) error
}

// NewClient builds a client with an otel-instrumented transport.
func NewClient(config *Config, logger *logrus.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		config: config,
	}
}

// RunRules invokes the engine's rule runtime for one email.
func (c *Client) RunRules(ctx context.Context, req *RunRulesRequest) (*RunRulesResponse, error) {
	var resp RunRulesResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/v1/rules/run", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Classify invokes the engine's AI classifier for one email.
func (c *Client) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResponse, error) {
	var resp ClassifyResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/v1/classify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthCheck pings the engine.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doRequestWithRetry(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) createRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Request, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, endpoint)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return req, nil
}

func (c *Client) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debugf("engine request: %s %s -> %d", req.Method, req.URL.String(), resp.StatusCode)

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("engine error [%d]: %s (code: %s)", resp.StatusCode, errResp.Error, errResp.ErrorCode)
		}
		return fmt.Errorf("engine error [%d]: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) doRequestWithRetry(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
			c.logger.Warnf("engine retry attempt %d/%d", attempt, c.config.MaxRetries)
		}

		req, err := c.createRequest(ctx, method, endpoint, body)
		if err != nil {
			return err
		}
		if lastErr = c.doRequest(req, result); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("engine request failed after %d retries: %w", c.config.MaxRetries, lastErr)
}
