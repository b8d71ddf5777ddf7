package engine

import "time"

// Config holds connection settings for the remote automation engine.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns sane local-development defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:9100",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// RunRulesRequest asks the engine to run entity automation rules against
// one stored email.
type RunRulesRequest struct {
	EmailID     uint   `json:"email_id"`
	EntityTable string `json:"entity_table,omitempty"`
}

// RunRulesResponse reports what the engine applied.
type RunRulesResponse struct {
	Matched        bool `json:"matched"`
	ActionsApplied int  `json:"actions_applied"`
}

// ClassifyRequest asks the AI classifier which entity table an email
// belongs to.
type ClassifyRequest struct {
	EmailID uint   `json:"email_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ClassifyResponse is the classifier's verdict.
type ClassifyResponse struct {
	EntityTable string  `json:"entity_table"`
	Confidence  float64 `json:"confidence"`
}

// ErrorResponse is the engine's error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}
