package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"eventcast/internal/logger"
)

const (
	// Default values for Claude API
	defaultModel         = "claude-3-5-haiku-20241022"
	defaultMaxTokens     = 500
	defaultTemperature   = 0.7
	defaultClaudeTimeout = 30 * time.Second

	// Retry configuration
	defaultMaxRetries   = 3
	defaultBaseDelay    = 1 * time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultJitterFactor = 0.1

	// Rate limiting
	defaultRateLimit = 50 // requests per minute
)

// ClaudeClient handles Anthropic Claude API interactions
type ClaudeClient struct {
	client      anthropic.Client
	config      ClaudeConfig
	rateLimiter *ClaudeRateLimiter
}

// ClaudeConfig contains configuration for Claude API client
type ClaudeConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	RateLimit   int // requests per minute
}

// ClaudeRateLimiter handles rate limiting for Claude API requests
type ClaudeRateLimiter struct {
	requests    []time.Time
	maxRequests int
	window      time.Duration
}

// NewClaudeRateLimiter creates a new rate limiter for Claude API
func NewClaudeRateLimiter(requestsPerMinute int) *ClaudeRateLimiter {
	return &ClaudeRateLimiter{
		requests:    make([]time.Time, 0),
		maxRequests: requestsPerMinute,
		window:      time.Minute,
	}
}

// Wait blocks until a request can be made according to rate limits
func (rl *ClaudeRateLimiter) Wait(ctx context.Context) error {
	now := time.Now()

	// Remove requests outside the time window
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(rl.requests) && rl.requests[i].Before(cutoff) {
		i++
	}
	rl.requests = rl.requests[i:]

	if len(rl.requests) < rl.maxRequests {
		rl.requests = append(rl.requests, now)
		return nil
	}

	sleepTime := rl.requests[0].Add(rl.window).Sub(now)
	if sleepTime > 0 {
		logger.LogWithFields(logger.InfoLevel, "Claude API rate limit reached, waiting", map[string]any{
			"wait_seconds": sleepTime.Seconds(),
		})

		select {
		case <-time.After(sleepTime):
			rl.requests = append(rl.requests[1:], now)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rl.requests = append(rl.requests, now)
	return nil
}

// ClaudeAPIError represents errors from the Claude API
type ClaudeAPIError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	StatusCode int
	Retryable  bool
}

func (e *ClaudeAPIError) Error() string {
	return fmt.Sprintf("Claude API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRetryable returns true if this error indicates a retryable condition
func (e *ClaudeAPIError) IsRetryable() bool {
	return e.Retryable
}

// NewClaudeClient creates a new Claude API client with the provided configuration
func NewClaudeClient(config ClaudeConfig) (*ClaudeClient, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("Claude API key is required")
	}

	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}
	if config.Temperature <= 0 {
		config.Temperature = defaultTemperature
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultClaudeTimeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultMaxRetries
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaultBaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaultMaxDelay
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	return &ClaudeClient{
		client:      client,
		config:      config,
		rateLimiter: NewClaudeRateLimiter(config.RateLimit),
	}, nil
}

// TextResponse contains a generated completion
type TextResponse struct {
	Text        string    // Generated text
	TokensUsed  int       // Number of output tokens used
	GeneratedAt time.Time // Timestamp of generation
}

// GenerateText sends a prompt to Claude with retry logic and rate limiting
// and returns the first text block of the response.
func (c *ClaudeClient) GenerateText(ctx context.Context, systemContext, prompt string) (*TextResponse, error) {
	complete := logger.LogOperationStart("claude_api_request_with_retry", map[string]any{
		"model":       c.config.Model,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
		"max_retries": c.config.MaxRetries,
	})

	messageReq := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.MaxTokens),
		Temperature: anthropic.Float(c.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	}
	if systemContext != "" {
		messageReq.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemContext,
			},
		}
	}

	resp, err := c.executeWithRetry(ctx, messageReq)
	if err != nil {
		complete(fmt.Errorf("Claude API request failed after retries: %w", err))
		return nil, err
	}

	if len(resp.Content) == 0 {
		complete(fmt.Errorf("empty response from Claude API"))
		return nil, fmt.Errorf("empty response from Claude API")
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			text = block.Text
			break
		}
	}

	if text == "" {
		complete(fmt.Errorf("no text content in Claude API response"))
		return nil, fmt.Errorf("no text content in Claude API response")
	}

	complete(nil)

	return &TextResponse{
		Text:        strings.TrimSpace(text),
		TokensUsed:  int(resp.Usage.OutputTokens),
		GeneratedAt: time.Now(),
	}, nil
}

// executeWithRetry executes a Claude API request with retry logic and rate limiting
func (c *ClaudeClient) executeWithRetry(ctx context.Context, messageReq anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter cancelled: %w", err)
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)

		if attempt > 0 {
			logger.LogWithFields(logger.InfoLevel, "Retrying Claude API request", map[string]any{
				"attempt":     attempt + 1,
				"max_retries": c.config.MaxRetries + 1,
			})
		}

		resp, err := c.client.Messages.New(reqCtx, messageReq)
		cancel()

		if err != nil {
			lastErr = err
			claudeErr := c.parseClaudeError(err)

			if attempt == c.config.MaxRetries || !claudeErr.IsRetryable() {
				if !claudeErr.IsRetryable() {
					logger.LogWithFields(logger.ErrorLevel, "Non-retryable Claude API error", map[string]any{
						"error":   err.Error(),
						"attempt": attempt + 1,
					})
					return nil, claudeErr
				}
				break
			}

			delay := c.calculateRetryDelay(attempt)

			logger.LogWithFields(logger.WarnLevel, "Claude API request failed, retrying", map[string]any{
				"error":        err.Error(),
				"attempt":      attempt + 1,
				"next_attempt": attempt + 2,
				"delay_ms":     delay.Milliseconds(),
			})

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if attempt > 0 {
			logger.LogWithFields(logger.InfoLevel, "Claude API request succeeded after retries", map[string]any{
				"successful_attempt": attempt + 1,
			})
		}
		return resp, nil
	}

	claudeErr := c.parseClaudeError(lastErr)
	logger.LogWithFields(logger.ErrorLevel, "Claude API request failed after all retries", map[string]any{
		"total_attempts": c.config.MaxRetries + 1,
		"final_error":    lastErr.Error(),
	})

	return nil, fmt.Errorf("Claude API request failed after %d attempts: %w", c.config.MaxRetries+1, claudeErr)
}

// calculateRetryDelay calculates the delay for the next retry attempt using exponential backoff with jitter
func (c *ClaudeClient) calculateRetryDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.config.BaseDelay) * math.Pow(2, float64(attempt)))

	if delay > c.config.MaxDelay {
		delay = c.config.MaxDelay
	}

	// Jitter avoids synchronized retries across concurrent requests
	jitter := time.Duration(float64(delay) * defaultJitterFactor * (rand.Float64() - 0.5) * 2)
	delay += jitter

	if delay < 0 {
		delay = c.config.BaseDelay
	}

	return delay
}

// parseClaudeError converts various error types into ClaudeAPIError with retry information
func (c *ClaudeClient) parseClaudeError(err error) *ClaudeAPIError {
	if err == nil {
		return &ClaudeAPIError{
			Type:      "unknown",
			Message:   "unknown error",
			Retryable: false,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ClaudeAPIError{
			Type:      "timeout",
			Message:   "request timeout",
			Retryable: true,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &ClaudeAPIError{
			Type:      "cancelled",
			Message:   "request cancelled",
			Retryable: false,
		}
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "429") {
		return &ClaudeAPIError{
			Type:       "rate_limit_error",
			Message:    "API rate limit exceeded",
			StatusCode: 429,
			Retryable:  true,
		}
	}

	if strings.Contains(errStr, "overloaded") || strings.Contains(errStr, "529") {
		return &ClaudeAPIError{
			Type:       "overloaded_error",
			Message:    "API temporarily overloaded",
			StatusCode: 529,
			Retryable:  true,
		}
	}

	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(errStr, code) {
			return &ClaudeAPIError{
				Type:      "server_error",
				Message:   "upstream server error",
				Retryable: true,
			}
		}
	}

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
		return &ClaudeAPIError{
			Type:       "authentication_error",
			Message:    "invalid API key",
			StatusCode: 401,
			Retryable:  false,
		}
	}

	if strings.Contains(errStr, "400") || strings.Contains(errStr, "invalid_request") {
		return &ClaudeAPIError{
			Type:       "invalid_request_error",
			Message:    err.Error(),
			StatusCode: 400,
			Retryable:  false,
		}
	}

	// Network-level failures are worth one more try
	for _, marker := range []string{"connection", "timeout", "eof", "reset"} {
		if strings.Contains(errStr, marker) {
			return &ClaudeAPIError{
				Type:      "network_error",
				Message:   err.Error(),
				Retryable: true,
			}
		}
	}

	return &ClaudeAPIError{
		Type:      "unknown",
		Message:   err.Error(),
		Retryable: false,
	}
}
