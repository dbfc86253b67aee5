package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Request is one question and the context it should be answered from.
type Request struct {
	Question string
	Context  string
	Model    string
}

// ClientConfig configures the Groq chat-completions client.
type ClientConfig struct {
	APIKey  string
	BaseURL string // Without the /v1 suffix, e.g. https://api.groq.com/openai.

	Temperature      float64
	MaxTokens        int
	MaxContextTokens int // 0 sends the context untruncated.

	Timeout              time.Duration
	MaxRetries           int
	RetryInitialInterval time.Duration
	RequestsPerSecond    float64
	Burst                int
	StatsWindow          time.Duration
}

// Client calls Groq's OpenAI-compatible chat completions API.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        *slog.Logger

	Stats *LLMStats
}

func NewClient(cfg ClientConfig, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		log:     log,
		Stats:   NewLLMStats(cfg.StatsWindow),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "groq",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerFault(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiErrorResponse struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete asks the model to answer req.Question from req.Context. It never
// returns an error: failures are reported in Result.Failure.
func (c *Client) Complete(ctx context.Context, req Request) Result {
	start := time.Now()
	body := chatCompletionRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "user", Content: BuildPrompt(req.Question, TruncateContext(req.Context, c.cfg.MaxContextTokens))},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.chatWithRetry(ctx, body)
	})
	elapsed := time.Since(start).Milliseconds()
	c.Stats.Record(elapsed, err != nil && !isCallerFault(err))

	if err != nil {
		f := classify(err)
		c.log.Warn("completion failed", "model", req.Model, "kind", f.Kind, "duration_ms", elapsed, "error", err)
		return Result{Model: req.Model, Failure: f}
	}

	resp := out.(*chatCompletionResponse)
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	c.log.Info("completion", "model", model, "duration_ms", elapsed,
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return Result{
		Answer:           resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
}

// chatWithRetry retries throttled, server and transport errors with
// exponential backoff; everything else fails immediately.
func (c *Client) chatWithRetry(ctx context.Context, body chatCompletionRequest) (*chatCompletionResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitialInterval
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	maxRetries := c.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	var resp *chatCompletionResponse
	attempt := 0
	op := func() error {
		attempt++
		r, err := c.chat(ctx, body)
		if err == nil {
			resp = r
			return nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		c.log.Warn("retryable completion error", "model", body.Model, "attempt", attempt, "delay", delay, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) chat(ctx context.Context, body chatCompletionRequest) (*chatCompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errInvalidResponse, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", errInvalidResponse)
	}
	return &out, nil
}

// apiErrorMessage pulls error.message out of an OpenAI-style error body.
func apiErrorMessage(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return truncate(strings.TrimSpace(string(body)), 500)
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
