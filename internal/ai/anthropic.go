package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	opts       Options
	httpClient *http.Client
	log        *zap.Logger
}

func NewAnthropic(opts Options, log *zap.Logger) *Anthropic {
	if opts.BaseURL == "" {
		opts.BaseURL = anthropicBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Anthropic{
		opts: opts,
		// Per-call deadlines come from the request context; this is the
		// backstop for calls issued without one.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        log,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Anthropic) buildRequest(req Request, stream bool) anthropicRequest {
	temp := 0.8
	if req.Kind == KindChecker {
		temp = 0.0
	}
	return anthropicRequest{
		Model:       c.opts.model(req.Kind),
		MaxTokens:   c.opts.maxTokens(req),
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.User}},
		Temperature: temp,
		Stream:      stream,
	}
}

func (c *Anthropic) post(ctx context.Context, body any, stream bool) (*http.Response, error) {
	if c.opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key not configured")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.opts.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request: %w", err)
	}
	return resp, nil
}

func (c *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}
		resp, err := c.post(ctx, c.buildRequest(req, false), false)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("anthropic: read response: %w", err)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(body))
		}
		var parsed anthropicResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("anthropic: parse response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("anthropic: api error: %s", parsed.Error.Message)
		}
		var sb strings.Builder
		for _, block := range parsed.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		c.log.Debug("anthropic call",
			zap.String("kind", string(req.Kind)),
			zap.Int("input_tokens", parsed.Usage.InputTokens),
			zap.Int("output_tokens", parsed.Usage.OutputTokens),
			zap.Duration("elapsed", time.Since(start)))
		return strings.TrimSpace(sb.String()), nil
	}
	return "", fmt.Errorf("anthropic: retries exhausted: %w", lastErr)
}

func (c *Anthropic) GenerateStream(ctx context.Context, req Request, recv func(string)) (string, error) {
	resp, err := c.post(ctx, c.buildRequest(req, true), true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(body))
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var evt struct {
			Type  string `json:"type"`
			Delta *struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}
		if evt.Error != nil {
			return sb.String(), fmt.Errorf("anthropic: stream error: %s", evt.Error.Message)
		}
		if evt.Type == "content_block_delta" && evt.Delta != nil && evt.Delta.Text != "" {
			sb.WriteString(evt.Delta.Text)
			if recv != nil {
				recv(evt.Delta.Text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return sb.String(), fmt.Errorf("anthropic: read stream: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
