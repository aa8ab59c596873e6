package generate

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
)

const defaultMessagesURL = "https://api.anthropic.com/v1/messages"

// Client calls the Anthropic Messages API in streaming mode to produce
// rewritten outline sections.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	// Stats records per-call latency; may be nil.
	Stats *Stats
}

func NewClient(apiKey, model string, stats *Stats) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultMessagesURL,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		Stats: stats,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream issues a streaming completion and calls emit with the full
// text accumulated so far after every delta. It returns once the
// stream finishes; transient upstream failures before any output are
// reported as RetryableError.
func (c *Client) Stream(ctx context.Context, system, prompt string, emit func(accumulated string)) error {
	start := time.Now()

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 8192,
		System:    system,
		Stream:    true,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var acc strings.Builder
	for scanner.Scan() {
		data, found := strings.CutPrefix(scanner.Text(), "data:")
		if !found {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// Unknown event payloads are skipped, not fatal.
			continue
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				acc.WriteString(ev.Delta.Text)
				emit(acc.String())
			}
		case "error":
			if ev.Error != nil {
				return fmt.Errorf("claude stream error: %s: %s", ev.Error.Type, ev.Error.Message)
			}
			return fmt.Errorf("claude stream error")
		case "message_stop":
			c.record(start)
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	c.record(start)
	return nil
}

func (c *Client) record(start time.Time) {
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
