// Package llm is a minimal OpenAI-compatible chat client that streams
// completion fragments.
package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"resty.dev/v3"

	"cryptoanalyst/internal/fetcher"
	"cryptoanalyst/internal/ratelimit"
)

const providerName = "llm"

// systemMessage frames every analysis request
const systemMessage = "You are a cryptocurrency market analyst. Base every statement strictly on the data provided. " +
	"Do not invent prices, events or news. When a data source reports an error, say so plainly. " +
	"Write a concise report for an informed retail reader and end with a one-line risk note."

// ErrIncompleteStream is returned when the event stream ends before the model
// signalled completion.
var ErrIncompleteStream = errors.New("llm: stream ended before completion")

// Client is an OpenAI-compatible LLM client
type Client struct {
	apiKey  string
	model   string
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewClient creates a new LLM client
func NewClient(endpoint, apiKey, model string, limiter *ratelimit.Limiter) *Client {
	// No client timeout: the caller's context bounds the whole stream.
	client := fetcher.NewHTTPClient(strings.TrimRight(endpoint, "/"), fetcher.DefaultTimeout).
		SetTimeout(0).
		SetHeader("Accept", "text/event-stream")

	return &Client{
		apiKey:  apiKey,
		model:   model,
		client:  client,
		limiter: limiter,
	}
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// ChatRequest represents an OpenAI chat completion request
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// StreamChunk represents a streaming response chunk
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Stream asks the model to write about prompt and yields content fragments in
// order. Each range over the result issues a new request. Iteration stops at
// the first error, which is yielded with an empty fragment. Cancelling ctx
// aborts the in-flight response.
func (c *Client) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	messages := []Message{
		{Role: "system", Content: systemMessage},
		{Role: "user", Content: prompt},
	}

	return func(yield func(string, error) bool) {
		body, err := c.open(ctx, messages)
		if err != nil {
			yield("", err)
			return
		}
		defer body.Close()

		for fragment, err := range readEvents(body) {
			if !yield(fragment, err) || err != nil {
				return
			}
		}
	}
}

// open sends the streaming request and returns the event-stream body
func (c *Client) open(ctx context.Context, messages []Message) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx, ratelimit.APILLM); err != nil {
		return nil, fetcher.NewTimeoutError(err)
	}

	req := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetBody(ChatRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: 0.4,
			MaxTokens:   1200,
			Stream:      true,
		})
	if c.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := req.Post("/chat/completions")
	if err := fetcher.CheckResponse(providerName, resp, err); err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	return resp.Body, nil
}

// readEvents parses "data: {...}" server-sent events until [DONE] or a finish
// reason. A malformed event, an error event, or EOF before either terminator
// is yielded as an error.
func readEvents(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var chunk StreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				yield("", fmt.Errorf("malformed stream event %q: %w", truncate(data, 80), err))
				return
			}
			if chunk.Error != nil {
				yield("", fmt.Errorf("model error: %s", chunk.Error.Message))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
			if choice.FinishReason != nil {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("stream reading error: %w", err))
			return
		}
		yield("", ErrIncompleteStream)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
