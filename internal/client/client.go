package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "http://127.0.0.1:8000"

type Client struct {
	baseURL string
	// streams stay open for the lifetime of an agent turn, so the stream
	// client carries no timeout; cancellation comes from the request context.
	stream *http.Client
	http   *http.Client
}

func New(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		stream:  &http.Client{},
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Chat posts the projected history and returns the agent event stream for
// the turn. The returned cancel func aborts the underlying transport.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (<-chan AgentStreamEvent, func(), error) {
	return c.openStream(ctx, "/agent/chat", req)
}

// ConfirmAction approves a pending action and returns the continuation
// stream for the resumed turn.
func (c *Client) ConfirmAction(ctx context.Context, actionID string) (<-chan AgentStreamEvent, func(), error) {
	if strings.TrimSpace(actionID) == "" {
		return nil, nil, errors.New("action id is required")
	}
	return c.openStream(ctx, "/agent/confirm/"+actionID, nil)
}

// RejectAction declines a pending action and returns the continuation
// stream carrying the agent's follow-up.
func (c *Client) RejectAction(ctx context.Context, actionID string) (<-chan AgentStreamEvent, func(), error) {
	if strings.TrimSpace(actionID) == "" {
		return nil, nil, errors.New("action id is required")
	}
	return c.openStream(ctx, "/agent/reject/"+actionID, nil)
}

func (c *Client) openStream(ctx context.Context, path string, body any) (<-chan AgentStreamEvent, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "text/event-stream")

	streamLogf("stream open path=%s", path)
	resp, err := c.stream.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		streamLogf("stream error path=%s status=%d", path, resp.StatusCode)
		return nil, nil, decodeAPIError(resp)
	}

	ch := make(chan AgentStreamEvent, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		start := time.Now()
		count, dropped := decodeEventStream(ctx, resp.Body, ch)
		streamLogf("stream close path=%s count=%d dropped=%d dur=%s", path, count, dropped, time.Since(start))
	}()

	return ch, cancel, nil
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	message := payload.Error
	if message == "" {
		message = payload.Detail
	}
	if message == "" {
		message = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}
