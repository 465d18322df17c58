// Package chatapi is the HTTP/SSE transport client for the chat backend. It
// turns the streaming completion endpoint into a channel of typed events and
// wraps the thread listing/detail/deletion endpoints.
package chatapi

import (
	"bufio"
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

// ErrNotAuthenticated is returned when the token provider has no session.
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenProvider supplies the bearer credential of the active auth session.
type TokenProvider interface {
	// Token returns the access token, or ErrNotAuthenticated.
	Token() (string, error)
}

// Thread is a conversation record owned by the backend.
type Thread struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Title             string `json:"title"`
	SystemInstruction string `json:"system_instruction"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// Message is a persisted chat turn within a thread.
type Message struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	AudioURL  string `json:"audio_url"`
	CreatedAt string `json:"created_at"`
}

// ThreadDetail is a thread together with its full message history.
type ThreadDetail struct {
	Thread   Thread    `json:"thread"`
	Messages []Message `json:"messages"`
}

// Client talks to the chat API.
type Client struct {
	baseURL string
	tokens  TokenProvider

	// streamClient carries no timeout: a completion stream stays open until
	// the server finishes or the context is cancelled.
	streamClient *http.Client
	restClient   *http.Client
}

// NewClient creates a chat API client for the given base URL
// (e.g. http://localhost:8000/api/v1).
func NewClient(baseURL string, tokens TokenProvider) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokens:       tokens,
		streamClient: &http.Client{},
		restClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	Message     string `json:"message"`
	ThreadID    string `json:"thread_id,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// SendMessage opens the streaming completion request and forwards every
// parsed event to the events channel, in arrival order. The channel is
// closed when the stream ends. A non-2xx initial response aborts with an
// error carrying the status code and response body. Cancelling the context
// aborts the stream; the resulting error wraps context.Canceled.
func (c *Client) SendMessage(ctx context.Context, text, threadID, audioBase64 string, events chan<- StreamEvent) error {
	defer close(events)

	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	requestBody, err := json.Marshal(sendRequest{
		Message:     text,
		ThreadID:    threadID,
		AudioBase64: audioBase64,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/send", bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		event, err := parseEvent([]byte(strings.TrimPrefix(line, "data: ")))
		if err != nil {
			// Skip malformed events and continue
			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return fmt.Errorf("stream cancelled: %w", ctx.Err())
		}

		if event.Type == EventDone {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %w", err)
	}

	return nil
}

// ListThreads fetches all threads of the authenticated user.
func (c *Client) ListThreads(ctx context.Context) ([]Thread, error) {
	var threads []Thread
	if err := c.getJSON(ctx, "/chat/threads", &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// GetThread fetches one thread and its full message list.
func (c *Client) GetThread(ctx context.Context, threadID string) (*ThreadDetail, error) {
	var detail ThreadDetail
	if err := c.getJSON(ctx, "/chat/threads/"+threadID, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeleteThread removes a thread on the backend.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/chat/threads/"+threadID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.restClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.restClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
