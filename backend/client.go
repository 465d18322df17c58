// Package backend reads and writes app-owned rows in the hosted database
// through its REST interface (PostgREST wire format).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sahabat/chatapi"
	"sahabat/recommend"
)

// Client talks to the database's REST endpoints on behalf of the signed-in
// user.
type Client struct {
	baseURL    string
	anonKey    string
	tokens     chatapi.TokenProvider
	httpClient *http.Client
}

// NewClient creates a database client for the given base URL (the auth
// provider host; rows live under /rest/v1).
func NewClient(baseURL, anonKey string, tokens chatapi.TokenProvider) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type recommendationRow struct {
	UserID         string              `json:"user_id"`
	Recommendation recommend.Product   `json:"recommendation"`
	Answers        recommend.AnswerSet `json:"answers"`
	CreatedAt      string              `json:"created_at,omitempty"`
	UpdatedAt      string              `json:"updated_at,omitempty"`
}

// SaveRecommendation upserts the user's questionnaire result, keyed on
// user_id so retaking the questionnaire overwrites the previous row.
func (c *Client) SaveRecommendation(ctx context.Context, userID string, product recommend.Product, answers recommend.AnswerSet) error {
	now := time.Now().UTC().Format(time.RFC3339)
	row := recommendationRow{
		UserID:         userID,
		Recommendation: product,
		Answers:        answers,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}

	url := c.baseURL + "/rest/v1/user_recommendations?on_conflict=user_id"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("database returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// GetRecommendation fetches the user's saved questionnaire result. A user who
// has not completed the questionnaire yields ("", nil, nil).
func (c *Client) GetRecommendation(ctx context.Context, userID string) (recommend.Product, recommend.AnswerSet, error) {
	url := c.baseURL + "/rest/v1/user_recommendations?select=recommendation,answers&user_id=eq." + userID
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return "", nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("database error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("database returned status %d: %s", resp.StatusCode, string(body))
	}

	var rows []recommendationRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rows) == 0 {
		return "", nil, nil
	}
	return rows[0].Recommendation, rows[0].Answers, nil
}

func (c *Client) authorize(req *http.Request) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
