// Package vapi is a minimal client for the Vapi voice platform REST API.
package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.vapi.ai"

type Assistant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	FirstMessage string    `json:"firstMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type PhoneNumber struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Name        string `json:"name,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Status      string `json:"status,omitempty"`
	AssistantID string `json:"assistantId,omitempty"`
}

// Client calls Vapi with a tenant's private API key.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Assistants(ctx context.Context, apiKey string) ([]Assistant, error) {
	var out []Assistant
	if err := c.get(ctx, apiKey, "/assistant", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PhoneNumbers(ctx context.Context, apiKey string) ([]PhoneNumber, error) {
	var out []PhoneNumber
	if err := c.get(ctx, apiKey, "/phone-number", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, apiKey, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("vapi request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vapi %s status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
