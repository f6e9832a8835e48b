// Package rooms is the request/response room-management client used before
// a race channel is opened: list rooms, create a room from a dictionary,
// and force-start a room.
package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Room is one entry in the room listing.
type Room struct {
	RoomID  string `json:"room_id"`
	Players int    `json:"players"`
	Started bool   `json:"started"`
}

// Client talks to the room-management REST API. The bearer token is an
// explicit constructor argument, mirroring how the race channel is
// authenticated.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// List returns all rooms currently known to the server.
func (c *Client) List(ctx context.Context) ([]Room, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/rooms", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Rooms []Room `json:"rooms"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse room list: %w", err)
	}
	return resp.Rooms, nil
}

// CreateRandom creates a room with a random text drawn from the given
// dictionary and returns its id.
func (c *Client) CreateRandom(ctx context.Context, dictionaryID string) (string, error) {
	endpoint := fmt.Sprintf("/dictionaries/%s/create-random-room", dictionaryID)
	body, err := c.makeRequest(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse created room: %w", err)
	}
	return resp.RoomID, nil
}

// Start force-starts a room. Satisfies race.Starter.
func (c *Client) Start(ctx context.Context, roomID string) error {
	_, err := c.makeRequest(ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/start", roomID), nil)
	return err
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	if body == nil {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}
	return responseBody, nil
}
