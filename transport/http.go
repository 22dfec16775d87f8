package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sessionkeep/sessionkeep/session"
)

// ErrMalformedResponse is returned when the endpoint answered 200 but the
// body does not contain a usable credential+identity pair.
var ErrMalformedResponse = errors.New("refresh response malformed")

// StatusError reports a non-200 answer from the refresh endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("refresh endpoint returned HTTP %d", e.Code)
}

// HTTPStatus exposes the status code for classification without importing
// this package.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// Client exchanges credentials against a single refresh endpoint.
type Client struct {
	// Endpoint is the absolute URL of the refresh endpoint.
	Endpoint string

	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client

	// UserAgent is sent when non-empty.
	UserAgent string
}

// NewClient creates a client for the given endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID          string   `json:"id"`
		DisplayName string   `json:"display_name"`
		Attributes  []string `json:"attributes"`
	} `json:"user"`
}

// Refresh presents the current credential as a bearer token and returns the
// renewed session on success.
func (c *Client) Refresh(ctx context.Context, current session.Credential) (*session.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+string(current))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling refresh endpoint: %w", err)
	}
	defer resp.Body.Close()

	// Bound the body read; refresh payloads are small.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.AccessToken == "" || parsed.User.ID == "" || parsed.User.DisplayName == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedResponse)
	}

	attrs := parsed.User.Attributes
	if attrs == nil {
		attrs = []string{}
	}
	return &session.Session{
		Credential: session.Credential(parsed.AccessToken),
		Identity: session.Identity{
			ID:          parsed.User.ID,
			DisplayName: parsed.User.DisplayName,
			Attributes:  attrs,
		},
		IssuedAt: time.Now(),
	}, nil
}
