package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// TokenSource provides the bearer token attached to platform requests.
// workspace.Credential is the standard implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for pre-issued tokens, e.g. a secret store
// access token handed to the process directly.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// Client is a thin JSON client for the managed platform API. All resource
// clients (environments, services, workspaces) go through it.
type Client struct {
	endpoint string
	tokens   TokenSource
	http     *http.Client
}

func NewClient(endpoint string, tokens TokenSource) *Client {
	return &Client{endpoint: endpoint, tokens: tokens, http: http.DefaultClient}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) request(ctx context.Context, method, endpoint string, body io.Reader, result interface{}) error {
	fullEndpoint, err := url.JoinPath(c.endpoint, endpoint)
	if err != nil {
		return fmt.Errorf("error formatting url for platform endpoint %v: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullEndpoint, body)
	if err != nil {
		return fmt.Errorf("error creating %v request for platform endpoint %v: %w", method, endpoint, err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("X-Client-Request-Id", uuid.New().String())

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("error resolving access token for platform request: %w", err)
		}
		req.Header.Add("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %v request to platform endpoint %v: %w", method, endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{Status: res.StatusCode}
		data, readErr := io.ReadAll(res.Body)
		if readErr == nil {
			if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil {
				apiErr.Message = string(data)
			}
			slog.Error("platform returned error", "method", method, "endpoint", endpoint, "code", res.StatusCode, "response", string(data))
		}
		return apiErr
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from platform endpoint %v: %w", method, endpoint, err)
		}
	}

	return nil
}

func (c *Client) Get(ctx context.Context, endpoint string, result interface{}) error {
	return c.request(ctx, "GET", endpoint, nil, result)
}

func (c *Client) Post(ctx context.Context, endpoint string, payload, result interface{}) error {
	body, err := encodeBody(payload)
	if err != nil {
		return err
	}
	return c.request(ctx, "POST", endpoint, body, result)
}

func (c *Client) Put(ctx context.Context, endpoint string, payload, result interface{}) error {
	body, err := encodeBody(payload)
	if err != nil {
		return err
	}
	return c.request(ctx, "PUT", endpoint, body, result)
}

func (c *Client) Delete(ctx context.Context, endpoint string) error {
	return c.request(ctx, "DELETE", endpoint, nil, nil)
}

func encodeBody(payload interface{}) (io.Reader, error) {
	if payload == nil {
		return nil, nil
	}
	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return nil, fmt.Errorf("error encoding request payload: %w", err)
	}
	return body, nil
}
