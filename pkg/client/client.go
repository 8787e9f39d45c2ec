// Package client is a Go client for the TinyLeap workshop API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one TinyLeap server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Agent calls can take as long as the server's LLM timeout.
		http: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FieldError is one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an RFC 7807 problem returned by the server.
type Error struct {
	Status int          `json:"status"`
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("tinyleap: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("tinyleap: %d %s", e.Status, e.Title)
}

// StatusOf returns the HTTP status of a server error, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsConflict reports whether err is a 409 from the server, such as an
// action not allowed in the current session step.
func IsConflict(err error) bool { return StatusOf(err) == http.StatusConflict }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends a request and decodes a JSON response into out, which may be nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// call is do for methods that return a decoded value.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(data) > 0 {
		_ = json.Unmarshal(data, e)
		e.Status = resp.StatusCode
	}
	return e
}

func workshopPath(id string) string {
	return "/api/workshops/" + url.PathEscape(id)
}

// Health reports server status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	return call[Health](ctx, c, http.MethodGet, "/api/health", nil)
}

// ListWorkshops returns every workshop, most recently updated first.
func (c *Client) ListWorkshops(ctx context.Context) ([]WorkshopSummary, error) {
	var list []WorkshopSummary
	if err := c.do(ctx, http.MethodGet, "/api/workshops", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// LatestWorkshop returns the most recently updated workshop. The server
// creates an empty one when none exists.
func (c *Client) LatestWorkshop(ctx context.Context) (*Workshop, error) {
	return call[Workshop](ctx, c, http.MethodGet, "/api/workshops/latest", nil)
}

// CreateWorkshop creates a workshop.
func (c *Client) CreateWorkshop(ctx context.Context, vision string) (*Workshop, error) {
	return call[Workshop](ctx, c, http.MethodPost, "/api/workshops", map[string]string{"vision": vision})
}

// GetWorkshop loads a workshop.
func (c *Client) GetWorkshop(ctx context.Context, id string) (*Workshop, error) {
	return call[Workshop](ctx, c, http.MethodGet, workshopPath(id), nil)
}

// DeleteWorkshop deletes a workshop. Deleting a missing workshop succeeds.
func (c *Client) DeleteWorkshop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, workshopPath(id), nil, nil)
}

// SetVision replaces the workshop vision.
func (c *Client) SetVision(ctx context.Context, id, vision string) (*Workshop, error) {
	return call[Workshop](ctx, c, http.MethodPut, workshopPath(id)+"/vision", map[string]string{"vision": vision})
}

// ClearWorkshop empties the vision, behaviors and SOP.
func (c *Client) ClearWorkshop(ctx context.Context, id string) (*Workshop, error) {
	return call[Workshop](ctx, c, http.MethodPost, workshopPath(id)+"/clear", nil)
}

// AddBehavior adds a user behavior at the center of the canvas.
func (c *Client) AddBehavior(ctx context.Context, id, text string) (*Behavior, error) {
	return call[Behavior](ctx, c, http.MethodPost, workshopPath(id)+"/behaviors", map[string]string{"text": text})
}

// GenerateBehaviors asks the designer for new behaviors and returns those added.
func (c *Client) GenerateBehaviors(ctx context.Context, id, lang string) ([]Behavior, error) {
	var resp struct {
		Added []Behavior `json:"added"`
	}
	if err := c.do(ctx, http.MethodPost, workshopPath(id)+"/behaviors/generate", map[string]string{"language": lang}, &resp); err != nil {
		return nil, err
	}
	return resp.Added, nil
}

func behaviorPath(id, behaviorID string) string {
	return workshopPath(id) + "/behaviors/" + url.PathEscape(behaviorID)
}

// MoveBehavior repositions a behavior. Values outside 0–100 are clamped.
func (c *Client) MoveBehavior(ctx context.Context, id, behaviorID string, ability, impact float64) (*Behavior, error) {
	body := map[string]float64{"ability": ability, "impact": impact}
	return call[Behavior](ctx, c, http.MethodPut, behaviorPath(id, behaviorID)+"/position", body)
}

// EditBehavior changes a behavior's text, which resets its evaluation.
func (c *Client) EditBehavior(ctx context.Context, id, behaviorID, text string) (*Behavior, error) {
	return call[Behavior](ctx, c, http.MethodPut, behaviorPath(id, behaviorID)+"/text", map[string]string{"text": text})
}

// DeleteBehavior removes a behavior.
func (c *Client) DeleteBehavior(ctx context.Context, id, behaviorID string) error {
	return c.do(ctx, http.MethodDelete, behaviorPath(id, behaviorID), nil, nil)
}

// GenerateSOP writes the SOP for the workshop's golden and challenge behaviors.
func (c *Client) GenerateSOP(ctx context.Context, id, lang string) (*SOP, error) {
	return call[SOP](ctx, c, http.MethodPost, workshopPath(id)+"/sop", map[string]string{"language": lang})
}

// PasswordSet reports whether the workshop password has been set.
func (c *Client) PasswordSet(ctx context.Context) (bool, error) {
	var resp struct {
		IsSet bool `json:"isSet"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.IsSet, nil
}

// VerifyPassword checks the workshop password.
func (c *Client) VerifyPassword(ctx context.Context, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"password": password}, nil)
}

// SetPassword sets or changes the workshop password.
func (c *Client) SetPassword(ctx context.Context, password, oldPassword string) error {
	body := map[string]string{"password": password, "oldPassword": oldPassword}
	return c.do(ctx, http.MethodPost, "/api/auth/set", body, nil)
}
