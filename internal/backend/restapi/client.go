// Package restapi implements service.Source against a JSON/HTTP task
// collection endpoint.
package restapi

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

	"golang.org/x/oauth2"

	"tasker/internal/service"
	"tasker/internal/taskerr"
)

// maxErrorBody bounds how much of an error response is kept for the message.
const maxErrorBody = 4 << 10

// Client is a remote task source speaking the /tasks JSON protocol.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL using httpClient for all requests.
// httpClient must not be nil.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// NewHTTPClient builds the HTTP client used by New. Each request is bounded
// by timeout. A non-empty token is sent as a bearer credential.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	if token == "" {
		return &http.Client{Timeout: timeout}
	}
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	c.Timeout = timeout
	return c
}

// Task is the wire representation of a task.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// FromService converts a task to its wire shape.
func FromService(t service.Task) Task {
	return Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

// Service converts the wire shape back to a task.
func (t Task) Service() service.Task {
	return service.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
	}
}

// List implements service.Source.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	const op = "remote list"
	var wire []Task
	if err := c.do(ctx, op, http.MethodGet, "/tasks", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]service.Task, 0, len(wire))
	for _, t := range wire {
		if t.ID == "" {
			return nil, taskerr.New(taskerr.Unknown, op, "task without id in response")
		}
		out = append(out, t.Service())
	}
	return out, nil
}

// Get implements service.Source.
func (c *Client) Get(ctx context.Context, id string) (service.Task, error) {
	const op = "remote get"
	var wire Task
	if err := c.do(ctx, op, http.MethodGet, taskPath(id), nil, &wire); err != nil {
		return service.Task{}, err
	}
	return c.checked(op, wire)
}

// Create implements service.Source.
func (c *Client) Create(ctx context.Context, draft service.Task) (service.Task, error) {
	const op = "remote create"
	var wire Task
	if err := c.do(ctx, op, http.MethodPost, "/tasks", FromService(draft), &wire); err != nil {
		return service.Task{}, err
	}
	return c.checked(op, wire)
}

// Update implements service.Source.
func (c *Client) Update(ctx context.Context, task service.Task) (service.Task, error) {
	const op = "remote update"
	var wire Task
	if err := c.do(ctx, op, http.MethodPut, taskPath(task.ID), FromService(task), &wire); err != nil {
		return service.Task{}, err
	}
	return c.checked(op, wire)
}

// Delete implements service.Source.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "remote delete", http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) checked(op string, wire Task) (service.Task, error) {
	if wire.ID == "" {
		return service.Task{}, taskerr.New(taskerr.Unknown, op, "response carries no task id")
	}
	return wire.Service(), nil
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// do sends one request and decodes a 2xx JSON body into out when out is
// non-nil. Every returned error is classified.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return taskerr.Errorf(taskerr.Unknown, op, "encode request: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return taskerr.Errorf(taskerr.Unknown, op, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The client's own deadline surfaces as a url.Error with Timeout().
		return taskerr.FromTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return taskerr.FromStatus(op, resp.StatusCode, readErrorMessage(resp.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return decodeFailure(ctx, op, err)
	}
	return nil
}

// decodeFailure classifies an error raised while reading a 2xx body. Only a
// body that arrived complete but is not the expected JSON is Unknown; a read
// cut short by a timeout or a dropped connection is a transport failure.
func decodeFailure(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return taskerr.FromTransport(op, ctx.Err())
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return taskerr.Errorf(taskerr.Unknown, op, "decode response: %v", err)
	case errors.Is(err, io.EOF):
		return taskerr.New(taskerr.Unknown, op, "empty response body")
	}
	return taskerr.FromTransport(op, err)
}

// readErrorMessage extracts a human message from an error body. It accepts
// {"error":{"message":...}}, {"error":"..."}, {"message":"..."} or plain text.
func readErrorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &flat) == nil {
		if flat.Message != "" {
			return flat.Message
		}
		if flat.Error != "" {
			return flat.Error
		}
	}
	return strings.TrimSpace(string(data))
}

// String identifies the endpoint in logs.
func (c *Client) String() string {
	return fmt.Sprintf("rest(%s)", c.baseURL)
}
