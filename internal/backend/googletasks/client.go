// Package googletasks implements service.Source using the Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasker/internal/config"
	"tasker/internal/service"
	"tasker/internal/taskerr"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls when none is configured.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements service.Source against one Google Tasks list.
type Client struct {
	svc     *tasks.Service
	listID  string
	timeout time.Duration
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes the access token as needed.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	c, err := NewWithHTTPClient(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	c.listID = cfg.Google.ListID
	c.timeout = cfg.Timeout
	return c, nil
}

// OAuthConfig loads the OAuth client credentials from the config dir.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// NewWithHTTPClient creates a client on the default list with a custom HTTP
// client. Extra options (e.g. option.WithEndpoint) are applied after it.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, listID: DefaultListID, timeout: APITimeout}, nil
}

// WithList returns a copy of c bound to listID.
func (c *Client) WithList(listID string) *Client {
	cp := *c
	cp.listID = listID
	return &cp
}

// List implements service.Source. Completed and hidden tasks are included.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	const op = "google list"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var result []service.Task
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				task, err := toService(t)
				if err != nil {
					return err
				}
				result = append(result, task)
			}
			return nil
		})
	if err != nil {
		return nil, classify(op, err)
	}
	return result, nil
}

// Get implements service.Source.
func (c *Client) Get(ctx context.Context, id string) (service.Task, error) {
	const op = "google get"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	t, err := c.svc.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		return service.Task{}, classify(op, err)
	}
	return convert(op, t)
}

// Create implements service.Source. The draft id is ignored; Google assigns
// its own.
func (c *Client) Create(ctx context.Context, draft service.Task) (service.Task, error) {
	const op = "google create"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	t, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{
		Title:  draft.Title,
		Notes:  draft.Description,
		Status: status(draft.Completed),
	}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, classify(op, err)
	}
	return convert(op, t)
}

// Update implements service.Source.
func (c *Client) Update(ctx context.Context, task service.Task) (service.Task, error) {
	const op = "google update"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	patch := &tasks.Task{
		Title:  task.Title,
		Notes:  task.Description,
		Status: status(task.Completed),
		// An empty description must clear the notes.
		ForceSendFields: []string{"Notes"},
	}
	t, err := c.svc.Tasks.Patch(c.listID, task.ID, patch).Context(ctx).Do()
	if err != nil {
		return service.Task{}, classify(op, err)
	}
	updated, err := convert(op, t)
	if err != nil {
		return service.Task{}, err
	}
	// Updated moves on every patch; keep the creation time the caller knows.
	if !task.CreatedAt.IsZero() {
		updated.CreatedAt = task.CreatedAt.UTC()
	}
	return updated, nil
}

// Delete implements service.Source.
func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return classify("google delete", err)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = APITimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func status(completed bool) string {
	if completed {
		return statusCompleted
	}
	return statusNeedsAction
}

func convert(op string, t *tasks.Task) (service.Task, error) {
	task, err := toService(t)
	if err != nil {
		return service.Task{}, classify(op, err)
	}
	return task, nil
}

// toService maps an API task. Google exposes no creation time, so the last
// modification time stands in for CreatedAt.
func toService(t *tasks.Task) (service.Task, error) {
	if t == nil || t.Id == "" {
		return service.Task{}, errors.New("task without id in response")
	}
	var createdAt time.Time
	if t.Updated != "" {
		ts, err := time.Parse(time.RFC3339, t.Updated)
		if err != nil {
			return service.Task{}, fmt.Errorf("task %s: bad updated time: %w", t.Id, err)
		}
		createdAt = ts.UTC()
	}
	return service.Task{
		ID:          t.Id,
		Title:       t.Title,
		Description: t.Notes,
		Completed:   t.Status == statusCompleted,
		CreatedAt:   createdAt,
	}, nil
}

// classify maps API failures into the error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" && len(apiErr.Errors) > 0 {
			msg = apiErr.Errors[0].Message
		}
		e := taskerr.FromStatus(op, apiErr.Code, msg)
		e.Err = err
		return e
	}
	return taskerr.FromTransport(op, err)
}
